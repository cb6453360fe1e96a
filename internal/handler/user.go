package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/internal/resputil"
	"github.com/raids-lab/ptms/pkg/logutils"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewUserMgr)
}

type UserMgr struct {
	name string
	db   *gorm.DB
}

func NewUserMgr(conf *RegisterConfig) Manager {
	return &UserMgr{
		name: "users",
		db:   conf.DB,
	}
}

func (mgr *UserMgr) GetName() string { return mgr.name }

func (mgr *UserMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *UserMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/:name", mgr.GetUser)
}

func (mgr *UserMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("", mgr.ListUser)
	g.POST("", mgr.CreateUser)
	g.DELETE("/:name", mgr.DeleteUser)
	g.PUT("/:name/role", mgr.UpdateRole)
	g.PUT("/:name/status", mgr.UpdateStatus)
}

type UserResp struct {
	ID        uint         `json:"id"`        // 用户ID
	Name      string       `json:"name"`      // 用户名称
	Nickname  string       `json:"nickname"`  // 用户昵称
	Email     string       `json:"email"`     // 邮箱
	Role      model.Role   `json:"role"`      // 用户角色
	Status    model.Status `json:"status"`    // 用户状态
	Locale    string       `json:"locale"`    // 通知语言
	CreatedAt time.Time    `json:"createdAt"` // 创建时间
}

func userRespOf(u *model.User) UserResp {
	return UserResp{
		ID:        u.ID,
		Name:      u.Name,
		Nickname:  u.Nickname,
		Email:     u.Email,
		Role:      u.Role,
		Status:    u.Status,
		Locale:    u.Locale,
		CreatedAt: u.CreatedAt,
	}
}

type CreateUserReq struct {
	Name     string     `json:"name" binding:"required"`
	Nickname string     `json:"nickname"`
	Email    string     `json:"email" binding:"required,email"`
	Password string     `json:"password" binding:"required,min=8"`
	Role     model.Role `json:"role" binding:"required,oneof=student coordinator admin"`
	Locale   string     `json:"locale" binding:"omitempty,oneof=en id"`
}

type UpdateRoleReq struct {
	Role model.Role `json:"role" binding:"required,oneof=student coordinator admin"`
}

type UpdateStatusReq struct {
	Status model.Status `json:"status" binding:"required,oneof=active inactive"`
}

type UserNameReq struct {
	Name string `uri:"name" binding:"required"`
}

// CreateUser godoc
// @Summary 创建用户
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CreateUserReq true "用户信息"
// @Success 200 {object} resputil.Response[UserResp] "创建成功"
// @Failure 400 {object} resputil.Response[any] "请求参数错误"
// @Router /api/v1/admin/users [post]
func (mgr *UserMgr) CreateUser(c *gin.Context) {
	var req CreateUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	password := string(hashed)
	user := &model.User{
		Name:     req.Name,
		Nickname: req.Nickname,
		Email:    req.Email,
		Password: &password,
		Role:     req.Role,
		Status:   model.StatusActive,
		Locale:   req.Locale,
	}
	if user.Locale == "" {
		user.Locale = "id"
	}
	if err := mgr.db.WithContext(c).Create(user).Error; err != nil {
		resputil.Error(c, fmt.Sprintf("create user failed, detail: %v", err), resputil.NotSpecified)
		return
	}
	logutils.Log.Infof("create user success, username: %s, role: %s", user.Name, user.Role)
	resputil.Success(c, userRespOf(user))
}

// DeleteUser godoc
// @Summary 删除用户
// @Description 删除用户
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param name path string true "username"
// @Success 200 {object} resputil.Response[string] "删除成功"
// @Failure 400 {object} resputil.Response[any] "请求参数错误"
// @Failure 500 {object} resputil.Response[any] "其他错误"
// @Router /api/v1/admin/users/{name} [delete]
func (mgr *UserMgr) DeleteUser(c *gin.Context) {
	name := c.Param("name")
	res := mgr.db.WithContext(c).Where("name = ?", name).Delete(&model.User{})
	if res.Error != nil {
		resputil.Error(c, fmt.Sprintf("delete user failed, detail: %v", res.Error), resputil.NotSpecified)
		return
	}
	if res.RowsAffected == 0 {
		resputil.HTTPError(c, http.StatusNotFound, "user not found", resputil.ResourceNotFound)
		return
	}
	logutils.Log.Infof("delete user success, username: %s", name)
	resputil.Success(c, "")
}

// ListUser godoc
// @Summary 列出用户信息
// @Description 列出用户信息
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param role query string false "按角色过滤"
// @Success 200 {object} resputil.Response[[]UserResp] "成功获取用户信息"
// @Failure 500 {object} resputil.Response[any] "其他错误"
// @Router /api/v1/admin/users [get]
func (mgr *UserMgr) ListUser(c *gin.Context) {
	var users []*model.User
	q := mgr.db.WithContext(c).Order("id DESC")
	if role := c.Query("role"); role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Find(&users).Error; err != nil {
		resputil.Error(c, fmt.Sprintf("list users failed, detail: %v", err), resputil.NotSpecified)
		return
	}
	resp := make([]UserResp, 0, len(users))
	for _, u := range users {
		resp = append(resp, userRespOf(u))
	}
	logutils.Log.Infof("list users success, count: %d", len(resp))
	resputil.Success(c, resp)
}

// GetUser godoc
// @Summary 获取单个用户信息
// @Description 获取指定用户的详细信息
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param name path string true "username"
// @Success 200 {object} resputil.Response[UserResp] "成功获取用户信息"
// @Failure 404 {object} resputil.Response[any] "用户不存在"
// @Router /api/v1/users/{name} [get]
func (mgr *UserMgr) GetUser(c *gin.Context) {
	name := c.Param("name")
	var user model.User
	if err := mgr.db.WithContext(c).Where("name = ?", name).First(&user).Error; err != nil {
		resputil.HTTPError(c, http.StatusNotFound, fmt.Sprintf("get user failed, detail: %v", err), resputil.ResourceNotFound)
		return
	}
	resputil.Success(c, userRespOf(&user))
}

// UpdateRole godoc
// @Summary 更新角色
// @Description 更新角色
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param name path UserNameReq true "username"
// @Param data body UpdateRoleReq true "role"
// @Success 200 {object} resputil.Response[string] "更新角色成功"
// @Failure 400 {object} resputil.Response[any] "请求参数错误"
// @Failure 500 {object} resputil.Response[any] "其他错误"
// @Router /api/v1/admin/users/{name}/role [put]
func (mgr *UserMgr) UpdateRole(c *gin.Context) {
	var req UpdateRoleReq
	var nameReq UserNameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, fmt.Sprintf("validate update parameters failed, detail: %v", err))
		return
	}
	if err := c.ShouldBindUri(&nameReq); err != nil {
		resputil.BadRequestError(c, fmt.Sprintf("validate update parameters failed, detail: %v", err))
		return
	}
	if !mgr.updateUser(c, nameReq.Name, "role", req.Role) {
		return
	}
	logutils.Log.Infof("update user role success, user: %s, role: %v", nameReq.Name, req.Role)
	resputil.Success(c, "")
}

// UpdateStatus godoc
// @Summary 启用或停用用户
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param name path UserNameReq true "username"
// @Param data body UpdateStatusReq true "status"
// @Success 200 {object} resputil.Response[string] "更新成功"
// @Router /api/v1/admin/users/{name}/status [put]
func (mgr *UserMgr) UpdateStatus(c *gin.Context) {
	var req UpdateStatusReq
	var nameReq UserNameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, fmt.Sprintf("validate update parameters failed, detail: %v", err))
		return
	}
	if err := c.ShouldBindUri(&nameReq); err != nil {
		resputil.BadRequestError(c, fmt.Sprintf("validate update parameters failed, detail: %v", err))
		return
	}
	if !mgr.updateUser(c, nameReq.Name, "status", req.Status) {
		return
	}
	logutils.Log.Infof("update user status success, user: %s, status: %v", nameReq.Name, req.Status)
	resputil.Success(c, "")
}

func (mgr *UserMgr) updateUser(c *gin.Context, name, column string, value any) bool {
	res := mgr.db.WithContext(c).Model(&model.User{}).Where("name = ?", name).Update(column, value)
	if res.Error != nil {
		resputil.Error(c, fmt.Sprintf("update user failed, detail: %v", res.Error), resputil.NotSpecified)
		return false
	}
	if res.RowsAffected == 0 {
		resputil.HTTPError(c, http.StatusNotFound, "user not found", resputil.ResourceNotFound)
		return false
	}
	return true
}
