package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/internal/resputil"
	"github.com/raids-lab/ptms/internal/util"
	"github.com/raids-lab/ptms/pkg/logutils"
	"github.com/raids-lab/ptms/pkg/notify"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewAuthMgr)
}

type AuthMgr struct {
	name     string
	db       *gorm.DB
	tokenMgr *util.TokenManager
}

func NewAuthMgr(conf *RegisterConfig) Manager {
	return &AuthMgr{
		name:     "auth",
		db:       conf.DB,
		tokenMgr: conf.TokenMgr,
	}
}

func (mgr *AuthMgr) GetName() string { return mgr.name }

func (mgr *AuthMgr) RegisterPublic(g *gin.RouterGroup) {
	g.POST("/login", mgr.Login)
}

func (mgr *AuthMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/me", mgr.GetCurrentUser)
	g.PUT("/locale", mgr.UpdateLocale)
}

func (mgr *AuthMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	LoginReq struct {
		Username string `json:"username" binding:"required"` // 用户名
		Password string `json:"password" binding:"required"` // 密码
	}

	LoginResp struct {
		AccessToken string      `json:"accessToken"`
		Context     UserContext `json:"context"`
	}

	UserContext struct {
		ID       uint       `json:"id"`
		Name     string     `json:"name"`
		Nickname string     `json:"nickname"`
		Email    string     `json:"email"`
		Role     model.Role `json:"role"`
		Locale   string     `json:"locale"`
	}
)

func userContextOf(u *model.User) UserContext {
	return UserContext{
		ID:       u.ID,
		Name:     u.Name,
		Nickname: u.Nickname,
		Email:    u.Email,
		Role:     u.Role,
		Locale:   u.Locale,
	}
}

// Login godoc
// @Summary 用户登录
// @Description 校验用户名和密码，返回 JWT Token
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body LoginReq true "登录参数"
// @Success 200 {object} resputil.Response[LoginResp] "登录成功"
// @Failure 400 {object} resputil.Response[any] "请求参数错误"
// @Failure 401 {object} resputil.Response[any] "用户名或密码错误"
// @Router /api/auth/login [post]
func (mgr *AuthMgr) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	l := logutils.Log.WithFields(logutils.Fields{
		"username": req.Username,
	})

	var user model.User
	if err := mgr.db.WithContext(c).Where("name = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("unknown user")
			resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
			return
		}
		l.Error(err)
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	if user.Password == nil || bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(req.Password)) != nil {
		l.Warn("invalid credentials")
		resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
		return
	}
	if user.Status != model.StatusActive {
		l.Warn("user is not active")
		resputil.HTTPError(c, http.StatusUnauthorized, "User is not active", resputil.UserNotAllowed)
		return
	}

	token, err := mgr.tokenMgr.CreateToken(&util.JWTMessage{
		UserID:   user.ID,
		Username: user.Name,
		Role:     user.Role,
	})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	resputil.Success(c, LoginResp{
		AccessToken: token,
		Context:     userContextOf(&user),
	})
}

// GetCurrentUser godoc
// @Summary 当前用户信息
// @Tags Auth
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[UserContext] "当前用户"
// @Router /api/v1/auth/me [get]
func (mgr *AuthMgr) GetCurrentUser(c *gin.Context) {
	token := util.GetToken(c)
	var user model.User
	if err := mgr.db.WithContext(c).First(&user, token.UserID).Error; err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "User not found", resputil.ResourceNotFound)
		return
	}
	resputil.Success(c, userContextOf(&user))
}

type UpdateLocaleReq struct {
	Locale string `json:"locale" binding:"required,oneof=en id"`
}

// UpdateLocale godoc
// @Summary 修改通知语言
// @Tags Auth
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body UpdateLocaleReq true "语言"
// @Success 200 {object} resputil.Response[any] "修改成功"
// @Router /api/v1/auth/locale [put]
func (mgr *AuthMgr) UpdateLocale(c *gin.Context) {
	var req UpdateLocaleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	locale := notify.LocaleID
	if req.Locale == notify.LocaleEN {
		locale = notify.LocaleEN
	}
	if err := mgr.db.WithContext(c).Model(&model.User{}).Where("id = ?", token.UserID).
		Update("locale", locale).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	resputil.Success(c, nil)
}
