package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/internal/resputil"
	"github.com/raids-lab/ptms/pkg/logutils"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewSessionMgr)
}

// SessionMgr manages practicum sessions. Exactly one session is active at a time.
type SessionMgr struct {
	name string
	db   *gorm.DB
}

func NewSessionMgr(conf *RegisterConfig) Manager {
	return &SessionMgr{
		name: "sessions",
		db:   conf.DB,
	}
}

func (mgr *SessionMgr) GetName() string { return mgr.name }

func (mgr *SessionMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *SessionMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/active", mgr.GetActiveSession)
}

func (mgr *SessionMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("", mgr.ListSessions)
	g.POST("", mgr.CreateSession)
	g.PUT("/:id/activate", mgr.ActivateSession)
}

type CreateSessionReq struct {
	Name          string    `json:"name" binding:"required"`
	Year          int       `json:"year" binding:"required"`
	Semester      int       `json:"semester" binding:"required,oneof=1 2"`
	CoordinatorID uint      `json:"coordinatorId" binding:"required"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	Active        bool      `json:"active"`
}

// GetActiveSession godoc
// @Summary 当前学期
// @Tags Session
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[model.Session] "当前学期"
// @Failure 404 {object} resputil.Response[any] "没有进行中的学期"
// @Router /api/v1/sessions/active [get]
func (mgr *SessionMgr) GetActiveSession(c *gin.Context) {
	var session model.Session
	err := mgr.db.WithContext(c).Preload("Coordinator").Where("active = ?", true).
		Order("start_date DESC").First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		resputil.HTTPError(c, http.StatusNotFound, "no active practicum session", resputil.ResourceNotFound)
		return
	}
	if err != nil {
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	resputil.Success(c, session)
}

// ListSessions godoc
// @Summary 学期列表
// @Tags Session
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]model.Session] "学期列表"
// @Router /api/v1/admin/sessions [get]
func (mgr *SessionMgr) ListSessions(c *gin.Context) {
	var sessions []*model.Session
	if err := mgr.db.WithContext(c).Preload("Coordinator").Order("year DESC, semester DESC").
		Find(&sessions).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	resputil.Success(c, sessions)
}

// CreateSession godoc
// @Summary 创建学期
// @Tags Session
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CreateSessionReq true "学期信息"
// @Success 200 {object} resputil.Response[model.Session] "创建成功"
// @Failure 400 {object} resputil.Response[any] "请求参数错误"
// @Router /api/v1/admin/sessions [post]
func (mgr *SessionMgr) CreateSession(c *gin.Context) {
	var req CreateSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	session := &model.Session{
		Name:          req.Name,
		Year:          req.Year,
		Semester:      req.Semester,
		CoordinatorID: req.CoordinatorID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	}
	err := mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		var coordinator model.User
		if err := tx.First(&coordinator, req.CoordinatorID).Error; err != nil {
			return fmt.Errorf("coordinator %d: %w", req.CoordinatorID, err)
		}
		if coordinator.Role != model.RoleCoordinator && coordinator.Role != model.RoleAdmin {
			return fmt.Errorf("user %s is not a coordinator", coordinator.Name)
		}
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		if req.Active {
			return activate(tx, session)
		}
		return nil
	})
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	logutils.Log.Infof("create session success, name: %s, active: %v", session.Name, session.Active)
	resputil.Success(c, session)
}

// ActivateSession godoc
// @Summary 设为当前学期
// @Tags Session
// @Produce json
// @Security Bearer
// @Param id path int true "学期ID"
// @Success 200 {object} resputil.Response[model.Session] "当前学期"
// @Router /api/v1/admin/sessions/{id}/activate [put]
func (mgr *SessionMgr) ActivateSession(c *gin.Context) {
	id, ok := UintParam(c, "id")
	if !ok {
		return
	}
	var session model.Session
	err := mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&session, id).Error; err != nil {
			return err
		}
		return activate(tx, &session)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		resputil.HTTPError(c, http.StatusNotFound, "session not found", resputil.ResourceNotFound)
		return
	}
	if err != nil {
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	resputil.Success(c, session)
}

func activate(tx *gorm.DB, session *model.Session) error {
	if err := tx.Model(&model.Session{}).Where("id <> ? AND active = ?", session.ID, true).
		Update("active", false).Error; err != nil {
		return err
	}
	session.Active = true
	return tx.Model(session).Update("active", true).Error
}
