package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/internal/middleware"
	"github.com/raids-lab/ptms/internal/resputil"
	"github.com/raids-lab/ptms/internal/util"
	"github.com/raids-lab/ptms/pkg/workflow"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewReviewMgr)
}

// ReviewMgr serves the coordinator side of the workflow.
type ReviewMgr struct {
	name   string
	engine *workflow.Engine
}

func NewReviewMgr(conf *RegisterConfig) Manager {
	return &ReviewMgr{
		name:   "reviews",
		engine: conf.Engine,
	}
}

func (mgr *ReviewMgr) GetName() string { return mgr.name }

func (mgr *ReviewMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ReviewMgr) RegisterProtected(g *gin.RouterGroup) {
	g.Use(middleware.AuthCoordinator())
	g.GET("/queue", mgr.ListQueue)
	g.POST("/applications/:id/start", mgr.StartReview)
	g.POST("/applications/:id/bli03", mgr.ApproveBLI03)
	g.POST("/applications/:id/bli04", mgr.VerifyBLI04)
	g.POST("/documents/:id", mgr.ReviewDocument)
	g.GET("/students/:id/export", mgr.ExportStudentDocuments)
}

func (mgr *ReviewMgr) RegisterAdmin(_ *gin.RouterGroup) {}

// ListQueue godoc
// @Summary 审核队列
// @Description 返回当前协调员所负责学期的申请，可按状态过滤（逗号分隔）
// @Tags Review
// @Produce json
// @Security Bearer
// @Param status query string false "状态，如 SUBMITTED,UNDER_REVIEW"
// @Success 200 {object} resputil.Response[[]model.Application] "申请列表"
// @Failure 403 {object} resputil.Response[any] "不是协调员"
// @Router /api/v1/reviews/queue [get]
func (mgr *ReviewMgr) ListQueue(c *gin.Context) {
	var statuses []model.ApplicationStatus
	if raw := c.Query("status"); raw != "" {
		statuses = lo.FilterMap(strings.Split(raw, ","), func(s string, _ int) (model.ApplicationStatus, bool) {
			s = strings.ToUpper(strings.TrimSpace(s))
			return model.ApplicationStatus(s), s != ""
		})
	}
	apps, err := mgr.engine.ListCoordinatorQueue(c, util.GetToken(c).UserID, statuses)
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, apps)
}

// StartReview godoc
// @Summary 开始审核
// @Tags Review
// @Produce json
// @Security Bearer
// @Param id path int true "申请ID"
// @Success 200 {object} resputil.Response[model.Application] "申请"
// @Router /api/v1/reviews/applications/{id}/start [post]
func (mgr *ReviewMgr) StartReview(c *gin.Context) {
	id, ok := UintParam(c, "id")
	if !ok {
		return
	}
	app, err := mgr.engine.StartReview(c, util.GetToken(c).UserID, id)
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, app)
}

type decideFunc func(c *gin.Context, coordinatorID, id uint, d *workflow.Decision) (*model.Document, error)

func (mgr *ReviewMgr) decide(c *gin.Context, f decideFunc) {
	id, ok := UintParam(c, "id")
	if !ok {
		return
	}
	var d workflow.Decision
	if err := c.ShouldBindJSON(&d); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	doc, err := f(c, util.GetToken(c).UserID, id, &d)
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, doc)
}

// ReviewDocument godoc
// @Summary 审核文档
// @Description APPROVE / REQUEST_CHANGES / REJECT
// @Tags Review
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "文档ID"
// @Param data body workflow.Decision true "审核意见"
// @Success 200 {object} resputil.Response[model.Document] "文档"
// @Router /api/v1/reviews/documents/{id} [post]
func (mgr *ReviewMgr) ReviewDocument(c *gin.Context) {
	mgr.decide(c, func(c *gin.Context, coordinatorID, id uint, d *workflow.Decision) (*model.Document, error) {
		return mgr.engine.ReviewDocument(c, coordinatorID, id, d)
	})
}

// ApproveBLI03 godoc
// @Summary 审核 BLI-03
// @Tags Review
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "申请ID"
// @Param data body workflow.Decision true "审核意见"
// @Success 200 {object} resputil.Response[model.Document] "文档"
// @Router /api/v1/reviews/applications/{id}/bli03 [post]
func (mgr *ReviewMgr) ApproveBLI03(c *gin.Context) {
	mgr.decide(c, func(c *gin.Context, coordinatorID, id uint, d *workflow.Decision) (*model.Document, error) {
		return mgr.engine.ApproveBLI03(c, coordinatorID, id, d)
	})
}

// VerifyBLI04 godoc
// @Summary 审核 BLI-04
// @Tags Review
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "申请ID"
// @Param data body workflow.Decision true "审核意见"
// @Success 200 {object} resputil.Response[model.Document] "文档"
// @Router /api/v1/reviews/applications/{id}/bli04 [post]
func (mgr *ReviewMgr) VerifyBLI04(c *gin.Context) {
	mgr.decide(c, func(c *gin.Context, coordinatorID, id uint, d *workflow.Decision) (*model.Document, error) {
		return mgr.engine.VerifyBLI04(c, coordinatorID, id, d)
	})
}

// ExportStudentDocuments godoc
// @Summary 导出学生文档
// @Description 打包学生在本协调员学期内的全部文档
// @Tags Review
// @Produce application/zip
// @Security Bearer
// @Param id path int true "学生ID"
// @Success 200 {file} file "zip"
// @Failure 404 {object} resputil.Response[any] "没有可导出的文档"
// @Router /api/v1/reviews/students/{id}/export [get]
func (mgr *ReviewMgr) ExportStudentDocuments(c *gin.Context) {
	id, ok := UintParam(c, "id")
	if !ok {
		return
	}
	writeExport(c, mgr.engine, id, util.GetToken(c).UserID)
}
