package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/internal/resputil"
	"github.com/raids-lab/ptms/internal/util"
	"github.com/raids-lab/ptms/pkg/supervisor"
	"github.com/raids-lab/ptms/pkg/workflow"
)

const maxUploadBytes = 10 << 20

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewApplicationMgr)
}

type ApplicationMgr struct {
	name       string
	engine     *workflow.Engine
	supervisor *supervisor.Service
}

func NewApplicationMgr(conf *RegisterConfig) Manager {
	return &ApplicationMgr{
		name:       "applications",
		engine:     conf.Engine,
		supervisor: conf.Supervisor,
	}
}

func (mgr *ApplicationMgr) GetName() string { return mgr.name }

func (mgr *ApplicationMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ApplicationMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListMyApplications)
	g.POST("", mgr.SubmitBLI01)
	g.GET("/export", mgr.ExportMyDocuments)
	g.GET("/:id", mgr.GetApplication)
	g.GET("/:id/unlock", mgr.GetUnlockStatus)
	g.PUT("/:id/bli03", mgr.SubmitBLI03)
	g.PUT("/:id/bli04", mgr.SubmitBLI04)
	g.POST("/:id/documents/:type", mgr.UploadDocument)
	g.PUT("/:id/supervisor-signature", mgr.UploadSupervisorSignature)
	g.POST("/:id/supervisor-link", mgr.GenerateSupervisorLink)
	g.GET("/:id/pdf/:type", mgr.GeneratePDF)
}

func (mgr *ApplicationMgr) RegisterAdmin(_ *gin.RouterGroup) {}

// ParseDocumentType accepts both BLI-01 and BLI_01 in any case.
func ParseDocumentType(s string) model.DocumentType {
	return model.DocumentType(strings.ToUpper(strings.ReplaceAll(s, "-", "_")))
}

// ListMyApplications godoc
// @Summary 我的实习申请
// @Description 返回当前学生的全部申请，最新的在前
// @Tags Application
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]model.Application] "申请列表"
// @Router /api/v1/applications [get]
func (mgr *ApplicationMgr) ListMyApplications(c *gin.Context) {
	token := util.GetToken(c)
	apps, err := mgr.engine.ListStudentApplications(c, token.UserID)
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, apps)
}

// SubmitBLI01 godoc
// @Summary 提交 BLI-01
// @Description 在当前学期创建新的申请，替代未结束的旧申请
// @Tags Application
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body workflow.Submission true "BLI-01 表单"
// @Success 200 {object} resputil.Response[model.Application] "新申请"
// @Failure 400 {object} resputil.Response[any] "请求参数错误"
// @Router /api/v1/applications [post]
func (mgr *ApplicationMgr) SubmitBLI01(c *gin.Context) {
	var req workflow.Submission
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	app, err := mgr.engine.SubmitBLI01(c, token.UserID, &req)
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, app)
}

// GetApplication godoc
// @Summary 申请详情
// @Tags Application
// @Produce json
// @Security Bearer
// @Param id path int true "申请ID"
// @Success 200 {object} resputil.Response[workflow.Detail] "申请详情"
// @Failure 404 {object} resputil.Response[any] "申请不存在"
// @Router /api/v1/applications/{id} [get]
func (mgr *ApplicationMgr) GetApplication(c *gin.Context) {
	id, ok := UintParam(c, "id")
	if !ok {
		return
	}
	detail, err := mgr.engine.GetApplication(c, id, util.GetToken(c).UserID)
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, detail)
}

// GetUnlockStatus godoc
// @Summary 文档解锁状态
// @Tags Application
// @Produce json
// @Security Bearer
// @Param id path int true "申请ID"
// @Success 200 {object} resputil.Response[workflow.UnlockStatus] "解锁状态"
// @Router /api/v1/applications/{id}/unlock [get]
func (mgr *ApplicationMgr) GetUnlockStatus(c *gin.Context) {
	id, ok := UintParam(c, "id")
	if !ok {
		return
	}
	status, err := mgr.engine.GetUnlockStatus(c, id, util.GetToken(c).UserID)
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, status)
}

type submitFunc func(c *gin.Context, studentID, appID uint, req *workflow.Submission) (*model.Application, error)

func (mgr *ApplicationMgr) submit(c *gin.Context, f submitFunc) {
	id, ok := UintParam(c, "id")
	if !ok {
		return
	}
	var req workflow.Submission
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	app, err := f(c, util.GetToken(c).UserID, id, &req)
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, app)
}

// SubmitBLI03 godoc
// @Summary 提交 BLI-03
// @Tags Application
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "申请ID"
// @Param data body workflow.Submission true "BLI-03 表单"
// @Success 200 {object} resputil.Response[model.Application] "申请"
// @Failure 400 {object} resputil.Response[any] "BLI-03 尚未解锁"
// @Router /api/v1/applications/{id}/bli03 [put]
func (mgr *ApplicationMgr) SubmitBLI03(c *gin.Context) {
	mgr.submit(c, func(c *gin.Context, studentID, appID uint, req *workflow.Submission) (*model.Application, error) {
		return mgr.engine.SubmitBLI03(c, studentID, appID, req)
	})
}

// SubmitBLI04 godoc
// @Summary 提交 BLI-04
// @Tags Application
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "申请ID"
// @Param data body workflow.Submission true "BLI-04 表单"
// @Success 200 {object} resputil.Response[model.Application] "申请"
// @Failure 400 {object} resputil.Response[any] "BLI-04 尚未解锁"
// @Router /api/v1/applications/{id}/bli04 [put]
func (mgr *ApplicationMgr) SubmitBLI04(c *gin.Context) {
	mgr.submit(c, func(c *gin.Context, studentID, appID uint, req *workflow.Submission) (*model.Application, error) {
		return mgr.engine.SubmitBLI04(c, studentID, appID, req)
	})
}

// UploadDocument godoc
// @Summary 上传文档
// @Description 上传签署后的文档（如 BLI-02 接收函），文档重新进入审核
// @Tags Application
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param id path int true "申请ID"
// @Param type path string true "文档类型"
// @Param file formData file true "文件"
// @Success 200 {object} resputil.Response[model.Document] "文档"
// @Router /api/v1/applications/{id}/documents/{type} [post]
func (mgr *ApplicationMgr) UploadDocument(c *gin.Context) {
	id, ok := UintParam(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if fh.Size > maxUploadBytes {
		resputil.HTTPError(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file is larger than %d MiB", maxUploadBytes>>20), resputil.FileTooLarge)
		return
	}
	f, err := fh.Open()
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}

	doc, err := mgr.engine.UploadDocument(c, util.GetToken(c).UserID, id, ParseDocumentType(c.Param("type")), &workflow.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, doc)
}

type SupervisorSignatureReq struct {
	Image string `json:"image" binding:"required"` // base64 PNG
}

// UploadSupervisorSignature godoc
// @Summary 上传导师签名图片
// @Tags Application
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "申请ID"
// @Param data body SupervisorSignatureReq true "签名图片"
// @Success 200 {object} resputil.Response[any] "成功"
// @Router /api/v1/applications/{id}/supervisor-signature [put]
func (mgr *ApplicationMgr) UploadSupervisorSignature(c *gin.Context) {
	id, ok := UintParam(c, "id")
	if !ok {
		return
	}
	var req SupervisorSignatureReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if err := mgr.engine.UploadSupervisorSignature(c, util.GetToken(c).UserID, id, req.Image); err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, nil)
}

// GenerateSupervisorLink godoc
// @Summary 生成导师签名链接
// @Description 生成新的一次性签名链接并发送给现场导师，旧链接作废
// @Tags Application
// @Produce json
// @Security Bearer
// @Param id path int true "申请ID"
// @Success 200 {object} resputil.Response[supervisor.Link] "签名链接"
// @Router /api/v1/applications/{id}/supervisor-link [post]
func (mgr *ApplicationMgr) GenerateSupervisorLink(c *gin.Context) {
	id, ok := UintParam(c, "id")
	if !ok {
		return
	}
	link, err := mgr.supervisor.GenerateLink(c, id, util.GetToken(c).UserID)
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, link)
}

// GeneratePDF godoc
// @Summary 下载表单 PDF
// @Description 首次请求时生成并缓存 PDF，之后直接返回缓存
// @Tags Application
// @Produce application/pdf
// @Security Bearer
// @Param id path int true "申请ID"
// @Param type path string true "文档类型"
// @Success 200 {file} file "PDF"
// @Failure 400 {object} resputil.Response[any] "前置条件不满足"
// @Router /api/v1/applications/{id}/pdf/{type} [get]
func (mgr *ApplicationMgr) GeneratePDF(c *gin.Context) {
	id, ok := UintParam(c, "id")
	if !ok {
		return
	}
	pdf, err := mgr.engine.GeneratePDF(c, id, util.GetToken(c).UserID, ParseDocumentType(c.Param("type")))
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	cache := "MISS"
	if pdf.Cached {
		cache = "HIT"
	}
	c.Header("X-PDF-Cache", cache)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.Filename))
	c.Data(http.StatusOK, "application/pdf", pdf.Data)
}

// ExportMyDocuments godoc
// @Summary 导出我的全部文档
// @Tags Application
// @Produce application/zip
// @Security Bearer
// @Success 200 {file} file "zip"
// @Failure 404 {object} resputil.Response[any] "没有可导出的文档"
// @Router /api/v1/applications/export [get]
func (mgr *ApplicationMgr) ExportMyDocuments(c *gin.Context) {
	token := util.GetToken(c)
	writeExport(c, mgr.engine, token.UserID, token.UserID)
}

func writeExport(c *gin.Context, engine *workflow.Engine, studentID, callerID uint) {
	var buf bytes.Buffer
	if _, err := engine.ExportStudentDocuments(c, &buf, studentID, callerID); err != nil {
		resputil.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("student-%d-documents.zip", studentID)))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}
