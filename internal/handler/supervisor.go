package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/raids-lab/ptms/internal/resputil"
	"github.com/raids-lab/ptms/pkg/supervisor"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewSupervisorMgr)
}

// SupervisorMgr serves the unauthenticated signature pages opened from the emailed link.
type SupervisorMgr struct {
	name    string
	service *supervisor.Service
}

func NewSupervisorMgr(conf *RegisterConfig) Manager {
	return &SupervisorMgr{
		name:    "supervisor",
		service: conf.Supervisor,
	}
}

func (mgr *SupervisorMgr) GetName() string { return mgr.name }

func (mgr *SupervisorMgr) RegisterPublic(g *gin.RouterGroup) {
	g.GET("/:token", mgr.Verify)
	g.POST("/:token/sign", mgr.Sign)
}

func (mgr *SupervisorMgr) RegisterProtected(_ *gin.RouterGroup) {}

func (mgr *SupervisorMgr) RegisterAdmin(_ *gin.RouterGroup) {}

// Verify godoc
// @Summary 校验导师签名链接
// @Tags Supervisor
// @Produce json
// @Param token path string true "签名令牌"
// @Success 200 {object} resputil.Response[supervisor.View] "BLI-04 内容"
// @Failure 400 {object} resputil.Response[any] "链接无效、已使用或已过期"
// @Router /api/supervisor/{token} [get]
func (mgr *SupervisorMgr) Verify(c *gin.Context) {
	view, err := mgr.service.Verify(c, c.Param("token"))
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, view)
}

// Sign godoc
// @Summary 导师签署 BLI-04
// @Description 每个链接只能使用一次
// @Tags Supervisor
// @Accept json
// @Produce json
// @Param token path string true "签名令牌"
// @Param data body supervisor.Signature true "签名"
// @Success 200 {object} resputil.Response[any] "签署成功"
// @Failure 400 {object} resputil.Response[any] "链接无效、已使用或已过期"
// @Router /api/supervisor/{token}/sign [post]
func (mgr *SupervisorMgr) Sign(c *gin.Context) {
	var sig supervisor.Signature
	if err := c.ShouldBindJSON(&sig); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if err := mgr.service.SubmitSignature(c, c.Param("token"), &sig); err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, nil)
}
