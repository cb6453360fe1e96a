package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/raids-lab/ptms/internal/resputil"
	"github.com/raids-lab/ptms/internal/util"
	"github.com/raids-lab/ptms/pkg/notify"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewNotificationMgr)
}

type NotificationMgr struct {
	name     string
	notifier *notify.Notifier
}

func NewNotificationMgr(conf *RegisterConfig) Manager {
	return &NotificationMgr{
		name:     "notifications",
		notifier: conf.Notifier,
	}
}

func (mgr *NotificationMgr) GetName() string { return mgr.name }

func (mgr *NotificationMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *NotificationMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.List)
	g.PUT("/read", mgr.MarkAllRead)
	g.PUT("/:id/read", mgr.MarkRead)
}

// RegisterAdmin exposes a manual digest flush.
func (mgr *NotificationMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.POST("/flush", mgr.Flush)
}

// List godoc
// @Summary 站内通知
// @Tags Notification
// @Produce json
// @Security Bearer
// @Param unread query bool false "只看未读"
// @Param limit query int false "条数，默认 50"
// @Success 200 {object} resputil.Response[[]model.Notification] "通知列表"
// @Router /api/v1/notifications [get]
func (mgr *NotificationMgr) List(c *gin.Context) {
	unread, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		resputil.BadRequestError(c, "invalid limit")
		return
	}
	list, err := mgr.notifier.List(c, util.GetToken(c).UserID, unread, limit)
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, list)
}

// MarkRead godoc
// @Summary 标记通知已读
// @Tags Notification
// @Produce json
// @Security Bearer
// @Param id path int true "通知ID"
// @Success 200 {object} resputil.Response[any] "成功"
// @Router /api/v1/notifications/{id}/read [put]
func (mgr *NotificationMgr) MarkRead(c *gin.Context) {
	id, ok := UintParam(c, "id")
	if !ok {
		return
	}
	if err := mgr.notifier.MarkRead(c, util.GetToken(c).UserID, id); err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, nil)
}

// MarkAllRead godoc
// @Summary 全部标记已读
// @Tags Notification
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[int64] "更新条数"
// @Router /api/v1/notifications/read [put]
func (mgr *NotificationMgr) MarkAllRead(c *gin.Context) {
	n, err := mgr.notifier.MarkAllRead(c, util.GetToken(c).UserID)
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, n)
}

// Flush godoc
// @Summary 立即发送排队的摘要邮件
// @Tags Notification
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[notify.SendResult] "发送结果"
// @Router /api/v1/admin/notifications/flush [post]
func (mgr *NotificationMgr) Flush(c *gin.Context) {
	res, err := mgr.notifier.SendQueued(c)
	if err != nil {
		resputil.HandleError(c, err)
		return
	}
	resputil.Success(c, res)
}
