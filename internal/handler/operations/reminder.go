package operations

import (
	"github.com/gin-gonic/gin"

	"github.com/raids-lab/ptms/internal/resputil"
	"github.com/raids-lab/ptms/pkg/logutils"
	"github.com/raids-lab/ptms/pkg/reminder"
)

// RunDailyReminders godoc
//
//	@Summary		Run the reminder scan now
//	@Description	Send BLI-04 reminders and coordinator escalations with the given thresholds, without recording a cron run
//	@Tags			Operations
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			data	body		reminder.DailyReminderRequest				false	"thresholds"
//	@Success		200		{object}	resputil.Response[reminder.DailyResult]	"Sent notifications"
//	@Failure		400		{object}	resputil.Response[any]						"Request parameter error"
//	@Failure		500		{object}	resputil.Response[any]						"Other errors"
//	@Router			/api/v1/admin/operations/reminders/daily [post]
func (mgr *OperationsMgr) RunDailyReminders(c *gin.Context) {
	req := &reminder.DailyReminderRequest{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(req); err != nil {
			resputil.BadRequestError(c, err.Error())
			return
		}
	}
	res, err := reminder.RunDailyReminders(c, mgr.reminderClient, req)
	if err != nil {
		logutils.Log.Error(err)
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	resputil.Success(c, res)
}
