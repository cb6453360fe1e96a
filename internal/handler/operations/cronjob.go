package operations

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/internal/resputil"
	"github.com/raids-lab/ptms/pkg/cronjob"
)

type CronjobConfigs struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Schedule string         `json:"schedule"`
	Suspend  bool           `json:"suspend"`
	Configs  map[string]any `json:"configs"`
}

// CronjobView is a job config plus the outcome of its latest run.
type CronjobView struct {
	CronjobConfigs
	Description string               `json:"description"`
	LastRun     *model.CronJobRecord `json:"lastRun,omitempty"`
}

// UpdateCronjobConfig godoc
//
//	@Summary		Update cronjob config
//	@Description	Update one cronjob config
//	@Tags			Operations
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			use	body		CronjobConfigs			true	"CronjobConfigs"
//	@Success		200	{object}	resputil.Response[any]	"Success"
//	@Failure		400	{object}	resputil.Response[any]	"Request parameter error"
//	@Failure		500	{object}	resputil.Response[any]	"Other errors"
//	@Router			/api/v1/admin/operations/cronjob [put]
func (mgr *OperationsMgr) UpdateCronjobConfig(c *gin.Context) {
	var req CronjobConfigs
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	var (
		jobTypePtr *model.CronJobType
		specPtr    *string
		configPtr  *string
	)
	if req.Type != "" {
		jobTypePtr = lo.ToPtr(model.CronJobType(req.Type))
	}
	if req.Schedule != "" {
		specPtr = lo.ToPtr(req.Schedule)
	}

	if len(req.Configs) > 0 {
		configJson, err := json.Marshal(req.Configs)
		if err != nil {
			resputil.BadRequestError(c, err.Error())
			return
		}
		configPtr = lo.ToPtr(string(configJson))
	}
	if err := mgr.cronJobManager.UpdateJobConfig(c, req.Name, jobTypePtr, specPtr, &req.Suspend, configPtr); err != nil {
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	resputil.Success(c, "Successfully update cronjob config")
}

// GetCronjobConfigs godoc
//
//	@Summary		Get all cronjob configs
//	@Description	Get all cronjob configs
//	@Tags			Operations
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]CronjobView]	"Success"
//	@Failure		500	{object}	resputil.Response[any]	"Other errors"
//	@Router			/api/v1/admin/operations/cronjob [get]
func (mgr *OperationsMgr) GetCronjobConfigs(c *gin.Context) {
	jobs, err := mgr.cronJobManager.GetAllCronJobs(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	lastRuns, err := mgr.cronJobManager.LastRuns(c)
	if err != nil {
		klog.Warning(err)
	}
	views := lo.Map(jobs, func(job *model.CronJobConfig, _ int) CronjobView {
		config := make(map[string]any)
		if err := json.Unmarshal(job.Config, &config); err != nil {
			config = map[string]any{}
		}
		return CronjobView{
			CronjobConfigs: CronjobConfigs{
				Name:     job.Name,
				Type:     string(job.Type),
				Schedule: job.Spec,
				Suspend:  job.GetSuspend(),
				Configs:  config,
			},
			Description: job.Description,
			LastRun:     lastRuns[job.Name],
		}
	})
	resputil.Success(c, views)
}

// RunCronjob godoc
//
//	@Summary		Run a cronjob now
//	@Description	Execute one configured cronjob outside its schedule and record the run
//	@Tags			Operations
//	@Produce		json
//	@Security		Bearer
//	@Param			name	path		string					true	"cronjob name"
//	@Success		200		{object}	resputil.Response[any]	"Success"
//	@Failure		500		{object}	resputil.Response[any]	"Other errors"
//	@Router			/api/v1/admin/operations/cronjob/{name}/run [post]
func (mgr *OperationsMgr) RunCronjob(c *gin.Context) {
	name := c.Param("name")
	if err := mgr.cronJobManager.RunNow(c, name); err != nil {
		klog.Error(err)
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	resputil.Success(c, "Successfully run cronjob "+name)
}

// GetCronjobNames godoc
//
//	@Summary		Get cronjob names
//	@Description	List the names of all configured cronjobs
//	@Tags			Operations
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]string]	"Success"
//	@Failure		500	{object}	resputil.Response[any]	"Other errors"
//	@Router			/api/v1/admin/operations/cronjob/names [get]
func (mgr *OperationsMgr) GetCronjobNames(c *gin.Context) {
	names, err := mgr.cronJobManager.GetCronjobNames(c)
	if err != nil {
		klog.Error(err)
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	resputil.Success(c, names)
}

// GetCronjobRecordTimeRange godoc
//
//	@Summary		Get cronjob record time range
//	@Description	First and last execution time over all records, padded by one day
//	@Tags			Operations
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[any]	"Success"
//	@Failure		500	{object}	resputil.Response[any]	"Other errors"
//	@Router			/api/v1/admin/operations/cronjob/record/timerange [get]
func (mgr *OperationsMgr) GetCronjobRecordTimeRange(c *gin.Context) {
	startTime, endTime, err := mgr.cronJobManager.GetCronjobRecordTimeRange(c)
	if err != nil {
		klog.Error(err)
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	resputil.Success(c, map[string]any{
		"startTime": startTime,
		"endTime":   endTime,
	})
}

type GetCronJobRecordsReq struct {
	Name      []string                   `json:"name"`
	StartTime *time.Time                 `json:"startTime"`
	EndTime   *time.Time                 `json:"endTime"`
	Status    *model.CronJobRecordStatus `json:"status"`
	PageSize  int                        `json:"pageSize"`
	Page      int                        `json:"page"`
}

// GetCronjobRecords godoc
//
//	@Summary		Get cronjob records
//	@Description	Filter run records by name, time window and status
//	@Tags			Operations
//	@Produce		json
//	@Security		Bearer
//	@Param			data	body		GetCronJobRecordsReq	true	"filter"
//	@Success		200		{object}	resputil.Response[any]	"Success"
//	@Failure		500		{object}	resputil.Response[any]	"Other errors"
//	@Router			/api/v1/admin/operations/cronjob/record [post]
func (mgr *OperationsMgr) GetCronjobRecords(c *gin.Context) {
	req := &GetCronJobRecordsReq{}
	if err := c.ShouldBindJSON(req); err != nil {
		klog.Error(err)
		resputil.BadRequestError(c, err.Error())
		return
	}

	filter := &cronjob.RecordFilter{
		Names:     req.Name,
		Status:    req.Status,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Limit:     req.PageSize,
	}
	if req.Page > 0 && req.PageSize > 0 {
		filter.Offset = req.Page * req.PageSize
	}
	records, total, err := mgr.cronJobManager.GetCronjobRecords(c, filter)
	if err != nil {
		klog.Error(err)
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}

	resputil.Success(c, map[string]any{
		"records": records,
		"total":   total,
	})
}

type DeleteCronJobRecordsReq struct {
	ID        []uint     `json:"id"`
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
}

// DeleteCronjobRecords godoc
//
//	@Summary		Delete cronjob records
//	@Description	Delete run records by id or time window
//	@Tags			Operations
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[any]	"Success"
//	@Failure		500	{object}	resputil.Response[any]	"Other errors"
//	@Router			/api/v1/admin/operations/cronjob/record [delete]
func (mgr *OperationsMgr) DeleteCronjobRecords(c *gin.Context) {
	req := &DeleteCronJobRecordsReq{}
	if err := c.ShouldBindJSON(req); err != nil {
		klog.Error(err)
		resputil.BadRequestError(c, err.Error())
		return
	}

	if len(req.ID) == 0 && req.StartTime == nil && req.EndTime == nil {
		resputil.BadRequestError(c, "id, startTime or endTime is required")
		return
	}

	deleted, err := mgr.cronJobManager.DeleteCronjobRecords(c, req.ID, req.StartTime, req.EndTime)
	if err != nil {
		klog.Error(err)
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}

	resputil.Success(c, map[string]int64{
		"deleted": deleted,
	})
}
