package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CronJobRecordStatus string

const (
	CronJobRecordStatusUnknown CronJobRecordStatus = "unknown"
	CronJobRecordStatusSuccess CronJobRecordStatus = "success"
	CronJobRecordStatusFailed  CronJobRecordStatus = "failed"
)

// CronJobRecord is one execution of a scheduled notification job.
type CronJobRecord struct {
	gorm.Model
	Name        string              `gorm:"type:varchar(128);not null;index;comment:job name" json:"name"`
	ExecuteTime time.Time           `gorm:"not null;index;comment:start of the run" json:"executeTime"`
	DurationMs  int64               `gorm:"not null;default:0;comment:run duration in milliseconds" json:"durationMs"`
	Status      CronJobRecordStatus `gorm:"type:varchar(32);not null;index;default:unknown" json:"status"`
	Message     string              `gorm:"type:text;comment:error message of a failed run" json:"message"`
	JobData     datatypes.JSON      `gorm:"comment:job result, e.g. reminder and digest counts" json:"jobData"`
}

// NewCronJobRecord builds the record of a run that started at start and ended
// at end with runErr.
func NewCronJobRecord(name string, start, end time.Time, runErr error) *CronJobRecord {
	rec := &CronJobRecord{
		Name:        name,
		ExecuteTime: start,
		DurationMs:  end.Sub(start).Milliseconds(),
		Status:      CronJobRecordStatusSuccess,
	}
	if runErr != nil {
		rec.Status = CronJobRecordStatusFailed
		rec.Message = runErr.Error()
	}
	return rec
}

func (CronJobRecord) TableName() string {
	return "cron_job_records"
}

type CronJobType string

func (c CronJobType) String() string {
	return string(c)
}

const (
	// CronJobTypeNotifyFunc jobs run a body from pkg/reminder selected by job name.
	CronJobTypeNotifyFunc CronJobType = "notify_function"
)

func GetAllCronJobTypes() []CronJobType {
	return []CronJobType{
		CronJobTypeNotifyFunc,
	}
}

// CronJobConfig is the persisted schedule of a job. EntryID is the robfig/cron
// entry while the job is scheduled, -1 when suspended.
type CronJobConfig struct {
	gorm.Model
	Name        string         `gorm:"type:varchar(128);not null;uniqueIndex" json:"name"`
	Description string         `gorm:"type:varchar(255)" json:"description"`
	Type        CronJobType    `gorm:"type:varchar(64);not null;index" json:"type"`
	Spec        string         `gorm:"type:varchar(128);not null;comment:cron expression" json:"spec"`
	Suspend     *bool          `gorm:"not null;default:false" json:"suspend"`
	Config      datatypes.JSON `gorm:"comment:job body parameters" json:"config"`
	EntryID     int            `gorm:"type:int" json:"entry_id"`
}

func (c *CronJobConfig) GetSuspend() bool {
	return c.Suspend != nil && *c.Suspend
}

func (CronJobConfig) TableName() string {
	return "cron_job_configs"
}
