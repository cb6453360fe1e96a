package cronjob

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/dao/model"
)

const defaultRecordPageSize = 100

// RecordFilter selects run records. Zero values match everything.
type RecordFilter struct {
	Names     []string
	Status    *model.CronJobRecordStatus
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

func (f *RecordFilter) apply(tx *gorm.DB) *gorm.DB {
	if len(f.Names) > 0 {
		tx = tx.Where("name IN ?", f.Names)
	}
	if f.Status != nil {
		tx = tx.Where("status = ?", *f.Status)
	}
	if f.StartTime != nil {
		tx = tx.Where("execute_time >= ?", *f.StartTime)
	}
	if f.EndTime != nil {
		tx = tx.Where("execute_time <= ?", *f.EndTime)
	}
	return tx
}

// GetCronjobNames lists the configured job names.
func (cm *CronJobManager) GetCronjobNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	if err := cm.db.WithContext(ctx).Model(&model.CronJobConfig{}).Order("name").Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("CronJobManager.GetCronjobNames: %w", err)
	}
	return names, nil
}

// GetCronjobRecordTimeRange returns the first and last execution time, padded by a day
// so a date picker can include both ends.
func (cm *CronJobManager) GetCronjobRecordTimeRange(ctx context.Context) (startTime, endTime time.Time, err error) {
	var first, last model.CronJobRecord
	db := cm.db.WithContext(ctx)
	if err = db.Order("execute_time ASC").Limit(1).Find(&first).Error; err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("CronJobManager.GetCronjobRecordTimeRange: %w", err)
	}
	if first.ID == 0 {
		now := time.Now()
		return now.AddDate(0, 0, -1), now.AddDate(0, 0, 1), nil
	}
	if err = db.Order("execute_time DESC").Limit(1).Find(&last).Error; err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("CronJobManager.GetCronjobRecordTimeRange: %w", err)
	}
	return first.ExecuteTime.AddDate(0, 0, -1), last.ExecuteTime.AddDate(0, 0, 1), nil
}

// GetCronjobRecords returns one page of matching records, newest first, and the
// total match count.
func (cm *CronJobManager) GetCronjobRecords(
	ctx context.Context,
	filter *RecordFilter,
) (records []*model.CronJobRecord, total int64, err error) {
	if filter == nil {
		filter = &RecordFilter{}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRecordPageSize
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return filter.apply(cm.db.WithContext(groupCtx)).
			Order("execute_time DESC, id DESC").
			Limit(limit).Offset(filter.Offset).
			Find(&records).Error
	})
	g.Go(func() error {
		return filter.apply(cm.db.WithContext(groupCtx).Model(&model.CronJobRecord{})).
			Count(&total).Error
	})
	if err = g.Wait(); err != nil {
		err = fmt.Errorf("CronJobManager.GetCronjobRecords: %w", err)
		klog.Error(err)
		return nil, 0, err
	}
	return records, total, nil
}

// LastRuns maps each job name to its most recent record.
func (cm *CronJobManager) LastRuns(ctx context.Context) (map[string]*model.CronJobRecord, error) {
	var latest []*model.CronJobRecord
	sub := cm.db.Model(&model.CronJobRecord{}).Select("MAX(id)").Group("name")
	if err := cm.db.WithContext(ctx).Where("id IN (?)", sub).Find(&latest).Error; err != nil {
		return nil, fmt.Errorf("CronJobManager.LastRuns: %w", err)
	}
	return lo.KeyBy(latest, func(r *model.CronJobRecord) string { return r.Name }), nil
}

// DeleteCronjobRecords deletes records by id and/or time window. At least one
// criterion is required.
func (cm *CronJobManager) DeleteCronjobRecords(
	ctx context.Context,
	ids []uint,
	startTime *time.Time,
	endTime *time.Time,
) (int64, error) {
	if len(ids) == 0 && startTime == nil && endTime == nil {
		return 0, fmt.Errorf("CronJobManager.DeleteCronjobRecords: no criteria given")
	}
	tx := (&RecordFilter{StartTime: startTime, EndTime: endTime}).apply(cm.db.WithContext(ctx))
	if len(ids) > 0 {
		tx = tx.Where("id IN ?", ids)
	}
	res := tx.Delete(&model.CronJobRecord{})
	if err := res.Error; err != nil {
		err = fmt.Errorf("CronJobManager.DeleteCronjobRecords: %w", err)
		klog.Error(err)
		return 0, err
	}
	return res.RowsAffected, nil
}
