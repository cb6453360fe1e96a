package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/pkg/metrics"
)

// MetricsMgr serves the Prometheus endpoint. It is mounted outside the API
// groups, on config.MetricsPath.
type MetricsMgr struct {
	name string
	db   *gorm.DB
}

func NewMetricsMgr(conf *RegisterConfig) *MetricsMgr {
	return &MetricsMgr{
		name: "metrics",
		db:   conf.DB,
	}
}

func (mgr *MetricsMgr) GetName() string { return mgr.name }

// GetMetrics godoc
// @Summary 获取系统中每种状态的申请数量
// @Description 返回Prometheus能够识别的信息
// @Tags Metrics
// @Produce plain
// @Success 200 {string} string "Prometheus text format"
// @Router /metrics [get]
func (mgr *MetricsMgr) GetMetrics(c *gin.Context) {
	if err := mgr.refreshApplicationGauge(c); err != nil {
		// serve the stale gauge
		klog.Warningf("refresh application gauge: %v", err)
	}
	metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

func (mgr *MetricsMgr) refreshApplicationGauge(c *gin.Context) error {
	var rows []struct {
		Status model.ApplicationStatus
		Count  int64
	}
	if err := mgr.db.WithContext(c).Model(&model.Application{}).
		Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return err
	}
	metrics.ApplicationsByStatus.Reset()
	for _, r := range rows {
		metrics.ApplicationsByStatus.WithLabelValues(string(r.Status)).Set(float64(r.Count))
	}
	return nil
}
