package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is private to PTMS so tests and the /metrics handler see only our collectors.
var Registry = prometheus.NewRegistry()

var (
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ptms",
			Name:      "notifications_sent_total",
			Help:      "Notifications handed to the email transport, by type and resulting status",
		},
		[]string{"type", "status"},
	)

	DigestsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ptms",
			Name:      "notification_digests_sent_total",
			Help:      "Digest emails combining more than one queued notification",
		},
	)

	PDFGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ptms",
			Name:      "pdf_generated_total",
			Help:      "PDF documents rendered, by document type",
		},
		[]string{"document_type"},
	)

	PDFCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ptms",
			Name:      "pdf_cache_hits_total",
			Help:      "PDF requests served from object storage, by document type",
		},
		[]string{"document_type"},
	)

	CronRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ptms",
			Name:      "cron_job_runs_total",
			Help:      "Scheduled job executions, by job name and status",
		},
		[]string{"job", "status"},
	)

	ApplicationsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ptms",
			Name:      "applications",
			Help:      "Applications currently in each status",
		},
		[]string{"status"},
	)
)

//nolint:gochecknoinits // collectors must be registered exactly once
func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		NotificationsSent,
		DigestsSent,
		PDFGenerated,
		PDFCacheHits,
		CronRuns,
		ApplicationsByStatus,
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
