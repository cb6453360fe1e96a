package logutils

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Log is the logger of the infrastructure adapters: database, blob storage, SMTP
// and account administration. Request and job flow logs go through klog.
var Log = logrus.New()

type Fields = logrus.Fields

//nolint:gochecknoinits // the log level and format depend only on the gin mode
func init() {
	configure(Log, gin.Mode(), os.Getenv("PTMS_LOG_FORMAT"))
}

// configure sets up colored text in debug mode and JSON lines in release mode,
// unless format forces "text" or "json".
func configure(l *logrus.Logger, mode, format string) {
	if mode == gin.DebugMode {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	if format == "" {
		format = "json"
		if mode == gin.DebugMode {
			format = "text"
		}
	}
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
		l.SetReportCaller(false)
		return
	}
	l.SetFormatter(&logrus.TextFormatter{
		TimestampFormat:           "2006-01-02 15:04:05",
		ForceColors:               true,
		EnvironmentOverrideColors: true,
		FullTimestamp:             true,
	})
	l.SetReportCaller(true)
}

// Component returns an entry tagged with the adapter name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
