package formatter

import (
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// SetTextFormatter sets the compact text formatter with the caller source on logger.
func SetTextFormatter(logger *logrus.Logger) {
	logger.Formatter = NewTextFormatter()
	logger.ReportCaller = true
	logger.AddHook(NewContextHook())
}

// SetJSONFormatter writes one JSON object per entry. The caller is reported through the
// source field of the context hook only.
func SetJSONFormatter(logger *logrus.Logger) {
	logger.Formatter = &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		CallerPrettyfier: func(*runtime.Frame) (string, string) {
			return "", ""
		},
	}
	logger.ReportCaller = true
	logger.AddHook(NewContextHook())
}
