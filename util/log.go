package util

import (
	"io"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/securedrop/trustchain/formatter"
)

type LogSource string

const (
	HTTPSource   LogSource = "HTTP"
	SystemSource LogSource = "SYSTEM"
)

const (
	// LogConsole sends log output to stderr instead of a rotated file
	LogConsole = "console"

	// LogFormatText selects the compact formatter with caller source
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// InitLog parses and sets log-level input
func InitLog(logLevel string, logPath string) error {
	return InitLogWithFormat(logLevel, logPath, "")
}

// InitLogWithFormat is InitLog with an explicit formatter choice
func InitLogWithFormat(logLevel string, logPath string, logFormat string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.Errorf("Failed parsing log-level %s: %s", logLevel, err)
		return err
	}

	if logPath != "" && logPath != LogConsole {
		lumberjackLogger := &lumberjack.Logger{
			// Log file absolute path, os agnostic
			Filename:   filepath.ToSlash(logPath),
			MaxSize:    5, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}
		log.SetOutput(io.Writer(lumberjackLogger))
	}

	switch logFormat {
	case LogFormatText:
		formatter.SetTextFormatter(log.StandardLogger())
	case LogFormatJSON:
		formatter.SetJSONFormatter(log.StandardLogger())
	default:
		log.SetFormatter(&CustomFormatter{})
	}
	log.SetLevel(level)
	return nil
}

// CustomFormatter formats the log message as required
type CustomFormatter struct {
	log.TextFormatter
}

func (f *CustomFormatter) Format(entry *log.Entry) ([]byte, error) {
	if entry.Context == nil {
		return f.TextFormatter.Format(entry)
	}

	switch entry.Context.Value(LogSourceKey) {
	case HTTPSource:
		return f.formatHTTPLog(entry)
	case SystemSource:
		return f.formatSystemLog(entry)
	default:
		return f.TextFormatter.Format(entry)
	}
}

func (f *CustomFormatter) formatHTTPLog(entry *log.Entry) ([]byte, error) {
	if ctxReqID, ok := entry.Context.Value(RequestIDKey).(string); ok {
		entry.Data["requestID"] = ctxReqID
	}

	return f.TextFormatter.Format(entry)
}

func (f *CustomFormatter) formatSystemLog(entry *log.Entry) ([]byte, error) {
	if op, ok := entry.Context.Value(OperationKey).(string); ok {
		entry.Data["operation"] = op
	}

	return f.TextFormatter.Format(entry)
}
