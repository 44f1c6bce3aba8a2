package formatter

import (
	"path"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const repoDir = "trustchain/"

// ContextHook adds the caller as "source" (path relative to the module root plus line) to
// every entry that has one. logger.ReportCaller must be on.
type ContextHook struct {
	// markers are tried in order, the last occurrence in the caller path wins
	markers []string
}

// NewContextHook instantiate a new context hook
func NewContextHook() *ContextHook {
	hook := &ContextHook{}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Path != "" {
		hook.markers = append(hook.markers, info.Main.Path+"/")
	}
	hook.markers = append(hook.markers, repoDir)
	return hook
}

// Levels set the supported levels for this hook
func (hook *ContextHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire sets entry.Data["source"]
func (hook *ContextHook) Fire(entry *logrus.Entry) error {
	if !entry.HasCaller() {
		return nil
	}
	entry.Data["source"] = hook.parseSrc(entry.Caller.File) + ":" + strconv.Itoa(entry.Caller.Line)
	return nil
}

func (hook *ContextHook) parseSrc(filePath string) string {
	for _, marker := range hook.markers {
		if i := strings.LastIndex(filePath, marker); i >= 0 {
			return filePath[i+len(marker):]
		}
	}

	// outside the module, e.g. a dependency: keep package dir and file
	return path.Join(path.Base(path.Dir(filePath)), path.Base(filePath))
}
