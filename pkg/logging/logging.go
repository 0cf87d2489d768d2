package logging

import (
	"github.com/go-logr/logr"
)

// Verbosity levels passed to logr.Logger.V
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

// OrDiscard returns log unless it has no sink (the zero logr.Logger), in which case a logger that drops
// everything is returned. Components call it on the logger handed to their constructor.
func OrDiscard(log logr.Logger) logr.Logger {
	if log.GetSink() == nil {
		return logr.Discard()
	}
	return log
}

// LevelFromFlags maps the -v / -vv style command line switches to a verbosity level.
func LevelFromFlags(debug, trace bool) int {
	switch {
	case trace:
		return TRACE
	case debug:
		return DEBUG
	default:
		return INFO
	}
}

// Warn logs msg at INFO verbosity tagged as a warning.
func Warn(log logr.Logger, msg string, keysAndValues ...interface{}) {
	log.WithCallDepth(1).Info(msg, append(keysAndValues, WARN_KEY, true)...)
}
