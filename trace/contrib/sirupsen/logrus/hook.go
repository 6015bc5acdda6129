package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

func NewHook(tracer hivetracer.Tracer, levels []logrus.Level) logrus.Hook {
	return &Hook{
		tracer: tracer,
		levels: levels,
	}
}

/*
	depth indicates how many times logrus is wrapped
	eg:
	func LogWrapper(){
		logrus.Info()
	}
	LogWrapper is used in code for logging. In this case, depth=1 should be set to get the real position where LogWrapper is called.
	If unset, the position reported is always inside LogWrapper, regardless of call site.
	If set, logrus.Info() can not be used directly in your code as an incorrect position will be reported
*/

func NewHookWithDepth(tracer hivetracer.Tracer, levels []logrus.Level, depth int) logrus.Hook {
	return &Hook{
		tracer: tracer,
		levels: levels,
		depth:  depth,
	}
}

type Hook struct {
	tracer hivetracer.Tracer
	levels []logrus.Level
	depth  int
}

func (h *Hook) Levels() []logrus.Level {
	return h.levels
}

func (h *Hook) Fire(e *logrus.Entry) error {
	if e == nil {
		return nil
	}
	logData := hivetracer.LogData{
		Message:   []byte(e.Message),
		Timestamp: e.Time,
	}
	switch e.Level {
	case logrus.TraceLevel:
		logData.LogLevel = hivetracer.LogLevelTrace
	case logrus.DebugLevel:
		logData.LogLevel = hivetracer.LogLevelDebug
	case logrus.InfoLevel:
		logData.LogLevel = hivetracer.LogLevelInfo
	case logrus.WarnLevel:
		logData.LogLevel = hivetracer.LogLevelWarn
	case logrus.ErrorLevel:
		logData.LogLevel = hivetracer.LogLevelError
	case logrus.FatalLevel:
		logData.LogLevel = hivetracer.LogLevelFatal
	}

	if h.depth > 0 {
		if c := h.getCallerWithDepth(); c != nil {
			logData.FileName = c.File
			logData.FileLine = int64(c.Line)
		}
	} else if e.Caller != nil {
		logData.FileName = e.Caller.File
		logData.FileLine = int64(e.Caller.Line)
	}

	logData.Source = "logrus"
	h.tracer.Log(e.Context, logData)
	return nil
}
