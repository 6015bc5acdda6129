package hivetracer

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hivetrace/hivetrace-sdk-go/trace/internal"
)

type spanType int

const (
	commonSpanType spanType = iota
	serverSpanType
	clientSpanType
)

type span struct {
	spanType spanType

	status int64

	operationName string

	serverResource string

	clientType     string
	clientService  string
	clientResource string

	errLock       sync.Mutex
	ErrorInfoList []*ErrorInfo

	startTime  time.Time
	finishTime time.Time
	duration   time.Duration

	tagsLock    sync.Mutex
	tagsString  map[string]string
	tagsInt64   map[string]int64
	tagsFloat64 map[string]float64

	spanContext spanContext

	finished int64
}

type ErrorInfo struct {
	ErrorKind              ErrorKind
	ErrorMessage           string
	ErrorStack             []string
	ErrorOccurTimeMilliSec int64
	ErrorTags              map[string]string
}

// Finish must be called directly by defer so the deferred recover() can see a
// panic unwinding through the span:
//
//	defer span.Finish()  // good
//
//	defer func(){        // bad, recover() inside Finish can not capture
//	    span.Finish()
//	}()
func (s *span) Finish() {
	if !atomic.CompareAndSwapInt64(&s.finished, 0, 1) {
		return
	}

	s.finishTime = time.Now()
	s.duration = s.finishTime.Sub(s.startTime)

	s.fillTag()
	if err := recover(); err != nil {
		defer panic(err)
		s.recordPanic(err)
	}
	s.spanContext.traceContext.finishSpan()
}

func (s *span) FinishWithOption(opt FinishSpanOption) {
	if !atomic.CompareAndSwapInt64(&s.finished, 0, 1) {
		return
	}

	s.status = opt.Status
	if opt.FinishTime.IsZero() {
		s.finishTime = time.Now()
	} else {
		s.finishTime = opt.FinishTime
	}
	s.duration = s.finishTime.Sub(s.startTime)
	s.fillTag()
	if !opt.DisablePanicCapture {
		if err := recover(); err != nil {
			defer panic(err)
			s.recordPanic(err)
		}
	}
	s.spanContext.traceContext.finishSpan()
}

func (s *span) recordPanic(err interface{}) {
	errorInfo := ErrorInfo{
		ErrorKind:              ErrorKindPanic,
		ErrorMessage:           fmt.Sprint(err),
		ErrorOccurTimeMilliSec: time.Now().Unix()*1e3 + int64(time.Now().Nanosecond())/1e6,
		ErrorTags:              map[string]string{internal.GoErrorType: getErrorType(err)},
	}
	errorInfo.ErrorStack = getStackTrace()
	s.errLock.Lock()
	s.ErrorInfoList = append(s.ErrorInfoList, &errorInfo)
	s.errLock.Unlock()
	s.status = StatusCodeError
}

func (s *span) fillTag() {
	switch s.clientType {
	case MySQL:
		isSlow := "0"
		dynamicConfig := s.spanContext.traceContext.tracer.getDynamicConfig()
		if dynamicConfig != nil && dynamicConfig.DbSlowQuery > 0 {
			if s.duration > dynamicConfig.DbSlowQuery {
				isSlow = "1"
			}
		}
		s.SetTagString("db.slow_query", isSlow)
	}
	// every event carries the sdk language, the agent keys stack handling on it
	s.SetTagString(internal.SdkLanguage, internal.Go)
}

func (s *span) RecordError(err error, opts ...RecordOption) {
	if s == nil || err == nil || s.isFinished() {
		return
	}
	c := NewDefaultRecordConfig()
	for _, opt := range opts {
		opt(&c)
	}
	errorInfo := ErrorInfo{
		ErrorKind:              c.ErrorKind,
		ErrorMessage:           err.Error(),
		ErrorOccurTimeMilliSec: time.Now().Unix()*1e3 + int64(time.Now().Nanosecond())/1e6,
		ErrorTags:              map[string]string{internal.GoErrorType: getErrorType(err)},
	}
	if c.RecordStack && c.Stack == "" {
		errorInfo.ErrorStack = getStackTrace()
	} else if c.Stack != "" {
		errorInfo.ErrorStack = strings.Split(c.Stack, "\n")
	}
	s.errLock.Lock()
	defer s.errLock.Unlock()
	s.ErrorInfoList = append(s.ErrorInfoList, &errorInfo)
}

func (s *span) SetStatus(status int64) {
	if s == nil || s.isFinished() {
		return
	}
	s.status = status
}

func getStackTrace() []string {
	stackTrace := make([]byte, 2048)
	n := runtime.Stack(stackTrace, false)
	return strings.Split(string(stackTrace[0:n]), "\n")
}

func (s *span) Context() SpanContext {
	return &s.spanContext
}

func (s *span) SetTag(key string, value interface{}) Span {
	switch v := value.(type) {
	case string:
		s.SetTagString(key, v)
	case int:
		s.SetTagInt64(key, int64(v))
	case int8:
		s.SetTagInt64(key, int64(v))
	case int16:
		s.SetTagInt64(key, int64(v))
	case int32:
		s.SetTagInt64(key, int64(v))
	case int64:
		s.SetTagInt64(key, v)
	case uint:
		s.SetTagInt64(key, int64(v))
	case uint8:
		s.SetTagInt64(key, int64(v))
	case uint16:
		s.SetTagInt64(key, int64(v))
	case uint32:
		s.SetTagInt64(key, int64(v))
	case float32:
		s.SetTagFloat64(key, float64(v))
	case float64:
		s.SetTagFloat64(key, v)
	}
	return s
}

func (s *span) GetTagString(key string) (string, bool) {
	s.tagsLock.Lock()
	defer s.tagsLock.Unlock()
	if s.tagsString == nil {
		return "", false
	}
	value, ok := s.tagsString[key]
	return value, ok
}

func (s *span) SetTagString(key string, value string) Span {
	s.tagsLock.Lock()
	if s.tagsString == nil {
		s.tagsString = map[string]string{}
	}
	s.tagsString[key] = value
	s.tagsLock.Unlock()
	return s
}

func (s *span) GetTagFloat64(key string) (float64, bool) {
	s.tagsLock.Lock()
	defer s.tagsLock.Unlock()
	if s.tagsFloat64 == nil {
		return 0, false
	}
	value, ok := s.tagsFloat64[key]
	return value, ok
}

func (s *span) SetTagFloat64(key string, value float64) Span {
	s.tagsLock.Lock()
	if s.tagsFloat64 == nil {
		s.tagsFloat64 = map[string]float64{}
	}
	s.tagsFloat64[key] = value
	s.tagsLock.Unlock()
	return s
}

func (s *span) GetTagInt64(key string) (int64, bool) {
	s.tagsLock.Lock()
	defer s.tagsLock.Unlock()
	if s.tagsInt64 == nil {
		return 0, false
	}
	value, ok := s.tagsInt64[key]
	return value, ok
}

func (s *span) SetTagInt64(key string, value int64) Span {
	s.tagsLock.Lock()
	if s.tagsInt64 == nil {
		s.tagsInt64 = map[string]int64{}
	}
	s.tagsInt64[key] = value
	s.tagsLock.Unlock()
	return s
}

func (s *span) SetBaggageItem(restrictedKey, value string) Span {
	s.spanContext.baggageLock.Lock()
	if s.spanContext.baggage == nil {
		s.spanContext.baggage = map[string]string{}
	}
	s.spanContext.baggage[restrictedKey] = value
	s.spanContext.baggageLock.Unlock()
	return s
}

func (s *span) BaggageItem(restrictedKey string) string {
	s.spanContext.baggageLock.Lock()
	var ret string
	if s.spanContext.baggage != nil {
		ret = s.spanContext.baggage[restrictedKey]
	}
	s.spanContext.baggageLock.Unlock()
	return ret
}

func (s *span) isFinished() bool {
	return atomic.LoadInt64(&s.finished) == 1
}

func getErrorType(err interface{}) string {
	t := reflect.TypeOf(err)
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return fmt.Sprintf("%s.%s", t.PkgPath(), t.Name())
}
