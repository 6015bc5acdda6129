package hivetracer

import "sync"

// spanContext is the propagated identity of an in-process span. The trace id
// and sampling fields live on the shared traceContext, so every span of a
// trace reports the same decision and weight; only the span id and baggage
// are per-span.
type spanContext struct {
	spanID       string
	parentSpanID string

	traceContext *traceContext

	baggageLock sync.Mutex
	baggage     map[string]string
}

var _ SpanContext = &spanContext{}

func (sc *spanContext) SpanID() string {
	return sc.spanID
}

func (sc *spanContext) TraceID() string {
	return sc.traceContext.traceID
}

// Sample reports the trace-wide decision; weight is the effective sample
// rate, 0 when the trace was dropped.
func (sc *spanContext) Sample() (SampleStrategy, int) {
	return sc.traceContext.sampleStrategy, sc.traceContext.sampleWeight
}

// ForeachBaggageItem holds the baggage lock for the duration of the walk;
// handlers must not set baggage on the same span.
func (sc *spanContext) ForeachBaggageItem(handler func(k, v string) bool) {
	sc.baggageLock.Lock()
	defer sc.baggageLock.Unlock()
	for k, v := range sc.baggage {
		if !handler(k, v) {
			return
		}
	}
}
