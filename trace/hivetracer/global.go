package hivetracer

import "context"

// The process-wide tracer used by the package-level helpers below. There is
// no implicit default: register one with SetGlobalTracer during startup,
// before any helper runs. The helpers panic when no tracer is registered.
var (
	globalTracer           Tracer
	globalTracerRegistered bool
)

// SetGlobalTracer registers tracer for the package-level helpers. Call it
// once during startup; it is not synchronized against concurrent helper use.
func SetGlobalTracer(tracer Tracer) {
	globalTracer = tracer
	globalTracerRegistered = true
}

// InitGlobalTracer is an alias of SetGlobalTracer.
func InitGlobalTracer(tracer Tracer) {
	SetGlobalTracer(tracer)
}

func GlobalTracer() Tracer {
	return globalTracer
}

func IsGlobalTracerRegistered() bool {
	return globalTracerRegistered
}

// The helpers below delegate to the registered global tracer.

func Extract(format interface{}, carrier interface{}) (SpanContext, error) {
	return globalTracer.Extract(format, carrier)
}

func Inject(sc SpanContext, format interface{}, carrier interface{}) error {
	return globalTracer.Inject(sc, format, carrier)
}

func StartServerSpan(operationName string, opts ...StartSpanOption) Span {
	return globalTracer.StartServerSpan(operationName, opts...)
}

func StartServerSpanFromContext(ctx context.Context, operationName string, opts ...StartSpanOption) (Span, context.Context) {
	return globalTracer.StartServerSpanFromContext(ctx, operationName, opts...)
}

func StartClientSpan(operationName string, opts ...StartSpanOption) Span {
	return globalTracer.StartClientSpan(operationName, opts...)
}

func StartClientSpanFromContext(ctx context.Context, operationName string, opts ...StartSpanOption) (Span, context.Context) {
	return globalTracer.StartClientSpanFromContext(ctx, operationName, opts...)
}

func StartSpan(operationName string, opts ...StartSpanOption) Span {
	return globalTracer.StartSpan(operationName, opts...)
}

func StartSpanFromContext(ctx context.Context, operationName string, opts ...StartSpanOption) (Span, context.Context) {
	return globalTracer.StartSpanFromContext(ctx, operationName, opts...)
}

func Log(ctx context.Context, data LogData) {
	globalTracer.Log(ctx, data)
}
