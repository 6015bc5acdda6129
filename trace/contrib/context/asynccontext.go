package context

import (
	"context"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

// NewContextForAsyncTracing creates a ctx for tracing async work.
// The incoming ctx may be canceled by the parent once the request returns,
// which would cancel the async work too, so the span is re-attached to a
// fresh background context.
func NewContextForAsyncTracing(ctx context.Context) context.Context {
	span := hivetracer.GetSpanFromContext(ctx)
	return hivetracer.ContextWithSpan(context.Background(), span)
}
