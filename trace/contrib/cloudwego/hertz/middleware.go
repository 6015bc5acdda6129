package hertz

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

func NewMiddleware(tracer hivetracer.Tracer) app.HandlerFunc {
	if tracer == nil {
		panic("tracer is nil")
	}
	return func(ctx context.Context, reqCtx *app.RequestContext) {
		resourceName := string(reqCtx.Path())
		if resourceName == "" {
			resourceName = "unknown"
		}

		chainSpanContext, _ := tracer.Extract(hivetracer.HTTPHeaders, hivetracer.HTTPHeadersCarrier(hertzHeaderToHttpHeader(&reqCtx.Request.Header)))
		span := tracer.StartServerSpan("request", hivetracer.ChildOf(chainSpanContext), hivetracer.ServerResourceAs(resourceName))

		ctx = hivetracer.ContextWithSpan(ctx, span)

		spanContext := span.Context()
		reqCtx.Response.Header.Add("x-trace-id", spanContext.TraceID())

		span.SetTag(hivetracer.HttpMethod, string(reqCtx.Request.Method()))
		if uri := reqCtx.Request.URI(); uri != nil {
			span.SetTag(hivetracer.HttpScheme, string(uri.Scheme()))
			span.SetTag(hivetracer.HttpHost, string(uri.Host()))
			span.SetTag(hivetracer.HttpPath, string(uri.Path()))
		}

		// Finish should be called directly by defer
		defer span.Finish()

		isPanic := true
		defer func() {
			status := reqCtx.Response.StatusCode()
			if isPanic {
				status = http.StatusInternalServerError
			}
			span.SetTag(hivetracer.HttpStatusCode, status)
			if status != http.StatusOK {
				span.SetStatus(int64(status))
			}
		}()

		reqCtx.Next(ctx)
		isPanic = false
	}
}

// hertzHeaderToHttpHeader converts a hertz header to a standard http.Header
func hertzHeaderToHttpHeader(hertzHeader *protocol.RequestHeader) http.Header {
	h := http.Header{}
	if hertzHeader == nil {
		return h
	}
	hertzHeader.VisitAll(func(key, value []byte) {
		h.Set(string(key), string(value))
	})
	return h
}
