package gin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

func NewMiddleware(tracer hivetracer.Tracer) gin.HandlerFunc {
	if tracer == nil {
		panic("tracer is nil")
	}
	return func(c *gin.Context) {
		resourceName := c.FullPath()
		if resourceName == "" {
			resourceName = "unknown"
		}

		chainSpanContext, _ := tracer.Extract(hivetracer.HTTPHeaders, hivetracer.HTTPHeadersCarrier(c.Request.Header))
		span := tracer.StartServerSpan("request", hivetracer.ChildOf(chainSpanContext), hivetracer.ServerResourceAs(resourceName))
		spanContext := span.Context()
		c.Request = c.Request.WithContext(hivetracer.ContextWithSpan(c.Request.Context(), span))
		c.Writer.Header().Add("x-trace-id", spanContext.TraceID())

		span.SetTag(hivetracer.HttpMethod, c.Request.Method)
		if c.Request.URL != nil {
			span.SetTag(hivetracer.HttpScheme, c.Request.URL.Scheme)
			span.SetTag(hivetracer.HttpHost, c.Request.URL.Host)
			span.SetTag(hivetracer.HttpPath, c.Request.URL.Path)
		}

		// Finish should be called directly by defer
		defer span.Finish()

		isPanic := true
		defer func() {
			status := c.Writer.Status()
			if isPanic {
				// this middleware runs before gin's recovery handler
				status = http.StatusInternalServerError
			}
			span.SetTag(hivetracer.HttpStatusCode, status)
			if status != http.StatusOK {
				span.SetStatus(int64(status))
			}
		}()

		c.Next()
		isPanic = false
	}
}

// NewGinContextAdapter lets components that receive a *gin.Context as a
// context.Context find the active span on the underlying request context.
func NewGinContextAdapter() func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		if ctx == nil {
			return nil
		}
		if c, ok := ctx.(*gin.Context); ok {
			return c.Request.Context()
		}
		return ctx
	}
}
