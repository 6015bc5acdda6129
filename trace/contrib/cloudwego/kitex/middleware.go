package kitex

import (
	"bytes"
	"context"

	"github.com/bytedance/gopkg/cloud/metainfo"
	"github.com/cloudwego/kitex/client"
	"github.com/cloudwego/kitex/pkg/endpoint"
	"github.com/cloudwego/kitex/pkg/kerrors"
	"github.com/cloudwego/kitex/pkg/rpcinfo"
	"github.com/cloudwego/kitex/pkg/transmeta"
	"github.com/cloudwego/kitex/server"
	"github.com/cloudwego/kitex/transport"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

const (
	SpanContextKey = "HivetraceSpanContext"
)

type serverSuite struct {
	tracer hivetracer.Tracer
}

func NewServerSuite(tr hivetracer.Tracer) server.Suite {
	return &serverSuite{tracer: tr}
}

func (c *serverSuite) Options() []server.Option {
	var options []server.Option
	options = append(options, server.WithMiddleware(NewServerMiddleware(c.tracer)))
	options = append(options, server.WithMetaHandler(transmeta.ServerTTHeaderHandler))
	return options
}

// NewServerMiddleware returns a middleware that extracts trace info from the
// incoming metainfo.
func NewServerMiddleware(tracer hivetracer.Tracer) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, req, resp interface{}) (err error) {
			ri := rpcinfo.GetRPCInfo(ctx)
			v, _ := metainfo.GetValue(ctx, SpanContextKey)
			chainSpanContext, _ := tracer.Extract(hivetracer.Binary, hivetracer.BinaryCarrier(bytes.NewBufferString(v)))
			span := tracer.StartServerSpan("rpc.called", hivetracer.ChildOf(chainSpanContext), hivetracer.ServerResourceAs(ri.To().Method()))
			defer span.Finish()

			// panics are recovered by kitex, so panic info comes from kitex stats
			defer func() {
				if ok, panicErr := ri.Stats().Panicked(); ok && panicErr != nil {
					span.SetStatus(1)
					if pe, ok := err.(*kerrors.DetailedError); ok {
						span.RecordError(err, hivetracer.WithErrorKind(hivetracer.ErrorKindPanic), hivetracer.WithStack(pe.Stack()))
					} else {
						span.RecordError(err, hivetracer.WithErrorKind(hivetracer.ErrorKindPanic))
					}
				}
			}()

			ctxWithSpan := hivetracer.ContextWithSpan(ctx, span)
			err = next(ctxWithSpan, req, resp)
			if err != nil {
				span.SetStatus(1)
				span.RecordError(err)
			}
			return err
		}
	}
}

type clientSuite struct {
	tracer hivetracer.Tracer
}

func NewClientSuite(tracer hivetracer.Tracer) client.Suite {
	return &clientSuite{tracer}
}

func (c *clientSuite) Options() []client.Option {
	var options []client.Option
	options = append(options, client.WithMiddleware(NewClientMiddleware(c.tracer)))
	options = append(options, client.WithTransportProtocol(transport.TTHeader))
	options = append(options, client.WithMetaHandler(transmeta.ClientTTHeaderHandler))
	return options
}

// NewClientMiddleware returns a middleware that carries the span context in
// the outgoing metainfo.
func NewClientMiddleware(tracer hivetracer.Tracer) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, req, resp interface{}) (err error) {
			ri := rpcinfo.GetRPCInfo(ctx)
			clientService := "empty"
			if svc := ri.To().ServiceName(); svc != "" {
				clientService = svc
			} else if addr := ri.To().Address().String(); addr != "" {
				clientService = addr
			}
			span, ctxWithSpan := tracer.StartClientSpanFromContext(ctx, "rpc.call",
				hivetracer.ClientResourceAs(hivetracer.RPC, clientService, ri.To().Method()))
			defer span.Finish()

			// panics are recovered by kitex, so panic info comes from kitex stats
			defer func() {
				if ok, panicErr := ri.Stats().Panicked(); ok && panicErr != nil {
					span.SetStatus(1)
					if pe, ok := err.(*kerrors.DetailedError); ok {
						span.RecordError(err, hivetracer.WithErrorKind(hivetracer.ErrorKindPanic), hivetracer.WithStack(pe.Stack()))
					} else {
						span.RecordError(err, hivetracer.WithErrorKind(hivetracer.ErrorKindPanic))
					}
				}
			}()

			buf := bytes.NewBuffer(make([]byte, 0))
			err = tracer.Inject(span.Context(), hivetracer.Binary, hivetracer.BinaryCarrier(buf))
			ctxWithSpan = metainfo.WithValue(ctxWithSpan, SpanContextKey, buf.String())

			err = next(ctxWithSpan, req, resp) // pass ctxWithSpan down in case the client span has a local child
			if err != nil {
				span.SetStatus(1)
				span.RecordError(err)
			}
			return err
		}
	}
}
