package grpc_go

import (
	"context"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

// currently only unary interceptors are supported

type Config struct {
	targetServiceType string
	baggageSetter     func(ctx context.Context) map[string]string
}

func newDefaultConfig() *Config {
	return &Config{
		targetServiceType: hivetracer.GRPC,
	}
}

type Option func(*Config)

func WithTargetServiceType(tst string) Option {
	return func(cfg *Config) {
		cfg.targetServiceType = tst
	}
}

// WithBaggageSetter attaches key-value pairs derived from the request context
// to the server span's baggage.
func WithBaggageSetter(f func(ctx context.Context) map[string]string) Option {
	return func(cfg *Config) {
		if f != nil {
			cfg.baggageSetter = f
		}
	}
}

func NewUnaryServerInterceptor(tracer hivetracer.Tracer, opts ...Option) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{},
		info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		cfg := newDefaultConfig()
		for _, opt := range opts {
			opt(cfg)
		}

		meta, _ := metadata.FromIncomingContext(ctx)
		metaCopy := meta.Copy()

		parentSpanContext, _ := tracer.Extract(hivetracer.HTTPHeaders, hivetracer.HTTPHeadersCarrier(metaCopy))

		span := tracer.StartServerSpan("grpc.called", hivetracer.ChildOf(parentSpanContext), hivetracer.ServerResourceAs(info.FullMethod))
		defer span.Finish()

		if cfg.baggageSetter != nil {
			for k, v := range cfg.baggageSetter(ctx) {
				span.SetBaggageItem(k, v)
			}
		}

		ctxWithSpan := hivetracer.ContextWithSpan(ctx, span)

		resp, err = handler(ctxWithSpan, req)
		if err != nil {
			s, _ := status.FromError(err)
			span.SetStatus(hivetracer.StatusCodeError)
			span.SetTagInt64("grpc.status_code", int64(s.Code()))
			span.RecordError(err, hivetracer.WithErrorKind(hivetracer.ErrorKindBusinessError))
		} else {
			span.SetTagInt64("grpc.status_code", int64(codes.OK))
		}
		return
	}
}

func NewUnaryClientInterceptor(tracer hivetracer.Tracer, opts ...Option) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		cfg := newDefaultConfig()
		for _, opt := range opts {
			opt(cfg)
		}

		span, ctxWithSpan := tracer.StartClientSpanFromContext(ctx, "grpc.call", hivetracer.ClientResourceAs(cfg.targetServiceType, cc.Target(), method))
		defer span.Finish()

		meta, _ := metadata.FromOutgoingContext(ctx)
		metaCopy := meta.Copy()
		header := make(http.Header)
		_ = tracer.Inject(span.Context(), hivetracer.HTTPHeaders, hivetracer.HTTPHeadersCarrier(header))
		for k, v := range header {
			metaCopy.Set(k, v...)
		}
		ctxWithSpan = metadata.NewOutgoingContext(ctxWithSpan, metaCopy)

		err := invoker(ctxWithSpan, method, req, reply, cc, callOpts...)
		if err != nil {
			s, _ := status.FromError(err)
			span.SetStatus(hivetracer.StatusCodeError)
			span.SetTagInt64("grpc.status_code", int64(s.Code()))
			span.RecordError(err, hivetracer.WithErrorKind(hivetracer.ErrorKindExternalServiceError))
		} else {
			span.SetTagInt64("grpc.status_code", int64(codes.OK))
		}
		return err
	}
}
