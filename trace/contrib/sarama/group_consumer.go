package sarama

import (
	"context"

	"github.com/Shopify/sarama"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

type config struct {
	additionalTags map[string]string
}

func newDefaultConfig() *config {
	return &config{}
}

type Option func(*config)

// WithAdditionalTag sets an extra string tag on every consume span.
func WithAdditionalTag(key, value string) Option {
	return func(cfg *config) {
		if cfg.additionalTags == nil {
			cfg.additionalTags = make(map[string]string)
		}
		cfg.additionalTags[key] = value
	}
}

// WrapHandler wraps func(ctx context.Context, data []byte) for use in a
// sarama.ConsumerGroupHandler: tracing info is extracted from the message
// headers and a server span is started around the handler call. The handler
// receives sarama.ConsumerMessage.Value and a ctx carrying the server span.
func WrapHandler(handler func(ctx context.Context, data []byte), tracer hivetracer.Tracer, opts ...Option) func(msg *sarama.ConsumerMessage) {
	return func(msg *sarama.ConsumerMessage) {
		if tracer == nil {
			panic("tracer is nil")
		}

		cfg := newDefaultConfig()
		for _, opt := range opts {
			opt(cfg)
		}

		m := make(map[string][]string)
		for _, h := range msg.Headers {
			k := string(h.Key)
			v := string(h.Value)
			m[k] = append(m[k], v)
		}

		parentSpanContext, _ := tracer.Extract(hivetracer.HTTPHeaders, hivetracer.HTTPHeadersCarrier(m))

		span := tracer.StartServerSpan("kafka.consume", hivetracer.ChildOf(parentSpanContext), hivetracer.ServerResourceAs("consume"))
		defer span.Finish()

		span.SetTagString("mq.type", "kafka")
		span.SetTagString("mq.topic", msg.Topic)

		for k, v := range cfg.additionalTags {
			span.SetTagString(k, v)
		}

		// the mq is the consumer's upstream service
		span.SetTagString("from_service_type", "kafka")
		span.SetTagString("from_service", msg.Topic)

		ctxWithSpan := hivetracer.ContextWithSpan(context.Background(), span)

		handler(ctxWithSpan, msg.Value)
	}
}
