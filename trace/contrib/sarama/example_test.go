package sarama

import (
	"context"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

func Example_wrapProducer() {
	tracer, err := hivetracer.NewTracer(
		hivetracer.Http, "example_service",
	)
	if err != nil {
		panic(err)
	}
	tracer.Start()
	defer func() {
		tracer.Stop()
	}()

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	p, err := sarama.NewAsyncProducer([]string{"127.0.0.1:9092"}, cfg)
	if err != nil {
		panic(err)
	}
	wrapped := WrapProducer(cfg, p, tracer)
	defer func() {
		_ = wrapped.Close()
	}()

	go func() {
		for range wrapped.Successes() {
		}
	}()
	go func() {
		for range wrapped.Errors() {
		}
	}()

	span, ctx := tracer.StartServerSpanFromContext(context.Background(), "produce_example", hivetracer.ServerResourceAs("produce"))
	defer span.Finish()
	wrapped.Input() <- InjectCtx(ctx, &sarama.ProducerMessage{
		Topic: "example-topic",
		Value: sarama.StringEncoder("hello"),
	})
}

func Example_wrapHandler() {
	tracer, err := hivetracer.NewTracer(
		hivetracer.Http, "example_service",
	)
	if err != nil {
		panic(err)
	}
	tracer.Start()
	defer func() {
		tracer.Stop()
	}()

	handle := WrapHandler(func(ctx context.Context, data []byte) {
		fmt.Println(string(data))
	}, tracer, WithAdditionalTag("consumer.group", "example-group"))

	handle(&sarama.ConsumerMessage{
		Topic: "example-topic",
		Value: []byte("hello"),
	})
}
