package redis_v8

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

func Example_tracingHook() {
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

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379", DB: 1})
	client.AddHook(NewTracingHook(tracer, "127.0.0.1:6379", WithDB(1)))

	ctx := context.Background()
	span, ctx := tracer.StartServerSpanFromContext(ctx, "redis_example", hivetracer.ServerResourceAs("redis"))
	defer span.Finish()

	client.Set(ctx, "key", "value", 0)
	client.Get(ctx, "key")
}
