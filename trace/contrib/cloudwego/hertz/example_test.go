package hertz

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

func Example_middleware() {
	tracer, err := hivetracer.NewTracer(
		hivetracer.Web, "example_service",
	)
	if err != nil {
		panic(err)
	}
	tracer.Start()
	defer func() {
		tracer.Stop()
	}()

	h := server.Default(server.WithHostPorts("127.0.0.1:8888"))
	h.Use(NewMiddleware(tracer))
	h.GET("/ping", func(ctx context.Context, c *app.RequestContext) {
		c.String(200, "pong")
	})
	h.Spin()
}
