package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

func Example_middleware() {
	tracer, err := hivetracer.NewTracer(
		hivetracer.Web, "example_service",
		hivetracer.WithContextAdapter(NewGinContextAdapter()),
	)
	if err != nil {
		panic(err)
	}
	tracer.Start()
	defer func() {
		tracer.Stop()
	}()
	hivetracer.SetGlobalTracer(tracer)

	r := gin.New()
	r.Use(NewMiddleware(tracer))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	_ = r.Run(":8080")
}
