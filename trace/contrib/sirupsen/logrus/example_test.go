package logrus

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

func Example_hook() {
	tracer, err := hivetracer.NewTracer(
		hivetracer.Http, "example_service",
		hivetracer.WithLogSender(true),
	)
	if err != nil {
		panic(err)
	}
	tracer.Start()
	defer func() {
		tracer.Stop()
	}()

	logrus.SetLevel(logrus.TraceLevel)
	logrus.SetReportCaller(true)

	logrus.AddHook(NewHook(tracer, []logrus.Level{
		logrus.TraceLevel,
		logrus.DebugLevel,
		logrus.InfoLevel,
		logrus.WarnLevel,
		logrus.ErrorLevel,
		logrus.FatalLevel,
	}))

	ctx := context.Background()
	span, ctx := tracer.StartServerSpanFromContext(ctx, "logrus_example", hivetracer.ServerResourceAs("log"))
	defer span.Finish()
	logrus.WithContext(ctx).Info("handling request")
}
