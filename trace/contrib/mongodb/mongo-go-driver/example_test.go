package mongo_go_driver

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

func Example_monitor() {
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

	opts := options.Client()
	opts.ApplyURI("mongodb://127.0.0.1:27017")
	opts.SetMonitor(NewMonitor(tracer))

	ctx := context.Background()
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = client.Disconnect(ctx)
	}()

	span, ctx := tracer.StartServerSpanFromContext(ctx, "mongo_example", hivetracer.ServerResourceAs("mongo"))
	defer span.Finish()

	coll := client.Database("example").Collection("users")
	_, _ = coll.InsertOne(ctx, bson.M{"name": "bee"})
	_ = coll.FindOne(ctx, bson.M{"name": "bee"})
}
