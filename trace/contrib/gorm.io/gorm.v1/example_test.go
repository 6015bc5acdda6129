package gorm_v1

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

func Example_wrapDB() {
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

	db, err := gorm.Open(mysql.Open("root:123456@tcp(127.0.0.1:3306)/hivetrace?charset=utf8"), &gorm.Config{})
	if err != nil {
		panic(err)
	}
	db, err = WrapDB(hivetracer.MySQL, "127.0.0.1:3306", "hivetrace", db, tracer)
	if err != nil {
		panic(err)
	}

	type User struct {
		ID           uint
		Name         string
		Email        *string
		Age          uint8
		Birthday     time.Time
		MemberNumber sql.NullString
		ActivatedAt  sql.NullTime
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	ctx := context.Background()
	span, ctx := tracer.StartServerSpanFromContext(ctx, "gorm_example", hivetracer.ServerResourceAs("gorm"))
	defer span.Finish()
	{
		user := User{Name: "bee", Age: 18, Birthday: time.Now()}
		db.WithContext(ctx).Create(&user)
	}
	{
		user := User{}
		db.WithContext(ctx).First(&user)
	}
	{
		db.WithContext(ctx).Delete(&User{}, 10)
	}
}
