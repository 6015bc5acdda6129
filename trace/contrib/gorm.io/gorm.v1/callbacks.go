package gorm_v1

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
)

type contextKey string

var contextKeySpan = contextKey("hivetrace_span")

func WrapDB(dbType, endpoint, dbName string, db *gorm.DB, tracer hivetracer.Tracer) (*gorm.DB, error) {
	cb := db.Callback()
	err := cb.Create().Before("gorm:create").Register("hivetrace:before_create", newBefore(dbType, endpoint, dbName, "gorm:create", tracer))
	if err != nil {
		return nil, err
	}
	err = cb.Create().After("gorm:create").Register("hivetrace:after_create", newAfterFunc())
	if err != nil {
		return nil, err
	}
	err = cb.Update().Before("gorm:update").Register("hivetrace:before_update", newBefore(dbType, endpoint, dbName, "gorm:update", tracer))
	if err != nil {
		return nil, err
	}
	err = cb.Update().After("gorm:update").Register("hivetrace:after_update", newAfterFunc())
	if err != nil {
		return nil, err
	}
	err = cb.Delete().Before("gorm:delete").Register("hivetrace:before_delete", newBefore(dbType, endpoint, dbName, "gorm:delete", tracer))
	if err != nil {
		return nil, err
	}
	err = cb.Delete().After("gorm:delete").Register("hivetrace:after_delete", newAfterFunc())
	if err != nil {
		return nil, err
	}
	err = cb.Query().Before("gorm:query").Register("hivetrace:before_query", newBefore(dbType, endpoint, dbName, "gorm:query", tracer))
	if err != nil {
		return nil, err
	}
	err = cb.Query().After("gorm:query").Register("hivetrace:after_query", newAfterFunc())
	if err != nil {
		return nil, err
	}
	err = cb.Row().Before("gorm:row").Register("hivetrace:before_row", newBefore(dbType, endpoint, dbName, "gorm:row", tracer))
	if err != nil {
		return nil, err
	}
	err = cb.Row().After("gorm:row").Register("hivetrace:after_row", newAfterFunc())
	if err != nil {
		return nil, err
	}
	err = cb.Raw().Before("gorm:raw").Register("hivetrace:before_raw", newBefore(dbType, endpoint, dbName, "gorm:raw", tracer))
	if err != nil {
		return nil, err
	}
	err = cb.Raw().After("gorm:raw").Register("hivetrace:after_raw", newAfterFunc())
	if err != nil {
		return nil, err
	}
	return db, nil
}

func newBefore(dbType, endpoint, dbName string, action string, tracer hivetracer.Tracer) func(db *gorm.DB) {
	callService := endpoint + "/" + dbName
	return func(db *gorm.DB) {
		if db == nil {
			return
		}
		if db.Statement == nil {
			return
		}
		if db.Statement.Context == nil {
			return
		}
		span, ctx := tracer.StartClientSpanFromContext(db.Statement.Context,
			action, hivetracer.ClientResourceAs(dbType, callService, action))
		span.SetTagString("peer.type", dbType)
		span.SetTagString("peer.address", endpoint)
		span.SetTagString("db.instance", dbName)
		span.SetTagString("call.resource", action)

		db.Statement.Context = context.WithValue(ctx, contextKeySpan, span)
	}
}

func newAfterFunc() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if db == nil {
			return
		}
		if db.Statement == nil {
			return
		}
		if db.Statement.Context == nil {
			return
		}
		span, _ := db.Statement.Context.Value(contextKeySpan).(hivetracer.Span)
		if span == nil {
			return
		}
		span.SetTagString(hivetracer.DbStatement, db.Statement.SQL.String())

		// format vars
		{
			sb := strings.Builder{}
			sb.WriteString("[")
			first := true
			for _, v := range db.Statement.Vars {
				if !first {
					sb.WriteString(",")
				}
				switch vv := v.(type) {
				case string:
					sb.WriteString("'")
					sb.WriteString(vv)
					sb.WriteString("'")
				case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
					sb.WriteString(fmt.Sprintf("%v", vv))
				case time.Time:
					sb.WriteString(strconv.FormatInt(vv.Unix(), 10))
				case gorm.DeletedAt:
					if vv.Valid {
						sb.WriteString(strconv.FormatInt(vv.Time.Unix(), 10))
					} else {
						sb.WriteString("null")
					}
				default:
					sb.WriteString("'?'")
				}
				first = false

			}
			sb.WriteString("]")
			span.SetTagString("db.sql.parameters", sb.String())
		}
		if db.Error != nil {
			span.RecordError(db.Error, hivetracer.WithErrorKind(hivetracer.ErrorKindDbError))
			span.FinishWithOption(hivetracer.FinishSpanOption{
				FinishTime: time.Now(),
				Status:     1,
			})
		} else {
			span.Finish()
		}
	}
}
