package trace_sender

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type SpanKind string

const (
	SpanKindCommon SpanKind = "common"
	SpanKindServer SpanKind = "server"
	SpanKindClient SpanKind = "client"
)

// error kinds on the wire
const (
	ErrorUncaughtException = "uncaught_exception"
	ErrorDb                = "db_error"
	ErrorNoSql             = "nosql_error"
	ErrorMq                = "mq_error"
	ErrorExternalService   = "external_service_error"
	ErrorHttpCode          = "http_code_error"
	ErrorBusiness          = "business_error"
	ErrorPanic             = "panic"
)

// Trace is the batch unit handed to the sender: one kept trace, all of its
// finished spans flattened into event records. sample.rate is the effective
// rate the trace was kept at, so the backend can upweight counts by it.
type Trace struct {
	ServiceType string `json:"service.type"`
	Service     string `json:"service.name"`
	ContainerId string `json:"meta.container_id,omitempty"`
	InstanceId  string `json:"meta.instance_id,omitempty"`

	TraceId    string `json:"trace.trace_id"`
	SampleRate int    `json:"sample.rate"`

	Events []*Event `json:"events"`
}

// Event is one span rendered as a flat telemetry record.
type Event struct {
	Kind SpanKind `json:"kind"`

	SpanId   string `json:"trace.span_id"`
	ParentId string `json:"trace.parent_id,omitempty"`
	Name     string `json:"name"`

	TimestampMs int64 `json:"timestamp_ms"`
	DurationUs  int64 `json:"duration_us"`

	Status int64 `json:"status"`

	Resource string `json:"resource,omitempty"`

	CallServiceType string `json:"call.service_type,omitempty"`
	CallService     string `json:"call.service,omitempty"`
	CallResource    string `json:"call.resource,omitempty"`

	FieldsString  map[string]string  `json:"fields.string,omitempty"`
	FieldsInt64   map[string]int64   `json:"fields.int,omitempty"`
	FieldsFloat64 map[string]float64 `json:"fields.float,omitempty"`

	Errors []*ErrorEvent `json:"errors,omitempty"`
}

type ErrorEvent struct {
	Kind        string            `json:"kind"`
	Message     string            `json:"message"`
	Stack       []string          `json:"stack,omitempty"`
	OccurTimeMs int64             `json:"occur_time_ms"`
	Tags        map[string]string `json:"tags,omitempty"`
}

func (t *Trace) Marshal() ([]byte, error) {
	return json.Marshal(t)
}

func (t *Trace) Unmarshal(data []byte) error {
	return json.Unmarshal(data, t)
}
