package log_models

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Log is one application log record correlated to a trace. TimestampMs is
// unix milliseconds.
type Log struct {
	TraceId string `json:"trace.trace_id,omitempty"`

	Service     string `json:"service.name"`
	ContainerId string `json:"meta.container_id,omitempty"`

	TimestampMs int64  `json:"timestamp_ms"`
	LogLevel    string `json:"level,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	FileLine    int64  `json:"file_line,omitempty"`
	Source      string `json:"source,omitempty"`

	Message []byte `json:"message"`
}

func (l *Log) Marshal() ([]byte, error) {
	return json.Marshal(l)
}

func (l *Log) Unmarshal(data []byte) error {
	return json.Unmarshal(data, l)
}
