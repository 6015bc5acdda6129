package settings_models

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Settings is the remote configuration document served by the local agent.
// Zero values mean "not set"; consumers fall back to their local defaults.
type Settings struct {
	Trace TraceSettings `json:"trace"`
	Db    DbSettings    `json:"db"`
}

type TraceSettings struct {
	Sample SampleSettings `json:"sample"`
}

// SampleSettings selects the sampling strategy for the whole process.
// Strategy names match trace_sampler strategies; SampleRate feeds the
// deterministic strategy, Value feeds ratio (fraction of traces) and
// ratelimit (traces per second).
type SampleSettings struct {
	Strategy   string  `json:"strategy"`
	SampleRate int     `json:"sample_rate"`
	Value      float64 `json:"value"`
}

type DbSettings struct {
	SlowQueryMs int64 `json:"slow_query_ms"`
}

func (s *Settings) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

func (s *Settings) Unmarshal(data []byte) error {
	return json.Unmarshal(data, s)
}

func (s *Settings) String() string {
	b, _ := json.Marshal(s)
	return string(b)
}
