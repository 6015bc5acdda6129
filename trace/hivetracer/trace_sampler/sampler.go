package trace_sampler

import (
	"sync"
)

// SampleRateKey is the attribute key under which every SamplingResult
// reports the effective sample rate, for kept and dropped traces alike.
const SampleRateKey = "sample.rate"

type Decision byte

const (
	Drop Decision = iota
	RecordAndSample
)

type SpanKind byte

const (
	SpanKindUnspecified SpanKind = iota
	SpanKindServer
	SpanKindClient
	SpanKindInternal
	SpanKindProducer
	SpanKindConsumer
)

// ParentContext describes the remote or in-process parent of the span being
// started. The zero value means the span is a trace root.
type ParentContext struct {
	TraceID string
	SpanID  string
	Sampled bool
}

type Link struct {
	TraceID string
	SpanID  string
}

type Attribute struct {
	Key   string
	Value interface{}
}

// SamplingParameters carries everything a sampling strategy may consult when
// deciding on a new trace. The deterministic strategy reads only TraceID; the
// other fields exist so strategies that key off operation name, kind or
// attributes can implement the same interface.
type SamplingParameters struct {
	Parent     ParentContext
	TraceID    string
	Name       string
	Kind       SpanKind
	Attributes []Attribute
	Links      []Link
}

// SamplingResult pairs the keep/drop decision with the effective sample rate.
// SampleRate is 0 when the trace is dropped, otherwise the rate that was in
// effect, so downstream consumers can upweight statistics by it. Results are
// built per call and never mutated.
type SamplingResult struct {
	Decision   Decision
	SampleRate int
}

func (r SamplingResult) Sampled() bool {
	return r.Decision == RecordAndSample
}

// Attributes returns the result metadata: exactly one entry, SampleRateKey.
func (r SamplingResult) Attributes() []Attribute {
	return []Attribute{{Key: SampleRateKey, Value: r.SampleRate}}
}

func newResult(effectiveRate int) SamplingResult {
	if effectiveRate > 0 {
		return SamplingResult{Decision: RecordAndSample, SampleRate: effectiveRate}
	}
	return SamplingResult{Decision: Drop, SampleRate: effectiveRate}
}

type Sampler interface {
	ShouldSample(p SamplingParameters) SamplingResult
	Description() string
}

type Strategy int

const (
	StrategyAlways Strategy = iota
	StrategyNever
	StrategyDeterministic
	StrategyRatio
	StrategyRateLimit
)

type Config struct {
	Strategy Strategy

	// SampleRate is the 1-in-N divisor for StrategyDeterministic.
	SampleRate int

	// Value is the ratio fraction for StrategyRatio or the per-second
	// budget for StrategyRateLimit.
	Value float64
}

// Manager holds the active sampling strategy. The strategy can be swapped at
// runtime via RefreshConfig, typically driven by the settings fetcher.
type Manager struct {
	rwlock  sync.RWMutex
	sampler Sampler
}

func NewManager() *Manager {
	m := &Manager{}
	_ = m.RefreshConfig(Config{Strategy: StrategyAlways})
	return m
}

func (m *Manager) ShouldSample(p SamplingParameters) SamplingResult {
	m.rwlock.RLock()
	defer func() {
		m.rwlock.RUnlock()
	}()
	return m.sampler.ShouldSample(p)
}

func (m *Manager) Description() string {
	m.rwlock.RLock()
	defer func() {
		m.rwlock.RUnlock()
	}()
	return m.sampler.Description()
}

func (m *Manager) RefreshConfig(config Config) error {
	var next Sampler
	switch config.Strategy {
	case StrategyAlways:
		next = &alwaysSampler{}
	case StrategyNever:
		next = &neverSampler{}
	case StrategyDeterministic:
		ds, err := NewDeterministicSampler(config.SampleRate)
		if err != nil {
			return err
		}
		next = ds
	case StrategyRatio:
		if config.Value <= 0 {
			next = &neverSampler{}
		} else {
			next = &ratioSampler{
				permil: int(config.Value * 1000),
				weight: int(1 / config.Value),
			}
		}
	case StrategyRateLimit:
		if config.Value <= 0 {
			next = &neverSampler{}
		} else {
			next = newRatelimitSampler(config.Value)
		}
	default:
		return ErrUnknownStrategy
	}
	m.rwlock.Lock()
	m.sampler = next
	m.rwlock.Unlock()
	return nil
}

type alwaysSampler struct{}

func (s *alwaysSampler) ShouldSample(SamplingParameters) SamplingResult {
	return newResult(1)
}

func (s *alwaysSampler) Description() string {
	return "HivetraceAlwaysSampler"
}

type neverSampler struct{}

func (s *neverSampler) ShouldSample(SamplingParameters) SamplingResult {
	return newResult(0)
}

func (s *neverSampler) Description() string {
	return "HivetraceNeverSampler"
}
