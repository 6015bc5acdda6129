package trace_sampler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRatelimitBudget(t *testing.T) {
	s := newRatelimitSampler(100)

	res := s.ShouldSample(SamplingParameters{})
	assert.True(t, res.Sampled())

	// drain the current interval, then the next keep carries the drops as weight
	dropped := 0
	deadline := time.Now().Add(250 * time.Millisecond)
	var kept SamplingResult
	for time.Now().Before(deadline) {
		r := s.ShouldSample(SamplingParameters{})
		if r.Sampled() {
			kept = r
			break
		}
		dropped++
	}
	if kept.Sampled() {
		assert.Equal(t, dropped+1, kept.SampleRate)
	}
}

func TestRatelimitFractionalBudget(t *testing.T) {
	s := newRatelimitSampler(0.5)
	assert.Equal(t, 2*time.Second, s.interval)

	assert.True(t, s.ShouldSample(SamplingParameters{}).Sampled())
	assert.False(t, s.ShouldSample(SamplingParameters{}).Sampled())
}

func TestManagerRatelimitFractionalValue(t *testing.T) {
	m := NewManager()
	assert.NoError(t, m.RefreshConfig(Config{Strategy: StrategyRateLimit, Value: 0.5}))
	assert.True(t, m.ShouldSample(SamplingParameters{TraceID: "abc"}).Sampled())
}

func TestRatelimitDropCarriesZeroRate(t *testing.T) {
	s := newRatelimitSampler(1)
	s.ShouldSample(SamplingParameters{})
	res := s.ShouldSample(SamplingParameters{})
	assert.False(t, res.Sampled())
	assert.Equal(t, []Attribute{{Key: SampleRateKey, Value: 0}}, res.Attributes())
}
