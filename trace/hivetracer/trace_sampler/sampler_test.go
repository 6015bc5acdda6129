package trace_sampler

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManagerDefaultsToAlways(t *testing.T) {
	m := NewManager()
	res := m.ShouldSample(SamplingParameters{TraceID: "abc"})
	assert.True(t, res.Sampled())
	assert.Equal(t, 1, res.SampleRate)
	assert.Equal(t, "HivetraceAlwaysSampler", m.Description())
}

func TestManagerRefreshConfig(t *testing.T) {
	m := NewManager()

	assert.NoError(t, m.RefreshConfig(Config{Strategy: StrategyNever}))
	assert.False(t, m.ShouldSample(SamplingParameters{TraceID: "abc"}).Sampled())
	assert.Equal(t, "HivetraceNeverSampler", m.Description())

	assert.NoError(t, m.RefreshConfig(Config{Strategy: StrategyDeterministic, SampleRate: 10}))
	assert.Equal(t, DeterministicSamplerDescription, m.Description())
	res := m.ShouldSample(SamplingParameters{TraceID: "000000000012d685"})
	assert.True(t, res.Sampled())
	assert.Equal(t, 10, res.SampleRate)

	assert.NoError(t, m.RefreshConfig(Config{Strategy: StrategyRatio, Value: 1})) // keep all
	res = m.ShouldSample(SamplingParameters{TraceID: "abc"})
	assert.True(t, res.Sampled())
	assert.Equal(t, 1, res.SampleRate)
}

func TestManagerRefreshErrors(t *testing.T) {
	m := NewManager()
	assert.ErrorIs(t, m.RefreshConfig(Config{Strategy: StrategyDeterministic, SampleRate: -3}), ErrNegativeSampleRate)
	assert.ErrorIs(t, m.RefreshConfig(Config{Strategy: Strategy(42)}), ErrUnknownStrategy)
	// a failed refresh keeps the previous strategy
	assert.Equal(t, "HivetraceAlwaysSampler", m.Description())
}

func TestManagerZeroValueFallsBackToNever(t *testing.T) {
	m := NewManager()
	assert.NoError(t, m.RefreshConfig(Config{Strategy: StrategyRatio, Value: 0}))
	assert.False(t, m.ShouldSample(SamplingParameters{TraceID: "abc"}).Sampled())
	assert.NoError(t, m.RefreshConfig(Config{Strategy: StrategyRateLimit, Value: 0}))
	assert.False(t, m.ShouldSample(SamplingParameters{TraceID: "abc"}).Sampled())
}

func TestManagerConcurrentUse(t *testing.T) {
	m := NewManager()
	assert.NoError(t, m.RefreshConfig(Config{Strategy: StrategyDeterministic, SampleRate: 4}))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.ShouldSample(SamplingParameters{TraceID: fmt.Sprintf("%d-%d", n, j)})
			}
		}(i)
	}
	for i := 0; i < 10; i++ {
		assert.NoError(t, m.RefreshConfig(Config{Strategy: StrategyDeterministic, SampleRate: i}))
	}
	wg.Wait()
}
