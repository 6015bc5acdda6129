package trace_sampler

import (
	"sync"
	"time"
)

// ratelimitSampler keeps at most N traces per second. The weight of a kept
// trace counts the drops since the previous keep, so aggregate statistics
// stay unbiased.
type ratelimitSampler struct {
	interval time.Duration

	mutex sync.Mutex

	last      time.Time
	noSampled int
}

func newRatelimitSampler(perSecond float64) *ratelimitSampler {
	// computed in float space: budgets below one per second (0.5 means one
	// trace every two seconds) must not truncate to a zero interval
	return &ratelimitSampler{
		interval: time.Duration(float64(time.Second) / perSecond),
	}
}

func (s *ratelimitSampler) ShouldSample(SamplingParameters) SamplingResult {
	s.mutex.Lock()
	defer func() {
		s.mutex.Unlock()
	}()
	now := time.Now()
	if now.Sub(s.last) < s.interval {
		s.noSampled++
		return newResult(0)
	}
	weight := s.noSampled + 1
	s.last = s.last.Add(now.Sub(s.last) / s.interval * s.interval)
	s.noSampled = 0
	return newResult(weight)
}

func (s *ratelimitSampler) Description() string {
	return "HivetraceRateLimitSampler"
}
