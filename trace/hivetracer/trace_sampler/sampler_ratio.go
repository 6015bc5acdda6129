package trace_sampler

import "math/rand"

// ratioSampler keeps a pseudo-random permil of traces. Unlike the
// deterministic sampler the decision is not reproducible across processes.
type ratioSampler struct {
	permil int
	weight int
}

func (s *ratioSampler) ShouldSample(SamplingParameters) SamplingResult {
	if rand.Intn(1000) < s.permil {
		return newResult(s.weight)
	}
	return newResult(0)
}

func (s *ratioSampler) Description() string {
	return "HivetraceRatioSampler"
}
