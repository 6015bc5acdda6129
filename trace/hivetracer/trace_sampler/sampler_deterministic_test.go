package trace_sampler

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Fixture table shared with the beeline implementations in other ecosystems.
// An entry must never be changed: the (trace id, rate) -> outcome mapping is
// the interoperability contract.
var crossImplFixtures = []struct {
	traceID string
	rate    int
	kept    bool
}{
	{"000000000063d76f0000000037fe0393", 10, false},
	{"000000000063d76f0000000037fe0393", 2, false},
	{"000000000012d685", 2, true},
	{"000000000012d685", 10, true},
	{"000000000012d685", 100, false},
	{"hello", 2, false},
	{"world", 2, true},
	{"world", 10, false},
	{"", 2, false},
	{"deadbeef", 2, false},
}

func TestDeterministicCrossImplFixtures(t *testing.T) {
	for _, f := range crossImplFixtures {
		s, err := NewDeterministicSampler(f.rate)
		assert.NoError(t, err)
		effective := s.SampleRate(f.traceID)
		if f.kept {
			assert.Equal(t, f.rate, effective, "traceID=%q rate=%d", f.traceID, f.rate)
		} else {
			assert.Equal(t, 0, effective, "traceID=%q rate=%d", f.traceID, f.rate)
		}
	}
}

func TestDeterministicAlwaysAndNever(t *testing.T) {
	always, err := NewDeterministicSampler(1)
	assert.NoError(t, err)
	never, err := NewDeterministicSampler(0)
	assert.NoError(t, err)

	for i := 0; i < 100; i++ {
		traceID := fmt.Sprintf("trace-%d", i)

		res := always.ShouldSample(SamplingParameters{TraceID: traceID})
		assert.Equal(t, RecordAndSample, res.Decision)
		assert.Equal(t, 1, res.SampleRate)

		res = never.ShouldSample(SamplingParameters{TraceID: traceID})
		assert.Equal(t, Drop, res.Decision)
		assert.Equal(t, 0, res.SampleRate)
	}
}

func TestDeterministicNegativeRate(t *testing.T) {
	s, err := NewDeterministicSampler(-1)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrNegativeSampleRate)
}

func TestDeterministicIsDeterministic(t *testing.T) {
	a, err := NewDeterministicSampler(17)
	assert.NoError(t, err)
	b, err := NewDeterministicSampler(17)
	assert.NoError(t, err)
	for i := 0; i < 1000; i++ {
		traceID := fmt.Sprintf("%032x", i)
		first := a.SampleRate(traceID)
		for j := 0; j < 3; j++ {
			assert.Equal(t, first, a.SampleRate(traceID))
			assert.Equal(t, first, b.SampleRate(traceID))
		}
	}
}

func TestDeterministicKeepFraction(t *testing.T) {
	const n = 50000
	for _, rate := range []int{2, 10, 50} {
		s, err := NewDeterministicSampler(rate)
		assert.NoError(t, err)
		kept := 0
		for i := 0; i < n; i++ {
			if s.SampleRate(fmt.Sprintf("id-%d", i)) > 0 {
				kept++
			}
		}
		got := float64(kept) / float64(n)
		want := 1 / float64(rate)
		assert.InDelta(t, want, got, want*0.15, "rate=%d kept=%d", rate, kept)
	}
}

func TestDeterministicUnsignedComparison(t *testing.T) {
	// first 4 bytes of sha1("hello") are 0xaaf4c61d: negative as int32.
	// A signed comparison against upperBound 0x7FFFFFFF would keep it.
	sum := sha1.Sum([]byte("hello"))
	hashValue := binary.BigEndian.Uint32(sum[:4])
	assert.Greater(t, hashValue, uint32(math.MaxInt32))

	s, err := NewDeterministicSampler(2)
	assert.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32/2), s.upperBound)
	assert.Equal(t, 0, s.SampleRate("hello"))
}

func TestDeterministicSpecialRatesSkipHashing(t *testing.T) {
	orig := digest
	defer func() {
		digest = orig
	}()
	calls := 0
	digest = func(traceID string) [sha1.Size]byte {
		calls++
		return orig(traceID)
	}

	for _, rate := range []int{0, 1} {
		s, err := NewDeterministicSampler(rate)
		assert.NoError(t, err)
		s.SampleRate("000000000063d76f0000000037fe0393")
		s.SampleRate("")
	}
	assert.Equal(t, 0, calls)

	s, err := NewDeterministicSampler(2)
	assert.NoError(t, err)
	s.SampleRate("000000000063d76f0000000037fe0393")
	assert.Equal(t, 1, calls)
}

func TestSamplingResultAttributes(t *testing.T) {
	s, err := NewDeterministicSampler(10)
	assert.NoError(t, err)

	kept := s.ShouldSample(SamplingParameters{TraceID: "000000000012d685"})
	assert.Equal(t, RecordAndSample, kept.Decision)
	assert.True(t, kept.Sampled())
	assert.Equal(t, []Attribute{{Key: SampleRateKey, Value: 10}}, kept.Attributes())

	dropped := s.ShouldSample(SamplingParameters{TraceID: "000000000063d76f0000000037fe0393"})
	assert.Equal(t, Drop, dropped.Decision)
	assert.False(t, dropped.Sampled())
	// the intended rate is still reported on drop
	assert.Equal(t, []Attribute{{Key: SampleRateKey, Value: 0}}, dropped.Attributes())
}

func TestDeterministicOnlyReadsTraceID(t *testing.T) {
	s, err := NewDeterministicSampler(10)
	assert.NoError(t, err)
	base := s.ShouldSample(SamplingParameters{TraceID: "000000000012d685"})
	full := s.ShouldSample(SamplingParameters{
		Parent:     ParentContext{TraceID: "ffffffffffffffff", SpanID: "1", Sampled: false},
		TraceID:    "000000000012d685",
		Name:       "request",
		Kind:       SpanKindServer,
		Attributes: []Attribute{{Key: "http.method", Value: "GET"}},
		Links:      []Link{{TraceID: "eeeeeeeeeeeeeeee", SpanID: "2"}},
	})
	assert.Equal(t, base, full)
}

func TestDeterministicDescription(t *testing.T) {
	s, err := NewDeterministicSampler(10)
	assert.NoError(t, err)
	assert.Equal(t, "HivetraceDeterministicSampler", s.Description())
}
