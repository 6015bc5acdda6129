package trace_sampler

import (
	"crypto"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"math"
)

var (
	ErrNegativeSampleRate = errors.New("sample rate must not be negative")
	ErrDigestUnavailable  = errors.New("sha1 digest is not linked into this binary")
	ErrUnknownStrategy    = errors.New("unknown sample strategy")
)

const DeterministicSamplerDescription = "HivetraceDeterministicSampler"

const (
	alwaysSample = 1
	neverSample  = 0
)

// digest is a seam for tests to count hash invocations. sha1.Sum keeps no
// shared state, so concurrent calls never contend.
var digest = func(traceID string) [sha1.Size]byte {
	return sha1.Sum([]byte(traceID))
}

// DeterministicSampler samples 1-in-N traces keyed only by trace id: every
// process that sees the same trace id computes the identical decision with no
// coordination. The digest algorithm, byte order and byte selection (SHA-1,
// first 4 bytes, big endian, compared unsigned against 0xFFFFFFFF/N) are a
// wire-level contract shared with the other SDK implementations and must not
// change.
//
// A rate of 0 never samples, a rate of 1 always samples.
type DeterministicSampler struct {
	sampleRate int
	upperBound uint32
}

var _ Sampler = &DeterministicSampler{}

func NewDeterministicSampler(sampleRate int) (*DeterministicSampler, error) {
	if sampleRate < 0 {
		return nil, ErrNegativeSampleRate
	}
	if !crypto.SHA1.Available() {
		return nil, ErrDigestUnavailable
	}
	s := &DeterministicSampler{
		sampleRate: sampleRate,
	}
	if sampleRate > 1 {
		s.upperBound = math.MaxUint32 / uint32(sampleRate)
	}
	return s, nil
}

// SampleRate decides on traceID and returns the effective rate: 0 to drop,
// the configured rate to keep.
func (s *DeterministicSampler) SampleRate(traceID string) int {
	switch s.sampleRate {
	case alwaysSample:
		return s.sampleRate
	case neverSample:
		return 0
	}
	sum := digest(traceID)
	// unsigned compare: both values may have the top bit set
	hashValue := binary.BigEndian.Uint32(sum[:4])
	if hashValue <= s.upperBound {
		return s.sampleRate
	}
	return 0
}

func (s *DeterministicSampler) ShouldSample(p SamplingParameters) SamplingResult {
	return newResult(s.SampleRate(p.TraceID))
}

func (s *DeterministicSampler) Description() string {
	return DeterministicSamplerDescription
}
