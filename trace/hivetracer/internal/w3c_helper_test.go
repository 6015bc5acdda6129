package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTraceParent(t *testing.T) {
	s := SimpleW3CFormatParser{}
	tp, err := s.ParseTraceParent("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	assert.NoError(t, err)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", tp.TraceID)
	assert.Equal(t, "00f067aa0ba902b7", tp.ParentSpanID)
	assert.True(t, tp.Sampled())
}

func TestParseTraceParentNotSampled(t *testing.T) {
	s := SimpleW3CFormatParser{}
	tp, err := s.ParseTraceParent("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-00")
	assert.NoError(t, err)
	assert.False(t, tp.Sampled())
}

func TestParseTraceParentRejectsBadInput(t *testing.T) {
	s := SimpleW3CFormatParser{}
	for _, in := range []string{
		"",
		"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7", // too short
		"00-00000000000000000000000000000000-00f067aa0ba902b7-01",
		"00-4bf92f3577b34da6a3ce929d0e0e4736-0000000000000000-01",
		"ff-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", // unsupported version
	} {
		_, err := s.ParseTraceParent(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseTraceState(t *testing.T) {
	s := SimpleW3CFormatParser{}
	ts, err := s.ParseTraceState("vendor=a,other=b")
	assert.NoError(t, err)
	assert.Len(t, ts.Members, 2)
	assert.Equal(t, "a", ts.Get("vendor"))
	assert.Equal(t, "", ts.Get("missing"))

	_, err = s.ParseTraceState("dup=a,dup=b")
	assert.Error(t, err)
}
