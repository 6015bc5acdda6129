package trace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer"
	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/trace_sampler"
)

func TestNewTracerRejectsNegativeSampleRate(t *testing.T) {
	_, err := hivetracer.NewTracer(hivetracer.Http, "service.test",
		hivetracer.WithSampleRate(-1))
	assert.ErrorIs(t, err, trace_sampler.ErrNegativeSampleRate)
}

func TestTracerSamplerDescription(t *testing.T) {
	tr, err := hivetracer.NewTracer(hivetracer.Http, "service.test",
		hivetracer.WithLogSender(false))
	require.NoError(t, err)
	assert.Equal(t, trace_sampler.DeterministicSamplerDescription, tr.SamplerDescription())
}

func TestSampleRateZeroDropsEveryTrace(t *testing.T) {
	tr, err := hivetracer.NewTracer(hivetracer.Http, "service.test",
		hivetracer.WithLogSender(false),
		hivetracer.WithSampleRate(0))
	require.NoError(t, err)
	tr.Start()
	defer tr.Stop()

	for i := 0; i < 10; i++ {
		span := tr.StartServerSpan("request")
		strategy, weight := span.Context().Sample()
		assert.Equal(t, hivetracer.SampleStrategyNotSampled, strategy)
		assert.Equal(t, 0, weight)
		span.Finish()
	}
}

func TestChildSpanSharesTraceAndDecision(t *testing.T) {
	tr := newTestTracer(t)

	root, ctx := tr.StartServerSpanFromContext(context.Background(), "request",
		hivetracer.ServerResourceAs("/orders"))
	child, _ := tr.StartClientSpanFromContext(ctx, "db.query")

	assert.Equal(t, root.Context().TraceID(), child.Context().TraceID())
	rs, rw := root.Context().Sample()
	cs, cw := child.Context().Sample()
	assert.Equal(t, rs, cs)
	assert.Equal(t, rw, cw)
	assert.NotEqual(t, root.Context().SpanID(), child.Context().SpanID())

	child.Finish()
	root.Finish()
}

func TestPropagatedParentDecisionWins(t *testing.T) {
	tr := newTestTracer(t)

	// remote parent says dropped; the local sampler must not be consulted
	header := map[string][]string{
		"X-Trace-Id":      {"20260830120000001234abcd1234abcd"},
		"X-Span-Id":       {"20260830120000005678ef015678ef01"},
		"X-Sample-Hit":    {"0"},
		"X-Sample-Weight": {"0"},
	}
	parent, err := tr.Extract(hivetracer.HTTPHeaders, hivetracer.HTTPHeadersCarrier(header))
	require.NoError(t, err)
	require.NotNil(t, parent)

	span := tr.StartServerSpan("request", hivetracer.ChildOf(parent))
	defer span.Finish()
	strategy, weight := span.Context().Sample()
	assert.Equal(t, hivetracer.SampleStrategyNotSampled, strategy)
	assert.Equal(t, 0, weight)
	assert.Equal(t, "20260830120000001234abcd1234abcd", span.Context().TraceID())
}

func TestSpanFinishAfterStopIsDropped(t *testing.T) {
	tr, err := hivetracer.NewTracer(hivetracer.Http, "service.test",
		hivetracer.WithLogSender(false))
	require.NoError(t, err)
	tr.Start()

	span := tr.StartServerSpan("request")
	tr.Stop()

	assert.NotPanics(t, func() {
		span.Finish()
	})
	assert.NotPanics(t, func() {
		tr.Stop() // idempotent
	})
}

func TestGetSpanFromContext(t *testing.T) {
	tr := newTestTracer(t)

	assert.Nil(t, hivetracer.GetSpanFromContext(context.Background()))

	span, ctx := tr.StartServerSpanFromContext(context.Background(), "request")
	defer span.Finish()
	assert.Equal(t, span, hivetracer.GetSpanFromContext(ctx))
}
