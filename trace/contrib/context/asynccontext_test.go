package context

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAsyncContextSurvivesParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	asyncCtx := NewContextForAsyncTracing(ctx)
	cancel()

	select {
	case <-asyncCtx.Done():
		t.Fatal("async context should not inherit cancellation")
	case <-time.After(50 * time.Millisecond):
	}
	assert.NoError(t, asyncCtx.Err())
}
