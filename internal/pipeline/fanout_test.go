package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanOut_OrderAndIsolation(t *testing.T) {
	boom := errors.New("boom")

	results, errs, err := fanOut(context.Background(), 3, 10, func(_ context.Context, i int) (int, error) {
		// later indices finish first
		time.Sleep(time.Duration(10-i) * time.Millisecond)
		if i == 4 {
			return 0, boom
		}
		return i * i, nil
	})
	require.NoError(t, err)
	require.Len(t, results, 10)

	for i := 0; i < 10; i++ {
		if i == 4 {
			assert.ErrorIs(t, errs[i], boom)
			continue
		}
		assert.NoError(t, errs[i])
		assert.Equal(t, i*i, results[i])
	}
}

func TestFanOut_Limit(t *testing.T) {
	var running, peak atomic.Int32

	_, _, err := fanOut(context.Background(), 2, 12, func(_ context.Context, _ int) (struct{}, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestFanOut_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var started atomic.Int32

	results, errs, err := fanOut(ctx, 1, 50, func(_ context.Context, i int) (int, error) {
		if started.Add(1) == 3 {
			cancel()
		}
		return i, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
	assert.Nil(t, errs)
	assert.Less(t, started.Load(), int32(50))
}

func TestFanOut_Empty(t *testing.T) {
	results, errs, err := fanOut(context.Background(), 4, 0, func(_ context.Context, i int) (int, error) {
		t.Fatal("task must not run")
		return 0, nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, errs)
}
