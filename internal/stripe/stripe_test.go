package stripe

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExecutor_OrderedPerKey(t *testing.T) {
	e := New(WithWorkers(4))
	defer e.Close()

	var mu sync.Mutex
	seq := make(map[uint64][]int)
	for i := range 200 {
		key := uint64(i % 5)
		require.NoError(t, e.Submit(t.Context(), key, func() {
			mu.Lock()
			seq[key] = append(seq[key], i)
			mu.Unlock()
		}))
	}
	e.Close()

	for key, got := range seq {
		require.Len(t, got, 40, "key %d", key)
		for j := 1; j < len(got); j++ {
			require.Less(t, got[j-1], got[j], "key %d", key)
		}
	}
}

func TestExecutor_ParallelAcrossKeys(t *testing.T) {
	e := New(WithWorkers(4))
	defer e.Close()

	var running, maxRunning atomic.Int32
	var wg sync.WaitGroup
	for key := range uint64(4) {
		wg.Add(1)
		require.NoError(t, e.Submit(t.Context(), key, func() {
			defer wg.Done()
			cur := running.Add(1)
			for {
				m := maxRunning.Load()
				if cur <= m || maxRunning.CompareAndSwap(m, cur) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			running.Add(-1)
		}))
	}
	wg.Wait()
	require.GreaterOrEqual(t, maxRunning.Load(), int32(2))
}

func TestExecutor_SubmitAfterClose(t *testing.T) {
	e := New()
	e.Close()
	e.Close()
	require.ErrorIs(t, e.Submit(t.Context(), 1, func() {}), ErrClosed)
}

func TestExecutor_SubmitRespectsContext(t *testing.T) {
	e := New(WithWorkers(1), WithBufferSize(1))
	defer e.Close()

	block := make(chan struct{})
	require.NoError(t, e.Submit(t.Context(), 0, func() { <-block }))
	// fills the buffer while the worker is blocked
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(t.Context(), 5*time.Millisecond)
		defer cancel()
		return e.Submit(ctx, 0, func() {}) == nil
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, e.Submit(ctx, 0, func() {}), context.DeadlineExceeded)
	close(block)
}
