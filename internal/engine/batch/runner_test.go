package batch_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/cryptoassets-importer/internal/engine/batch"
)

// TestNewRunner verifies runner creation with various concurrency windows.
func TestNewRunner(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		wantErr     bool
	}{
		{name: "sequential", concurrency: 1},
		{name: "default import window", concurrency: 50},
		{name: "zero", concurrency: 0, wantErr: true},
		{name: "negative", concurrency: -3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := batch.NewRunner[int, int](tt.concurrency)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, r)
				assert.ErrorIs(t, err, batch.ErrInvalidConcurrency)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.concurrency, r.Concurrency())
		})
	}
}

func TestRun_RejectsBadConfigurationBeforeWork(t *testing.T) {
	var calls atomic.Int32
	worker := func(_ context.Context, _ int, _ int) (int, error) {
		calls.Add(1)
		return 0, nil
	}

	for _, k := range []int{0, -1} {
		out, err := batch.Run(context.Background(), []int{1, 2, 3}, k, worker)
		require.ErrorIs(t, err, batch.ErrInvalidConcurrency)
		assert.Nil(t, out)
	}
	assert.Equal(t, int32(0), calls.Load())

	r, err := batch.NewRunner[int, int](2)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), []int{1}, nil)
	assert.ErrorIs(t, err, batch.ErrNilWorker)
}

func TestRun_EmptyInput(t *testing.T) {
	var calls atomic.Int32
	out, err := batch.Run(context.Background(), []string{}, 4, func(_ context.Context, s string, _ int) (string, error) {
		calls.Add(1)
		return s, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Equal(t, int32(0), calls.Load())

	out, err = batch.Run[string, string](context.Background(), nil, 4, func(_ context.Context, s string, _ int) (string, error) {
		return s, nil
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRun_PreservesOrderUnderJitter(t *testing.T) {
	items := []int{10, 20, 30, 40}

	for attempt := range 5 {
		t.Run(fmt.Sprintf("attempt-%d", attempt), func(t *testing.T) {
			out, err := batch.Run(context.Background(), items, 2, func(_ context.Context, x int, _ int) (int, error) {
				time.Sleep(time.Duration(rand.IntN(5)) * time.Millisecond)
				return x * 2, nil
			})
			require.NoError(t, err)
			require.Len(t, out, len(items))
			assert.Equal(t, []int{20, 40, 60, 80}, batch.Values(out))
			for i, o := range out {
				assert.Equal(t, i, o.Index)
				assert.True(t, o.OK())
			}
		})
	}
}

func TestRun_FailureIsIsolated(t *testing.T) {
	errB := errors.New("b is broken")
	out, err := batch.Run(context.Background(), []string{"a", "b", "c"}, 2,
		func(_ context.Context, s string, _ int) (string, error) {
			if s == "b" {
				return "", errB
			}
			return s, nil
		})
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.True(t, out[0].OK())
	assert.Equal(t, "a", out[0].Value)
	assert.False(t, out[1].OK())
	assert.ErrorIs(t, out[1].Err, errB)
	assert.True(t, out[2].OK())
	assert.Equal(t, "c", out[2].Value)

	failures := batch.Failures(out)
	require.Len(t, failures, 1)
	assert.Equal(t, 1, failures[0].Index)

	var itemErr *batch.ItemError
	require.ErrorAs(t, out[1].Err, &itemErr)
	assert.Equal(t, 1, itemErr.Index)
	assert.Contains(t, itemErr.Error(), "item 1 failed")
}

func TestRun_ActiveWorkersNeverExceedWindow(t *testing.T) {
	const n = 30

	for _, k := range []int{1, 3, 7, 100} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			var active, peak atomic.Int32
			items := make([]int, n)

			out, err := batch.Run(context.Background(), items, k, func(_ context.Context, _ int, _ int) (int, error) {
				cur := active.Add(1)
				defer active.Add(-1)
				for {
					old := peak.Load()
					if cur <= old || peak.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				return 0, nil
			})
			require.NoError(t, err)
			assert.Len(t, out, n)
			assert.LessOrEqual(t, int(peak.Load()), min(k, n))
			assert.Equal(t, int32(0), active.Load())
		})
	}
}

func TestRun_FullFanOutWhenWindowCoversInput(t *testing.T) {
	const n = 4
	started := make(chan struct{}, n)
	release := make(chan struct{})

	go func() {
		for range n {
			<-started
		}
		close(release)
	}()

	done := make(chan []batch.Outcome[int])
	go func() {
		out, _ := batch.Run(context.Background(), make([]int, n), 10, func(_ context.Context, _ int, i int) (int, error) {
			started <- struct{}{}
			<-release
			return i, nil
		})
		done <- out
	}()

	select {
	case out := <-done:
		assert.Equal(t, []int{0, 1, 2, 3}, batch.Values(out))
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not all run concurrently")
	}
}

func TestRun_SequentialWhenWindowIsOne(t *testing.T) {
	var mu sync.Mutex
	var events []string

	_, err := batch.Run(context.Background(), []int{0, 1, 2, 3, 4}, 1, func(_ context.Context, _ int, i int) (int, error) {
		mu.Lock()
		events = append(events, fmt.Sprintf("start-%d", i))
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		events = append(events, fmt.Sprintf("end-%d", i))
		mu.Unlock()
		return i, nil
	})
	require.NoError(t, err)

	want := make([]string, 0, 10)
	for i := range 5 {
		want = append(want, fmt.Sprintf("start-%d", i), fmt.Sprintf("end-%d", i))
	}
	assert.Equal(t, want, events)
}

func TestRun_DuplicatesAreIndependent(t *testing.T) {
	var mu sync.Mutex
	calls := map[int]int{}

	out, err := batch.Run(context.Background(), []string{"x", "x", "x"}, 2, func(_ context.Context, s string, i int) (string, error) {
		mu.Lock()
		calls[i]++
		mu.Unlock()
		return fmt.Sprintf("%s%d", s, i), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x0", "x1", "x2"}, batch.Values(out))
	assert.Equal(t, map[int]int{0: 1, 1: 1, 2: 1}, calls)
}

func TestRun_PanicBecomesItemFailure(t *testing.T) {
	out, err := batch.Run(context.Background(), []int{1, 2, 3}, 3, func(_ context.Context, x int, _ int) (int, error) {
		if x == 2 {
			panic("unexpected registry layout")
		}
		return x, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, batch.Values(out))
	assert.ErrorIs(t, out[1].Err, batch.ErrWorkerPanic)
}

func TestRun_AllItemsFail(t *testing.T) {
	out, err := batch.Run(context.Background(), []int{1, 2, 3, 4}, 2, func(_ context.Context, x int, _ int) (int, error) {
		return 0, fmt.Errorf("item %d unavailable", x)
	})
	require.NoError(t, err)
	assert.Empty(t, batch.Values(out))
	assert.Len(t, batch.Failures(out), 4)
	assert.Error(t, batch.Errs(out))
}

func TestRun_CancelledContextIsItemFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	out, err := batch.Run(ctx, []int{1, 2, 3}, 2, func(ctx context.Context, x int, _ int) (int, error) {
		calls.Add(1)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return x, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	for _, o := range out {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestRunner_Callbacks(t *testing.T) {
	r, err := batch.NewRunner[string, int](2)
	require.NoError(t, err)

	var mu sync.Mutex
	failed := map[int]string{}
	var last batch.ProgressSnapshot
	var progressCalls int

	r.WithFailureCallback(func(_ context.Context, item string, index int, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.Error(t, err)
		failed[index] = item
	}).WithProgressCallback(func(snap batch.ProgressSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		progressCalls++
		if snap.Settled() > last.Settled() {
			last = snap
		}
	})

	out, err := r.Run(context.Background(), []string{"ok", "bad", "ok", "bad", "ok"},
		func(_ context.Context, s string, i int) (int, error) {
			if s == "bad" {
				return 0, errors.New("rejected")
			}
			return i, nil
		})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, batch.Values(out))
	assert.Equal(t, map[int]string{1: "bad", 3: "bad"}, failed)
	assert.Equal(t, 5, progressCalls)
	assert.Equal(t, 5, last.Settled())
	assert.Equal(t, 3, last.SucceededItems)
	assert.Equal(t, 2, last.FailedItems)
	assert.Equal(t, 100.0, last.PercentComplete)

	// The runner carries no state between runs.
	out, err = r.Run(context.Background(), []string{"ok"}, func(_ context.Context, _ string, _ int) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{7}, batch.Values(out))
}

func TestRun_LogsFailuresToContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx := logger.WithContext(context.Background())

	_, err := batch.Run(ctx, []int{1, 2}, 1, func(_ context.Context, x int, _ int) (int, error) {
		if x == 2 {
			return 0, errors.New("missing common.json")
		}
		return x, nil
	})
	require.NoError(t, err)

	logs := buf.String()
	assert.Contains(t, logs, "batch run started")
	assert.Contains(t, logs, "batch item failed")
	assert.Contains(t, logs, "missing common.json")
	assert.Contains(t, logs, "batch run completed")
}

func TestHelpers(t *testing.T) {
	t.Run("Filter", func(t *testing.T) {
		ids := []string{"bitcoin", "index.json", "ethereum"}
		kept := batch.Filter(ids, func(id string) bool { return id != "index.json" })
		assert.Equal(t, []string{"bitcoin", "ethereum"}, kept)
		assert.Equal(t, ids, batch.Filter(ids, nil))
	})

	t.Run("ErrsNilWhenAllSucceed", func(t *testing.T) {
		out := []batch.Outcome[int]{{Index: 0, Value: 1}, {Index: 1, Value: 2}}
		assert.NoError(t, batch.Errs(out))
		assert.Empty(t, batch.Failures(out))
	})

	t.Run("FailuresWrapsPlainErrors", func(t *testing.T) {
		plain := errors.New("plain")
		out := []batch.Outcome[int]{{Index: 4, Err: plain}}
		failures := batch.Failures(out)
		require.Len(t, failures, 1)
		assert.Equal(t, 4, failures[0].Index)
		assert.ErrorIs(t, batch.Errs(out), plain)
	})
}
