package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool_Defaults(t *testing.T) {
	ctx := context.Background()
	pool := NewPool[int](ctx, 0, -5)
	defer pool.Close()

	if pool.Workers() != 1 {
		t.Errorf("Expected 1 worker (default), got %d", pool.Workers())
	}
}

func TestPool_Submit_Success(t *testing.T) {
	ctx := context.Background()
	pool := NewPool[int](ctx, 2, 10)
	defer pool.Close()

	err := pool.Submit(Job[int]{
		ID: "test-job",
		Execute: func(ctx context.Context) (int, error) {
			return 42, nil
		},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	select {
	case result := <-pool.Results():
		if result.Value != 42 {
			t.Errorf("Expected 42, got %d", result.Value)
		}
		if result.Err != nil {
			t.Errorf("Expected no error, got %v", result.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for result")
	}
}

func TestPool_Submit_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool[int](ctx, 2, 10)
	defer pool.Close()

	cancel()

	err := pool.Submit(Job[int]{
		ID:      "test-job",
		Execute: func(ctx context.Context) (int, error) { return 0, nil },
	})
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestPool_Results_WithError(t *testing.T) {
	ctx := context.Background()
	pool := NewPool[string](ctx, 2, 10)
	defer pool.Close()

	expectedErr := errors.New("job failed")
	_ = pool.Submit(Job[string]{
		ID: "failing",
		Execute: func(ctx context.Context) (string, error) {
			return "", expectedErr
		},
	})

	select {
	case result := <-pool.Results():
		if result.JobID != "failing" {
			t.Errorf("Expected job ID 'failing', got %q", result.JobID)
		}
		if result.Err == nil || result.Err.Error() != expectedErr.Error() {
			t.Errorf("Expected %v, got %v", expectedErr, result.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for result")
	}
}

func TestPool_SubmitAndWait(t *testing.T) {
	ctx := context.Background()
	pool := NewPool[int](ctx, 4, 10)
	defer pool.Close()

	jobs := []Job[int]{
		{ID: "1", Execute: func(ctx context.Context) (int, error) { return 1, nil }},
		{ID: "2", Execute: func(ctx context.Context) (int, error) { return 2, nil }},
		{ID: "3", Execute: func(ctx context.Context) (int, error) { return 3, nil }},
	}

	results := pool.SubmitAndWait(jobs)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	// Completion order varies, so check the sum
	sum := 0
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error: %v", r.Err)
		}
		sum += r.Value
	}
	if sum != 6 {
		t.Errorf("Expected sum of 6, got %d", sum)
	}
}

func TestPool_SubmitAndWait_OverlappingBatches(t *testing.T) {
	ctx := context.Background()
	pool := NewPool[string](ctx, 4, 32)
	defer pool.Close()

	makeBatch := func(tag string) []Job[string] {
		jobs := make([]Job[string], 8)
		for i := range jobs {
			jobs[i] = Job[string]{
				ID: tag,
				Execute: func(ctx context.Context) (string, error) {
					time.Sleep(time.Millisecond)
					return tag, nil
				},
			}
		}
		return jobs
	}

	var wg sync.WaitGroup
	runBatch := func(tag string) {
		defer wg.Done()
		results := pool.SubmitAndWait(makeBatch(tag))
		if len(results) != 8 {
			t.Errorf("Batch %s: expected 8 results, got %d", tag, len(results))
		}
		for _, r := range results {
			if r.Value != tag {
				t.Errorf("Batch %s: received result %q belonging to another batch", tag, r.Value)
			}
		}
	}

	// Both batches run on the shared pool at the same time; each must
	// collect exactly its own results.
	wg.Add(2)
	go runBatch("A")
	go runBatch("B")
	wg.Wait()
}

func TestPool_ConcurrentSubmit(t *testing.T) {
	ctx := context.Background()
	pool := NewPool[struct{}](ctx, 4, 200)
	defer pool.Close()

	var counter int64
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Submit(Job[struct{}]{
				ID: "concurrent",
				Execute: func(ctx context.Context) (struct{}, error) {
					atomic.AddInt64(&counter, 1)
					return struct{}{}, nil
				},
			})
		}()
	}

	wg.Wait()
	time.Sleep(100 * time.Millisecond)

	if atomic.LoadInt64(&counter) != 100 {
		t.Errorf("Expected 100 executions, got %d", counter)
	}
}

func TestPool_Close(t *testing.T) {
	ctx := context.Background()
	pool := NewPool[int](ctx, 4, 10)

	executed := make(chan struct{})
	_ = pool.Submit(Job[int]{
		ID: "before-close",
		Execute: func(ctx context.Context) (int, error) {
			close(executed)
			return 0, nil
		},
	})

	<-executed
	pool.Close()

	err := pool.Submit(Job[int]{
		ID:      "after-close",
		Execute: func(ctx context.Context) (int, error) { return 0, nil },
	})
	if err == nil {
		t.Error("Expected error after Close(), got nil")
	}
}

func TestPool_QueueLen(t *testing.T) {
	ctx := context.Background()
	pool := NewPool[int](ctx, 1, 10)
	defer pool.Close()

	blocker := make(chan struct{})
	started := make(chan struct{})
	_ = pool.Submit(Job[int]{
		ID: "blocker",
		Execute: func(ctx context.Context) (int, error) {
			close(started)
			<-blocker
			return 0, nil
		},
	})

	<-started

	for i := 0; i < 5; i++ {
		_ = pool.Submit(Job[int]{
			ID:      "queued",
			Execute: func(ctx context.Context) (int, error) { return 0, nil },
		})
	}

	if qLen := pool.QueueLen(); qLen != 5 {
		t.Errorf("Expected queue length 5, got %d", qLen)
	}

	close(blocker)
}

func BenchmarkPool_SubmitAndWait(b *testing.B) {
	ctx := context.Background()
	pool := NewPool[int](ctx, 4, 100)
	defer pool.Close()

	jobs := make([]Job[int], 10)
	for i := 0; i < 10; i++ {
		jobs[i] = Job[int]{
			ID:      "bench",
			Execute: func(ctx context.Context) (int, error) { return 0, nil },
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pool.SubmitAndWait(jobs)
	}
}
