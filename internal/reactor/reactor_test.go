package reactor

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestPostRunsJobOnWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := New(context.Background())
	done := make(chan struct{})
	r.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never ran")
	}

	r.Stop()
	r.Wait()
}

func TestStopDrainsWorkersWithoutPanickingPosters(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := New(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Post(func() {})
			}
		}()
	}

	r.Stop()
	wg.Wait()
	r.Wait()
}

func TestAllPostedJobsRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := New(context.Background())

	n := 4
	var mu sync.Mutex
	seen := map[int]bool{}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		r.Post(func() {
			defer wg.Done()
			mu.Lock()
			seen[i] = true
			mu.Unlock()
		})
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("expected %d jobs to run, got %d", n, len(seen))
	}

	r.Stop()
	r.Wait()
}
