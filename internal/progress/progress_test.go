package progress

import (
	"sync"
	"testing"
)

func TestObserveGrowsTotal(t *testing.T) {
	tr := NewTracker("test", 0)

	tr.Observe(1, 10, "a.go")
	tr.Observe(2, 10, "b.go")
	tr.Observe(3, 20, "c.go")

	if tr.max != 20 {
		t.Fatalf("expected max 20, got %d", tr.max)
	}
	tr.FinishSuccess()
}

func TestObserveConcurrent(t *testing.T) {
	tr := NewTracker("test", 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tr.Observe(0, n*50+j, "file.go")
			}
		}(i)
	}
	wg.Wait()

	if tr.max < 50 {
		t.Fatalf("expected max to grow, got %d", tr.max)
	}
	tr.FinishSuccess()
}

func TestSpinnerFinishers(t *testing.T) {
	NewSpinner("scan").FinishSkipped("cached")
	NewSpinner("scan").FinishError(nil)
}
