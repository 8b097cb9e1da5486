package telemetry

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	Start()
	code := m.Run()
	Stop()
	os.Exit(code)
}

// The validation path logs on every decision, so the logger has to
// absorb bursts from concurrent callers without blocking them.
func TestConcurrentBurst(t *testing.T) {
	const numGoroutines = 10
	const logsPerGoroutine = 1000

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < logsPerGoroutine; j++ {
				Infof("worker %d: validated action %d", id, j)
				if j%100 == 0 {
					Warnf("worker %d: blocked action %d", id, j)
				}
			}
		}(i)
	}
	wg.Wait()

	// Let the async consumer drain.
	time.Sleep(100 * time.Millisecond)

	tail := Tail(10)
	if len(tail) != 10 {
		t.Errorf("Tail(10) returned %d entries", len(tail))
	}
}

func TestTailOrderAndBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		Infof("entry %d", i)
	}
	time.Sleep(50 * time.Millisecond)

	tail := Tail(5)
	if len(tail) != 5 {
		t.Fatalf("Tail(5) returned %d entries", len(tail))
	}
	// Oldest first; the last returned line is the newest.
	if !strings.Contains(tail[len(tail)-1], "entry 49") {
		t.Errorf("last tail entry = %q", tail[len(tail)-1])
	}

	if got := Tail(0); got != nil {
		t.Errorf("Tail(0) = %v", got)
	}
}

func TestDebugToggle(t *testing.T) {
	EnableDebug(false)
	marker := fmt.Sprintf("suppressed-%d", time.Now().UnixNano())
	Debugf("%s", marker)
	time.Sleep(50 * time.Millisecond)

	for _, line := range Tail(100) {
		if strings.Contains(line, marker) {
			t.Fatal("debug line logged while debug disabled")
		}
	}

	EnableDebug(true)
	marker = fmt.Sprintf("visible-%d", time.Now().UnixNano())
	Debugf("%s", marker)
	time.Sleep(50 * time.Millisecond)

	found := false
	for _, line := range Tail(100) {
		if strings.Contains(line, marker) {
			found = true
		}
	}
	if !found {
		t.Error("debug line missing while debug enabled")
	}
	EnableDebug(false)
}

func BenchmarkTailConcurrent(b *testing.B) {
	for i := 0; i < 2000; i++ {
		Infof("fill entry %d", i)
	}
	time.Sleep(10 * time.Millisecond)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if tail := Tail(50); len(tail) == 0 {
				b.Errorf("Tail returned no entries")
			}
		}
	})
}
