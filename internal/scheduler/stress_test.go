package scheduler

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestEngineStressConcurrentReschedule(t *testing.T) {
	engine := NewEngine(256)
	defer engine.Stop()

	const workers = 8
	const habits = 100

	now := time.Now().UTC()
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < habits; i++ {
				ev := ReminderEvent{
					ID:        fmt.Sprintf("rem-%d-w%d", i, w),
					HabitID:   fmt.Sprintf("habit-%d", i),
					Title:     fmt.Sprintf("habit %d", i),
					Type:      "Soft",
					TriggerAt: now.Add(time.Duration((w*7+i)%40+10) * time.Millisecond),
				}
				if err := engine.Schedule(ev); err != nil {
					t.Errorf("schedule %s: %v", ev.HabitID, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if got := len(engine.Pending()); got != habits {
		t.Fatalf("rescheduling must keep one event per habit: got %d pending, want %d", got, habits)
	}

	engine.Start()
	seen := make(map[string]int, habits)
	deadline := time.After(5 * time.Second)
	for len(seen) < habits {
		select {
		case <-deadline:
			t.Fatalf("timeout: %d of %d habits reminded, dropped=%d", len(seen), habits, engine.Dropped())
		case ev := <-engine.C():
			seen[ev.HabitID]++
		}
	}

	// Nothing else may arrive: each habit had a single pending event.
	select {
	case ev := <-engine.C():
		t.Fatalf("unexpected extra reminder for %s", ev.HabitID)
	case <-time.After(100 * time.Millisecond):
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("%s reminded %d times", id, n)
		}
	}
	if engine.Dropped() != 0 {
		t.Fatalf("expected zero drops with an active consumer, got %d", engine.Dropped())
	}
}
