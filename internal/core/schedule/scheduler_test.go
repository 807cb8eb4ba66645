package schedule

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestScheduler(t *testing.T) (*Scheduler, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1_000_000, 0)}
	return NewScheduler(clk.Now, zaptest.NewLogger(t)), clk
}

func TestRecurringTaskFiresEveryInterval(t *testing.T) {
	s, clk := newTestScheduler(t)
	runs := 0
	s.AddRecurringTask("count", 100*time.Millisecond, func() { runs++ })

	if n := s.Poll(); n != 0 {
		t.Fatalf("fired %d tasks before first interval", n)
	}
	clk.Advance(99 * time.Millisecond)
	s.Poll()
	if runs != 0 {
		t.Fatalf("runs = %d before deadline", runs)
	}
	clk.Advance(time.Millisecond)
	s.Poll()
	if runs != 1 {
		t.Fatalf("runs = %d at deadline, want 1", runs)
	}
	clk.Advance(100 * time.Millisecond)
	s.Poll()
	if runs != 2 {
		t.Fatalf("runs = %d, want 2", runs)
	}
}

func TestNextFireKeepsCadenceAcrossStall(t *testing.T) {
	s, clk := newTestScheduler(t)
	start := clk.Now()
	runs := 0
	s.AddRecurringTask("tick", 100*time.Millisecond, func() { runs++ })

	// Stall for 350ms: one run per poll, fire times stay on the 100ms grid.
	clk.Advance(350 * time.Millisecond)
	for i := 0; i < 5; i++ {
		s.Poll()
	}
	if runs != 3 {
		t.Fatalf("runs = %d after stall, want 3", runs)
	}
	want := start.Add(400 * time.Millisecond)
	if got := s.Tasks()[0].Next; !got.Equal(want) {
		t.Fatalf("next = %v, want %v", got.Sub(start), want.Sub(start))
	}
}

func TestAnchoredTaskFirstFireAtAnchor(t *testing.T) {
	s, clk := newTestScheduler(t)
	anchor := clk.Now().Add(27600 * time.Second)
	runs := 0
	s.AddAnchoredTask("update_ig_day", time.Minute, anchor, func() { runs++ })

	clk.Advance(27599 * time.Second)
	s.Poll()
	if runs != 0 {
		t.Fatalf("anchored task fired early")
	}
	clk.Advance(time.Second)
	s.Poll()
	if runs != 1 {
		t.Fatalf("anchored task did not fire at anchor")
	}
	if got := s.Tasks()[0].Next; !got.Equal(anchor.Add(time.Minute)) {
		t.Fatalf("next fire not anchored: %v", got)
	}
}

func TestNestedPollIsIgnored(t *testing.T) {
	s, clk := newTestScheduler(t)
	inner := 0
	outer := 0
	s.AddRecurringTask("outer", time.Second, func() {
		outer++
		inner += s.Poll()
	})
	clk.Advance(time.Second)
	s.Poll()
	if outer != 1 || inner != 0 {
		t.Fatalf("outer=%d inner=%d, want 1 and 0", outer, inner)
	}
}

func TestTasksRunInRegistrationOrder(t *testing.T) {
	s, clk := newTestScheduler(t)
	var order []string
	for _, name := range []string{"b", "a", "c"} {
		name := name
		s.AddRecurringTask(name, time.Second, func() { order = append(order, name) })
	}
	clk.Advance(time.Second)
	if n := s.Poll(); n != 3 {
		t.Fatalf("fired %d, want 3", n)
	}
	if order[0] != "b" || order[1] != "a" || order[2] != "c" {
		t.Fatalf("order = %v", order)
	}
}

func TestNonPositiveIntervalPanics(t *testing.T) {
	s, _ := newTestScheduler(t)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	s.AddRecurringTask("bad", 0, func() {})
}
