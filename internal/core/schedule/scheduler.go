package schedule

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Task is one recurring job. The next fire time advances by exactly one
// interval per run, so a stalled poller catches up instead of drifting.
type Task struct {
	name     string
	fn       func()
	interval time.Duration
	next     time.Time
	runs     uint64
}

// TaskInfo is a read-only view of a task for diagnostics.
type TaskInfo struct {
	Name     string
	Interval time.Duration
	Next     time.Time
	Runs     uint64
}

// Scheduler runs recurring tasks on the polling goroutine. It never spawns
// goroutines; Poll is a flat loop over due tasks.
type Scheduler struct {
	tasks   []*Task
	now     func() time.Time
	polling bool
	log     *zap.Logger
}

func NewScheduler(now func() time.Time, log *zap.Logger) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		tasks: make([]*Task, 0, 8),
		now:   now,
		log:   log,
	}
}

// AddRecurringTask registers fn to run every interval, first one interval from now.
func (s *Scheduler) AddRecurringTask(name string, interval time.Duration, fn func()) {
	s.AddAnchoredTask(name, interval, s.now().Add(interval), fn)
}

// AddAnchoredTask registers fn to run first at the given time point and then
// every interval after it.
func (s *Scheduler) AddAnchoredTask(name string, interval time.Duration, first time.Time, fn func()) {
	if interval <= 0 {
		panic(fmt.Sprintf("schedule: task %q registered with non-positive interval %s", name, interval))
	}
	if fn == nil {
		panic(fmt.Sprintf("schedule: task %q registered without a function", name))
	}
	s.tasks = append(s.tasks, &Task{
		name:     name,
		fn:       fn,
		interval: interval,
		next:     first,
	})
	s.log.Debug("recurring task registered",
		zap.String("task", name),
		zap.Duration("interval", interval),
		zap.Time("first", first),
	)
}

// Poll runs every task whose fire time has been reached, each at most once,
// and returns how many ran. A Poll issued from inside a task is ignored.
func (s *Scheduler) Poll() int {
	if s.polling {
		s.log.Warn("nested scheduler poll ignored")
		return 0
	}
	s.polling = true
	defer func() { s.polling = false }()

	now := s.now()
	fired := 0
	for _, t := range s.tasks {
		if now.Before(t.next) {
			continue
		}
		t.next = t.next.Add(t.interval)
		t.runs++
		t.fn()
		fired++
	}
	return fired
}

// Tasks returns the registered tasks ordered by name.
func (s *Scheduler) Tasks() []TaskInfo {
	out := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, TaskInfo{Name: t.name, Interval: t.interval, Next: t.next, Runs: t.runs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
