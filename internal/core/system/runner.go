package system

import "sort"

// Runner executes passes in phase order each tick. Passes sharing a phase
// keep their registration order.
type Runner struct {
	passes []Pass
	sorted bool
}

func NewRunner() *Runner {
	return &Runner{
		passes: make([]Pass, 0, 4),
	}
}

func (r *Runner) Register(p Pass) {
	r.passes = append(r.passes, p)
	r.sorted = false
}

func (r *Runner) Tick(ap int) {
	r.ensureSorted()
	for _, p := range r.passes {
		p.Run(ap)
	}
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.passes, func(i, j int) bool {
			return r.passes[i].Phase() < r.passes[j].Phase()
		})
		r.sorted = true
	}
}
