package world

import "time"

// LongTimeAction is a timed activity a player is busy with (crafting,
// casting). It completes once its deadline passes and Check is called.
type LongTimeAction struct {
	name     string
	deadline time.Time
	onDone   func()
	active   bool
}

// Start begins an action, replacing (without completing) any running one.
func (a *LongTimeAction) Start(name string, now time.Time, d time.Duration, onDone func()) {
	a.name = name
	a.deadline = now.Add(d)
	a.onDone = onDone
	a.active = true
}

// Abort cancels the running action without firing its completion.
func (a *LongTimeAction) Abort() {
	*a = LongTimeAction{}
}

func (a *LongTimeAction) Active() bool { return a.active }
func (a *LongTimeAction) Name() string { return a.name }

// Check fires the completion if the deadline passed and reports whether it did.
func (a *LongTimeAction) Check(now time.Time) bool {
	if !a.active || now.Before(a.deadline) {
		return false
	}
	done := a.onDone
	*a = LongTimeAction{}
	if done != nil {
		done()
	}
	return true
}
