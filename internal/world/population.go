package world

import (
	"sort"

	"github.com/sasha-s/go-deadlock"
)

// Population is a keyed collection of one character kind with a spatial
// index. The simulation goroutine is the only writer; other goroutines may
// read through ForEach, Find and Len.
//
// While a pass runs (see Pass), Insert and Erase are buffered and applied
// when the pass ends, so the iteration order of a pass never changes under
// it, whatever scripts do from inside their hooks.
type Population[T Character] struct {
	mu    deadlock.RWMutex
	byID  map[uint32]T
	order []uint32 // insertion order
	at    map[uint32]Position
	grid  *grid

	passing bool
	addQ    []T
	delQ    []uint32
}

func NewPopulation[T Character]() *Population[T] {
	return &Population[T]{
		byID: make(map[uint32]T),
		at:   make(map[uint32]Position),
		grid: newGrid(),
	}
}

// Insert adds c. It returns false if the ID is already present.
// During a pass the insertion is deferred to the end of the pass.
func (p *Population[T]) Insert(c T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := c.Base().ID
	if _, dup := p.byID[id]; dup {
		return false
	}
	if p.passing {
		for _, q := range p.addQ {
			if q.Base().ID == id {
				return false
			}
		}
		p.addQ = append(p.addQ, c)
		return true
	}
	p.insertLocked(c)
	return true
}

func (p *Population[T]) insertLocked(c T) {
	b := c.Base()
	p.byID[b.ID] = c
	p.order = append(p.order, b.ID)
	p.at[b.ID] = b.Pos
	p.grid.add(b.ID, b.Pos)
}

// Erase removes the character with the given ID and reports whether it was
// present. During a pass the removal is deferred to the end of the pass.
func (p *Population[T]) Erase(id uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byID[id]; !ok {
		for i, q := range p.addQ {
			if q.Base().ID == id {
				p.addQ = append(p.addQ[:i], p.addQ[i+1:]...)
				return true
			}
		}
		return false
	}
	if p.passing {
		p.delQ = append(p.delQ, id)
		return true
	}
	p.eraseLocked(id)
	return true
}

func (p *Population[T]) eraseLocked(id uint32) {
	if _, ok := p.byID[id]; !ok {
		return
	}
	p.grid.remove(id, p.at[id])
	delete(p.byID, id)
	delete(p.at, id)
	for i, oid := range p.order {
		if oid == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Find returns the character with the given ID.
func (p *Population[T]) Find(id uint32) (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.byID[id]
	return c, ok
}

func (p *Population[T]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byID)
}

// ForEach calls fn for every character in insertion order. It snapshots the
// IDs first and looks each one up again, so characters erased meanwhile are
// skipped and fn runs without the lock held.
func (p *Population[T]) ForEach(fn func(T)) {
	p.mu.RLock()
	ids := make([]uint32, len(p.order))
	copy(ids, p.order)
	p.mu.RUnlock()

	for _, id := range ids {
		p.mu.RLock()
		c, ok := p.byID[id]
		p.mu.RUnlock()
		if ok {
			fn(c)
		}
	}
}

// All returns a snapshot of the population in insertion order.
func (p *Population[T]) All() []T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]T, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.byID[id])
	}
	return out
}

// Pass iterates like ForEach with structural mutation deferred until fn has
// seen every character. Passes do not nest.
func (p *Population[T]) Pass(fn func(T)) {
	p.mu.Lock()
	if p.passing {
		p.mu.Unlock()
		panic("world: nested population pass")
	}
	p.passing = true
	p.mu.Unlock()

	defer p.endPass()
	p.ForEach(fn)
}

func (p *Population[T]) endPass() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passing = false
	for _, id := range p.delQ {
		p.eraseLocked(id)
	}
	for _, c := range p.addQ {
		if _, dup := p.byID[c.Base().ID]; !dup {
			p.insertLocked(c)
		}
	}
	p.delQ = p.delQ[:0]
	p.addQ = p.addQ[:0]
}

// InPass reports whether a pass is running.
func (p *Population[T]) InPass() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.passing
}

// Relocate updates the spatial index after the character with the given ID moved.
func (p *Population[T]) Relocate(id uint32, to Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	from, ok := p.at[id]
	if !ok {
		return
	}
	p.grid.move(id, from, to)
	p.at[id] = to
}

// InRange returns the living characters on pos's level within radius (L∞),
// ordered by ID.
func (p *Population[T]) InRange(pos Position, radius int) []T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := p.grid.near(pos, radius, nil)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []T
	for _, id := range ids {
		c := p.byID[id]
		b := c.Base()
		if b.Alive() && pos.InRange(b.Pos, radius) {
			out = append(out, c)
		}
	}
	return out
}

// Within returns every character on pos's level within radius (L∞), dead
// or alive, ordered by ID.
func (p *Population[T]) Within(pos Position, radius int) []T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := p.grid.near(pos, radius, nil)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []T
	for _, id := range ids {
		c := p.byID[id]
		if pos.InRange(c.Base().Pos, radius) {
			out = append(out, c)
		}
	}
	return out
}

// AnyInRange reports whether a living character is within radius of pos.
func (p *Population[T]) AnyInRange(pos Position, radius int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, id := range p.grid.near(pos, radius, nil) {
		b := p.byID[id].Base()
		if b.Alive() && pos.InRange(b.Pos, radius) {
			return true
		}
	}
	return false
}

// Clear removes everything. Not allowed during a pass.
func (p *Population[T]) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.passing {
		panic("world: population cleared during a pass")
	}
	clear(p.byID)
	clear(p.at)
	p.order = p.order[:0]
	p.grid.clear()
}
