package world

// Effect is a long-lasting condition on a character, counted in cycles.
type Effect struct {
	ID        uint16
	Name      string
	Remaining int
}

// Effects is a character's bag of active effects, keyed by effect ID.
type Effects struct {
	list []Effect
}

// Add inserts e, replacing an effect with the same ID.
func (e *Effects) Add(eff Effect) {
	for i := range e.list {
		if e.list[i].ID == eff.ID {
			e.list[i] = eff
			return
		}
	}
	e.list = append(e.list, eff)
}

// Find returns the effect with the given ID.
func (e *Effects) Find(id uint16) (Effect, bool) {
	for _, eff := range e.list {
		if eff.ID == id {
			return eff, true
		}
	}
	return Effect{}, false
}

// Remove drops the effect with the given ID and reports whether it existed.
func (e *Effects) Remove(id uint16) bool {
	for i := range e.list {
		if e.list[i].ID == id {
			e.list = append(e.list[:i], e.list[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Effects) Len() int { return len(e.list) }

// Check advances every effect by one cycle and removes the expired ones,
// which are returned in bag order.
func (e *Effects) Check() []Effect {
	var expired []Effect
	kept := e.list[:0]
	for _, eff := range e.list {
		eff.Remaining--
		if eff.Remaining <= 0 {
			expired = append(expired, eff)
			continue
		}
		kept = append(kept, eff)
	}
	e.list = kept
	return expired
}

// All returns a copy of the active effects.
func (e *Effects) All() []Effect {
	out := make([]Effect, len(e.list))
	copy(out, e.list)
	return out
}
