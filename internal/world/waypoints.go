package world

// Waypoints is a scripted route. The head is the next point to reach.
type Waypoints struct {
	points []Position
}

func (w *Waypoints) Add(p Position) { w.points = append(w.points, p) }
func (w *Waypoints) Clear()         { w.points = nil }
func (w *Waypoints) Len() int       { return len(w.points) }

// Next returns the waypoint currently walked towards.
func (w *Waypoints) Next() (Position, bool) {
	if len(w.points) == 0 {
		return Position{}, false
	}
	return w.points[0], true
}

// MakeMove advances one step from pos along the route using step, which
// attempts a move and reports success. Reached waypoints are popped.
// It returns false when the route is finished or every step is blocked.
func (w *Waypoints) MakeMove(pos Position, step func(Direction) bool) bool {
	for len(w.points) > 0 {
		d, ok := pos.DirectionTo(w.points[0])
		if !ok {
			w.points = w.points[1:]
			continue
		}
		for _, turn := range []int{0, 1, -1} {
			if step(d.Rotate(turn)) {
				return true
			}
		}
		return false
	}
	return false
}
