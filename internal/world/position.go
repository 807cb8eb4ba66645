package world

import "fmt"

// Position is a tile coordinate. Z selects the level.
type Position struct {
	X, Y, Z int16
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

// Distance returns the L∞ (Chebyshev) distance in the xy plane.
func (p Position) Distance(o Position) int {
	return chebyshev(int(p.X), int(p.Y), int(o.X), int(o.Y))
}

// InRange reports whether o is on the same level and within radius (L∞).
func (p Position) InRange(o Position, radius int) bool {
	return p.Z == o.Z && p.Distance(o) <= radius
}

// Moved returns the neighbouring position in direction d.
func (p Position) Moved(d Direction) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + int16(dx), Y: p.Y + int16(dy), Z: p.Z}
}

// DirectionTo returns the direction of the straight step from p towards o.
// ok is false when both positions share x and y.
func (p Position) DirectionTo(o Position) (d Direction, ok bool) {
	dx := sign(int(o.X) - int(p.X))
	dy := sign(int(o.Y) - int(p.Y))
	if dx == 0 && dy == 0 {
		return DirNorth, false
	}
	return directionFromDelta(dx, dy), true
}

func chebyshev(x1, y1, x2, y2 int) int {
	dx := abs(x1 - x2)
	dy := abs(y1 - y2)
	if dx > dy {
		return dx
	}
	return dy
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
