package world

// Direction is one of the eight compass headings. North is -y, east is +x.
type Direction uint8

const (
	DirNorth Direction = iota
	DirNorthEast
	DirEast
	DirSouthEast
	DirSouth
	DirSouthWest
	DirWest
	DirNorthWest

	MinDirection = DirNorth
	MaxDirection = DirNorthWest
)

var dirDelta = [8][2]int{
	{0, -1},  // N
	{1, -1},  // NE
	{1, 0},   // E
	{1, 1},   // SE
	{0, 1},   // S
	{-1, 1},  // SW
	{-1, 0},  // W
	{-1, -1}, // NW
}

var dirNames = [8]string{"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest"}

func (d Direction) String() string {
	if d > MaxDirection {
		return "invalid"
	}
	return dirNames[d]
}

// Valid reports whether d is one of the eight headings.
func (d Direction) Valid() bool { return d <= MaxDirection }

// Delta returns the x/y offset of one step in direction d.
func (d Direction) Delta() (dx, dy int) {
	if d > MaxDirection {
		return 0, 0
	}
	return dirDelta[d][0], dirDelta[d][1]
}

// FlipEastWest mirrors the east/west component (NE↔NW, E↔W, SE↔SW).
// North and south are unchanged.
func (d Direction) FlipEastWest() Direction {
	switch d {
	case DirNorthEast:
		return DirNorthWest
	case DirEast:
		return DirWest
	case DirSouthEast:
		return DirSouthWest
	case DirSouthWest:
		return DirSouthEast
	case DirWest:
		return DirEast
	case DirNorthWest:
		return DirNorthEast
	}
	return d
}

// FlipNorthSouth mirrors the north/south component (N↔S, NE↔SE, NW↔SW).
// East and west are unchanged.
func (d Direction) FlipNorthSouth() Direction {
	switch d {
	case DirNorth:
		return DirSouth
	case DirNorthEast:
		return DirSouthEast
	case DirSouthEast:
		return DirNorthEast
	case DirSouth:
		return DirNorth
	case DirSouthWest:
		return DirNorthWest
	case DirNorthWest:
		return DirSouthWest
	}
	return d
}

// Rotate turns d by steps eighth-turns clockwise (negative is counter-clockwise).
func (d Direction) Rotate(steps int) Direction {
	return Direction(((int(d)+steps)%8 + 8) % 8)
}

func directionFromDelta(dx, dy int) Direction {
	for i, dd := range dirDelta {
		if dd[0] == dx && dd[1] == dy {
			return Direction(i)
		}
	}
	return DirNorth
}

// ReflectIntoRange keeps a step from center-bounded wander inside the square
// of the given L∞ radius. The candidate step from pos in direction d is
// mirrored on each axis whose offset from center would exceed radius.
func ReflectIntoRange(pos, center Position, radius int, d Direction) Direction {
	next := pos.Moved(d)
	xoffs := int(center.X) - int(next.X)
	yoffs := int(center.Y) - int(next.Y)
	if abs(xoffs) > radius {
		d = d.FlipEastWest()
	}
	if abs(yoffs) > radius {
		d = d.FlipNorthSouth()
	}
	return d
}
