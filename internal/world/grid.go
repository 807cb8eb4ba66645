package world

// grid is a cell-based spatial index over object IDs.
// Range queries visit only the cells overlapping the query square;
// the caller filters by exact distance.

const cellSize = 16

type cellKey struct {
	z      int16
	cx, cy int32
}

func toCellCoord(v int32) int32 {
	if v < 0 {
		return (v - cellSize + 1) / cellSize
	}
	return v / cellSize
}

type grid struct {
	cells map[cellKey]map[uint32]struct{}
}

func newGrid() *grid {
	return &grid{cells: make(map[cellKey]map[uint32]struct{})}
}

func keyOf(p Position) cellKey {
	return cellKey{z: p.Z, cx: toCellCoord(int32(p.X)), cy: toCellCoord(int32(p.Y))}
}

func (g *grid) add(id uint32, p Position) {
	k := keyOf(p)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[uint32]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

func (g *grid) remove(id uint32, p Position) {
	k := keyOf(p)
	if cell := g.cells[k]; cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

func (g *grid) move(id uint32, from, to Position) {
	if keyOf(from) == keyOf(to) {
		return
	}
	g.remove(id, from)
	g.add(id, to)
}

// near appends every ID in cells overlapping the square of radius r around p.
func (g *grid) near(p Position, r int, out []uint32) []uint32 {
	x, y := int32(p.X), int32(p.Y)
	r32 := int32(r)
	for cx := toCellCoord(x - r32); cx <= toCellCoord(x+r32); cx++ {
		for cy := toCellCoord(y - r32); cy <= toCellCoord(y+r32); cy++ {
			for id := range g.cells[cellKey{z: p.Z, cx: cx, cy: cy}] {
				out = append(out, id)
			}
		}
	}
	return out
}

func (g *grid) clear() {
	clear(g.cells)
}
