package world

import (
	"errors"
	"fmt"
)

// ErrFieldNotFound is returned for positions outside every loaded map.
var ErrFieldNotFound = errors.New("field not found")

// Field is one tile of the world map.
type Field struct {
	Walkable bool
	occupant uint32 // 0 = free
	Items    []Item
}

// Occupied reports whether a character stands on the field.
func (f *Field) Occupied() bool { return f.occupant != 0 }

// Occupant returns the ID of the character on the field, or 0.
func (f *Field) Occupant() uint32 { return f.occupant }

// Free reports whether a character can enter the field.
func (f *Field) Free() bool { return f.Walkable && f.occupant == 0 }

// SetChar marks the field as occupied by id.
func (f *Field) SetChar(id uint32) { f.occupant = id }

// RemoveChar clears the occupant.
func (f *Field) RemoveChar() { f.occupant = 0 }

// RemovePlayer clears the occupant; kept separate for symmetry with the
// player logout path.
func (f *Field) RemovePlayer() { f.occupant = 0 }

// FieldMap holds the loaded tiles. Accessed only from the simulation goroutine.
type FieldMap struct {
	fields map[Position]*Field
}

func NewFieldMap() *FieldMap {
	return &FieldMap{fields: make(map[Position]*Field)}
}

// Fill creates walkable fields for the rectangle [x, x+w) × [y, y+h) on level z.
// Existing fields are kept.
func (m *FieldMap) Fill(z, x, y, w, h int16) int {
	n := 0
	for dx := int16(0); dx < w; dx++ {
		for dy := int16(0); dy < h; dy++ {
			p := Position{X: x + dx, Y: y + dy, Z: z}
			if _, ok := m.fields[p]; ok {
				continue
			}
			m.fields[p] = &Field{Walkable: true}
			n++
		}
	}
	return n
}

// Set installs a field at pos, replacing any existing one.
func (m *FieldMap) Set(pos Position, f *Field) { m.fields[pos] = f }

// At returns the field at pos.
func (m *FieldMap) At(pos Position) (*Field, error) {
	f, ok := m.fields[pos]
	if !ok {
		return nil, fmt.Errorf("%w at %s", ErrFieldNotFound, pos)
	}
	return f, nil
}

// Free reports whether a character can enter pos.
func (m *FieldMap) Free(pos Position) bool {
	f, ok := m.fields[pos]
	return ok && f.Free()
}

func (m *FieldMap) Count() int { return len(m.fields) }

// Age applies one wear step to every item lying on the map and returns how
// many rotted away.
func (m *FieldMap) Age() int {
	rotted := 0
	for _, f := range m.fields {
		if len(f.Items) == 0 {
			continue
		}
		var n int
		f.Items, n = ageItems(f.Items)
		rotted += n
	}
	return rotted
}
