package data

import (
	"fmt"
	"os"

	"github.com/illarion/server/internal/world"
)

// MapRegion is a rectangular walkable area on one level. Blocked lists
// absolute x,y pairs inside the region that cannot be entered.
type MapRegion struct {
	Name    string     `yaml:"name"`
	Z       int16      `yaml:"z"`
	X       int16      `yaml:"x"`
	Y       int16      `yaml:"y"`
	Width   int16      `yaml:"width"`
	Height  int16      `yaml:"height"`
	Blocked [][2]int16 `yaml:"blocked"`
}

type mapFile struct {
	Maps []MapRegion `yaml:"maps"`
}

// MapTable is the list of map regions the field map is built from.
type MapTable struct {
	Regions []MapRegion
}

func LoadMapTable(path string) (*MapTable, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read maps: %w", err)
	}
	return ParseMapTable(doc)
}

func ParseMapTable(doc []byte) (*MapTable, error) {
	var f mapFile
	if err := decode("maps", doc, &f); err != nil {
		return nil, err
	}
	return &MapTable{Regions: f.Maps}, nil
}

// Build fills fields with every region and returns the number of fields created.
func (t *MapTable) Build(fields *world.FieldMap) int {
	n := 0
	for _, r := range t.Regions {
		n += fields.Fill(r.Z, r.X, r.Y, r.Width, r.Height)
		for _, b := range r.Blocked {
			if f, err := fields.At(world.Position{X: b[0], Y: b[1], Z: r.Z}); err == nil {
				f.Walkable = false
			}
		}
	}
	return n
}
