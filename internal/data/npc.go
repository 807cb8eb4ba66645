package data

import (
	"fmt"
	"os"

	"github.com/illarion/server/internal/world"
)

// NPCDef places one scripted NPC in the world.
type NPCDef struct {
	Name   string `yaml:"name"`
	X      int16  `yaml:"x"`
	Y      int16  `yaml:"y"`
	Z      int16  `yaml:"z"`
	Facing uint8  `yaml:"facing"`
	HP     int    `yaml:"hp"`
	Script string `yaml:"script"`
}

func (d *NPCDef) Pos() world.Position {
	return world.Position{X: d.X, Y: d.Y, Z: d.Z}
}

type npcFile struct {
	NPCs []NPCDef `yaml:"npcs"`
}

func LoadNPCTable(path string) ([]NPCDef, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read npcs: %w", err)
	}
	return ParseNPCTable(doc)
}

func ParseNPCTable(doc []byte) ([]NPCDef, error) {
	var f npcFile
	if err := decode("npcs", doc, &f); err != nil {
		return nil, err
	}
	for i := range f.NPCs {
		if f.NPCs[i].HP == 0 {
			f.NPCs[i].HP = 10000
		}
	}
	return f.NPCs, nil
}
