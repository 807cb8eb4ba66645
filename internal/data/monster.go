package data

import (
	"fmt"
	"os"
)

// MonsterDef is the static description of one monster race.
type MonsterDef struct {
	Race        uint16 `yaml:"race"`
	Name        string `yaml:"name"`
	Script      string `yaml:"script"`
	HP          int    `yaml:"hp"`
	CanSelfHeal bool   `yaml:"canselfheal"`
	CanAttack   *bool  `yaml:"canattack"`
	RightTool   uint16 `yaml:"right_tool"`
	LeftTool    uint16 `yaml:"left_tool"`
}

// Attacks reports whether monsters of this race may pick targets at all.
// Absent means yes.
func (d *MonsterDef) Attacks() bool {
	return d.CanAttack == nil || *d.CanAttack
}

type monsterFile struct {
	Monsters []MonsterDef `yaml:"monsters"`
}

// MonsterTable holds monster descriptions indexed by race.
type MonsterTable struct {
	defs map[uint16]*MonsterDef
}

func LoadMonsterTable(path string) (*MonsterTable, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read monsters: %w", err)
	}
	return ParseMonsterTable(doc)
}

func ParseMonsterTable(doc []byte) (*MonsterTable, error) {
	var f monsterFile
	if err := decode("monsters", doc, &f); err != nil {
		return nil, err
	}
	t := &MonsterTable{defs: make(map[uint16]*MonsterDef, len(f.Monsters))}
	for i := range f.Monsters {
		d := &f.Monsters[i]
		if _, dup := t.defs[d.Race]; dup {
			return nil, fmt.Errorf("monsters: duplicate race %d", d.Race)
		}
		t.defs[d.Race] = d
	}
	return t, nil
}

func (t *MonsterTable) Exists(race uint16) bool {
	_, ok := t.defs[race]
	return ok
}

// Get returns the description for race, or nil.
func (t *MonsterTable) Get(race uint16) *MonsterDef {
	return t.defs[race]
}

func (t *MonsterTable) Count() int {
	return len(t.defs)
}

// Scripts returns the distinct script names referenced by the table.
func (t *MonsterTable) Scripts() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range t.defs {
		if d.Script != "" && !seen[d.Script] {
			seen[d.Script] = true
			out = append(out, d.Script)
		}
	}
	return out
}
