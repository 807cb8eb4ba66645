package data

import (
	"fmt"
	"os"

	"github.com/illarion/server/internal/world"
)

type spawnMonsterDef struct {
	Race  uint16 `yaml:"race"`
	Count int    `yaml:"count"`
}

type spawnDef struct {
	ID           uint32            `yaml:"id"`
	X            int16             `yaml:"x"`
	Y            int16             `yaml:"y"`
	Z            int16             `yaml:"z"`
	Range        int               `yaml:"range"`
	SpawnRange   int               `yaml:"spawn_range"`
	MinSpawnTime int               `yaml:"min_spawn_time"`
	MaxSpawnTime int               `yaml:"max_spawn_time"`
	SpawnAll     bool              `yaml:"spawn_all"`
	Monsters     []spawnMonsterDef `yaml:"monsters"`
}

type spawnFile struct {
	Spawns []spawnDef `yaml:"spawns"`
}

// LoadSpawnList reads spawn points from YAML. Races are checked against
// monsters when it is not nil.
func LoadSpawnList(path string, monsters *MonsterTable) ([]*world.SpawnPoint, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawns: %w", err)
	}
	return ParseSpawnList(doc, monsters)
}

func ParseSpawnList(doc []byte, monsters *MonsterTable) ([]*world.SpawnPoint, error) {
	var f spawnFile
	if err := decode("spawns", doc, &f); err != nil {
		return nil, err
	}
	seen := make(map[uint32]bool, len(f.Spawns))
	points := make([]*world.SpawnPoint, 0, len(f.Spawns))
	for _, d := range f.Spawns {
		if seen[d.ID] {
			return nil, fmt.Errorf("spawns: duplicate id %d", d.ID)
		}
		seen[d.ID] = true
		if d.MaxSpawnTime < d.MinSpawnTime {
			return nil, fmt.Errorf("spawns: id %d: max_spawn_time below min_spawn_time", d.ID)
		}
		sp := &world.SpawnPoint{
			ID:           d.ID,
			Center:       world.Position{X: d.X, Y: d.Y, Z: d.Z},
			Range:        d.Range,
			SpawnRange:   d.SpawnRange,
			MinSpawnTime: d.MinSpawnTime,
			MaxSpawnTime: d.MaxSpawnTime,
			SpawnAll:     d.SpawnAll,
		}
		for _, m := range d.Monsters {
			if monsters != nil && !monsters.Exists(m.Race) {
				return nil, fmt.Errorf("spawns: id %d: unknown race %d", d.ID, m.Race)
			}
			sp.AddTemplate(m.Race, m.Count)
		}
		points = append(points, sp)
	}
	return points, nil
}
