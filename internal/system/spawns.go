package system

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/illarion/server/internal/core/event"
	"github.com/illarion/server/internal/world"
)

const spawnLoadTimeout = 10 * time.Second

// spawnAll lets every spawn point create its missing monsters. They are
// buffered and enter the world at the end of the monster pass.
func (s *Simulation) spawnAll(now time.Time) {
	for _, sp := range s.spawns.All() {
		var err error
		s.newMonsters, err = sp.Spawn(now, s.rng, s.fields, s, s.newMonsters)
		if err != nil {
			s.log.Warn("spawn", zap.Uint32("spawn_point", sp.ID), zap.Error(err))
		}
	}
}

// CreateMonster builds a monster of the given race from its definition.
// It satisfies world.MonsterFactory.
func (s *Simulation) CreateMonster(race uint16, pos world.Position, spawnID uint32) (*world.Monster, error) {
	if s.monsterDefs == nil || !s.monsterDefs.Exists(race) {
		return nil, fmt.Errorf("unknown monster race %d", race)
	}
	def := s.monsterDefs.Get(race)
	m := world.NewMonster(world.NextMonsterID(), race, def.Name, pos, def.HP, spawnID, &s.limits)
	m.Tools[world.LeftTool] = world.Item{ID: def.LeftTool, Number: 1, Wear: world.PermanentWear}
	m.Tools[world.RightTool] = world.Item{ID: def.RightTool, Number: 1, Wear: world.PermanentWear}
	m.AttackEnabled = def.Attacks()
	return m, nil
}

// InitRespawns detaches and removes every monster, then reloads the spawn
// points from the database. It reports false when loading failed or no
// spawn point is configured.
func (s *Simulation) InitRespawns(ctx context.Context) bool {
	s.mustBeBuilt()
	s.monsters.ForEach(func(m *world.Monster) {
		m.SpawnID = 0
		s.removeMonster(m)
	})
	s.spawns.Clear()

	if s.spawnLoader == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, spawnLoadTimeout)
	defer cancel()
	points, err := s.spawnLoader.LoadSpawnPoints(ctx)
	if err != nil {
		s.log.Error("load spawn points", zap.Error(err))
		return false
	}
	if len(points) == 0 {
		return false
	}
	for _, sp := range points {
		s.spawns.Add(sp)
		s.log.Debug("added spawn point",
			zap.Uint32("id", sp.ID),
			zap.Stringer("pos", sp.Center),
			zap.Int("templates", len(sp.Templates)),
		)
	}
	s.log.Info("spawn points loaded", zap.Int("count", s.spawns.Len()))
	return true
}

// ReloadSpawns reloads the spawn configuration with spawning suspended.
func (s *Simulation) ReloadSpawns(ctx context.Context) bool {
	s.mustBeBuilt()
	was := s.spawnEnabled
	s.spawnEnabled = false
	ok := s.InitRespawns(ctx)
	s.spawnEnabled = was
	event.Emit(s.bus, event.SpawnsReloaded{SpawnPoints: s.spawns.Len(), OK: ok})
	return ok
}

// KillMonster removes a monster from the world and frees its spawn slot.
func (s *Simulation) KillMonster(id uint32) bool {
	m, ok := s.monsters.Find(id)
	if !ok {
		return false
	}
	if sp, ok := s.spawns.Get(m.SpawnID); ok {
		sp.Dead(m.Race)
	}
	s.removeMonster(m)
	event.Emit(s.bus, event.MonsterDied{MonsterID: m.ID, Race: m.Race, SpawnID: m.SpawnID})
	return true
}

func (s *Simulation) removeMonster(m *world.Monster) {
	s.removeFromField(&m.Char)
	s.monsters.Erase(m.ID)
	s.sendRemoveCharToVisiblePlayers(m.ID, m.Pos)
}

func emitMonsterSpawned(bus *event.Bus, m *world.Monster) {
	event.Emit(bus, event.MonsterSpawned{MonsterID: m.ID, Race: m.Race, SpawnID: m.SpawnID})
}
