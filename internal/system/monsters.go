package system

import (
	"go.uber.org/zap"

	"github.com/illarion/server/internal/data"
	"github.com/illarion/server/internal/net/packet"
	"github.com/illarion/server/internal/world"
)

// checkMonsters is the monster pass. Spawn points fill up first, then every
// living monster is credited and, if it can act and someone is around to
// see it, runs its AI. Dead monsters are removed and freshly spawned ones
// inserted once every monster has been visited.
func (s *Simulation) checkMonsters(ap int) {
	now := s.now()
	if !now.Before(s.nextSpawnCheck) {
		s.nextSpawnCheck = now.Add(s.schedCfg.SpawnCheck)
		if s.spawnEnabled {
			s.spawnAll(now)
		} else {
			s.log.Info("spawning disabled")
		}
	}

	// Monsters run slightly slower than players. Only this pass sees the
	// reduced value.
	if ap > 1 {
		ap--
	}

	var dead []uint32
	s.monsters.Pass(func(m *world.Monster) {
		if !m.Alive() {
			dead = append(dead, m.ID)
			return
		}
		m.IncreaseActionPoints(ap)
		m.IncreaseFightPoints(ap)
		s.checkEffects(&m.Char)

		if !m.CanAct() {
			return
		}
		if !s.isPlayerNearby(m.Pos) && !m.OnRoute {
			return
		}
		s.monsterAct(m)
	})

	for _, id := range dead {
		s.KillMonster(id)
	}

	born := s.newMonsters
	s.newMonsters = nil
	for _, m := range born {
		s.insertMonster(m)
	}
}

// insertMonster adds a placed monster to the world and announces it.
func (s *Simulation) insertMonster(m *world.Monster) {
	s.monsters.Insert(m)
	s.sendCharacterMoveToAllVisiblePlayers(&m.Char, packet.MoveNormal, 4)
	emitMonsterSpawned(s.bus, m)
	if script, _, ok := s.monsterScript(m); ok && script != nil {
		script.OnSpawn(m)
	}
}

// monsterScript resolves the definition and script of a monster's race.
// found reports whether the race has a definition at all.
func (s *Simulation) monsterScript(m *world.Monster) (script MonsterScript, def *data.MonsterDef, found bool) {
	if s.monsterDefs == nil || !s.monsterDefs.Exists(m.Race) {
		return nil, nil, false
	}
	def = s.monsterDefs.Get(m.Race)
	if def.Script != "" {
		if sc, ok := s.scripts.Monster(def.Script); ok {
			return sc, def, true
		}
	}
	return nil, def, true
}

// chooseTarget asks the monster's script first and falls back to the
// global fighting script.
func (s *Simulation) chooseTarget(m *world.Monster, script MonsterScript, cands []world.Character) world.Character {
	if script != nil {
		if t, ok := script.SetTarget(m, cands); ok {
			return t
		}
	}
	return s.scripts.FightingSetTarget(m, cands)
}

func (s *Simulation) monsterAct(m *world.Monster) {
	script, def, found := s.monsterScript(m)
	if m.OnRoute {
		s.monsterOnRoute(m, script, found)
		return
	}

	if m.Pos == m.LastTargetPosition {
		m.LastTargetSeen = false
	}

	hasAttacked := false
	if near := s.getTargetsInRange(m.Pos, s.attackRange(&m.Char)); len(near) > 0 && m.CanAttack() {
		if target := s.chooseTarget(m, script, near); target != nil {
			m.SetTarget(target.Base())
			if found {
				if script != nil && script.EnemyNear(m, target) {
					return
				}
			} else {
				s.log.Error("no monster definition for combat script",
					zap.Uint32("id", m.ID),
					zap.Uint16("race", m.Race),
				)
			}
			m.Turn(target.Base().Pos)
			if m.CanFight() {
				hasAttacked = s.characterAttacks(m, target)
			} else {
				hasAttacked = true
			}
		}
	}
	if hasAttacked {
		return
	}

	randomStep := true
	if seen := s.getTargetsInRange(m.Pos, s.cfg.MonsterViewRange); len(seen) > 0 && m.CanAttack() {
		if target := s.chooseTarget(m, script, seen); target != nil {
			m.LastTargetSeen = true
			m.LastTargetPosition = target.Base().Pos
			if found {
				if script != nil && script.EnemyOnSight(m, target) {
					return
				}
				randomStep = false
				s.performStep(m, target.Base().Pos)
			} else {
				s.log.Warn("no monster definition for sight script",
					zap.Uint32("id", m.ID),
					zap.Uint16("race", m.Race),
				)
			}
		}
	} else if m.LastTargetSeen {
		randomStep = false
		s.performStep(m, m.LastTargetPosition)
	}

	if randomStep {
		s.wander(m, def)
	}
}

// wander heals a self-healing monster now and then and otherwise takes a
// random step that stays inside its spawn point's range.
func (s *Simulation) wander(m *world.Monster, def *data.MonsterDef) {
	roll := s.dice.Float64() < s.cfg.RandomMonsterMoveProbability
	if def == nil {
		s.log.Error("no monster definition for healing",
			zap.Uint32("id", m.ID),
			zap.Uint16("race", m.Race),
		)
	}
	if roll && def != nil && def.CanSelfHeal {
		m.Heal()
		return
	}

	dir := world.Direction(s.dice.Intn(int(world.MaxDirection) + 1))
	if sp, ok := s.spawns.Get(m.SpawnID); ok {
		dir = world.ReflectIntoRange(m.Pos, sp.Center, sp.Range, dir)
	}
	s.moveCharacter(m, dir, packet.MoveNormal)
	m.IncreaseActionPoints(-s.cfg.NPWalkCost)
}

// monsterOnRoute walks the waypoint list and lets the script observe
// enemies on the way without fighting them.
func (s *Simulation) monsterOnRoute(m *world.Monster, script MonsterScript, found bool) {
	if near := s.getTargetsInRange(m.Pos, s.attackRange(&m.Char)); len(near) > 0 {
		if target := s.chooseTarget(m, script, near); target != nil {
			if found && script != nil {
				script.EnemyNear(m, target)
			} else {
				s.log.Error("no monster script for route observation",
					zap.Uint32("id", m.ID),
					zap.Uint16("race", m.Race),
				)
			}
		}
	}

	if seen := s.getTargetsInRange(m.Pos, s.cfg.MonsterViewRange); len(seen) > 0 {
		if target := s.chooseTarget(m, script, seen); target != nil {
			if found && script != nil {
				script.EnemyOnSight(m, target)
			}
		}
	}

	if !m.Waypoints.MakeMove(m.Pos, func(d world.Direction) bool {
		return s.moveCharacter(m, d, packet.MoveNormal)
	}) {
		m.OnRoute = false
		if found && script != nil {
			script.AbortRoute(m)
		} else {
			s.log.Warn("no monster script for route abort",
				zap.Uint32("id", m.ID),
				zap.Uint16("race", m.Race),
			)
		}
	}
}

// getTargetsInRange returns the living players and monsters within radius
// of pos on its level, leaving out a monster standing on pos itself.
func (s *Simulation) getTargetsInRange(pos world.Position, radius int) []world.Character {
	var out []world.Character
	for _, p := range s.players.InRange(pos, radius) {
		out = append(out, p)
	}
	for _, m := range s.monsters.InRange(pos, radius) {
		if m.Pos != pos {
			out = append(out, m)
		}
	}
	return out
}

// isPlayerNearby reports whether a living player is within MaxActRange.
func (s *Simulation) isPlayerNearby(pos world.Position) bool {
	return s.players.AnyInRange(pos, s.cfg.MaxActRange)
}

// attackRange is the range of the right-hand weapon, else the left-hand
// weapon, else 1.
func (s *Simulation) attackRange(c *world.Char) int {
	if s.weapons != nil {
		if right := c.Tools[world.RightTool]; s.weapons.Exists(right.ID) {
			return s.weapons.Get(right.ID).Range
		}
		if left := c.Tools[world.LeftTool]; s.weapons.Exists(left.ID) {
			return s.weapons.Get(left.ID).Range
		}
	}
	return 1
}
