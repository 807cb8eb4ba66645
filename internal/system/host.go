package system

import (
	"fmt"
	"time"

	"github.com/illarion/server/internal/scripting"
	"github.com/illarion/server/internal/world"
)

// The simulation is the world scripts talk to.
var _ scripting.Host = (*Simulation)(nil)

// SpawnMonster places a monster for a script. Inside a monster pass it is
// buffered like spawn point monsters and enters at the end of the pass.
func (s *Simulation) SpawnMonster(race uint16, pos world.Position) (uint32, error) {
	if !s.fields.Free(pos) {
		return 0, fmt.Errorf("spawn race %d: field %s not free", race, pos)
	}
	m, err := s.CreateMonster(race, pos, 0)
	if err != nil {
		return 0, err
	}
	if f, err := s.fields.At(pos); err == nil {
		f.SetChar(m.ID)
	}
	if s.monsters.InPass() {
		s.newMonsters = append(s.newMonsters, m)
	} else {
		s.insertMonster(m)
	}
	return m.ID, nil
}

// KillCharacter drops a character to zero hitpoints. Monsters outside a
// monster pass are removed at once, otherwise the pass collects them.
func (s *Simulation) KillCharacter(id uint32) bool {
	c, ok := s.findCharacter(id)
	if !ok {
		return false
	}
	b := c.Base()
	b.HP = 0
	switch v := c.(type) {
	case *world.Monster:
		if !s.monsters.InPass() {
			s.KillMonster(v.ID)
		}
	case *world.Player:
		v.FightMode = false
		v.EnemyID = 0
		s.sendHealth(b)
	}
	return true
}

// WarpCharacter moves a character onto pos without walking. The target
// field must exist and be free.
func (s *Simulation) WarpCharacter(id uint32, pos world.Position) bool {
	c, ok := s.findCharacter(id)
	if !ok {
		return false
	}
	return s.Warp(c, pos)
}

// Say lets a character speak to everyone around it.
func (s *Simulation) Say(id uint32, text string) {
	if c, ok := s.findCharacter(id); ok {
		s.sendSay(c.Base(), text)
	}
}

// LuaScripts adapts the Lua engine to Scripts.
type LuaScripts struct {
	Engine    *scripting.Engine
	Scheduled *scripting.ScheduledTable
}

func (l LuaScripts) Monster(name string) (MonsterScript, bool) {
	sc, err := l.Engine.Monster(name)
	if err != nil {
		return nil, false
	}
	return sc, true
}

func (l LuaScripts) NPC(name string) (world.NPCScript, bool) {
	sc, err := l.Engine.NPC(name)
	if err != nil {
		return nil, false
	}
	return sc, true
}

func (l LuaScripts) FightingSetTarget(self world.Character, cands []world.Character) world.Character {
	return l.Engine.Fighting().SetTarget(self, cands)
}

func (l LuaScripts) OnAttack(attacker, defender world.Character) int {
	return l.Engine.Fighting().OnAttack(attacker, defender)
}

func (l LuaScripts) ReduceMC(c world.Character) { l.Engine.Learn().ReduceMC(c) }

func (l LuaScripts) OnLogout(p *world.Player) { l.Engine.Logout().OnLogout(p) }

func (l LuaScripts) NextScheduledCycle(now time.Time) int {
	if l.Scheduled == nil {
		return 0
	}
	return l.Scheduled.NextCycle(now)
}
