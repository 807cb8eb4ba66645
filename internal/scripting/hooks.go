package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/illarion/server/internal/world"
)

// Script is one loaded module. A nil module (not loaded) makes every call
// report "not handled".
type Script struct {
	e    *Engine
	name string
	mod  *lua.LTable
}

func (s *Script) Name() string { return s.name }

// Has reports whether the module defines fn.
func (s *Script) Has(fn string) bool {
	if s.mod == nil {
		return false
	}
	_, ok := s.mod.RawGetString(fn).(*lua.LFunction)
	return ok
}

// call invokes fn with args and returns its first result. ok is false when
// the function does not exist or raised an error, which is logged.
func (s *Script) call(fn string, args ...lua.LValue) (ret lua.LValue, ok bool) {
	if s.mod == nil {
		return lua.LNil, false
	}
	f, isFn := s.mod.RawGetString(fn).(*lua.LFunction)
	if !isFn {
		return lua.LNil, false
	}
	vm := s.e.vm
	if err := vm.CallByParam(lua.P{Fn: f, NRet: 1, Protect: true}, args...); err != nil {
		s.e.log.Error("lua hook error",
			zap.String("script", s.name), zap.String("fn", fn), zap.Error(err))
		return lua.LNil, false
	}
	ret = vm.Get(-1)
	vm.Pop(1)
	return ret, true
}

// Call invokes a function without arguments; used by the scheduled-scripts table.
func (s *Script) Call(fn string) bool {
	_, ok := s.call(fn)
	return ok
}

func (s *Script) char(c world.Character) lua.LValue {
	return pushCharacter(s.e.vm, c)
}

func (s *Script) candidates(cs []world.Character) *lua.LTable {
	t := s.e.vm.NewTable()
	for _, c := range cs {
		t.Append(s.char(c))
	}
	return t
}

// pick maps a setTarget return value back onto the candidate list. Scripts
// may return the character itself or its 1-based index.
func pick(ret lua.LValue, cands []world.Character) world.Character {
	switch v := ret.(type) {
	case lua.LNumber:
		i := int(v)
		if i >= 1 && i <= len(cands) {
			return cands[i-1]
		}
	case *lua.LUserData:
		c, ok := toCharacter(v)
		if !ok {
			return nil
		}
		for _, cand := range cands {
			if cand.Base().ID == c.Base().ID {
				return cand
			}
		}
	}
	return nil
}

// MonsterScript is the per-race monster script.
type MonsterScript struct{ *Script }

// SetTarget lets the script choose among candidates. ok is false when the
// script declined or does not implement the hook.
func (s *MonsterScript) SetTarget(self *world.Monster, cands []world.Character) (world.Character, bool) {
	ret, ok := s.call("setTarget", s.char(self), s.candidates(cands))
	if !ok {
		return nil, false
	}
	t := pick(ret, cands)
	return t, t != nil
}

func (s *MonsterScript) EnemyNear(self *world.Monster, target world.Character) bool {
	ret, _ := s.call("enemyNear", s.char(self), s.char(target))
	return lua.LVAsBool(ret)
}

func (s *MonsterScript) EnemyOnSight(self *world.Monster, target world.Character) bool {
	ret, _ := s.call("enemyOnSight", s.char(self), s.char(target))
	return lua.LVAsBool(ret)
}

func (s *MonsterScript) AbortRoute(self *world.Monster) {
	s.call("abortRoute", s.char(self))
}

func (s *MonsterScript) OnSpawn(self *world.Monster) {
	s.call("onSpawn", s.char(self))
}

// NPCScript drives one NPC; it satisfies world.NPCScript.
type NPCScript struct{ *Script }

func (s *NPCScript) NextCycle(n *world.NPC) {
	s.call("nextCycle", s.char(n))
}

func (s *NPCScript) AbortRoute(n *world.NPC) {
	s.call("abortRoute", s.char(n))
}

// FightingScript is the global combat script.
type FightingScript struct{ *Script }

// SetTarget is the fallback target choice. It returns nil when nothing is picked.
func (s *FightingScript) SetTarget(self world.Character, cands []world.Character) world.Character {
	ret, ok := s.call("setTarget", s.char(self), s.candidates(cands))
	if !ok {
		return nil
	}
	return pick(ret, cands)
}

// OnAttack returns the damage dealt by attacker to defender. Without a
// script every hit deals 1.
func (s *FightingScript) OnAttack(attacker, defender world.Character) int {
	ret, ok := s.call("onAttack", s.char(attacker), s.char(defender))
	if !ok {
		return 1
	}
	n, isNum := ret.(lua.LNumber)
	if !isNum || n < 0 {
		return 0
	}
	return int(n)
}

type LearnScript struct{ *Script }

// ReduceMC lowers c's mental capacity counter. Without a script it drops by
// one per call, never below zero.
func (s *LearnScript) ReduceMC(c world.Character) {
	if s.Has("reduceMC") {
		s.call("reduceMC", s.char(c))
		return
	}
	if b := c.Base(); b.MentalCapacity > 0 {
		b.MentalCapacity--
	}
}

type LogoutScript struct{ *Script }

func (s *LogoutScript) OnLogout(p *world.Player) {
	s.call("onLogout", s.char(p))
}
