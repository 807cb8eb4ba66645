package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/illarion/server/internal/world"
)

const characterTypeName = "character"

func registerCharacterType(L *lua.LState) {
	mt := L.NewTypeMetatable(characterTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), characterMethods))
	L.SetField(mt, "__eq", L.NewFunction(func(L *lua.LState) int {
		a, b := checkCharacter(L, 1), checkCharacter(L, 2)
		L.Push(lua.LBool(a.Base().ID == b.Base().ID))
		return 1
	}))
}

func pushCharacter(L *lua.LState, c world.Character) lua.LValue {
	ud := L.NewUserData()
	ud.Value = c
	L.SetMetatable(ud, L.GetTypeMetatable(characterTypeName))
	return ud
}

func checkCharacter(L *lua.LState, n int) world.Character {
	ud := L.CheckUserData(n)
	if c, ok := ud.Value.(world.Character); ok {
		return c
	}
	L.ArgError(n, "character expected")
	return nil
}

func toCharacter(v lua.LValue) (world.Character, bool) {
	ud, ok := v.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	c, ok := ud.Value.(world.Character)
	return c, ok
}

var characterMethods = map[string]lua.LGFunction{
	"id": func(L *lua.LState) int {
		L.Push(lua.LNumber(checkCharacter(L, 1).Base().ID))
		return 1
	},
	"name": func(L *lua.LState) int {
		L.Push(lua.LString(checkCharacter(L, 1).Base().Name))
		return 1
	},
	"kind": func(L *lua.LState) int {
		L.Push(lua.LString(checkCharacter(L, 1).Base().Kind.String()))
		return 1
	},
	"pos": func(L *lua.LState) int {
		p := checkCharacter(L, 1).Base().Pos
		L.Push(lua.LNumber(p.X))
		L.Push(lua.LNumber(p.Y))
		L.Push(lua.LNumber(p.Z))
		return 3
	},
	"distance": func(L *lua.LState) int {
		a, b := checkCharacter(L, 1).Base(), checkCharacter(L, 2).Base()
		L.Push(lua.LNumber(a.Pos.Distance(b.Pos)))
		return 1
	},
	"hp": func(L *lua.LState) int {
		L.Push(lua.LNumber(checkCharacter(L, 1).Base().HP))
		return 1
	},
	"maxHP": func(L *lua.LState) int {
		L.Push(lua.LNumber(checkCharacter(L, 1).Base().MaxHP))
		return 1
	},
	"setHP": func(L *lua.LState) int {
		c := checkCharacter(L, 1).Base()
		hp := L.CheckInt(2)
		if hp < 0 {
			hp = 0
		}
		if hp > c.MaxHP {
			hp = c.MaxHP
		}
		c.HP = hp
		return 0
	},
	"isAlive": func(L *lua.LState) int {
		L.Push(lua.LBool(checkCharacter(L, 1).Base().Alive()))
		return 1
	},
	"mentalCapacity": func(L *lua.LState) int {
		L.Push(lua.LNumber(checkCharacter(L, 1).Base().MentalCapacity))
		return 1
	},
	"setMentalCapacity": func(L *lua.LState) int {
		checkCharacter(L, 1).Base().MentalCapacity = L.CheckInt(2)
		return 0
	},
	"ap": func(L *lua.LState) int {
		L.Push(lua.LNumber(checkCharacter(L, 1).Base().AP))
		return 1
	},
	"fp": func(L *lua.LState) int {
		L.Push(lua.LNumber(checkCharacter(L, 1).Base().FP))
		return 1
	},
	"race": func(L *lua.LState) int {
		race := 0
		if m, ok := checkCharacter(L, 1).(*world.Monster); ok {
			race = int(m.Race)
		}
		L.Push(lua.LNumber(race))
		return 1
	},
	"setAttack": func(L *lua.LState) int {
		if m, ok := checkCharacter(L, 1).(*world.Monster); ok {
			m.AttackEnabled = L.CheckBool(2)
		}
		return 0
	},
	"addWaypoint": func(L *lua.LState) int {
		p := world.Position{X: int16(L.CheckInt(2)), Y: int16(L.CheckInt(3)), Z: int16(L.CheckInt(4))}
		switch c := checkCharacter(L, 1).(type) {
		case *world.Monster:
			c.Waypoints.Add(p)
		case *world.NPC:
			c.Waypoints.Add(p)
		}
		return 0
	},
	"setOnRoute": func(L *lua.LState) int {
		on := L.CheckBool(2)
		switch c := checkCharacter(L, 1).(type) {
		case *world.Monster:
			c.OnRoute = on
		case *world.NPC:
			c.OnRoute = on
		}
		return 0
	},
	"isOnRoute": func(L *lua.LState) int {
		on := false
		switch c := checkCharacter(L, 1).(type) {
		case *world.Monster:
			on = c.OnRoute
		case *world.NPC:
			on = c.OnRoute
		}
		L.Push(lua.LBool(on))
		return 1
	},
	"addEffect": func(L *lua.LState) int {
		c := checkCharacter(L, 1).Base()
		c.Effects.Add(world.Effect{
			ID:        uint16(L.CheckInt(2)),
			Name:      L.OptString(4, ""),
			Remaining: L.CheckInt(3),
		})
		return 0
	},
}
