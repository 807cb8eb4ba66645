package system

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/illarion/server/internal/data"
	"github.com/illarion/server/internal/net/packet"
	"github.com/illarion/server/internal/scripting"
	"github.com/illarion/server/internal/world"
)

func writeScripts(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newLuaEnv(t *testing.T, files map[string]string) (*testEnv, *scripting.Engine) {
	t.Helper()
	eng, err := scripting.NewEngine(writeScripts(t, files), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	t.Cleanup(eng.Close)
	env := newTestEnv(t, func(d *Deps) { d.Scripts = LuaScripts{Engine: eng} })
	eng.SetHost(env.sim)
	return env, eng
}

func TestSpawnMonsterOutsidePass(t *testing.T) {
	env := newTestEnv(t, nil)
	_, conn := env.addPlayer(t, 1, "witness", world.Position{X: 12, Y: 10})

	id, err := env.sim.SpawnMonster(1, world.Position{X: 10, Y: 10})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	m, ok := env.sim.monsters.Find(id)
	if !ok || m.SpawnID != 0 {
		t.Fatalf("monster not inserted")
	}
	if f, _ := env.sim.fields.At(m.Pos); f.Occupant() != id {
		t.Fatalf("field not occupied")
	}
	if conn.count(packet.S_MOVE) != 1 {
		t.Fatalf("witness did not see the spawn")
	}

	if _, err := env.sim.SpawnMonster(1, world.Position{X: 10, Y: 10}); err == nil {
		t.Fatalf("spawned on an occupied field")
	}
	if _, err := env.sim.SpawnMonster(99, world.Position{X: 11, Y: 11}); err == nil {
		t.Fatalf("spawned an unknown race")
	}
}

func TestScriptSpawnDuringMonsterPassIsBuffered(t *testing.T) {
	env, _ := newLuaEnv(t, map[string]string{
		"monster/rat.lua": `
local M = {}
function M.setTarget(self, cands) return 1 end
function M.enemyNear(self, target)
  world.spawn(1, 60, 60, 0)
  world.say(self:id(), "squeak")
  return true
end
return M
`,
	})
	rat := env.addMonster(t, 1, world.Position{X: 50, Y: 50}, 0)
	p, conn := env.addPlayer(t, 1, "hero", world.Position{X: 51, Y: 50})
	readyMonster(rat)

	env.tick(1)

	if env.sim.monsters.Len() != 2 {
		t.Fatalf("monsters = %d, want the scripted spawn inserted", env.sim.monsters.Len())
	}
	if rat.EnemyID != p.ID {
		t.Fatalf("script target not used")
	}
	if p.HP != p.MaxHP {
		t.Fatalf("rat attacked although the script handled the enemy")
	}
	if conn.count(packet.S_SAY) != 1 {
		t.Fatalf("say frames = %d", conn.count(packet.S_SAY))
	}
	found := false
	env.sim.monsters.ForEach(func(m *world.Monster) {
		if m.Pos == (world.Position{X: 60, Y: 60}) && m.AP == 0 {
			found = true
		}
	})
	if !found {
		t.Fatalf("spawned monster missing or credited")
	}
}

func TestLuaFightingScriptDealsDamage(t *testing.T) {
	env, _ := newLuaEnv(t, map[string]string{
		"fighting.lua": `
return {
  setTarget = function(self, cands) return cands[1] end,
  onAttack = function(attacker, defender) return 25 end,
}
`,
	})
	rat := env.addMonster(t, 1, world.Position{X: 50, Y: 50}, 0)
	p, _ := env.addPlayer(t, 1, "hero", world.Position{X: 50, Y: 51})
	readyMonster(rat)

	env.tick(1)

	if p.HP != p.MaxHP-25 {
		t.Fatalf("player hp = %d", p.HP)
	}
}

func TestKillCharacter(t *testing.T) {
	env := newTestEnv(t, nil)
	p, conn := env.addPlayer(t, 1, "victim", world.Position{X: 10, Y: 10})
	p.FightMode, p.EnemyID = true, 5
	m := env.addMonster(t, 1, world.Position{X: 12, Y: 10}, 0)

	if !env.sim.KillCharacter(m.ID) {
		t.Fatalf("monster not killed")
	}
	if _, ok := env.sim.monsters.Find(m.ID); ok {
		t.Fatalf("killed monster still present")
	}
	if !env.sim.KillCharacter(p.ID) {
		t.Fatalf("player not killed")
	}
	if p.HP != 0 || p.FightMode || p.EnemyID != 0 {
		t.Fatalf("player state after death: hp %d fight %t", p.HP, p.FightMode)
	}
	if conn.count(packet.S_HEALTH) != 1 {
		t.Fatalf("health not sent")
	}
	if env.sim.KillCharacter(world.MonsterIDBase + 999999) {
		t.Fatalf("killed a missing character")
	}
}

func TestLuaScriptsDefaults(t *testing.T) {
	env, eng := newLuaEnv(t, map[string]string{
		"npc/trader.lua":      `return { nextCycle = function(self) end }`,
		"scheduled/clock.lua": `return { tick = function() world.log("tick") end }`,
	})
	scripts := LuaScripts{Engine: eng}

	if _, ok := scripts.Monster("monster.missing"); ok {
		t.Fatalf("missing monster script resolved")
	}
	if _, ok := scripts.NPC("npc.trader"); !ok {
		t.Fatalf("npc script not resolved")
	}
	p, _ := env.addPlayer(t, 1, "p", world.Position{X: 10, Y: 10})
	if scripts.FightingSetTarget(p, []world.Character{p}) != nil {
		t.Fatalf("fallback target without a fighting script")
	}
	if scripts.OnAttack(p, p) != 1 {
		t.Fatalf("default damage is not 1")
	}
	p.MentalCapacity = 2
	scripts.ReduceMC(p)
	if p.MentalCapacity != 1 {
		t.Fatalf("mc = %d", p.MentalCapacity)
	}
	scripts.OnLogout(p)
	if scripts.NextScheduledCycle(epoch) != 0 {
		t.Fatalf("scheduled cycle without a table")
	}

	table := scripting.NewScheduledTable(eng, []data.ScheduledScript{
		{Script: "scheduled.clock", Function: "tick", MinCycle: 1, MaxCycle: 1},
	}, epoch, rand.New(rand.NewSource(1)), zaptest.NewLogger(t))
	scripts.Scheduled = table
	if n := scripts.NextScheduledCycle(epoch.Add(2 * time.Second)); n != 1 {
		t.Fatalf("scheduled runs = %d", n)
	}
}

func TestWarpCharacter(t *testing.T) {
	env := newTestEnv(t, nil)
	p, _ := env.addPlayer(t, 1, "traveller", world.Position{X: 10, Y: 10})
	_, near := env.addPlayer(t, 2, "near", world.Position{X: 12, Y: 10})
	_, far := env.addPlayer(t, 3, "far", world.Position{X: 80, Y: 80})

	if !env.sim.WarpCharacter(p.ID, world.Position{X: 81, Y: 80}) {
		t.Fatalf("warp refused")
	}
	if p.Pos != (world.Position{X: 81, Y: 80}) {
		t.Fatalf("pos = %v", p.Pos)
	}
	if f, _ := env.sim.fields.At(world.Position{X: 10, Y: 10}); f.Occupied() {
		t.Fatalf("old field still occupied")
	}
	if near.count(packet.S_REMOVECHAR) != 1 || far.count(packet.S_MOVE) != 1 {
		t.Fatalf("near removals %d, far moves %d", near.count(packet.S_REMOVECHAR), far.count(packet.S_MOVE))
	}
	if got := env.sim.getTargetsInRange(world.Position{X: 80, Y: 80}, 2); len(got) != 2 {
		t.Fatalf("spatial index not updated: %d", len(got))
	}

	if env.sim.WarpCharacter(p.ID, world.Position{X: 80, Y: 80}) {
		t.Fatalf("warped onto an occupied field")
	}
	if env.sim.WarpCharacter(p.ID, world.Position{X: 5, Y: 5, Z: 9}) {
		t.Fatalf("warped off the map")
	}
	if env.sim.WarpCharacter(world.MonsterIDBase+999999, world.Position{X: 20, Y: 20}) {
		t.Fatalf("warped a missing character")
	}
}
