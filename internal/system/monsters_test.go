package system

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/illarion/server/internal/core/event"
	"github.com/illarion/server/internal/net/packet"
	"github.com/illarion/server/internal/world"
)

// readyMonster fills the reservoirs so the monster acts on the next tick.
func readyMonster(m *world.Monster) {
	m.AP, m.FP = world.DefaultLimits.MaxAP, world.DefaultLimits.MaxFP
}

func TestWanderReflectsAtSpawnRange(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sim.spawns.Add(&world.SpawnPoint{ID: 7, Center: world.Position{X: 100, Y: 100}, Range: 5})
	m := env.addMonster(t, 1, world.Position{X: 105, Y: 100}, 7)
	env.addPlayer(t, 1, "far", world.Position{X: 125, Y: 100})
	env.sim.dice = fixedDice{roll: 0.99, n: int(world.DirEast)}
	readyMonster(m)

	env.tick(1)

	if m.Pos != (world.Position{X: 104, Y: 100}) {
		t.Fatalf("pos = %v, want (104, 100)", m.Pos)
	}
	if want := env.sim.cfg.MaxAP - env.sim.cfg.StepCost - env.sim.cfg.NPWalkCost; m.AP != want {
		t.Fatalf("ap = %d, want %d", m.AP, want)
	}
	if f, _ := env.sim.fields.At(world.Position{X: 104, Y: 100}); f.Occupant() != m.ID {
		t.Fatalf("new field not occupied by the monster")
	}
}

func TestWanderStaysInsideSpawnRange(t *testing.T) {
	env := newTestEnv(t, nil)
	center := world.Position{X: 60, Y: 60}
	env.sim.spawns.Add(&world.SpawnPoint{ID: 3, Center: center, Range: 2})
	m := env.addMonster(t, 1, center, 3)
	env.addPlayer(t, 1, "watcher", world.Position{X: 60, Y: 80})

	for i := 0; i < 300; i++ {
		readyMonster(m)
		env.tick(1)
		if !m.Pos.InRange(center, 2) {
			t.Fatalf("step %d: monster left its range at %v", i, m.Pos)
		}
	}
}

func TestSelfHealingMonsterHealsInsteadOfWalking(t *testing.T) {
	env := newTestEnv(t, nil)
	m := env.addMonster(t, 3, world.Position{X: 50, Y: 50}, 0)
	env.addPlayer(t, 1, "watcher", world.Position{X: 50, Y: 70})
	env.sim.dice = fixedDice{roll: 0.1}
	m.HP = 100
	readyMonster(m)

	env.tick(1)

	if m.Pos != (world.Position{X: 50, Y: 50}) || m.HP <= 100 {
		t.Fatalf("pos %v hp %d, want healed in place", m.Pos, m.HP)
	}
}

func TestScriptCanVetoAttack(t *testing.T) {
	env := newTestEnv(t, nil)
	script := &fakeMonsterScript{
		pick: func(c []world.Character) (world.Character, bool) { return c[0], true },
		near: true,
	}
	env.scripts.monsters["monster.troll"] = script
	troll := env.addMonster(t, 2, world.Position{X: 50, Y: 50}, 0)
	p, _ := env.addPlayer(t, 1, "hero", world.Position{X: 52, Y: 50})
	readyMonster(troll)

	env.tick(1)

	if script.nearCalls != 1 || env.scripts.attacks != 0 {
		t.Fatalf("near calls %d, attacks %d", script.nearCalls, env.scripts.attacks)
	}
	if troll.EnemyID != p.ID || troll.EnemyKind != world.KindPlayer {
		t.Fatalf("target not recorded: %d", troll.EnemyID)
	}
	if p.HP != p.MaxHP || troll.Pos != (world.Position{X: 50, Y: 50}) {
		t.Fatalf("troll acted after the veto")
	}
	if env.scripts.fallbacks != 0 {
		t.Fatalf("fighting script consulted although the race script chose")
	}
}

func TestFightingScriptChoosesWithoutRaceScript(t *testing.T) {
	env := newTestEnv(t, nil)
	rat := env.addMonster(t, 1, world.Position{X: 50, Y: 50}, 0)
	p, _ := env.addPlayer(t, 1, "hero", world.Position{X: 51, Y: 51})
	readyMonster(rat)

	env.tick(1)

	if env.scripts.fallbacks != 1 || env.scripts.attacks != 1 {
		t.Fatalf("fallbacks %d, attacks %d", env.scripts.fallbacks, env.scripts.attacks)
	}
	if p.HP != p.MaxHP-1 {
		t.Fatalf("player hp = %d", p.HP)
	}
	if want := env.sim.cfg.MaxFP - env.sim.cfg.AttackCost; rat.FP != want {
		t.Fatalf("fp = %d, want %d", rat.FP, want)
	}
	if rat.Facing != world.DirSouthEast {
		t.Fatalf("rat faces %v", rat.Facing)
	}
}

func TestTiredMonsterStandsItsGround(t *testing.T) {
	env := newTestEnv(t, nil)
	rat := env.addMonster(t, 1, world.Position{X: 50, Y: 50}, 0)
	p, _ := env.addPlayer(t, 1, "hero", world.Position{X: 51, Y: 50})
	rat.AP = env.sim.cfg.MaxAP

	env.tick(1)

	if env.scripts.attacks != 0 || p.HP != p.MaxHP {
		t.Fatalf("attacked without fight points")
	}
	if rat.Pos != (world.Position{X: 50, Y: 50}) {
		t.Fatalf("tired monster moved to %v", rat.Pos)
	}
}

func TestPeacefulMonsterIgnoresPlayers(t *testing.T) {
	env := newTestEnv(t, nil)
	sheep := env.addMonster(t, 4, world.Position{X: 50, Y: 50}, 0)
	p, _ := env.addPlayer(t, 1, "hero", world.Position{X: 51, Y: 50})
	readyMonster(sheep)

	env.tick(1)

	if env.scripts.attacks != 0 || env.scripts.fallbacks != 0 || p.HP != p.MaxHP {
		t.Fatalf("peaceful monster picked a fight")
	}
}

func TestMonsterApproachesWhatItSees(t *testing.T) {
	env := newTestEnv(t, nil)
	rat := env.addMonster(t, 1, world.Position{X: 50, Y: 50}, 0)
	p, _ := env.addPlayer(t, 1, "hero", world.Position{X: 55, Y: 50})
	readyMonster(rat)

	env.tick(1)

	if rat.Pos != (world.Position{X: 51, Y: 50}) {
		t.Fatalf("pos = %v, want one step east", rat.Pos)
	}
	if !rat.LastTargetSeen || rat.LastTargetPosition != p.Pos {
		t.Fatalf("sighting not remembered")
	}
}

func TestSightScriptCanHoldMonsterBack(t *testing.T) {
	env := newTestEnv(t, nil)
	script := &fakeMonsterScript{sight: true}
	env.scripts.monsters["monster.rat"] = script
	rat := env.addMonster(t, 1, world.Position{X: 50, Y: 50}, 0)
	env.addPlayer(t, 1, "hero", world.Position{X: 55, Y: 50})
	readyMonster(rat)

	env.tick(1)

	if script.sightCalls != 1 || rat.Pos != (world.Position{X: 50, Y: 50}) {
		t.Fatalf("sight calls %d, pos %v", script.sightCalls, rat.Pos)
	}
}

func TestMonsterFollowsLastSighting(t *testing.T) {
	env := newTestEnv(t, nil)
	rat := env.addMonster(t, 1, world.Position{X: 50, Y: 50}, 0)
	env.addPlayer(t, 1, "hidden", world.Position{X: 50, Y: 75})
	rat.LastTargetSeen = true
	rat.LastTargetPosition = world.Position{X: 53, Y: 50}
	readyMonster(rat)

	env.tick(1)

	if rat.Pos != (world.Position{X: 51, Y: 50}) {
		t.Fatalf("pos = %v, want one step towards the sighting", rat.Pos)
	}
}

func TestReachedSightingIsForgotten(t *testing.T) {
	env := newTestEnv(t, nil)
	rat := env.addMonster(t, 1, world.Position{X: 50, Y: 50}, 0)
	env.addPlayer(t, 1, "hidden", world.Position{X: 50, Y: 75})
	rat.LastTargetSeen = true
	rat.LastTargetPosition = rat.Pos
	env.sim.dice = fixedDice{roll: 0.99, n: int(world.DirNorth)}
	readyMonster(rat)

	env.tick(1)

	if rat.LastTargetSeen {
		t.Fatalf("sighting still remembered")
	}
	if rat.Pos != (world.Position{X: 50, Y: 49}) {
		t.Fatalf("pos = %v, want a random step north", rat.Pos)
	}
}

func TestMonsterWithoutAudienceOnlyRests(t *testing.T) {
	env := newTestEnv(t, nil)
	rat := env.addMonster(t, 1, world.Position{X: 50, Y: 50}, 0)
	rat.AP = 18

	env.tick(1)

	if rat.AP != 19 || rat.Pos != (world.Position{X: 50, Y: 50}) {
		t.Fatalf("ap %d pos %v", rat.AP, rat.Pos)
	}
}

func TestFinishedRouteIsAborted(t *testing.T) {
	env := newTestEnv(t, nil)
	script := &fakeMonsterScript{}
	env.scripts.monsters["monster.rat"] = script
	rat := env.addMonster(t, 1, world.Position{X: 50, Y: 50}, 0)
	rat.OnRoute = true
	rat.Waypoints.Add(world.Position{X: 52, Y: 50})
	readyMonster(rat)

	env.tick(1)
	if rat.Pos != (world.Position{X: 51, Y: 50}) || !rat.OnRoute {
		t.Fatalf("route step: pos %v on route %t", rat.Pos, rat.OnRoute)
	}

	readyMonster(rat)
	env.tick(1)
	readyMonster(rat)
	env.tick(1)

	if rat.OnRoute || script.aborts != 1 {
		t.Fatalf("on route %t, aborts %d", rat.OnRoute, script.aborts)
	}
}

func TestDeadMonstersAreCollected(t *testing.T) {
	env := newTestEnv(t, nil)
	sp := &world.SpawnPoint{ID: 7, Center: world.Position{X: 100, Y: 100}, Range: 5, MinSpawnTime: 10, MaxSpawnTime: 10}
	sp.AddTemplate(1, 1)
	sp.Templates[0].Alive = 1
	env.sim.spawns.Add(sp)
	env.sim.nextSpawnCheck = epoch.Add(env.sim.schedCfg.SpawnCheck)

	m := env.addMonster(t, 1, world.Position{X: 100, Y: 100}, 7)
	_, conn := env.addPlayer(t, 1, "witness", world.Position{X: 103, Y: 100})
	m.HP = 0

	var died []event.MonsterDied
	event.Subscribe(env.sim.bus, func(e event.MonsterDied) { died = append(died, e) })

	env.tick(1)

	if env.sim.monsters.Len() != 0 {
		t.Fatalf("dead monster still in the world")
	}
	if sp.Alive() != 0 {
		t.Fatalf("spawn slot not freed")
	}
	if f, _ := env.sim.fields.At(m.Pos); f.Occupied() {
		t.Fatalf("field still occupied")
	}
	if conn.count(packet.S_REMOVECHAR) != 1 {
		t.Fatalf("witness not told about the removal")
	}
	env.sim.bus.SwapBuffers()
	env.sim.bus.DispatchAll()
	if len(died) != 1 || died[0].MonsterID != m.ID || died[0].SpawnID != 7 {
		t.Fatalf("died events = %+v", died)
	}
}

func TestSpawnedMonstersJoinAfterThePass(t *testing.T) {
	env := newTestEnv(t, nil)
	script := &fakeMonsterScript{}
	env.scripts.monsters["monster.rat"] = script
	sp := &world.SpawnPoint{
		ID: 9, Center: world.Position{X: 40, Y: 40}, Range: 4, SpawnRange: 3,
		MinSpawnTime: 1, MaxSpawnTime: 2, SpawnAll: true,
	}
	sp.AddTemplate(1, 2)
	env.sim.spawns.Add(sp)

	env.tick(3)

	if env.sim.monsters.Len() != 2 || sp.Alive() != 2 {
		t.Fatalf("monsters %d, alive %d", env.sim.monsters.Len(), sp.Alive())
	}
	env.sim.monsters.ForEach(func(m *world.Monster) {
		if m.AP != 0 {
			t.Errorf("monster %d credited in its spawn tick", m.ID)
		}
		if m.SpawnID != 9 || !m.Pos.InRange(sp.Center, 3) {
			t.Errorf("monster %d misplaced at %v", m.ID, m.Pos)
		}
	})
	if script.spawns != 2 {
		t.Fatalf("spawn hook ran %d times", script.spawns)
	}

	env.tick(3)
	if env.sim.monsters.Len() != 2 {
		t.Fatalf("spawn point overfilled: %d", env.sim.monsters.Len())
	}
}

func TestSpawningDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	core, logs := observer.New(zapcore.InfoLevel)
	env.withLogger(zap.New(core))
	sp := &world.SpawnPoint{ID: 9, Center: world.Position{X: 40, Y: 40}, SpawnAll: true}
	sp.AddTemplate(1, 2)
	env.sim.spawns.Add(sp)
	env.sim.SetSpawnEnabled(false)

	env.tick(1)
	env.tick(1)

	if env.sim.monsters.Len() != 0 {
		t.Fatalf("monsters spawned while disabled")
	}
	if n := logs.FilterMessage("spawning disabled").Len(); n != 1 {
		t.Fatalf("disabled logged %d times, want once per spawn check", n)
	}
}

func TestGetTargetsInRange(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sim.fields.Fill(1, 0, 0, 200, 200)
	center := world.Position{X: 50, Y: 50}
	self := env.addMonster(t, 1, center, 0)
	other := env.addMonster(t, 1, world.Position{X: 51, Y: 50}, 0)
	corpse := env.addMonster(t, 1, world.Position{X: 49, Y: 50}, 0)
	corpse.HP = 0
	p, _ := env.addPlayer(t, 1, "near", world.Position{X: 50, Y: 52})
	env.addPlayer(t, 2, "far", world.Position{X: 50, Y: 60})
	env.addPlayer(t, 3, "below", world.Position{X: 50, Y: 51, Z: 1})

	got := env.sim.getTargetsInRange(self.Pos, 2)

	ids := map[uint32]bool{}
	for _, c := range got {
		ids[c.Base().ID] = true
	}
	if len(got) != 2 || !ids[p.ID] || !ids[other.ID] {
		t.Fatalf("targets = %v", ids)
	}
}

func TestAttackRangeUsesWeapons(t *testing.T) {
	env := newTestEnv(t, nil)
	var c world.Char
	if r := env.sim.attackRange(&c); r != 1 {
		t.Fatalf("bare hands range %d", r)
	}
	c.Tools[world.LeftTool] = world.Item{ID: 2727, Number: 1}
	if r := env.sim.attackRange(&c); r != 6 {
		t.Fatalf("left bow range %d", r)
	}
	c.Tools[world.RightTool] = world.Item{ID: 2714, Number: 1}
	if r := env.sim.attackRange(&c); r != 2 {
		t.Fatalf("right spear range %d", r)
	}
}
