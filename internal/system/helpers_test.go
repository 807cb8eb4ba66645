package system

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/illarion/server/internal/config"
	"github.com/illarion/server/internal/data"
	"github.com/illarion/server/internal/net/packet"
	"github.com/illarion/server/internal/world"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeConn records frames. ShutdownSend only records; the test decides
// when the connection actually goes away.
type fakeConn struct {
	mu        sync.Mutex
	online    bool
	keepalive time.Time
	frames    [][]byte
	shutdown  [][]byte
	bound     *world.Player
	state     packet.SessionState
}

func newFakeConn(keepalive time.Time) *fakeConn {
	return &fakeConn{online: true, keepalive: keepalive}
}

func (c *fakeConn) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

func (c *fakeConn) LastKeepalive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keepalive
}

func (c *fakeConn) Send(frame []byte) {
	c.mu.Lock()
	c.frames = append(c.frames, frame)
	c.mu.Unlock()
}

func (c *fakeConn) ShutdownSend(frame []byte) {
	c.mu.Lock()
	c.shutdown = append(c.shutdown, frame)
	c.mu.Unlock()
}

func (c *fakeConn) BindPlayer(p *world.Player)      { c.bound = p }
func (c *fakeConn) SetState(st packet.SessionState) { c.state = st }

func (c *fakeConn) close() {
	c.mu.Lock()
	c.online = false
	c.mu.Unlock()
}

// opcodes returns the opcodes of every frame sent so far.
func (c *fakeConn) opcodes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, 0, len(c.frames))
	for _, f := range c.frames {
		out = append(out, f[0])
	}
	return out
}

func (c *fakeConn) count(op byte) int {
	n := 0
	for _, o := range c.opcodes() {
		if o == op {
			n++
		}
	}
	return n
}

type fakeMonsterScript struct {
	pick         func(cands []world.Character) (world.Character, bool)
	near, sight  bool
	nearCalls    int
	sightCalls   int
	aborts       int
	spawns       int
	lastNearSeen bool
}

func (f *fakeMonsterScript) SetTarget(_ *world.Monster, cands []world.Character) (world.Character, bool) {
	if f.pick == nil {
		return nil, false
	}
	return f.pick(cands)
}

func (f *fakeMonsterScript) EnemyNear(self *world.Monster, _ world.Character) bool {
	f.nearCalls++
	f.lastNearSeen = self.LastTargetSeen
	return f.near
}

func (f *fakeMonsterScript) EnemyOnSight(*world.Monster, world.Character) bool {
	f.sightCalls++
	return f.sight
}

func (f *fakeMonsterScript) AbortRoute(*world.Monster) { f.aborts++ }
func (f *fakeMonsterScript) OnSpawn(*world.Monster)    { f.spawns++ }

type fakeNPCScript struct {
	cycles, aborts int
}

func (f *fakeNPCScript) NextCycle(*world.NPC)  { f.cycles++ }
func (f *fakeNPCScript) AbortRoute(*world.NPC) { f.aborts++ }

type fakeScripts struct {
	monsters  map[string]*fakeMonsterScript
	npcs      map[string]*fakeNPCScript
	damage    int
	attacks   int
	fallbacks int
	reduced   int
	logouts   []string
	scheduled int
}

func newFakeScripts() *fakeScripts {
	return &fakeScripts{
		monsters: make(map[string]*fakeMonsterScript),
		npcs:     make(map[string]*fakeNPCScript),
		damage:   1,
	}
}

func (f *fakeScripts) Monster(name string) (MonsterScript, bool) {
	sc, ok := f.monsters[name]
	if !ok {
		return nil, false
	}
	return sc, true
}

func (f *fakeScripts) NPC(name string) (world.NPCScript, bool) {
	sc, ok := f.npcs[name]
	if !ok {
		return nil, false
	}
	return sc, true
}

// FightingSetTarget picks the first candidate.
func (f *fakeScripts) FightingSetTarget(_ world.Character, cands []world.Character) world.Character {
	f.fallbacks++
	if len(cands) == 0 {
		return nil
	}
	return cands[0]
}

func (f *fakeScripts) OnAttack(world.Character, world.Character) int {
	f.attacks++
	return f.damage
}

func (f *fakeScripts) ReduceMC(c world.Character) {
	f.reduced++
	c.Base().MentalCapacity--
}

func (f *fakeScripts) OnLogout(p *world.Player) { f.logouts = append(f.logouts, p.Name) }

func (f *fakeScripts) NextScheduledCycle(time.Time) int {
	f.scheduled++
	return 0
}

type fakeSaver struct {
	saved []string
	err   error
}

func (f *fakeSaver) SavePlayer(_ context.Context, p *world.Player) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, p.Name)
	return nil
}

type fakeLogout struct{ players []*world.Player }

func (f *fakeLogout) Push(p *world.Player) { f.players = append(f.players, p) }

type fakeSpawns struct {
	points []*world.SpawnPoint
	err    error
}

func (f *fakeSpawns) LoadSpawnPoints(context.Context) ([]*world.SpawnPoint, error) {
	return f.points, f.err
}

// fixedDice always rolls the same values.
type fixedDice struct {
	roll float64
	n    int
}

func (d fixedDice) Float64() float64 { return d.roll }
func (d fixedDice) Intn(n int) int   { return d.n % n }

const testWeapons = `
weapons:
  - item_id: 2701
    name: longsword
    range: 1
  - item_id: 2714
    name: spear
    range: 2
  - item_id: 2727
    name: bow
    range: 6
`

const testMonsters = `
monsters:
  - race: 1
    name: rat
    script: monster.rat
    hp: 500
  - race: 2
    name: troll
    script: monster.troll
    hp: 9000
    right_tool: 2714
  - race: 3
    name: healer
    hp: 1000
    canselfheal: true
  - race: 4
    name: sheep
    hp: 800
    canattack: false
`

type testEnv struct {
	sim     *Simulation
	clock   *fakeClock
	scripts *fakeScripts
	saver   *fakeSaver
	logout  *fakeLogout
	spawns  *fakeSpawns
}

// newTestEnv builds a simulation over a 200x200 walkable map on level 0.
func newTestEnv(t *testing.T, tweak func(*Deps)) *testEnv {
	t.Helper()
	weapons, err := data.ParseWeaponTable([]byte(testWeapons))
	if err != nil {
		t.Fatalf("weapons: %v", err)
	}
	monsters, err := data.ParseMonsterTable([]byte(testMonsters))
	if err != nil {
		t.Fatalf("monsters: %v", err)
	}
	fields := world.NewFieldMap()
	fields.Fill(0, 0, 0, 200, 200)

	cfg := config.Defaults()
	env := &testEnv{
		clock:   &fakeClock{t: epoch},
		scripts: newFakeScripts(),
		saver:   &fakeSaver{},
		logout:  &fakeLogout{},
		spawns:  &fakeSpawns{},
	}
	d := Deps{
		World:    cfg.World,
		Schedule: cfg.Schedule,
		Calendar: world.Calendar{Factor: 3, Birth: 0, Location: time.UTC},
		Fields:   fields,
		Weapons:  weapons,
		Monsters: monsters,
		Scripts:  env.scripts,
		Saver:    env.saver,
		Spawns:   env.spawns,
		Logout:   env.logout,
		Now:      env.clock.now,
		Rand:     rand.New(rand.NewSource(1)),
		Log:      zaptest.NewLogger(t),
	}
	if tweak != nil {
		tweak(&d)
	}
	env.sim = NewSimulation(d)
	return env
}

func (e *testEnv) withLogger(log *zap.Logger) { e.sim.log = log }

// addPlayer puts an online player on pos.
func (e *testEnv) addPlayer(t *testing.T, id uint32, name string, pos world.Position) (*world.Player, *fakeConn) {
	t.Helper()
	conn := newFakeConn(e.clock.now())
	p := world.NewPlayer(id, name, pos, conn, e.sim.Limits())
	p.LastSaveTime = e.clock.now()
	if !e.sim.players.Insert(p) {
		t.Fatalf("insert player %d", id)
	}
	f, err := e.sim.fields.At(pos)
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	f.SetChar(id)
	return p, conn
}

// addMonster puts a monster of race on pos and returns it.
func (e *testEnv) addMonster(t *testing.T, race uint16, pos world.Position, spawnID uint32) *world.Monster {
	t.Helper()
	m, err := e.sim.CreateMonster(race, pos, spawnID)
	if err != nil {
		t.Fatalf("create monster: %v", err)
	}
	f, err := e.sim.fields.At(pos)
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	f.SetChar(m.ID)
	e.sim.monsters.Insert(m)
	return m
}

// tick advances the clock by n action points and turns the world once.
func (e *testEnv) tick(n int) {
	e.clock.advance(time.Duration(n) * e.sim.cfg.MinAPUpdate)
	e.sim.TurnTheWorld()
}
