package system

import (
	"context"
	"math/rand"
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"github.com/illarion/server/internal/config"
	"github.com/illarion/server/internal/core/event"
	"github.com/illarion/server/internal/core/schedule"
	coresys "github.com/illarion/server/internal/core/system"
	"github.com/illarion/server/internal/data"
	"github.com/illarion/server/internal/monitor"
	"github.com/illarion/server/internal/world"
)

// MonsterScript is the per-race script surface used by the monster pass.
type MonsterScript interface {
	SetTarget(self *world.Monster, cands []world.Character) (world.Character, bool)
	EnemyNear(self *world.Monster, target world.Character) bool
	EnemyOnSight(self *world.Monster, target world.Character) bool
	AbortRoute(self *world.Monster)
	OnSpawn(self *world.Monster)
}

// Scripts is everything the simulation asks the script host.
type Scripts interface {
	Monster(name string) (MonsterScript, bool)
	NPC(name string) (world.NPCScript, bool)
	FightingSetTarget(self world.Character, cands []world.Character) world.Character
	OnAttack(attacker, defender world.Character) int
	ReduceMC(c world.Character)
	OnLogout(p *world.Player)
	NextScheduledCycle(now time.Time) int
}

// PlayerSaver persists one player. Called from the simulation goroutine.
type PlayerSaver interface {
	SavePlayer(ctx context.Context, p *world.Player) error
}

// SpawnLoader reads the spawn configuration.
type SpawnLoader interface {
	LoadSpawnPoints(ctx context.Context) ([]*world.SpawnPoint, error)
}

// OnlineStore records the names of online players.
type OnlineStore interface {
	Replace(ctx context.Context, names []string, now time.Time) error
}

// LogoutQueue receives players that left the world.
type LogoutQueue interface {
	Push(p *world.Player)
}

// Monitor is the operator feed.
type Monitor interface {
	CheckClients(snap monitor.Snapshot) int
	PlayersChanged(online []string)
}

// Deps wires a Simulation. Monitor, Online and Spawns may be nil.
type Deps struct {
	World    config.WorldConfig
	Schedule config.ScheduleConfig
	Calendar world.Calendar

	Fields   *world.FieldMap
	Weapons  *data.WeaponTable
	Monsters *data.MonsterTable
	Scripts  Scripts
	Saver    PlayerSaver
	Spawns   SpawnLoader
	Online   OnlineStore
	Logout   LogoutQueue
	Monitor  Monitor
	Bus      *event.Bus

	Now  func() time.Time
	Rand *rand.Rand
	Log  *zap.Logger
}

// random is the dice the monster AI rolls.
type random interface {
	Float64() float64
	Intn(n int) int
}

// Simulation owns the live world and advances it. Every method except
// AddPlayerImmediateActionQueue and the read-only counters must be called
// from the simulation goroutine.
type Simulation struct {
	cfg      config.WorldConfig
	schedCfg config.ScheduleConfig
	cal      world.Calendar
	limits   world.Limits

	players  *world.Population[*world.Player]
	monsters *world.Population[*world.Monster]
	npcs     *world.Population[*world.NPC]
	fields   *world.FieldMap
	spawns   *world.SpawnList

	weapons     *data.WeaponTable
	monsterDefs *data.MonsterTable
	scripts     Scripts
	saver       PlayerSaver
	spawnLoader SpawnLoader
	online      OnlineStore
	logout      LogoutQueue
	monitor     Monitor
	bus         *event.Bus

	now  func() time.Time
	rng  *rand.Rand
	dice random
	log  *zap.Logger

	// tick driver
	runner    *coresys.Runner
	startTime time.Time
	usedAP    int64
	ap        int

	spawnEnabled   bool
	nextSpawnCheck time.Time
	newMonsters    []*world.Monster
	lostNPCs       []uint32

	immediate immediateQueue
	commands  CommandMap
	scheduler *schedule.Scheduler
	igDay     int64
	logins    <-chan Login

	traffic Traffic

	onlineSeq     uint64 // simulation goroutine only
	onlineMu      deadlock.Mutex
	onlineWritten uint64

	built bool
}

// NewSimulation builds the world. The tick driver's clock starts now.
func NewSimulation(d Deps) *Simulation {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewSource(d.Now().UnixNano()))
	}
	if d.Fields == nil {
		d.Fields = world.NewFieldMap()
	}
	if d.Bus == nil {
		d.Bus = event.NewBus()
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	s := &Simulation{
		cfg:      d.World,
		schedCfg: d.Schedule,
		cal:      d.Calendar,
		limits: world.Limits{
			MaxAP:      d.World.MaxAP,
			MaxFP:      d.World.MaxFP,
			MinActAP:   d.World.MinActAP,
			MinFightFP: d.World.MinFightFP,
		},
		players:      world.NewPopulation[*world.Player](),
		monsters:     world.NewPopulation[*world.Monster](),
		npcs:         world.NewPopulation[*world.NPC](),
		fields:       d.Fields,
		spawns:       world.NewSpawnList(),
		weapons:      d.Weapons,
		monsterDefs:  d.Monsters,
		scripts:      d.Scripts,
		saver:        d.Saver,
		spawnLoader:  d.Spawns,
		online:       d.Online,
		logout:       d.Logout,
		monitor:      d.Monitor,
		bus:          d.Bus,
		now:          d.Now,
		rng:          d.Rand,
		dice:         d.Rand,
		log:          d.Log,
		runner:       coresys.NewRunner(),
		spawnEnabled: d.World.SpawnEnabled,
		commands:     DefaultCommands(),
		built:        true,
	}
	s.startTime = s.now()
	s.nextSpawnCheck = s.startTime
	s.runner.Register(&playerPass{s})
	s.runner.Register(&monsterPass{s})
	s.runner.Register(&npcPass{s})
	s.scheduler = schedule.NewScheduler(s.now, s.log.Named("schedule"))
	s.igDay = s.cal.DayNumber(s.now())
	s.subscribe()
	return s
}

func (s *Simulation) mustBeBuilt() {
	if s == nil || !s.built {
		panic("system: Simulation used before NewSimulation")
	}
}

// Step runs one iteration of the main loop: last tick's events, logins
// that finished loading, due recurring tasks, then immediate commands.
func (s *Simulation) Step() {
	s.mustBeBuilt()
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
	s.acceptLogins()
	s.scheduler.Poll()
	s.CheckPlayerImmediateCommands()
}

func (s *Simulation) Players() *world.Population[*world.Player]   { return s.players }
func (s *Simulation) Monsters() *world.Population[*world.Monster] { return s.monsters }
func (s *Simulation) NPCs() *world.Population[*world.NPC]         { return s.npcs }
func (s *Simulation) Fields() *world.FieldMap                     { return s.fields }
func (s *Simulation) SpawnList() *world.SpawnList                 { return s.spawns }
func (s *Simulation) Scheduler() *schedule.Scheduler              { return s.scheduler }
func (s *Simulation) Bus() *event.Bus                             { return s.bus }
func (s *Simulation) Limits() *world.Limits                       { return &s.limits }

// UsedAP returns the action points handed out since start.
func (s *Simulation) UsedAP() int64 { return s.usedAP }

// AP returns the action points of the last tick.
func (s *Simulation) AP() int { return s.ap }

func (s *Simulation) SpawnEnabled() bool       { return s.spawnEnabled }
func (s *Simulation) SetSpawnEnabled(on bool)  { s.spawnEnabled = on }
func (s *Simulation) Commands() CommandMap     { return s.commands }
func (s *Simulation) Calendar() world.Calendar { return s.cal }
func (s *Simulation) StartTime() time.Time     { return s.startTime }
func (s *Simulation) Log() *zap.Logger         { return s.log }
