package system

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"github.com/illarion/server/internal/core/event"
	"github.com/illarion/server/internal/net/packet"
	"github.com/illarion/server/internal/persist"
	"github.com/illarion/server/internal/world"
)

// loginRadius bounds the search for a free field around a stored position.
const loginRadius = 5

// LoginConn is the connection of a player that is logging in.
type LoginConn interface {
	world.Connection
	BindPlayer(p *world.Player)
	SetState(st packet.SessionState)
}

// Login is a player whose state finished loading.
type Login struct {
	Player *world.Player
	Conn   LoginConn
}

// PlayerStore loads and saves players. LoadPlayer creates unknown players
// at start.
type PlayerStore interface {
	LoadPlayer(ctx context.Context, name string, start world.Position) (*persist.PlayerState, error)
	SavePlayer(ctx context.Context, p *world.Player) error
}

type loginRequest struct {
	name string
	conn LoginConn
}

// PlayerManager moves players in and out of the world off the simulation
// goroutine: a loader goroutine reads logins from the store, and a saver
// goroutine persists players handed over by the player pass.
type PlayerManager struct {
	store  PlayerStore
	start  world.Position
	limits *world.Limits
	log    *zap.Logger

	requests chan loginRequest
	ready    chan Login

	mu      deadlock.Mutex
	logouts []*world.Player
	wake    chan struct{}

	wg sync.WaitGroup
}

func NewPlayerManager(store PlayerStore, start world.Position, limits *world.Limits, queueSize int, log *zap.Logger) *PlayerManager {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &PlayerManager{
		store:    store,
		start:    start,
		limits:   limits,
		log:      log,
		requests: make(chan loginRequest, queueSize),
		ready:    make(chan Login, queueSize),
		wake:     make(chan struct{}, 1),
	}
}

// Ready delivers loaded players to the simulation.
func (m *PlayerManager) Ready() <-chan Login { return m.ready }

// RequestLogin queues a login. It returns false when the queue is full.
func (m *PlayerManager) RequestLogin(name string, conn LoginConn) bool {
	select {
	case m.requests <- loginRequest{name: name, conn: conn}:
		return true
	default:
		return false
	}
}

// Push hands a player that left the world to the saver. It never blocks.
func (m *PlayerManager) Push(p *world.Player) {
	m.mu.Lock()
	m.logouts = append(m.logouts, p)
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// LogOutPlayers returns how many players wait to be saved.
func (m *PlayerManager) LogOutPlayers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logouts)
}

// Start runs the loader and saver until ctx is cancelled. Wait blocks until
// both stopped; the saver drains its queue first.
func (m *PlayerManager) Start(ctx context.Context) {
	m.wg.Add(2)
	go m.loginLoop(ctx)
	go m.logoutLoop(ctx)
}

func (m *PlayerManager) Wait() { m.wg.Wait() }

func (m *PlayerManager) loginLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-m.requests:
			m.load(ctx, req)
		}
	}
}

func (m *PlayerManager) load(ctx context.Context, req loginRequest) {
	lctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()
	st, err := m.store.LoadPlayer(lctx, req.name, m.start)
	if err != nil {
		m.log.Error("load player", zap.String("player", req.name), zap.Error(err))
		req.conn.ShutdownSend(packet.LogOut(packet.LogoutUnstableConnection))
		return
	}
	p := world.NewPlayer(st.ID, st.Name, st.Pos, req.conn, m.limits)
	st.ApplyTo(p)
	p.LastSaveTime = time.Now()
	select {
	case m.ready <- Login{Player: p, Conn: req.conn}:
	case <-ctx.Done():
	}
}

func (m *PlayerManager) logoutLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			m.saveLogouts()
			return
		case <-m.wake:
			m.saveLogouts()
		}
	}
}

func (m *PlayerManager) saveLogouts() {
	m.mu.Lock()
	batch := m.logouts
	m.logouts = nil
	m.mu.Unlock()

	for _, p := range batch {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		err := m.store.SavePlayer(ctx, p)
		cancel()
		if err != nil {
			m.log.Error("save on logout", zap.String("player", p.Name), zap.Error(err))
			continue
		}
		m.log.Info("player saved on logout", zap.String("player", p.Name))
	}
}

// acceptLogins moves every loaded player into the world.
func (s *Simulation) acceptLogins() {
	if s.logins == nil {
		return
	}
	for {
		select {
		case l := <-s.logins:
			s.acceptLogin(l)
		default:
			return
		}
	}
}

// SetLogins connects the channel on which loaded players arrive.
func (s *Simulation) SetLogins(ch <-chan Login) { s.logins = ch }

func (s *Simulation) acceptLogin(l Login) {
	p := l.Player
	if !l.Conn.Online() {
		return
	}
	if _, dup := s.players.Find(p.ID); dup {
		s.log.Info("double login refused", zap.String("player", p.Name))
		l.Conn.ShutdownSend(packet.LogOut(packet.LogoutDoubleLogin))
		return
	}
	pos, ok := s.freeFieldNear(p.Pos, loginRadius)
	if !ok {
		start := world.Position{X: s.cfg.StartX, Y: s.cfg.StartY, Z: s.cfg.StartZ}
		if pos, ok = s.freeFieldNear(start, loginRadius); !ok {
			s.log.Warn("no free field for login", zap.String("player", p.Name), zap.Stringer("pos", p.Pos))
			l.Conn.ShutdownSend(packet.LogOut(packet.LogoutUnstableConnection))
			return
		}
	}
	p.Pos = pos
	p.SetLimits(&s.limits)
	if !p.Alive() {
		p.HP = p.MaxHP
	}
	if !s.players.Insert(p) {
		l.Conn.ShutdownSend(packet.LogOut(packet.LogoutDoubleLogin))
		return
	}
	if f, err := s.fields.At(pos); err == nil {
		f.SetChar(p.ID)
	}
	l.Conn.BindPlayer(p)
	l.Conn.SetState(packet.StateInWorld)

	send(p, packet.LoginOK(p.ID, pos.X, pos.Y, pos.Z))
	send(p, s.igTimeFrame(s.now()))
	s.sendWorldTo(p)
	s.sendCharacterMoveToAllVisiblePlayers(&p.Char, packet.MoveNormal, 0)

	s.log.Info("login", zap.String("player", p.Name), zap.Uint32("id", p.ID), zap.Stringer("pos", pos))
	event.Emit(s.bus, event.PlayerLoggedIn{PlayerID: p.ID, Name: p.Name})
	s.updatePlayerList()
}

// RepoStore backs PlayerStore and PlayerSaver with the player repository.
type RepoStore struct {
	Repo *persist.PlayerRepo
	Now  func() time.Time
}

func (r RepoStore) LoadPlayer(ctx context.Context, name string, start world.Position) (*persist.PlayerState, error) {
	st, err := r.Repo.LoadByName(ctx, name)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, persist.ErrPlayerNotFound) {
		return nil, err
	}
	id, err := r.Repo.Create(ctx, name, start)
	if err != nil {
		return nil, err
	}
	return &persist.PlayerState{ID: id, Name: name, Pos: start}, nil
}

func (r RepoStore) SavePlayer(ctx context.Context, p *world.Player) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return r.Repo.Save(ctx, persist.StateOf(p), now())
}
