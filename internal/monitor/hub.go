package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// LoginMsg is the first message an operator must send.
type LoginMsg struct {
	Type     string `json:"type"` // "LOGIN"
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Snapshot is the periodic status pushed to every operator.
type Snapshot struct {
	Type     string    `json:"type"` // "STATUS"
	Time     time.Time `json:"time"`
	Players  int       `json:"players"`
	Monsters int       `json:"monsters"`
	NPCs     int       `json:"npcs"`
	UsedAP   int64     `json:"used_ap"`
	IGTime   string    `json:"ig_time"`
	Logins   uint64    `json:"logins"`
	Logouts  uint64    `json:"logouts"`
	Spawned  uint64    `json:"monsters_spawned"`
	Died     uint64    `json:"monsters_died"`
}

// PlayerList is pushed when the set of online players changes.
type PlayerList struct {
	Type   string   `json:"type"` // "PLAYERS"
	Online []string `json:"online"`
}

type client struct {
	id   uint64
	name string
	conn *websocket.Conn
	out  chan []byte
	ping chan struct{}
	dead atomic.Bool
}

// Hub serves the operator WebSocket endpoint. Operators authenticate with a
// name and password checked against bcrypt hashes.
type Hub struct {
	operators    map[string][]byte
	writeTimeout time.Duration
	log          *zap.Logger
	upgrader     websocket.Upgrader
	nextID       atomic.Uint64

	mu      deadlock.Mutex
	clients map[uint64]*client
	srv     *http.Server
	closed  bool
}

func NewHub(operators map[string]string, writeTimeout time.Duration, log *zap.Logger) *Hub {
	ops := make(map[string][]byte, len(operators))
	for name, hash := range operators {
		ops[name] = []byte(hash)
	}
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	return &Hub{
		operators:    ops,
		writeTimeout: writeTimeout,
		log:          log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		clients: make(map[uint64]*client),
	}
}

func (h *Hub) authenticate(name, password string) bool {
	hash, ok := h.operators[name]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// Handler upgrades the connection and runs one operator session.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var login LoginMsg
		if err := json.Unmarshal(msg, &login); err != nil || login.Type != "LOGIN" {
			closeWith(conn, websocket.ClosePolicyViolation, "expected LOGIN")
			return
		}
		if !h.authenticate(login.Name, login.Password) {
			h.log.Warn("monitor login rejected", zap.String("name", login.Name), zap.String("ip", r.RemoteAddr))
			closeWith(conn, websocket.ClosePolicyViolation, "access denied")
			return
		}

		c := &client{
			id:   h.nextID.Add(1),
			name: login.Name,
			conn: conn,
			out:  make(chan []byte, 16),
			ping: make(chan struct{}, 1),
		}
		h.mu.Lock()
		h.clients[c.id] = c
		h.mu.Unlock()
		h.log.Info("monitor client connected", zap.String("name", c.name), zap.String("ip", r.RemoteAddr))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		writeErr := make(chan error, 1)
		go func() { writeErr <- h.writeLoop(ctx, c) }()

		// Operators only send close frames; reading keeps pongs flowing.
		_ = conn.SetReadDeadline(time.Time{})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		c.dead.Store(true)
		cancel()
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		h.log.Info("monitor client disconnected", zap.String("name", c.name))
	}
}

// writeLoop owns every write on c.conn after login, pings included, so a
// stalled operator only ever blocks its own goroutine.
func (h *Hub) writeLoop(ctx context.Context, c *client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ping:
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				c.dead.Store(true)
				return err
			}
		case b := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.dead.Store(true)
				return err
			}
		}
	}
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

// Clients returns the number of registered operator connections.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CheckClients queues a ping and snap for every operator and drops the ones
// that are gone or cannot keep up. It never writes to a socket itself and
// returns the number of survivors.
func (h *Hub) CheckClients(snap Snapshot) int {
	snap.Type = "STATUS"
	b, err := json.Marshal(snap)
	if err != nil {
		h.log.Error("encode monitor snapshot", zap.Error(err))
		return h.Clients()
	}

	var dropped []*client
	h.mu.Lock()
	for id, c := range h.clients {
		if !c.dead.Load() {
			select {
			case c.ping <- struct{}{}:
			default:
				// previous ping still unsent
			}
			select {
			case c.out <- b:
			default:
				c.dead.Store(true)
			}
		}
		if c.dead.Load() {
			delete(h.clients, id)
			dropped = append(dropped, c)
		}
	}
	n := len(h.clients)
	h.mu.Unlock()

	for _, c := range dropped {
		c.conn.Close()
		h.log.Info("monitor client dropped", zap.String("name", c.name))
	}
	return n
}

// Broadcast pushes v as JSON to every live operator without waiting.
func (h *Hub) Broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Error("encode monitor message", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		if c.dead.Load() {
			continue
		}
		select {
		case c.out <- b:
		default:
		}
	}
}

// PlayersChanged pushes the sorted online list.
func (h *Hub) PlayersChanged(online []string) {
	names := append([]string(nil), online...)
	sort.Strings(names)
	h.Broadcast(PlayerList{Type: "PLAYERS", Online: names})
}

// Serve listens on addr until Shutdown.
func (h *Hub) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/monitor", h.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.srv = srv
	h.mu.Unlock()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown closes every operator session and stops Serve. A later Serve
// call returns immediately.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	srv := h.srv
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		closeWith(conn, websocket.CloseGoingAway, "server shutdown")
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
