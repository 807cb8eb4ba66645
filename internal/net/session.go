package net

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/illarion/server/internal/net/packet"
	"github.com/illarion/server/internal/world"
)

// FrameHandler receives every frame read from a session. It runs on the
// session's reader goroutine.
type FrameHandler func(s *Session, frame []byte)

type outFrame struct {
	data []byte
	last bool // close the connection once written
}

// Session is one client connection. The reader goroutine hands frames to
// the handler; the writer goroutine drains OutQueue. Session satisfies
// world.Connection.
type Session struct {
	ID   uint64
	IP   string
	conn net.Conn

	state         atomic.Int32 // packet.SessionState
	lastKeepalive atomic.Int64 // unix nanoseconds
	player        atomic.Pointer[world.Player]

	out          chan outFrame
	shutdownOnce sync.Once
	closeCh      chan struct{}
	closeOnce    sync.Once
	closed       atomic.Bool

	handler      FrameHandler
	writeTimeout time.Duration
	readTimeout  time.Duration
	now          func() time.Time

	// Per-second packet rate limiter (readLoop goroutine only, no lock needed)
	pktPerSec  int
	pktCount   int
	pktResetAt int64

	log *zap.Logger
}

// SessionOptions carries the per-session tunables.
type SessionOptions struct {
	OutQueueSize int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	PktPerSec    int // 0 = unlimited
	Now          func() time.Time
}

func NewSession(conn net.Conn, id uint64, handler FrameHandler, opts SessionOptions, log *zap.Logger) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OutQueueSize <= 0 {
		opts.OutQueueSize = 64
	}
	s := &Session{
		ID:           id,
		IP:           conn.RemoteAddr().String(),
		conn:         conn,
		out:          make(chan outFrame, opts.OutQueueSize),
		closeCh:      make(chan struct{}),
		handler:      handler,
		writeTimeout: opts.WriteTimeout,
		readTimeout:  opts.ReadTimeout,
		now:          opts.Now,
		pktPerSec:    opts.PktPerSec,
		log:          log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(packet.StateConnected))
	s.Touch()
	return s
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Player returns the character bound to this session, or nil before login.
func (s *Session) Player() *world.Player { return s.player.Load() }

func (s *Session) BindPlayer(p *world.Player) { s.player.Store(p) }

// Touch records client activity.
func (s *Session) Touch() { s.lastKeepalive.Store(s.now().UnixNano()) }

func (s *Session) LastKeepalive() time.Time { return time.Unix(0, s.lastKeepalive.Load()) }

// Online reports whether the connection is still open.
func (s *Session) Online() bool { return !s.closed.Load() }

// Send queues a frame for the writer. It never blocks: a client that cannot
// keep up is disconnected.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.out <- outFrame{data: data}:
	default:
		s.log.Warn("output queue full, dropping slow client")
		s.Close()
	}
}

// ShutdownSend queues a final frame; the connection closes once it has been
// written. Later calls are ignored.
func (s *Session) ShutdownSend(data []byte) {
	s.shutdownOnce.Do(func() {
		if s.closed.Load() {
			return
		}
		s.SetState(packet.StateDisconnecting)
		select {
		case s.out <- outFrame{data: data, last: true}:
		default:
			s.Close()
		}
	})
}

// Close shuts the connection down immediately.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
	})
}

// Done is closed when the session has shut down.
func (s *Session) Done() <-chan struct{} { return s.closeCh }

func (s *Session) readLoop() {
	defer s.Close()

	for {
		if s.readTimeout > 0 {
			s.conn.SetReadDeadline(s.now().Add(s.readTimeout))
		}
		payload, err := ReadFrame(s.conn)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		s.Touch()

		if s.pktPerSec > 0 {
			now := s.now().Unix()
			if now != s.pktResetAt {
				s.pktCount = 0
				s.pktResetAt = now
			}
			s.pktCount++
			if s.pktCount > s.pktPerSec {
				s.log.Warn("packet rate exceeded, disconnecting", zap.Int("pps", s.pktCount))
				return
			}
		}

		s.handler(s, payload)

		select {
		case <-s.closeCh:
			return
		default:
		}
	}
}

func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case f := <-s.out:
			if s.writeTimeout > 0 {
				s.conn.SetWriteDeadline(s.now().Add(s.writeTimeout))
			}
			if err := WriteFrame(s.conn, f.data); err != nil {
				if !s.closed.Load() {
					s.log.Debug("write error", zap.Error(err))
				}
				return
			}
			if f.last {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
