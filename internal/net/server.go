package net

import (
	"net"
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// Server accepts TCP connections and starts a Session for each.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	handler  FrameHandler
	opts     SessionOptions
	log      *zap.Logger
	closeCh  chan struct{}

	mu       deadlock.Mutex
	sessions map[uint64]*Session
}

func NewServer(bindAddr string, handler FrameHandler, opts SessionOptions, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		handler:  handler,
		opts:     opts,
		log:      log,
		closeCh:  make(chan struct{}),
		sessions: make(map[uint64]*Session),
	}, nil
}

// AcceptLoop runs in its own goroutine until Shutdown.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.handler, s.opts, s.log)
		s.mu.Lock()
		s.sessions[id] = sess
		s.mu.Unlock()
		go func() {
			<-sess.Done()
			s.mu.Lock()
			delete(s.sessions, id)
			s.mu.Unlock()
		}()
		sess.Start()

		s.log.Info("client connected", zap.Uint64("session", id), zap.String("ip", sess.IP))
	}
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops accepting and sends final to every open session.
func (s *Server) Shutdown(final []byte) {
	close(s.closeCh)
	s.listener.Close()
	s.mu.Lock()
	open := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()
	for _, sess := range open {
		if final != nil {
			sess.ShutdownSend(final)
		} else {
			sess.Close()
		}
	}
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
