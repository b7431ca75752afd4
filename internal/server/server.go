// Package server owns the listening socket, accepts connections, and
// maintains the session registry. Its Unicast and Broadcast are the
// concrete fan-out that cmd/chess-server wires into the Controller.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-session-server/internal/session"
	"github.com/park285/chess-session-server/internal/sessionid"
	"github.com/park285/chess-session-server/internal/transport"
)

const cleanupInterval = 5 * time.Second

// Dispatcher is what the Controller exposes to sessions; re-declared here
// to keep this package free of an import on the controller package.
type Dispatcher interface {
	Handle(sessionID string, line []byte) ([]byte, bool)
	Disconnected(sessionID string)
}

// Server accepts connections on one listener and maintains the session
// registry backing unicast/broadcast fan-out.
type Server struct {
	listener net.Listener
	dispatch Dispatcher
	log      *zap.Logger
	alloc    sessionid.Allocator

	mu       sync.Mutex
	sessions map[string]*session.Session

	closed    chan string
	stopOnce  sync.Once
	stopCh    chan struct{}
	unlinkPath string
}

// New wraps an already-listening net.Listener. unlinkPath is non-empty
// only for Unix-domain sockets, so Stop can remove the path.
func New(listener net.Listener, dispatch Dispatcher, log *zap.Logger, unlinkPath string) *Server {
	return &Server{
		listener:   listener,
		dispatch:   dispatch,
		log:        log,
		sessions:   make(map[string]*session.Session),
		closed:     make(chan string, 64),
		stopCh:     make(chan struct{}),
		unlinkPath: unlinkPath,
	}
}

// Unicast sends line to exactly the session with that id; silent no-op if
// absent or inactive.
func (s *Server) Unicast(sessionID string, line []byte) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.Send(line)
}

// Broadcast sends line to every active session (toAll) or to every active
// session except originSessionID.
func (s *Server) Broadcast(originSessionID string, line []byte, toAll bool) {
	s.mu.Lock()
	targets := make([]*session.Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		if !toAll && id == originSessionID {
			continue
		}
		targets = append(targets, sess)
	}
	s.mu.Unlock()

	for _, sess := range targets {
		sess.Send(line)
	}
}

// Serve runs the accept loop until Stop is called. Accept errors other
// than a closed listener are logged and the loop continues.
func (s *Server) Serve() {
	go s.cleanupLoop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}
		s.handleAccept(conn)
	}
}

func (s *Server) handleAccept(conn net.Conn) {
	id := s.alloc.Next()
	t := transport.New(conn, s.log)
	sess := session.New(id, t, s.dispatch, s.log)
	sess.SetCloseCallback(func(sessionID string) {
		select {
		case s.closed <- sessionID:
		default:
			s.log.Warn("cleanup queue full, dropping close notice", zap.String("session_id", sessionID))
		}
	})

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.log.Debug("session registered", zap.String("session_id", id))
	sess.Start()
}

func (s *Server) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.drainClosed()
		}
	}
}

func (s *Server) drainClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		select {
		case id := <-s.closed:
			delete(s.sessions, id)
		default:
			return
		}
	}
}

// Stop requests cooperative shutdown: the listener is closed (unblocking
// Accept), every registered session is closed, and the cleanup loop
// exits.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		_ = s.listener.Close()

		s.mu.Lock()
		sessions := make([]*session.Session, 0, len(s.sessions))
		for _, sess := range s.sessions {
			sessions = append(sessions, sess)
		}
		s.mu.Unlock()

		for _, sess := range sessions {
			sess.Close()
		}

		if s.unlinkPath != "" {
			_ = removeSocket(s.unlinkPath)
		}
	})
}

// WaitStopped blocks until ctx is done or Stop has completed.
func (s *Server) WaitStopped(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-s.stopCh:
	}
	// Stop runs under sync.Once, so this also waits for a Stop already in
	// progress on another goroutine to finish.
	s.Stop()
}
