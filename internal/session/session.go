// Package session frames one connected client's byte stream into
// newline-delimited messages and forwards each complete message to the
// shared Controller.
package session

import (
	"bytes"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/park285/chess-session-server/internal/protocol"
	"github.com/park285/chess-session-server/internal/transport"
)

// Dispatcher is the subset of the Controller a Session needs: handling one
// framed line and producing the reply to unicast back to this session.
type Dispatcher interface {
	Handle(sessionID string, line []byte) (reply []byte, ok bool)
	Disconnected(sessionID string)
}

// Session owns one Transport and the per-connection framing buffer.
type Session struct {
	id        string
	transport *transport.Transport
	dispatch  Dispatcher
	log       *zap.Logger

	active  atomic.Bool
	buf     bytes.Buffer
	closeCb func(sessionID string)
}

// New constructs a Session around an already-wrapped Transport. Start must
// be called to begin delivering traffic.
func New(id string, t *transport.Transport, dispatch Dispatcher, log *zap.Logger) *Session {
	return &Session{id: id, transport: t, dispatch: dispatch, log: log.With(zap.String("session_id", id))}
}

// ID returns the session's immutable identifier.
func (s *Session) ID() string { return s.id }

// Send hands a pre-framed line (already newline-terminated) to this
// session's Transport. Silent no-op if the session is not active.
func (s *Session) Send(line []byte) {
	if !s.active.Load() {
		return
	}
	s.transport.Send(line)
}

// SetCloseCallback registers the hook the Server uses to learn a session
// has gone inactive, for the registry's cleanup sweep.
func (s *Session) SetCloseCallback(cb func(sessionID string)) {
	s.closeCb = cb
}

// Start is idempotent: installs the Transport's callbacks and emits the
// mandatory session_created handshake as the first outbound line.
func (s *Session) Start() {
	if s.active.Swap(true) {
		return
	}
	s.transport.SetCloseCallback(s.onTransportClosed)
	// The handshake goes out before the receive loop starts, so no reply to
	// an early client line can precede it.
	s.sendHandshake()
	s.transport.Start(s.onPayload)
}

func (s *Session) sendHandshake() {
	body, err := protocol.MarshalLine(protocol.NewSessionCreated(s.id))
	if err != nil {
		s.log.Error("marshal handshake", zap.Error(err))
		return
	}
	s.transport.Send(body)
}

// onPayload appends raw bytes to the framing buffer and delivers every
// complete newline-terminated line to the Dispatcher, in arrival order.
func (s *Session) onPayload(payload []byte) {
	s.buf.Write(payload)
	for {
		data := s.buf.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := make([]byte, idx)
		copy(line, data[:idx])
		s.buf.Next(idx + 1)

		if !s.active.Load() {
			return
		}
		reply, ok := s.dispatch.Handle(s.id, line)
		if ok {
			s.transport.Send(reply)
		}
	}
}

func (s *Session) onTransportClosed() {
	s.Close()
}

// Close is idempotent. No message delivered to the Dispatcher after Close
// returns.
func (s *Session) Close() {
	if !s.active.Swap(false) {
		return
	}
	s.transport.Close()
	s.dispatch.Disconnected(s.id)
	if s.closeCb != nil {
		s.closeCb(s.id)
	}
}
