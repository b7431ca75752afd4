// Package transport provides framed-byte I/O over one accepted stream
// socket (TCP or Unix-domain), matching the ITransport contract: a
// start/onPayload receive loop, best-effort send, idempotent close, and a
// one-shot close notification.
package transport

import (
	"io"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// PayloadFunc receives one chunk of bytes exactly as it arrived off the
// wire; no message framing is implied at this layer.
type PayloadFunc func(payload []byte)

// CloseFunc is invoked at most once, when the peer closes the connection
// or a read error occurs.
type CloseFunc func()

// Transport wraps one net.Conn. The zero value is not usable; use New.
type Transport struct {
	conn   net.Conn
	log    *zap.Logger
	running atomic.Bool
	started atomic.Bool
	closed  atomic.Bool

	closeMu  sync.Mutex
	closeCb  CloseFunc
	closedCb atomic.Bool

	writeMu sync.Mutex
}

// New wraps an already-accepted connection. The connection is not yet
// reading; call Start to begin the receive loop.
func New(conn net.Conn, log *zap.Logger) *Transport {
	t := &Transport{conn: conn, log: log}
	t.running.Store(true)
	return t
}

// Start begins the receive loop in its own goroutine. Calling Start more
// than once is a no-op.
func (t *Transport) Start(onPayload PayloadFunc) {
	if t.started.Swap(true) {
		return
	}
	go t.receiveLoop(onPayload)
}

func (t *Transport) receiveLoop(onPayload PayloadFunc) {
	buf := make([]byte, 4096)
	for t.running.Load() {
		n, err := t.conn.Read(buf)
		if n > 0 {
			payload := make([]byte, n)
			copy(payload, buf[:n])
			onPayload(payload)
		}
		if err != nil {
			if err != io.EOF {
				t.log.Debug("transport read error", zap.Error(err))
			}
			t.running.Store(false)
			t.fireCloseCallback()
			return
		}
	}
}

// Send is an atomic best-effort write. It never blocks the caller beyond
// the underlying socket write, and never panics on a closed transport.
func (t *Transport) Send(data []byte) {
	if !t.running.Load() {
		return
	}
	t.writeMu.Lock()
	_, err := t.conn.Write(data)
	t.writeMu.Unlock()
	if err != nil {
		t.log.Debug("transport write error", zap.Error(err))
		t.running.Store(false)
	}
}

// Close idempotently shuts down both directions and closes the socket.
// running is already false on the ordinary receiveLoop/Send error paths by
// the time Close runs, so closed-ness is tracked separately to guarantee
// the descriptor is still closed exactly once.
func (t *Transport) Close() {
	t.running.Store(false)
	if t.closed.Swap(true) {
		return
	}
	_ = t.conn.Close()
}

// SetCloseCallback registers the one-shot peer-disconnect notification.
func (t *Transport) SetCloseCallback(cb CloseFunc) {
	t.closeMu.Lock()
	t.closeCb = cb
	t.closeMu.Unlock()
}

func (t *Transport) fireCloseCallback() {
	if t.closedCb.Swap(true) {
		return
	}
	t.closeMu.Lock()
	cb := t.closeCb
	t.closeMu.Unlock()
	if cb != nil {
		cb()
	}
}
