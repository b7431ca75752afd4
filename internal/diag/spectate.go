package diag

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// SpectatorHub fans out raw wire lines to every connected spectator
// socket. It never allocates a SessionID and never touches the session
// registry or coordinator mutex; Publish is called by whatever already
// holds a fan-out line, after that line has left the coordinator lock.
type SpectatorHub struct {
	log *zap.Logger

	mu   sync.Mutex
	next int
	subs map[int]*websocket.Conn
}

// NewSpectatorHub constructs an empty hub.
func NewSpectatorHub(log *zap.Logger) *SpectatorHub {
	return &SpectatorHub{log: log, subs: make(map[int]*websocket.Conn)}
}

// Publish writes line to every currently connected spectator. A spectator
// whose write fails is dropped from the hub.
func (h *SpectatorHub) Publish(line []byte) {
	h.mu.Lock()
	targets := make(map[int]*websocket.Conn, len(h.subs))
	for id, c := range h.subs {
		targets[id] = c
	}
	h.mu.Unlock()

	for id, conn := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := conn.Write(ctx, websocket.MessageText, line)
		cancel()
		if err != nil {
			h.remove(id)
		}
	}
}

func (h *SpectatorHub) add(conn *websocket.Conn) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.subs[id] = conn
	return id
}

func (h *SpectatorHub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// ServeHTTP upgrades the request to a websocket and holds it open until
// the peer disconnects. The connection is read-only from the spectator's
// perspective: inbound frames are drained and discarded.
func (h *SpectatorHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Debug("spectator upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "spectate closed")

	id := h.add(conn)
	defer h.remove(id)

	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// SpectateServer wraps a SpectatorHub with its own HTTP listener, kept
// independent of the diagnostics status server and the player-facing
// listener.
type SpectateServer struct {
	hub  *SpectatorHub
	addr string
	srv  *http.Server
}

// NewSpectateServer builds a server for addr, serving the hub at
// /spectate; Serve binds the address.
func NewSpectateServer(addr string, hub *SpectatorHub) *SpectateServer {
	mux := http.NewServeMux()
	mux.Handle("/spectate", hub)
	return &SpectateServer{hub: hub, addr: addr, srv: &http.Server{Addr: addr, Handler: mux}}
}

// Serve blocks until Shutdown is called.
func (s *SpectateServer) Serve() error {
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *SpectateServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
