// Package diag exposes two read-only surfaces that never touch the
// session registry: a fasthttp status/health endpoint, which takes the
// coordinator's mutex only briefly through Snapshot and DisplayBoard, and
// a websocket spectator feed, which never takes it.
package diag

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chess-session-server/internal/coordinator"
	"github.com/park285/chess-session-server/internal/protocol"
)

// StatusServer answers /healthz, /status, and /board over fasthttp.
type StatusServer struct {
	coord *coordinator.Coordinator
	log   *zap.Logger
	addr  string
	srv   *fasthttp.Server
}

// NewStatusServer builds a server bound to addr; call Serve to run it.
func NewStatusServer(addr string, coord *coordinator.Coordinator, log *zap.Logger) *StatusServer {
	s := &StatusServer{coord: coord, log: log, addr: addr}
	s.srv = &fasthttp.Server{Handler: s.handle}
	return s
}

// Serve blocks until Shutdown is called.
func (s *StatusServer) Serve() error {
	return s.srv.ListenAndServe(s.addr)
}

// Shutdown gracefully stops the server.
func (s *StatusServer) Shutdown() error {
	return s.srv.Shutdown()
}

func (s *StatusServer) handle(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/healthz":
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	case "/status":
		s.writeStatus(ctx)
	case "/board":
		s.writeBoard(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *StatusServer) writeStatus(ctx *fasthttp.RequestCtx) {
	snap := s.coord.Snapshot()
	body, err := json.Marshal(map[string]any{
		"state":            snap.State,
		"white_session_id": snap.WhiteSessionID,
		"black_session_id": snap.BlackSessionID,
		"game_instance_id": snap.GameInstanceID,
		"move_count":       snap.MoveCount,
		"elapsed_seconds":  snap.ElapsedSeconds,
		"fen":              snap.FEN,
	})
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func (s *StatusServer) writeBoard(ctx *fasthttp.RequestCtx) {
	res := s.coord.DisplayBoard()
	board := res.Reply.(protocol.BoardDisplay)
	ctx.SetContentType("text/plain")
	ctx.SetBodyString(board.Board)
}
