// Package controller parses inbound envelopes, dispatches to the
// GameCoordinator, and assembles replies. It is shared by every Session
// and never depends on the Server type; fan-out is reached only through
// callbacks injected at startup.
package controller

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/chess-session-server/internal/coordinator"
	"github.com/park285/chess-session-server/internal/msgcat"
	"github.com/park285/chess-session-server/internal/notation"
	"github.com/park285/chess-session-server/internal/protocol"
)

// UnicastFunc delivers line to exactly the session with that id.
type UnicastFunc func(sessionID string, line []byte)

// BroadcastFunc delivers line to every active session (toAll) or to every
// active session except originSessionID.
type BroadcastFunc func(originSessionID string, line []byte, toAll bool)

// PaceFunc sleeps the replay pacing interval between emitted move_result
// lines. Injected so tests can run replay without the real delay.
type PaceFunc func()

// Controller is the singleton shared by every Session.
type Controller struct {
	coord    *coordinator.Coordinator
	parser   notation.Parser
	catalog  *msgcat.Catalog
	log      *zap.Logger

	unicast   UnicastFunc
	broadcast BroadcastFunc
	pace      PaceFunc

	uploads *uploadRegistry
}

// New constructs a Controller. SetFanout must be called before traffic
// arrives; cmd/chess-server does this once at startup, passing the Server's
// Unicast and Broadcast.
func New(coord *coordinator.Coordinator, parser notation.Parser, catalog *msgcat.Catalog, pace PaceFunc, log *zap.Logger) *Controller {
	return &Controller{
		coord:   coord,
		parser:  parser,
		catalog: catalog,
		pace:    pace,
		log:     log,
		uploads: newUploadRegistry(),
	}
}

// SetFanout injects the Server's unicast/broadcast primitives.
func (c *Controller) SetFanout(unicast UnicastFunc, broadcast BroadcastFunc) {
	c.unicast = unicast
	c.broadcast = broadcast
}

// Handle parses and dispatches one framed inbound line. ok is false only
// when the reply has already been streamed via the unicast callback (the
// final chunk of an upload_game).
func (c *Controller) Handle(sessionID string, line []byte) (reply []byte, ok bool) {
	var env protocol.Inbound
	if err := json.Unmarshal(line, &env); err != nil || env.Command == "" {
		return c.errorLine(c.render("errors.malformed_envelope", nil), err)
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("controller panic", zap.Any("recover", r), zap.String("session_id", sessionID))
			reply, ok = mustErrorLine(c.render("errors.internal", nil))
		}
	}()

	switch env.Command {
	case "join_game":
		return c.handleJoin(sessionID, env)
	case "start_game":
		return c.handleResult(sessionID, c.coord.StartGame(sessionID))
	case "make_move":
		return c.handleMakeMove(sessionID, env)
	case "end_game":
		return c.handleResult(sessionID, c.coord.EndGame(sessionID))
	case "display_board":
		return c.handleResult(sessionID, c.coord.DisplayBoard())
	case "upload_game":
		return c.handleUpload(sessionID, env)
	default:
		return mustErrorLine(c.renderf("errors.unknown_command", map[string]any{"Command": env.Command}))
	}
}

// Disconnected routes a session teardown to the coordinator, resetting
// the game and broadcasting game_reset if the departing session was
// seated. It also discards any in-flight upload accumulator.
func (c *Controller) Disconnected(sessionID string) {
	c.uploads.dropSession(sessionID)
	res := c.coord.Disconnected(sessionID)
	c.fanOut(sessionID, res.Broadcasts)
}

func (c *Controller) handleJoin(sessionID string, env protocol.Inbound) ([]byte, bool) {
	singlePlayer := env.SinglePlayer != nil && *env.SinglePlayer
	if !singlePlayer && env.Color == "" {
		return mustErrorLine(c.renderf("errors.invalid_field", map[string]any{"Field": "color"}))
	}
	return c.handleResult(sessionID, c.coord.JoinGame(sessionID, singlePlayer, env.Color))
}

func (c *Controller) handleMakeMove(sessionID string, env protocol.Inbound) ([]byte, bool) {
	if env.Move == "" {
		return mustErrorLine(c.renderf("errors.invalid_field", map[string]any{"Field": "move"}))
	}
	move, err := c.parser.ParseMove(env.Move)
	if err != nil {
		return mustErrorLine(c.render("errors.parse_move_failed", nil))
	}
	return c.handleResult(sessionID, c.coord.MakeMove(sessionID, move))
}

func (c *Controller) handleResult(sessionID string, res coordinator.Result) ([]byte, bool) {
	c.fanOut(sessionID, res.Broadcasts)
	body, err := protocol.MarshalLine(res.Reply)
	if err != nil {
		return mustErrorLine(c.render("errors.internal", nil))
	}
	return body, true
}

func (c *Controller) fanOut(sessionID string, broadcasts []coordinator.Broadcast) {
	if c.broadcast == nil {
		return
	}
	for _, b := range broadcasts {
		line, err := protocol.MarshalLine(b.Payload)
		if err != nil {
			c.log.Error("marshal broadcast", zap.Error(err))
			continue
		}
		origin := b.OriginSessionID
		if origin == "" {
			origin = sessionID
		}
		c.broadcast(origin, line, b.ToAll)
	}
}

func (c *Controller) render(key string, data any) string {
	text, err := c.catalog.Render(key, data)
	if err != nil {
		c.log.Error("render catalog message", zap.String("key", key), zap.Error(err))
		return "Internal server error"
	}
	return text
}

func (c *Controller) renderf(key string, data map[string]any) string {
	return c.render(key, data)
}

func (c *Controller) errorLine(message string, parseErr error) ([]byte, bool) {
	e := protocol.NewError(message)
	if parseErr != nil {
		e.Details = parseErr.Error()
	}
	body, err := protocol.MarshalLine(e)
	if err != nil {
		return []byte(fmt.Sprintf(`{"type":"error","error":%q}`+"\n", message)), true
	}
	return body, true
}

func mustErrorLine(message string) ([]byte, bool) {
	body, err := protocol.MarshalLine(protocol.NewError(message))
	if err != nil {
		return []byte(fmt.Sprintf(`{"type":"error","error":%q}`+"\n", message)), true
	}
	return body, true
}
