// Package coordinator owns the single shared chess game: the player-slot
// registry, the state machine, and the only mutex guarding both. There is
// exactly one Coordinator per server process.
package coordinator

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/park285/chess-session-server/internal/notation"
	"github.com/park285/chess-session-server/internal/rules"
)

// State is the coordinator's game-lifecycle tag.
type State string

const (
	WaitingForPlayers State = "waiting_for_players"
	ReadyToStart      State = "ready_to_start"
	InProgress        State = "in_progress"
	GameOver          State = "game_over"
)

// Slot is one of the two seats at the board.
type Slot string

const (
	White Slot = "white"
	Black Slot = "black"
)

// Broadcast describes a fan-out the caller must perform once the
// coordinator lock has been released. ToAll selects broadcastAll over
// broadcastExcept(OriginSessionID).
type Broadcast struct {
	ToAll           bool
	OriginSessionID string
	Payload         any
}

// Result is what every coordinator operation returns: a reply destined
// for the caller's own session, and zero or more broadcasts to fan out
// after the lock is released.
type Result struct {
	Reply      any
	Broadcasts []Broadcast
}

// StateError reports an event illegal in the coordinator's current state.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string { return e.Reason }

// AuditRecord is handed to the audit sink once a game concludes.
type AuditRecord struct {
	GameInstanceID  string
	WhiteSessionID  string
	BlackSessionID  string
	MovesSAN        []string
	FinalFEN        string
	Outcome         string
	Reason          string
	StartedAt       time.Time
	EndedAt         time.Time
}

// AuditSink receives one AuditRecord per concluded game. Implementations
// must not block the coordinator; Record is always called outside the
// coordinator's mutex.
type AuditSink interface {
	Record(rec AuditRecord)
}

type noopAuditSink struct{}

func (noopAuditSink) Record(AuditRecord) {}

// Renderer renders a named message-catalog template to text, matching
// msgcat.Catalog.Render's signature. Declared here as a small interface so
// the coordinator can render user-facing copy without importing msgcat.
type Renderer interface {
	Render(key string, data any) (string, error)
}

type noopRenderer struct{}

func (noopRenderer) Render(key string, _ any) (string, error) {
	return "", fmt.Errorf("no renderer configured")
}

// Coordinator is the singleton game owner. The zero value is not usable;
// use New.
type Coordinator struct {
	mu sync.Mutex

	state  State
	slots  map[Slot]string
	engine *rules.Engine

	gameInstanceID string
	startedAt      time.Time
	moveLog        []string

	audit   AuditSink
	catalog Renderer
}

// New returns a Coordinator in WaitingForPlayers with both slots empty and
// the rules engine reset. sink may be nil, in which case audit records are
// discarded. catalog may be nil, in which case rendering falls back to a
// fixed English message per key.
func New(sink AuditSink, catalog Renderer) *Coordinator {
	if sink == nil {
		sink = noopAuditSink{}
	}
	if catalog == nil {
		catalog = noopRenderer{}
	}
	return &Coordinator{
		state:   WaitingForPlayers,
		slots:   make(map[Slot]string),
		engine:  rules.New(),
		audit:   sink,
		catalog: catalog,
	}
}

// render looks up key in the catalog, falling back to fallback text if the
// catalog has no entry (unconfigured renderer, or a key genuinely missing).
func (c *Coordinator) render(key, fallback string) string {
	text, err := c.catalog.Render(key, nil)
	if err != nil {
		return fallback
	}
	return text
}

func (c *Coordinator) renderf(key string, data map[string]any, fallback string) string {
	text, err := c.catalog.Render(key, data)
	if err != nil {
		return fallback
	}
	return text
}

// State reports the current lifecycle tag. Used by tests and diagnostics;
// callers must not rely on it remaining stable without holding no lock of
// their own across subsequent calls.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// JoinGame seats sessionID at color, or both slots in single-player mode.
func (c *Coordinator) JoinGame(sessionID string, singlePlayer bool, color string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if singlePlayer {
		c.slots[White] = sessionID
		c.slots[Black] = sessionID
		return c.afterJoin(sessionID, White, true)
	}

	slot, ok := parseSlot(color)
	if !ok {
		return Result{Reply: rejectionReply(c.render("errors.invalid_color", `color must be "white" or "black"`))}
	}

	occupant, occupied := c.slots[slot]
	if occupied && occupant != sessionID {
		msg := c.renderf("errors.slot_taken", map[string]any{"Color": color}, fmt.Sprintf("%s is already taken", color))
		return Result{Reply: rejectionReply(msg)}
	}

	c.slots[slot] = sessionID
	return c.afterJoin(sessionID, slot, false)
}

func (c *Coordinator) afterJoin(sessionID string, slot Slot, singlePlayer bool) Result {
	res := Result{Reply: joinSuccessReply(sessionID, string(slot), singlePlayer, c.state)}

	if c.state == WaitingForPlayers {
		if !singlePlayer {
			res.Broadcasts = append(res.Broadcasts, Broadcast{
				OriginSessionID: sessionID,
				Payload:         playerJoinedReply(sessionID, string(slot)),
			})
		}
		if c.bothSlotsOccupied() {
			c.state = ReadyToStart
			res.Broadcasts = append(res.Broadcasts, Broadcast{ToAll: true, Payload: gameReadyReply()})
		}
	}
	return res
}

func (c *Coordinator) bothSlotsOccupied() bool {
	w, wok := c.slots[White]
	b, bok := c.slots[Black]
	return wok && bok && w != "" && b != ""
}

// StartGame transitions ReadyToStart to InProgress if requester occupies
// a slot.
func (c *Coordinator) StartGame(sessionID string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ReadyToStart {
		return Result{Reply: stateViolationReply(c.render("errors.state_not_ready", "game is not ready to start"))}
	}
	if !c.occupiesSlot(sessionID) {
		return Result{Reply: stateViolationReply(c.render("errors.state_not_seated_start", "only a seated player may start the game"))}
	}

	c.engine.Reset()
	c.state = InProgress
	c.gameInstanceID = uuid.NewString()
	c.startedAt = time.Now()
	c.moveLog = nil

	return Result{
		Reply:      gameStartedReply(),
		Broadcasts: []Broadcast{{ToAll: true, Payload: gameStartedReply()}},
	}
}

func (c *Coordinator) occupiesSlot(sessionID string) bool {
	return c.slots[White] == sessionID || c.slots[Black] == sessionID
}

// MakeMove applies one move on behalf of sessionID.
func (c *Coordinator) MakeMove(sessionID string, move notation.ParsedMove) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.makeMoveLocked(sessionID, move)
}

func (c *Coordinator) makeMoveLocked(sessionID string, move notation.ParsedMove) Result {
	if c.state != InProgress {
		return Result{Reply: stateViolationReply(c.render("errors.state_not_in_progress", "no game in progress"))}
	}
	if !c.occupiesSlot(sessionID) {
		return Result{Reply: stateViolationReply(c.render("errors.state_not_seated_move", "only a seated player may move"))}
	}

	strike, err := c.engine.Apply(move)
	if err != nil {
		return Result{Reply: illegalMoveReply(c.render("errors.illegal_move", "illegal move"), err)}
	}

	c.moveLog = append(c.moveLog, fmt.Sprintf("%s%s", strike.Src, strike.Dst))
	reply := moveResultReply(strike, c.engine.FEN())

	res := Result{
		Reply:      reply,
		Broadcasts: []Broadcast{{OriginSessionID: sessionID, Payload: reply}},
	}

	if strike.Checkmate || strike.Stalemate {
		outcome := "draw"
		if strike.Checkmate {
			if strike.Color == rules.White {
				outcome = "white_wins"
			} else {
				outcome = "black_wins"
			}
		}
		over := gameOverReply(outcome)
		res.Broadcasts = append(res.Broadcasts, Broadcast{ToAll: true, Payload: over})
		c.concludeLocked(outcome, "normal")
	}

	return res
}

// DisplayBoard returns the formatted board for the current position.
func (c *Coordinator) DisplayBoard() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Result{Reply: boardDisplayReply(c.engine.FormattedBoard(), c.engine.FEN())}
}

// EndGame resets the coordinator to WaitingForPlayers by explicit request.
func (c *Coordinator) EndGame(sessionID string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == InProgress {
		c.concludeLocked("aborted", "end_game")
	}
	c.resetLocked()
	return Result{
		Reply:      gameResetReply("end_game"),
		Broadcasts: []Broadcast{{OriginSessionID: sessionID, Payload: gameResetReply("end_game")}},
	}
}

// Disconnected handles a session going away. If the session held either
// slot, the game resets and a game_reset broadcast fires to everyone
// else. A non-seated disconnect is a no-op on the state machine.
func (c *Coordinator) Disconnected(sessionID string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.occupiesSlot(sessionID) {
		return Result{}
	}

	if c.state == InProgress {
		c.concludeLocked("aborted", "all_players_disconnected")
	}
	c.resetLocked()

	return Result{
		Broadcasts: []Broadcast{{ToAll: true, Payload: gameResetReply("all_players_disconnected")}},
	}
}

func (c *Coordinator) resetLocked() {
	c.slots = make(map[Slot]string)
	c.engine.Reset()
	c.state = WaitingForPlayers
	c.gameInstanceID = ""
	c.moveLog = nil
}

// concludeLocked builds the audit record for the just-finished game and
// moves the state to GameOver. Must be called with the lock held; Record
// runs on its own goroutine, which never takes the coordinator's mutex.
func (c *Coordinator) concludeLocked(outcome, reason string) {
	if c.gameInstanceID == "" {
		return
	}
	rec := AuditRecord{
		GameInstanceID: c.gameInstanceID,
		WhiteSessionID: c.slots[White],
		BlackSessionID: c.slots[Black],
		MovesSAN:       append([]string(nil), c.moveLog...),
		FinalFEN:       c.engine.FEN(),
		Outcome:        outcome,
		Reason:         reason,
		StartedAt:      c.startedAt,
		EndedAt:        time.Now(),
	}
	c.state = GameOver
	go c.audit.Record(rec)
}

// Snapshot is a point-in-time, lock-free copy of coordinator substate for
// diagnostics. It is never used to drive a state transition.
type Snapshot struct {
	State          State
	WhiteSessionID string
	BlackSessionID string
	GameInstanceID string
	MoveCount      int
	ElapsedSeconds int
	FEN            string
}

// Snapshot reports the fields the diagnostics status endpoint needs in one
// locked read.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	elapsed := 0
	if !c.startedAt.IsZero() {
		elapsed = int(time.Since(c.startedAt).Seconds())
	}
	return Snapshot{
		State:          c.state,
		WhiteSessionID: c.slots[White],
		BlackSessionID: c.slots[Black],
		GameInstanceID: c.gameInstanceID,
		MoveCount:      len(c.moveLog),
		ElapsedSeconds: elapsed,
		FEN:            c.engine.FEN(),
	}
}

func parseSlot(color string) (Slot, bool) {
	switch color {
	case "white":
		return White, true
	case "black":
		return Black, true
	default:
		return "", false
	}
}
