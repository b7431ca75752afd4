package controller

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/park285/chess-session-server/internal/coordinator"
	"github.com/park285/chess-session-server/internal/msgcat"
	"github.com/park285/chess-session-server/internal/notation"
)

type fanoutRecorder struct {
	mu         sync.Mutex
	unicasts   []string
	broadcasts []broadcastCall
}

type broadcastCall struct {
	origin string
	line   string
	toAll  bool
}

func (f *fanoutRecorder) unicast(sessionID string, line []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unicasts = append(f.unicasts, string(line))
}

func (f *fanoutRecorder) broadcast(origin string, line []byte, toAll bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, broadcastCall{origin, string(line), toAll})
}

func newTestController(t *testing.T) (*Controller, *fanoutRecorder) {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	parser, err := notation.New("simple")
	if err != nil {
		t.Fatalf("notation.New: %v", err)
	}
	coord := coordinator.New(nil, cat)
	ctrl := New(coord, parser, cat, func() {}, zap.NewNop())
	rec := &fanoutRecorder{}
	ctrl.SetFanout(rec.unicast, rec.broadcast)
	return ctrl, rec
}

func line(v map[string]any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func TestHandleMalformedEnvelope(t *testing.T) {
	ctrl, _ := newTestController(t)
	reply, ok := ctrl.Handle("s1", []byte("not json"))
	if !ok {
		t.Fatal("malformed envelope should produce exactly one reply")
	}
	if !strings.Contains(string(reply), `"type":"error"`) {
		t.Errorf("reply = %s, want an error envelope", reply)
	}
}

func TestHandleUnknownCommand(t *testing.T) {
	ctrl, _ := newTestController(t)
	reply, ok := ctrl.Handle("s1", line(map[string]any{"command": "fly_to_the_moon"}))
	if !ok {
		t.Fatal("unknown command should produce exactly one reply")
	}
	if !strings.Contains(string(reply), `"type":"error"`) {
		t.Errorf("reply = %s, want an error envelope", reply)
	}
}

func TestHandleJoinGameThenStartThenMove(t *testing.T) {
	ctrl, rec := newTestController(t)

	reply, ok := ctrl.Handle("s1", line(map[string]any{"command": "join_game", "single_player": false, "color": "white"}))
	if !ok || !strings.Contains(string(reply), `"join_success"`) {
		t.Fatalf("join reply = %s, ok=%v", reply, ok)
	}

	reply, ok = ctrl.Handle("s2", line(map[string]any{"command": "join_game", "single_player": false, "color": "black"}))
	if !ok || !strings.Contains(string(reply), `"join_success"`) {
		t.Fatalf("join reply = %s, ok=%v", reply, ok)
	}

	reply, ok = ctrl.Handle("s1", line(map[string]any{"command": "start_game"}))
	if !ok || !strings.Contains(string(reply), `"game_started"`) {
		t.Fatalf("start reply = %s, ok=%v", reply, ok)
	}

	reply, ok = ctrl.Handle("s1", line(map[string]any{"command": "make_move", "move": "e2-e4"}))
	if !ok || !strings.Contains(string(reply), `"move_result"`) {
		t.Fatalf("move reply = %s, ok=%v", reply, ok)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.broadcasts) == 0 {
		t.Error("expected at least one broadcast during join/start/move sequence")
	}
}

func TestHandleMakeMoveMissingFieldIsInvalidField(t *testing.T) {
	ctrl, _ := newTestController(t)
	reply, ok := ctrl.Handle("s1", line(map[string]any{"command": "make_move"}))
	if !ok {
		t.Fatal("expected exactly one reply")
	}
	if !strings.Contains(string(reply), `"type":"error"`) {
		t.Errorf("reply = %s, want an error envelope", reply)
	}
}

func TestHandleDisplayBoardBeforeGameStillReplies(t *testing.T) {
	ctrl, _ := newTestController(t)
	reply, ok := ctrl.Handle("s1", line(map[string]any{"command": "display_board"}))
	if !ok {
		t.Fatal("display_board should always produce exactly one reply")
	}
	if !strings.Contains(string(reply), `"board_display"`) {
		t.Errorf("reply = %s, want board_display", reply)
	}
}

func TestDisconnectedRoutesToCoordinator(t *testing.T) {
	ctrl, rec := newTestController(t)
	ctrl.Handle("s1", line(map[string]any{"command": "join_game", "single_player": false, "color": "white"}))
	ctrl.Handle("s2", line(map[string]any{"command": "join_game", "single_player": false, "color": "black"}))
	ctrl.Handle("s1", line(map[string]any{"command": "start_game"}))

	ctrl.Disconnected("s2")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	found := false
	for _, b := range rec.broadcasts {
		if strings.Contains(b.line, "game_reset") {
			found = true
		}
	}
	if !found {
		t.Error("expected a game_reset broadcast after a seated disconnect")
	}
}
