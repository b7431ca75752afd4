package controller

import (
	"strings"
	"sync"

	"github.com/park285/chess-session-server/internal/protocol"
)

type uploadAccumulator struct {
	filename    string
	chunksTotal int
	lastChunk   int
	buf         strings.Builder
}

type uploadRegistry struct {
	mu   sync.Mutex
	byKey map[string]*uploadAccumulator
}

func newUploadRegistry() *uploadRegistry {
	return &uploadRegistry{byKey: make(map[string]*uploadAccumulator)}
}

func uploadKey(sessionID, filename string) string {
	return sessionID + ":" + filename
}

func (r *uploadRegistry) dropSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := sessionID + ":"
	for k := range r.byKey {
		if strings.HasPrefix(k, prefix) {
			delete(r.byKey, k)
		}
	}
}

// handleUpload accumulates one chunk of a streamed game-file upload. On
// the final chunk it parses the accumulated text, replays every resulting
// move through the coordinator, and streams results via the unicast
// callback; the caller's Handle loop receives no further reply for this
// message.
func (c *Controller) handleUpload(sessionID string, env protocol.Inbound) ([]byte, bool) {
	if env.Metadata == nil {
		return mustErrorLine(c.renderf("errors.invalid_field", map[string]any{"Field": "metadata"}))
	}
	meta := env.Metadata
	key := uploadKey(sessionID, meta.Filename)

	c.uploads.mu.Lock()
	acc, ok := c.uploads.byKey[key]
	if !ok || meta.ChunkCurrent == 1 {
		acc = &uploadAccumulator{filename: meta.Filename, chunksTotal: meta.ChunksTotal}
		c.uploads.byKey[key] = acc
	}
	if meta.ChunkCurrent > acc.lastChunk {
		acc.buf.WriteString(env.Data)
		acc.lastChunk = meta.ChunkCurrent
	}
	received := acc.lastChunk
	chunksTotal := acc.chunksTotal
	text := acc.buf.String()
	final := meta.ChunkCurrent >= chunksTotal
	if final {
		delete(c.uploads.byKey, key)
	}
	c.uploads.mu.Unlock()

	if !final {
		percent := 0
		if chunksTotal > 0 {
			percent = (100 * meta.ChunkCurrent) / chunksTotal
		}
		return mustJSONLine(protocol.UploadProgress{
			Type:          "upload_progress",
			Filename:      meta.Filename,
			ChunkReceived: received,
			ChunksTotal:   chunksTotal,
			Percent:       percent,
		})
	}

	c.replayGame(sessionID, text)
	return nil, false
}

func (c *Controller) replayGame(sessionID, text string) {
	moves, err := c.parser.ParseGame(text)
	if err != nil || len(moves) == 0 {
		line, _ := protocol.MarshalLine(protocol.NewError(c.render("errors.parse_move_failed", nil)))
		c.unicast(sessionID, line)
		return
	}

	for _, move := range moves {
		res := c.coord.MakeMove(sessionID, move)

		if errReply, isErr := res.Reply.(protocol.Error); isErr {
			line, _ := protocol.MarshalLine(errReply)
			c.unicast(sessionID, line)
			return
		}

		line, err := protocol.MarshalLine(res.Reply)
		if err == nil {
			c.unicast(sessionID, line)
		}
		c.fanOut(sessionID, res.Broadcasts)

		if mr, isMove := res.Reply.(protocol.MoveResult); isMove && (mr.Strike.Checkmate || mr.Strike.Stalemate) {
			return
		}

		if c.pace != nil {
			c.pace()
		}
	}
}

func mustJSONLine(v any) ([]byte, bool) {
	body, err := protocol.MarshalLine(v)
	if err != nil {
		return []byte("{}\n"), true
	}
	return body, true
}
