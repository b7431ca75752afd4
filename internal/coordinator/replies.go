package coordinator

import (
	"github.com/park285/chess-session-server/internal/protocol"
	"github.com/park285/chess-session-server/internal/rules"
)

func rejectionReply(message string) protocol.Error {
	return protocol.NewError(message)
}

func stateViolationReply(message string) protocol.Error {
	return protocol.NewError(message)
}

// illegalMoveReply carries the catalog's generic message as Error and the
// rules engine's specific rejection reason as Details.
func illegalMoveReply(message string, err error) protocol.Error {
	e := protocol.NewError(message)
	e.Details = err.Error()
	return e
}

func joinSuccessReply(sessionID, color string, singlePlayer bool, state State) protocol.JoinSuccess {
	return protocol.JoinSuccess{
		Type:         "join_success",
		SessionID:    sessionID,
		Color:        color,
		SinglePlayer: singlePlayer,
		State:        string(state),
	}
}

func playerJoinedReply(sessionID, color string) protocol.PlayerJoined {
	return protocol.PlayerJoined{Type: "player_joined", SessionID: sessionID, Color: color}
}

func gameReadyReply() protocol.GameReady {
	return protocol.GameReady{Type: "game_ready"}
}

func gameStartedReply() protocol.GameStarted {
	return protocol.GameStarted{Type: "game_started"}
}

func moveResultReply(s rules.StrikeRecord, fen string) protocol.MoveResult {
	var capture *protocol.Capture
	if s.Capture != nil {
		capture = &protocol.Capture{Piece: s.Capture.Piece, Color: string(s.Capture.Color)}
	}
	return protocol.MoveResult{
		Type: "move_result",
		Strike: protocol.Strike{
			StrikeNumber: s.StrikeNumber,
			Color:        string(s.Color),
			Piece:        s.Piece,
			CaseSrc:      s.Src,
			CaseDest:     s.Dst,
			Capture:      capture,
			Castling:     string(s.Castling),
			Check:        s.Check,
			Checkmate:    s.Checkmate,
			Stalemate:    s.Stalemate,
		},
		Board: protocol.Board{FEN: fen},
	}
}

func boardDisplayReply(board, fen string) protocol.BoardDisplay {
	return protocol.BoardDisplay{Type: "board_display", Board: board, FEN: fen}
}

func gameOverReply(result string) protocol.GameOver {
	return protocol.GameOver{Type: "game_over", Result: result}
}

func gameResetReply(reason string) protocol.GameReset {
	return protocol.GameReset{Type: "game_reset", Reason: reason}
}
