// Package rules adapts github.com/corentings/chess/v2 to the
// coordinator's RulesEngine contract: apply a parsed move to the single
// live position and report back a StrikeRecord or a rejection.
//
// Engine is not safe for concurrent use. The coordinator is the only
// caller and is required to hold its own mutex for the full duration of
// any Apply/Reset/FormattedBoard call.
package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-session-server/internal/notation"
)

// Color mirrors the coordinator's PlayerSlot domain without importing it,
// keeping this package a leaf.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Capture describes the piece removed from the board by a strike, if any.
type Capture struct {
	Piece string
	Color Color
}

// Castling names which side a king castled toward.
type Castling string

const (
	NoCastling Castling = ""
	LittleCastle Castling = "little"
	BigCastle    Castling = "big"
)

// StrikeRecord is the result of one successfully applied half-move.
type StrikeRecord struct {
	StrikeNumber int
	Color        Color
	Piece        string
	Src          string
	Dst          string
	Capture      *Capture
	Castling     Castling
	Check        bool
	Checkmate    bool
	Stalemate    bool
}

// RejectionError is returned by Apply when the move is illegal or cannot
// be resolved against the current position.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

// Engine is the authoritative chess rules engine for one game.
type Engine struct {
	game    *nchess.Game
	strikes int
}

// New returns an Engine already positioned at the standard opening.
func New() *Engine {
	e := &Engine{}
	e.Reset()
	return e
}

// Reset returns the position to the standard opening, white to move,
// half-move counter to 1.
func (e *Engine) Reset() {
	e.game = nchess.NewGame()
	e.strikes = 0
}

// CurrentSide reports which color is on move.
func (e *Engine) CurrentSide() Color {
	if e.game.Position().Turn() == nchess.Black {
		return Black
	}
	return White
}

// FEN returns the current position in Forsyth-Edwards notation.
func (e *Engine) FEN() string {
	return e.game.FEN()
}

// Apply resolves a ParsedMove against the current position and, if legal,
// mutates the position and returns the resulting StrikeRecord.
func (e *Engine) Apply(move notation.ParsedMove) (StrikeRecord, error) {
	pos := e.game.Position()
	mover := e.CurrentSide()

	var mv *nchess.Move
	var err error

	switch move.Kind {
	case notation.Coordinate:
		mv, err = decodeCoordinateMove(pos, move)
	case notation.Algebraic:
		uci := nchess.UCINotation{}
		san := nchess.AlgebraicNotation{}
		if m, derr := san.Decode(pos, move.Notation); derr == nil {
			mv = m
		} else if m, derr := uci.Decode(pos, move.Notation); derr == nil {
			mv = m
		} else {
			err = derr
		}
	default:
		err = fmt.Errorf("unknown move kind")
	}

	if err != nil || mv == nil {
		return StrikeRecord{}, &RejectionError{Reason: "Illegal move"}
	}

	capturedPiece := pos.Board().Piece(mv.S2())
	var capture *Capture
	if mv.HasTag(nchess.EnPassant) {
		capture = &Capture{Piece: "pawn", Color: oppositeColor(mover)}
	} else if capturedPiece != nchess.NoPiece {
		capture = &Capture{Piece: pieceName(capturedPiece.Type()), Color: colorFromChess(capturedPiece.Color())}
	}

	movingPiece := pos.Board().Piece(mv.S1())
	pieceLabel := pieceName(movingPiece.Type())

	castling := NoCastling
	if movingPiece.Type() == nchess.King {
		if delta := int(mv.S2().File()) - int(mv.S1().File()); delta == 2 {
			castling = LittleCastle
		} else if delta == -2 {
			castling = BigCastle
		}
	}

	san := nchess.AlgebraicNotation{}.Encode(pos, mv)

	if err := e.game.Move(mv, nil); err != nil {
		return StrikeRecord{}, &RejectionError{Reason: "Illegal move"}
	}
	e.strikes++

	outcome := e.game.Outcome()
	method := e.game.Method()
	checkmate := outcome != nchess.NoOutcome && strings.EqualFold(method.String(), "Checkmate")
	stalemate := outcome != nchess.NoOutcome && strings.EqualFold(method.String(), "Stalemate")
	check := checkmate || strings.HasSuffix(san, "+")

	return StrikeRecord{
		StrikeNumber: e.strikes,
		Color:        mover,
		Piece:        pieceLabel,
		Src:          mv.S1().String(),
		Dst:          mv.S2().String(),
		Capture:      capture,
		Castling:     castling,
		Check:        check,
		Checkmate:    checkmate,
		Stalemate:    stalemate,
	}, nil
}

// FormattedBoard renders a multi-line human-readable board with file/rank
// labels; knights are rendered as c/C so n/N is free for... nothing, but
// matches the contract's required glyph choice.
func (e *Engine) FormattedBoard() string {
	board := e.game.Position().Board()
	var b strings.Builder

	files := []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}

	for rank := nchess.Rank8; rank >= nchess.Rank1; rank-- {
		fmt.Fprintf(&b, "%d ", int(rank)+1)
		for _, file := range files {
			sq := nchess.NewSquare(file, rank)
			piece := board.Piece(sq)
			b.WriteByte(' ')
			b.WriteByte(glyph(piece))
		}
		b.WriteByte('\n')
		if rank == nchess.Rank1 {
			break
		}
	}

	b.WriteString("  ")
	for _, file := range files {
		fmt.Fprintf(&b, " %s", strings.ToLower(file.String()))
	}
	b.WriteByte('\n')
	return b.String()
}

func glyph(p nchess.Piece) byte {
	if p == nchess.NoPiece {
		return ' '
	}
	var c byte
	switch p.Type() {
	case nchess.King:
		c = 'k'
	case nchess.Queen:
		c = 'q'
	case nchess.Rook:
		c = 'r'
	case nchess.Bishop:
		c = 'b'
	case nchess.Knight:
		c = 'c' // knight rendered as c/C per contract
	case nchess.Pawn:
		c = 'p'
	}
	if p.Color() == nchess.White {
		c -= 32 // uppercase
	}
	return c
}

func pieceName(t nchess.PieceType) string {
	switch t {
	case nchess.King:
		return "king"
	case nchess.Queen:
		return "queen"
	case nchess.Rook:
		return "rook"
	case nchess.Bishop:
		return "bishop"
	case nchess.Knight:
		return "knight"
	case nchess.Pawn:
		return "pawn"
	default:
		return "unknown"
	}
}

func colorFromChess(c nchess.Color) Color {
	if c == nchess.Black {
		return Black
	}
	return White
}

func oppositeColor(c Color) Color {
	if c == White {
		return Black
	}
	return White
}

func decodeCoordinateMove(pos *nchess.Position, move notation.ParsedMove) (*nchess.Move, error) {
	if move.From == "" || move.To == "" {
		return nil, fmt.Errorf("coordinate move missing from/to")
	}
	uci := move.From + move.To
	if move.Promotion != "" {
		uci += strings.ToLower(move.Promotion)
	}
	return nchess.UCINotation{}.Decode(pos, uci)
}
