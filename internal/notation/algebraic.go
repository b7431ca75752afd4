package notation

import (
	"fmt"
	"regexp"
	"strings"
)

// sanToken matches one standard algebraic move: castling, pawn pushes and
// captures, piece moves with optional disambiguation/capture, promotions,
// and a trailing +/# suffix.
var sanToken = regexp.MustCompile(
	`^(?:O-O-O|O-O|[KQRBN]?[a-h]?[1-8]?x?[a-h][1-8](?:=[QRBN])?)[+#]?$`,
)

var tagPairLine = regexp.MustCompile(`^\[\w+\s+".*"\]$`)
var moveNumberPrefix = regexp.MustCompile(`^\d+\.(\.\.)?`)
var resultToken = regexp.MustCompile(`^(1-0|0-1|1/2-1/2|\*)$`)

// AlgebraicParser recognizes standard PGN move text.
type AlgebraicParser struct{}

func NewAlgebraicParser() *AlgebraicParser { return &AlgebraicParser{} }

func (p *AlgebraicParser) ParseMove(token string) (ParsedMove, error) {
	token = strings.TrimSpace(token)
	if !sanToken.MatchString(token) {
		return ParsedMove{}, fmt.Errorf("couldn't parse move: %q", token)
	}
	return ParsedMove{Notation: token, Kind: Algebraic}, nil
}

func (p *AlgebraicParser) ParseGame(text string) ([]ParsedMove, error) {
	var moves []ParsedMove
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || tagPairLine.MatchString(line) {
			continue
		}
		for _, token := range strings.Fields(line) {
			token = moveNumberPrefix.ReplaceAllString(token, "")
			if token == "" || resultToken.MatchString(token) {
				continue
			}
			mv, err := p.ParseMove(token)
			if err != nil {
				continue
			}
			moves = append(moves, mv)
		}
	}
	return moves, nil
}
