package notation

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
)

// coordinateToken matches "e2-e4", "e2 e4", "e2→e4", with an optional
// trailing promotion letter such as "e7-e8q".
var coordinateToken = regexp.MustCompile(`^([a-h][1-8])[ \-→]+([a-h][1-8])([qrbnQRBN])?$`)

// CoordinateParser recognizes "<square><sep><square>" tokens.
type CoordinateParser struct{}

func NewCoordinateParser() *CoordinateParser { return &CoordinateParser{} }

func (p *CoordinateParser) ParseMove(token string) (ParsedMove, error) {
	token = strings.TrimSpace(token)
	m := coordinateToken.FindStringSubmatch(token)
	if m == nil {
		return ParsedMove{}, fmt.Errorf("couldn't parse move: %q", token)
	}
	notation := m[1] + "-" + m[2]
	return ParsedMove{
		Notation:  notation,
		From:      m[1],
		To:        m[2],
		Promotion: strings.ToLower(m[3]),
		Kind:      Coordinate,
	}, nil
}

func (p *CoordinateParser) ParseGame(text string) ([]ParsedMove, error) {
	var moves []ParsedMove
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		mv, err := p.ParseMove(line)
		if err != nil {
			continue
		}
		moves = append(moves, mv)
	}
	return moves, nil
}
