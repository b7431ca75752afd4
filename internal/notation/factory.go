package notation

import "fmt"

// New selects a Parser implementation by CLI name ("simple" or "pgn").
func New(kind string) (Parser, error) {
	switch kind {
	case "", "simple":
		return NewCoordinateParser(), nil
	case "pgn":
		return NewAlgebraicParser(), nil
	default:
		return nil, fmt.Errorf("unknown parser kind %q", kind)
	}
}
