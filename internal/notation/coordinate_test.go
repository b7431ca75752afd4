package notation

import "testing"

func TestCoordinateParseMove(t *testing.T) {
	p := NewCoordinateParser()

	cases := []struct {
		token     string
		wantFrom  string
		wantTo    string
		wantPromo string
	}{
		{"e2-e4", "e2", "e4", ""},
		{"e2 e4", "e2", "e4", ""},
		{"e2→e4", "e2", "e4", ""},
		{"e7-e8q", "e7", "e8", "q"},
		{"e7-e8Q", "e7", "e8", "q"},
	}

	for _, c := range cases {
		mv, err := p.ParseMove(c.token)
		if err != nil {
			t.Fatalf("ParseMove(%q) unexpected error: %v", c.token, err)
		}
		if mv.From != c.wantFrom || mv.To != c.wantTo || mv.Promotion != c.wantPromo {
			t.Errorf("ParseMove(%q) = %+v, want from=%s to=%s promo=%s", c.token, mv, c.wantFrom, c.wantTo, c.wantPromo)
		}
		if mv.Kind != Coordinate {
			t.Errorf("ParseMove(%q) kind = %v, want Coordinate", c.token, mv.Kind)
		}
	}
}

func TestCoordinateParseMoveRejectsGarbage(t *testing.T) {
	p := NewCoordinateParser()
	for _, token := range []string{"", "z9-z8", "e2e4", "Nf3", "e2-e4-e5"} {
		if _, err := p.ParseMove(token); err == nil {
			t.Errorf("ParseMove(%q) expected error, got none", token)
		}
	}
}

func TestCoordinateParseGameSkipsCommentsAndBlanks(t *testing.T) {
	p := NewCoordinateParser()
	text := "// header comment\ne2-e4\n\nd7-d5\n// trailing\n"
	moves, err := p.ParseGame(text)
	if err != nil {
		t.Fatalf("ParseGame error: %v", err)
	}
	if len(moves) != 2 {
		t.Fatalf("ParseGame returned %d moves, want 2", len(moves))
	}
	if moves[0].From != "e2" || moves[0].To != "e4" {
		t.Errorf("move 0 = %+v", moves[0])
	}
	if moves[1].From != "d7" || moves[1].To != "d5" {
		t.Errorf("move 1 = %+v", moves[1])
	}
}

func TestCoordinateParseGameNoValidMovesIsEmptyNotError(t *testing.T) {
	p := NewCoordinateParser()
	moves, err := p.ParseGame("not a move\nneither is this")
	if err != nil {
		t.Fatalf("ParseGame returned error, want nil: %v", err)
	}
	if len(moves) != 0 {
		t.Errorf("ParseGame returned %d moves, want 0", len(moves))
	}
}

func TestCoordinateParseGameSingleMovePerLineNotSplitOnSpace(t *testing.T) {
	p := NewCoordinateParser()
	moves, err := p.ParseGame("e2 e4\ne7 e5")
	if err != nil {
		t.Fatalf("ParseGame error: %v", err)
	}
	if len(moves) != 2 {
		t.Fatalf("ParseGame returned %d moves, want 2", len(moves))
	}
}
