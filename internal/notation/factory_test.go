package notation

import "testing"

func TestNewSelectsParserByKind(t *testing.T) {
	cases := map[string]Kind{
		"":       Coordinate,
		"simple": Coordinate,
		"pgn":    Algebraic,
	}
	for kind, wantKind := range cases {
		p, err := New(kind)
		if err != nil {
			t.Fatalf("New(%q) unexpected error: %v", kind, err)
		}
		mv, err := p.ParseMove(sampleTokenFor(wantKind))
		if err != nil {
			t.Fatalf("New(%q) parser rejected its own sample token: %v", kind, err)
		}
		if mv.Kind != wantKind {
			t.Errorf("New(%q) produced kind %v, want %v", kind, mv.Kind, wantKind)
		}
	}
}

func TestNewRejectsUnknownKind(t *testing.T) {
	if _, err := New("uci"); err == nil {
		t.Error("New(\"uci\") expected error, got none")
	}
}

func sampleTokenFor(k Kind) string {
	if k == Algebraic {
		return "e4"
	}
	return "e2-e4"
}
