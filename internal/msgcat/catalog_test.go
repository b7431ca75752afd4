package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewLoadsEmbeddedDefaults(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	text, err := cat.Render("errors.illegal_move", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if text != "Illegal move" {
		t.Errorf("errors.illegal_move = %q", text)
	}
}

func TestRenderMissingKeyIsError(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := cat.Render("errors.does_not_exist", nil); err == nil {
		t.Fatal("expected an error for a missing key")
	}
}

func TestRenderSubstitutesTemplateData(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	text, err := cat.Render("errors.slot_taken", map[string]any{"Color": "white"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if text != "white is already taken" {
		t.Errorf("errors.slot_taken = %q", text)
	}
}

func TestNewOverrideDirReplacesEmbeddedKey(t *testing.T) {
	dir := t.TempDir()
	override := "errors:\n  illegal_move: \"Nope, can't do that.\"\n"
	if err := os.WriteFile(filepath.Join(dir, "overrides.yaml"), []byte(override), 0o644); err != nil {
		t.Fatalf("write override file: %v", err)
	}

	cat, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	text, err := cat.Render("errors.illegal_move", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if text != "Nope, can't do that." {
		t.Errorf("overridden errors.illegal_move = %q", text)
	}

	// A key the override file never touches still comes from the embedded
	// default.
	text, err = cat.Render("errors.invalid_color", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if text != `Color must be "white" or "black"` {
		t.Errorf("untouched errors.invalid_color = %q", text)
	}
}

func TestNewOverrideDirRejectsDuplicateKeyAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	one := "errors:\n  illegal_move: \"a\"\n"
	two := "errors:\n  illegal_move: \"b\"\n"
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(one), 0o644); err != nil {
		t.Fatalf("write a.yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(two), 0o644); err != nil {
		t.Fatalf("write b.yaml: %v", err)
	}

	if _, err := New(dir); err == nil {
		t.Fatal("expected a duplicate-key error across two override files")
	}
}
