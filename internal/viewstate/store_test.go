package viewstate

import (
	"os"
	"path/filepath"
	"testing"
)

// TestSaveLoad_RoundTrip verifies saving and loading preserves the view state.
func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "view.json")
	in := State{LastFile: "parts/bracket.stp", Projection: "top", Surface: Size{W: 800, H: 600}}

	if err := Save(path, in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if out != in {
		t.Fatalf("expected %+v, got %+v", in, out)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away, stat err=%v", err)
	}
}

// TestLoad_MissingFile_ReturnsEmpty verifies missing files return zero state.
func TestLoad_MissingFile_ReturnsEmpty(t *testing.T) {
	out, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if out != (State{}) {
		t.Fatalf("expected empty state, got %+v", out)
	}
}

// TestLoad_Corrupt verifies a corrupt file reports an error.
func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for corrupt file")
	}
}
