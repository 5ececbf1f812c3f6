package prefs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dkeye/Lobby/internal/core"
)

func TestStore_SaveAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open missing file: %v", err)
	}
	s.SetString(core.PrefCurrentRoomID, "room-1")
	s.SetString(core.PrefJoinCode, "ABC123")
	s.SetBool(core.PrefIsHost, true)
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "JoinCode: ABC123") {
		t.Fatalf("unexpected file contents:\n%s", raw)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := again.GetString(core.PrefCurrentRoomID); got != "room-1" {
		t.Fatalf("room id = %q", got)
	}
	if !again.GetBool(core.PrefIsHost) {
		t.Fatalf("is host lost")
	}

	again.Delete(core.PrefCurrentRoomID)
	if again.GetString(core.PrefCurrentRoomID) != "" {
		t.Fatalf("delete did not remove key")
	}
}

func TestStore_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	if err := os.WriteFile(path, []byte("- not\n- a map\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestMemory_SaveIsNoop(t *testing.T) {
	s := NewMemory()
	s.SetBool(core.PrefIsHost, false)
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.GetBool(core.PrefIsHost) || s.GetBool("missing") {
		t.Fatalf("expected false values")
	}
}
