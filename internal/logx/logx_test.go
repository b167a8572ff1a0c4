package logx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesTimestampedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, closer, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Printf("converted %d lines", 3)
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one log file, got %v (%v)", entries, err)
	}
	if !strings.HasSuffix(entries[0].Name(), ".log") {
		t.Fatalf("unexpected log name %s", entries[0].Name())
	}
	data, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if !strings.Contains(string(data), "converted 3 lines") {
		t.Fatalf("log missing message: %q", data)
	}
}

func TestNewGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	_, closer, err := NewGlobal()
	if err != nil {
		t.Fatalf("new global: %v", err)
	}
	defer closer.Close()
	if _, err := os.Stat(filepath.Join(home, ".karaluxer", "logs")); err != nil {
		t.Fatalf("expected global logs dir: %v", err)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"20240101-000000.log", "20240102-000000.log", "20240103-000000.log", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := Prune(dir, 2); err != nil {
		t.Fatalf("prune: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := "20240102-000000.log,20240103-000000.log,notes.txt"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("remaining = %s, want %s", got, want)
	}
}
