package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveConfigFlagWins(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	explicit := filepath.Join(dir, "other.yaml")

	got, err := ResolveConfig(explicit, dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != explicit {
		t.Fatalf("expected %s, got %s", explicit, got)
	}
}

func TestResolveConfigLocalFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	local := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(local, []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveConfig("", dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != local {
		t.Fatalf("expected %s, got %s", local, got)
	}
}

func TestResolveConfigGlobalFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	global := filepath.Join(home, ".karaluxer", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(global), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(global, []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveConfig("", t.TempDir())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != global {
		t.Fatalf("expected %s, got %s", global, got)
	}
}

func TestResolveConfigNone(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	got, err := ResolveConfig("", t.TempDir())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "" {
		t.Fatalf("expected no config, got %s", got)
	}
}

func TestGlobalLogsDirCreatesDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir, err := GlobalLogsDir()
	if err != nil {
		t.Fatalf("GlobalLogsDir: %v", err)
	}
	if ok, _ := DirExists(dir); !ok {
		t.Fatalf("expected %s to exist", dir)
	}
	if filepath.Base(dir) != "logs" {
		t.Fatalf("expected dir named 'logs', got %s", filepath.Base(dir))
	}
}

func TestGlobalCacheDirCreatesDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir, err := GlobalCacheDir()
	if err != nil {
		t.Fatalf("GlobalCacheDir: %v", err)
	}
	if dir != filepath.Join(home, ".karaluxer", "cache") {
		t.Fatalf("unexpected cache dir %s", dir)
	}
	if ok, _ := DirExists(dir); !ok {
		t.Fatalf("expected %s to exist", dir)
	}
}

func TestSongBaseName(t *testing.T) {
	tests := []struct {
		artist, title string
		want          string
	}{
		{"ARASHI", "Rock over Japan", "ARASHI - Rock over Japan"},
		{"AC/DC", "Back in Black?", "AC_DC - Back in Black_"},
		{"", "ロック", "ロック"},
		{"Solo", "  ", "Solo"},
		{"", "", "song"},
		{"a", "..hidden.", "a - hidden"},
	}
	for _, tt := range tests {
		if got := SongBaseName(tt.artist, tt.title); got != tt.want {
			t.Errorf("SongBaseName(%q, %q) = %q, want %q", tt.artist, tt.title, got, tt.want)
		}
	}
}

func TestSongDir(t *testing.T) {
	got := SongDir("out", "A", "B")
	if got != filepath.Join("out", "A - B") {
		t.Fatalf("unexpected song dir %s", got)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, err := FileExists(file); !ok || err != nil {
		t.Fatalf("FileExists(file) = %v, %v", ok, err)
	}
	if ok, _ := FileExists(dir); ok {
		t.Fatal("directory reported as file")
	}
	if ok, err := FileExists(filepath.Join(dir, "missing")); ok || err != nil {
		t.Fatalf("FileExists(missing) = %v, %v", ok, err)
	}
}
