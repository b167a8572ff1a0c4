package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeRunner struct {
	stderr string
	err    error
	calls  [][]string
}

func (f *fakeRunner) Run(_ context.Context, command string, args []string, opts RunOptions) (RunResult, error) {
	f.calls = append(f.calls, append([]string{command}, args...))
	if opts.Stderr != nil {
		_, _ = opts.Stderr.Write([]byte(f.stderr))
	}
	return RunResult{Stderr: []byte(f.stderr)}, f.err
}

func TestLoudness(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   float64
	}{
		{"quiet track", "[Parsed_volumedetect_0 @ 0x1] mean_volume: -20.1 dB\n[Parsed_volumedetect_0 @ 0x1] max_volume: -3.5 dB\n", 3.5},
		{"already normalized", "max_volume: 0.0 dB", 0},
		{"silence", "max_volume: -inf dB", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{stderr: tt.stderr}
			svc := NewService("", runner, nil)
			got, err := svc.Loudness(context.Background(), "song.mp4")
			if err != nil {
				t.Fatalf("loudness: %v", err)
			}
			if got != tt.want {
				t.Fatalf("gain = %g, want %g", got, tt.want)
			}
			if runner.calls[0][0] != "ffmpeg" || !contains(runner.calls[0], "volumedetect") {
				t.Fatalf("unexpected invocation %v", runner.calls[0])
			}
		})
	}
}

func TestLoudnessMissingReport(t *testing.T) {
	svc := NewService("ffmpeg", &fakeRunner{stderr: "nothing useful"}, nil)
	if _, err := svc.Loudness(context.Background(), "song.mp4"); err == nil {
		t.Fatal("expected error when max_volume is missing")
	}
}

func TestTranscodeMP3(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	svc := NewService("/opt/ffmpeg", runner, nil)
	dst := filepath.Join(dir, "out", "song.mp3")

	if err := svc.TranscodeMP3(context.Background(), "in.mkv", dst, 3.5, 0); err != nil {
		t.Fatalf("transcode: %v", err)
	}
	call := strings.Join(runner.calls[0], " ")
	for _, want := range []string{"/opt/ffmpeg", "-i in.mkv", "-vn", "volume=3.50dB", "-b:a 320k", dst} {
		if !strings.Contains(call, want) {
			t.Errorf("expected %q in %q", want, call)
		}
	}
	if _, err := os.Stat(filepath.Dir(dst)); err != nil {
		t.Fatalf("output dir not created: %v", err)
	}

	runner.calls = nil
	if err := svc.TranscodeMP3(context.Background(), "in.mkv", dst, 0, 192); err != nil {
		t.Fatalf("transcode: %v", err)
	}
	if contains(runner.calls[0], "-af") {
		t.Fatal("no volume filter expected without gain")
	}
}

func TestTranscodeFailureIsHard(t *testing.T) {
	boom := errors.New("exit status 1")
	svc := NewService("ffmpeg", &fakeRunner{stderr: "in.mkv: Invalid data found", err: boom}, nil)
	err := svc.TranscodeMP3(context.Background(), "in.mkv", filepath.Join(t.TempDir(), "a.mp3"), 0, 0)
	if !errors.Is(err, boom) {
		t.Fatalf("expected runner error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected ffmpeg output in error, got %v", err)
	}
}

func TestRunWritesLogFile(t *testing.T) {
	logs := t.TempDir()
	svc := NewService("ffmpeg", &fakeRunner{stderr: "max_volume: -1.0 dB"}, nil)
	svc.LogDir = logs
	if _, err := svc.Loudness(context.Background(), "a.mp4"); err != nil {
		t.Fatalf("loudness: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(logs, "ffmpeg_volumedetect.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "max_volume") {
		t.Fatalf("log missing ffmpeg output: %q", data)
	}
}

func TestIsVideo(t *testing.T) {
	for path, want := range map[string]bool{
		"a.MP4":  true,
		"b.webm": true,
		"c.mp3":  false,
		"d.ogg":  false,
		"noext":  false,
	} {
		if got := IsVideo(path); got != want {
			t.Errorf("IsVideo(%q) = %v", path, got)
		}
	}
}

func TestStageReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cover.jpg")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "song", "cover.jpg")
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Stage(src, dest); err != nil {
		t.Fatalf("stage: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "new" {
		t.Fatalf("unexpected staged content %q, %v", data, err)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(src, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("copy: %v", err)
	}
	data, _ := os.ReadFile(dst)
	if string(data) != "hello" {
		t.Fatalf("unexpected copy %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
