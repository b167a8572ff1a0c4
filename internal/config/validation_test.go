package config

import (
	"strings"
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	if results := Default().Validate(); len(results) != 0 {
		t.Fatalf("expected no findings for defaults, got %v", results)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		level   string
		message string
	}{
		{
			name:    "non positive beats per second",
			mutate:  func(c *Config) { c.Conversion.BeatsPerSecond = 0 },
			level:   "error",
			message: "beats_per_second",
		},
		{
			name:    "negative shrink",
			mutate:  func(c *Config) { c.Conversion.ShrinkBeats = intPtr(-1) },
			level:   "error",
			message: "shrink_beats",
		},
		{
			name:    "unknown overlap policy",
			mutate:  func(c *Config) { c.Conversion.OverlapPolicy = "random" },
			level:   "error",
			message: "overlap_policy",
		},
		{
			name:    "song bpm not dividing",
			mutate:  func(c *Config) { c.Conversion.SongBPM = 125.5 },
			level:   "error",
			message: "song_bpm",
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.Kara.BaseURL = "kara.moe" },
			level:   "error",
			message: "base_url",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Kara.TimeoutSec = -1 },
			level:   "error",
			message: "timeout_s",
		},
		{
			name:    "empty ffmpeg",
			mutate:  func(c *Config) { c.Media.FFmpeg = " " },
			level:   "error",
			message: "media.ffmpeg",
		},
		{
			name:    "odd bitrate",
			mutate:  func(c *Config) { c.Media.BitrateKbps = 300 },
			level:   "warning",
			message: "not a standard MP3 bitrate",
		},
		{
			name:    "pitch args without command",
			mutate:  func(c *Config) { c.Pitch.Args = []string{"{song}"} },
			level:   "warning",
			message: "pitch.command is empty",
		},
		{
			name:    "pitch outside midi range",
			mutate:  func(c *Config) { c.Conversion.DefaultPitch = intPtr(90) },
			level:   "warning",
			message: "default_pitch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			results := cfg.Validate()
			if len(results) != 1 {
				t.Fatalf("expected 1 finding, got %v", results)
			}
			if results[0].Level != tt.level || !strings.Contains(results[0].Message, tt.message) {
				t.Fatalf("unexpected finding %+v", results[0])
			}
			if HasErrors(results) != (tt.level == "error") {
				t.Fatalf("HasErrors mismatch for %+v", results[0])
			}
		})
	}
}

func TestValidateValidSongBPM(t *testing.T) {
	cfg := Default()
	cfg.Conversion.SongBPM = 300
	if results := cfg.Validate(); len(results) != 0 {
		t.Fatalf("expected 1500/300 to be accepted, got %v", results)
	}
}

func TestErrors(t *testing.T) {
	results := []ValidationResult{
		{Level: "warning", Message: "w"},
		{Level: "error", Message: "a"},
		{Level: "error", Message: "b"},
	}
	err := Errors(results)
	if err == nil || err.Error() != "invalid config: a; b" {
		t.Fatalf("unexpected error %v", err)
	}
	if Errors(results[:1]) != nil {
		t.Fatal("warnings alone must not produce an error")
	}
}
