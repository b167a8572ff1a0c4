package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the conversion, download and media settings used by every
// karaluxer command.
type Config struct {
	Version    int              `yaml:"version"`
	Conversion ConversionConfig `yaml:"conversion"`
	Kara       KaraConfig       `yaml:"kara"`
	Media      MediaConfig      `yaml:"media"`
	Pitch      PitchConfig      `yaml:"pitch"`
	Output     OutputConfig     `yaml:"output"`
}

// ConversionConfig controls how subtitle lines become notes.
type ConversionConfig struct {
	BeatsPerSecond int     `yaml:"beats_per_second"`
	DefaultPitch   *int    `yaml:"default_pitch,omitempty"`
	ShrinkBeats    *int    `yaml:"shrink_beats,omitempty"`
	SongBPM        float64 `yaml:"song_bpm,omitempty"`
	OverlapPolicy  string  `yaml:"overlap_policy"`
	ForceDialogue  bool    `yaml:"force_dialogue"`
}

// KaraConfig describes the kara.moe endpoint.
type KaraConfig struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_s"`
	UserAgent  string `yaml:"user_agent"`
	Cache      *bool  `yaml:"cache,omitempty"`
}

// MediaConfig describes audio extraction parameters.
type MediaConfig struct {
	FFmpeg         string `yaml:"ffmpeg"`
	NormalizeAudio *bool  `yaml:"normalize_audio,omitempty"`
	BitrateKbps    int    `yaml:"audio_bitrate_kbps"`
}

// PitchConfig names an optional external pitch detection command. Args may
// reference {song} and {audio}.
type PitchConfig struct {
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
}

// OutputConfig controls where songs are written.
type OutputConfig struct {
	Dir  string `yaml:"dir"`
	MIDI bool   `yaml:"midi"`
}

// PitchValue returns the pitch assigned to converted notes.
func (c ConversionConfig) PitchValue() int {
	if c.DefaultPitch == nil {
		return 19
	}
	return *c.DefaultPitch
}

// ShrinkValue returns how many beats are trimmed from each sung note.
func (c ConversionConfig) ShrinkValue() int {
	if c.ShrinkBeats == nil {
		return 1
	}
	return *c.ShrinkBeats
}

// Timeout returns the HTTP timeout for kara.moe requests.
func (k KaraConfig) Timeout() time.Duration {
	return time.Duration(k.TimeoutSec) * time.Second
}

// CacheEnabled reports whether downloaded media is kept between runs.
func (k KaraConfig) CacheEnabled() bool {
	if k.Cache == nil {
		return true
	}
	return *k.Cache
}

// NormalizeAudioEnabled returns the effective normalize flag applying defaults.
func (m MediaConfig) NormalizeAudioEnabled() bool {
	if m.NormalizeAudio == nil {
		return true
	}
	return *m.NormalizeAudio
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Conversion: ConversionConfig{
			BeatsPerSecond: 100,
			DefaultPitch:   intPtr(19),
			ShrinkBeats:    intPtr(1),
			OverlapPolicy:  "individual",
		},
		Kara: KaraConfig{
			BaseURL:    "https://kara.moe/",
			TimeoutSec: 60,
			UserAgent:  "karaluxer/1.0",
			Cache:      boolPtr(true),
		},
		Media: MediaConfig{
			FFmpeg:         "ffmpeg",
			NormalizeAudio: boolPtr(true),
			BitrateKbps:    320,
		},
		Output: OutputConfig{
			Dir: "songs",
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		cfg.ApplyDefaults()
		return cfg, nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// YAML omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.Conversion.BeatsPerSecond == 0 {
		c.Conversion.BeatsPerSecond = defaults.Conversion.BeatsPerSecond
	}
	if c.Conversion.DefaultPitch == nil {
		c.Conversion.DefaultPitch = intPtr(*defaults.Conversion.DefaultPitch)
	}
	if c.Conversion.ShrinkBeats == nil {
		c.Conversion.ShrinkBeats = intPtr(*defaults.Conversion.ShrinkBeats)
	}
	if c.Conversion.OverlapPolicy == "" {
		c.Conversion.OverlapPolicy = defaults.Conversion.OverlapPolicy
	}
	if c.Kara.BaseURL == "" {
		c.Kara.BaseURL = defaults.Kara.BaseURL
	}
	if c.Kara.TimeoutSec == 0 {
		c.Kara.TimeoutSec = defaults.Kara.TimeoutSec
	}
	if c.Kara.UserAgent == "" {
		c.Kara.UserAgent = defaults.Kara.UserAgent
	}
	if c.Kara.Cache == nil {
		c.Kara.Cache = boolPtr(true)
	}
	if c.Media.FFmpeg == "" {
		c.Media.FFmpeg = defaults.Media.FFmpeg
	}
	if c.Media.NormalizeAudio == nil {
		c.Media.NormalizeAudio = boolPtr(true)
	}
	if c.Media.BitrateKbps == 0 {
		c.Media.BitrateKbps = defaults.Media.BitrateKbps
	}
	if c.Output.Dir == "" {
		c.Output.Dir = defaults.Output.Dir
	}
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

func boolPtr(v bool) *bool {
	return &v
}

func intPtr(v int) *int {
	return &v
}
