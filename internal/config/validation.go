package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"karaluxer/internal/beat"
	"karaluxer/internal/overlap"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

var standardBitrates = map[int]bool{
	32: true, 40: true, 48: true, 56: true, 64: true, 80: true, 96: true,
	112: true, 128: true, 160: true, 192: true, 224: true, 256: true, 320: true,
}

// Validate runs every config check and returns structured results.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateConversion()...)
	results = append(results, c.validateKara()...)
	results = append(results, c.validateMedia()...)
	results = append(results, c.validatePitch()...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

// ErrInvalid is wrapped by the error Errors returns.
var ErrInvalid = errors.New("invalid config")

// Errors joins the error-level messages into one error, or returns nil.
func Errors(results []ValidationResult) error {
	var msgs []string
	for _, r := range results {
		if r.Level == "error" {
			msgs = append(msgs, r.Message)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func (c Config) validateConversion() []ValidationResult {
	var results []ValidationResult
	conv := c.Conversion

	if conv.BeatsPerSecond <= 0 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("conversion.beats_per_second must be > 0 (got %d)", conv.BeatsPerSecond),
		})
	}
	if conv.ShrinkValue() < 0 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("conversion.shrink_beats must be >= 0 (got %d)", conv.ShrinkValue()),
		})
	}
	if pitch := conv.PitchValue(); pitch < -60 || pitch > 67 {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: fmt.Sprintf("conversion.default_pitch %d is outside the MIDI range and will be clamped on export", pitch),
		})
	}
	if _, err := overlap.ParsePolicy(conv.OverlapPolicy); err != nil {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("conversion.overlap_policy: %v", err),
		})
	}
	if conv.SongBPM != 0 && conv.BeatsPerSecond > 0 {
		if _, err := beat.Multiplier(beat.SongBPM(conv.BeatsPerSecond), conv.SongBPM); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("conversion.song_bpm: %v", err),
			})
		}
	}
	return results
}

func (c Config) validateKara() []ValidationResult {
	var results []ValidationResult
	u, err := url.Parse(c.Kara.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("kara.base_url %q must be an absolute http(s) URL", c.Kara.BaseURL),
		})
	}
	if c.Kara.TimeoutSec < 0 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("kara.timeout_s must be >= 0 (got %d)", c.Kara.TimeoutSec),
		})
	}
	return results
}

func (c Config) validateMedia() []ValidationResult {
	var results []ValidationResult
	if strings.TrimSpace(c.Media.FFmpeg) == "" {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: "media.ffmpeg must name an ffmpeg binary",
		})
	}
	switch {
	case c.Media.BitrateKbps < 0:
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("media.audio_bitrate_kbps must be >= 0 (got %d)", c.Media.BitrateKbps),
		})
	case c.Media.BitrateKbps > 0 && !standardBitrates[c.Media.BitrateKbps]:
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: fmt.Sprintf("media.audio_bitrate_kbps %d is not a standard MP3 bitrate; lame will pick the nearest one", c.Media.BitrateKbps),
		})
	}
	return results
}

func (c Config) validatePitch() []ValidationResult {
	if strings.TrimSpace(c.Pitch.Command) != "" || len(c.Pitch.Args) == 0 {
		return nil
	}
	return []ValidationResult{{
		Level:   "warning",
		Message: "pitch.args is set but pitch.command is empty; pitch detection is disabled",
	}}
}
