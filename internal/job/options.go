package job

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"karaluxer/internal/beat"
	"karaluxer/internal/kara"
	"karaluxer/internal/overlap"
)

// ConfigError reports options rejected before any work starts.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = e.Err.Error()
		if e.Message != "" {
			msg = e.Message + ": " + msg
		}
	}
	if e.Field == "" {
		return msg
	}
	return e.Field + ": " + msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Options describes one conversion. Files given here override the ones
// downloaded from kara.moe.
type Options struct {
	KaraURL      string
	SubtitleFile string

	Audio           string
	Cover           string
	BackgroundImage string
	BackgroundVideo string
	Instrumental    string

	// Metadata overrides. Empty fields keep the kara.moe values.
	Title    string
	Artist   string
	Language string
	Year     int
	Creator  string
	TVSized  bool

	Policy        overlap.Policy
	ForceDialogue bool
	SongBPM       float64

	OutputDir string
	MIDI      bool
	// SkipMedia disables media downloads and transcoding; manual files are
	// copied as they are.
	SkipMedia bool
}

// Validate checks the options against the beat grid in use. Every problem
// is a *ConfigError.
func (o Options) Validate(beatsPerSecond int) error {
	var errs []error

	karaURL := strings.TrimSpace(o.KaraURL)
	if karaURL == "" && strings.TrimSpace(o.SubtitleFile) == "" {
		errs = append(errs, &ConfigError{Field: "source", Message: "one of a kara.moe URL or a subtitle file is required"})
	}
	if karaURL != "" {
		if _, err := kara.ParseID(karaURL); err != nil {
			errs = append(errs, &ConfigError{Field: "kara", Err: err})
		}
	}

	if o.SubtitleFile != "" {
		if !strings.EqualFold(filepath.Ext(o.SubtitleFile), ".ass") {
			errs = append(errs, &ConfigError{Field: "subtitles", Message: "subtitle file must be a .ass file"})
		} else if err := requireFile(o.SubtitleFile); err != nil {
			errs = append(errs, &ConfigError{Field: "subtitles", Err: err})
		}
	}
	for _, f := range []struct{ field, path string }{
		{"audio", o.Audio},
		{"cover", o.Cover},
		{"background", o.BackgroundImage},
		{"video", o.BackgroundVideo},
		{"instrumental", o.Instrumental},
	} {
		if f.path == "" {
			continue
		}
		if err := requireFile(f.path); err != nil {
			errs = append(errs, &ConfigError{Field: f.field, Err: err})
		}
	}

	if _, err := overlap.ParsePolicy(string(o.Policy)); err != nil {
		errs = append(errs, &ConfigError{Field: "overlap", Err: err})
	}
	if o.SongBPM != 0 {
		if _, err := beat.Multiplier(beat.SongBPM(beatsPerSecond), o.SongBPM); err != nil {
			errs = append(errs, &ConfigError{Field: "song-bpm", Err: err})
		}
	}
	if o.Year < 0 {
		errs = append(errs, &ConfigError{Field: "year", Message: fmt.Sprintf("must be >= 0 (got %d)", o.Year)})
	}
	return errors.Join(errs...)
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s not found", path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
