package job

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"karaluxer/internal/ass"
	"karaluxer/internal/beat"
	"karaluxer/internal/overlap"
	"karaluxer/pkg/ultrastar"
)

// FormatVersion is written to the VERSION header.
const FormatVersion = "1.1.0"

// Metadata holds the song identity headers.
type Metadata struct {
	Title    string
	Artist   string
	Language string
	Year     int
	Creator  string
	Tags     []string
	Source   string
}

// Apply writes the non-empty fields to song.
func (m Metadata) Apply(song *ultrastar.Song) {
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			song.Set(key, value)
		}
	}
	set("TITLE", m.Title)
	set("ARTIST", m.Artist)
	set("LANGUAGE", m.Language)
	set("CREATOR", m.Creator)
	set("TAGS", strings.Join(m.Tags, ", "))
	if m.Year > 0 {
		song.Set("YEAR", strconv.Itoa(m.Year))
	}
	set("SOURCE", m.Source)
}

// ConvertOptions configures the in-memory conversion.
type ConvertOptions struct {
	BeatsPerSecond int
	Pitch          int
	ShrinkBeats    int
	// SongBPM enables rescaling when non-zero.
	SongBPM       float64
	Policy        overlap.Policy
	ForceDialogue bool
	Decider       overlap.Decider
	Logger        Logger
	Metadata      Metadata
}

type trackLines struct {
	track ultrastar.Track
	lines []ass.Event
}

// Conversion is the outcome of Convert.
type Conversion struct {
	Song       *ultrastar.Song
	Warnings   []string
	Lines      int
	Kept       int
	Multiplier int
}

// Convert turns the subtitle lines of script into a song: it resolves
// overlaps, converts every track, rescales when a song BPM is given and
// writes the identity headers.
func Convert(ctx context.Context, script *ass.Script, opts ConvertOptions) (Conversion, error) {
	bps := opts.BeatsPerSecond
	if bps <= 0 {
		bps = beat.BeatsPerSecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	multiplier := 1
	if opts.SongBPM != 0 {
		m, err := beat.Multiplier(beat.SongBPM(bps), opts.SongBPM)
		if err != nil {
			return Conversion{}, &ConfigError{Field: "song-bpm", Err: err}
		}
		multiplier = m
	}

	lines := script.Lines(opts.ForceDialogue)
	logger.Printf("convert: %d subtitle lines, overlap policy %s", len(lines), opts.Policy)

	resolver := overlap.Resolver{Policy: opts.Policy, Decider: opts.Decider, Logger: logger}
	resolved, err := resolver.Resolve(ctx, lines)
	if err != nil {
		return Conversion{}, fmt.Errorf("resolve overlaps: %w", err)
	}
	warnings := append([]string(nil), resolved.Warnings...)

	converter := &beat.Converter{
		BeatsPerSecond: bps,
		Pitch:          opts.Pitch,
		ShrinkBeats:    opts.ShrinkBeats,
		Logger:         logger,
	}
	song := ultrastar.NewSong(beat.SongBPM(bps))
	tracks := []trackLines{{ultrastar.P1, resolved.P1}}
	if resolved.Duet {
		tracks = append(tracks, trackLines{ultrastar.P2, resolved.P2})
	}

	kept := 0
	for _, t := range tracks {
		kept += len(t.lines)
		notes, w := converter.Convert(t.lines)
		warnings = append(warnings, w...)
		if multiplier > 1 {
			notes = beat.Rescale(notes, multiplier)
		}
		if err := song.SetNotes(t.track, notes); err != nil {
			return Conversion{}, fmt.Errorf("track %s: %w", t.track, err)
		}
	}

	meta := opts.Metadata
	if meta.Title == "" {
		meta.Title = script.Title()
	}
	song.Set("VERSION", FormatVersion)
	meta.Apply(song)

	logger.Printf("convert: kept %d of %d lines, %d warnings", kept, len(lines), len(warnings))
	return Conversion{
		Song:       song,
		Warnings:   warnings,
		Lines:      len(lines),
		Kept:       kept,
		Multiplier: multiplier,
	}, nil
}
