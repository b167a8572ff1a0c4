package ultrastar

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Track names a note track of a song.
type Track string

const (
	P1 Track = "P1"
	P2 Track = "P2"
)

const endMarker = "E"

// headerOrder lists the headers the game client expects first, in order.
// Unknown headers follow in insertion order.
var headerOrder = []string{
	"VERSION",
	// song identity
	"TITLE", "ARTIST", "LANGUAGE", "GENRE", "CREATOR", "TAGS", "YEAR",
	// assets
	"AUDIO", "MP3", "COVER", "BACKGROUND", "VIDEO", "INSTRUMENTAL", "VOCALS",
	// timing
	"BPM", "GAP", "START", "END", "PREVIEWSTART", "VIDEOGAP", "COMMENT",
	// provenance
	"PROVIDEDBY", "SOURCE",
}

var headerRank = func() map[string]int {
	rank := make(map[string]int, len(headerOrder))
	for i, key := range headerOrder {
		rank[key] = i
	}
	return rank
}()

// Song is an in-memory song file: headers plus one or two note tracks.
type Song struct {
	bpm     float64
	headers map[string]string
	order   []string
	tracks  map[Track][]Note
}

// NewSong creates an empty song with a fixed BPM.
func NewSong(bpm float64) *Song {
	return &Song{
		bpm:     bpm,
		headers: make(map[string]string),
		tracks:  map[Track][]Note{P1: nil, P2: nil},
	}
}

// BPM returns the tempo written to the BPM header.
func (s *Song) BPM() float64 {
	return s.bpm
}

// Set stores a header value, replacing any previous value for the key.
// Keys are case-insensitive and stored upper-case.
func (s *Song) Set(key, value string) {
	key = normalizeKey(key)
	if key == "" {
		return
	}
	if key == "BPM" {
		if v, err := parseFloat(value); err == nil {
			s.bpm = v
		}
		return
	}
	if _, ok := s.headers[key]; !ok {
		s.order = append(s.order, key)
	}
	s.headers[key] = value
}

// Get returns a header value.
func (s *Song) Get(key string) (string, bool) {
	key = normalizeKey(key)
	if key == "BPM" {
		return formatBPM(s.bpm), true
	}
	v, ok := s.headers[key]
	return v, ok
}

// Keys returns the header keys in serialization order, BPM included.
func (s *Song) Keys() []string {
	known := make([]string, 0, len(s.headers)+1)
	var unknown []string
	for _, key := range s.order {
		if _, ok := headerRank[key]; ok {
			known = append(known, key)
		} else {
			unknown = append(unknown, key)
		}
	}
	known = append(known, "BPM")
	sort.SliceStable(known, func(i, j int) bool {
		return headerRank[known[i]] < headerRank[known[j]]
	})
	return append(known, unknown...)
}

// AddNote appends a note to a track.
func (s *Song) AddNote(track Track, n Note) error {
	if track != P1 && track != P2 {
		return fmt.Errorf("unknown track %q", string(track))
	}
	if err := n.Validate(); err != nil {
		return err
	}
	s.tracks[track] = append(s.tracks[track], n)
	return nil
}

// AddNotes appends several notes to a track, stopping at the first invalid one.
func (s *Song) AddNotes(track Track, notes []Note) error {
	for _, n := range notes {
		if err := s.AddNote(track, n); err != nil {
			return err
		}
	}
	return nil
}

// SetNotes replaces a whole track.
func (s *Song) SetNotes(track Track, notes []Note) error {
	if track != P1 && track != P2 {
		return fmt.Errorf("unknown track %q", string(track))
	}
	s.tracks[track] = nil
	return s.AddNotes(track, notes)
}

// Notes returns a copy of a track in insertion order.
func (s *Song) Notes(track Track) []Note {
	return append([]Note(nil), s.tracks[track]...)
}

// SortedNotes returns a copy of a track ordered by start beat. Notes on the
// same beat keep their insertion order.
func (s *Song) SortedNotes(track Track) []Note {
	notes := s.Notes(track)
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Start < notes[j].Start
	})
	return notes
}

// IsDuet reports whether the second track carries notes.
func (s *Song) IsDuet() bool {
	return len(s.tracks[P2]) > 0
}

// WriteTo serializes the song.
func (s *Song) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64
	line := func(text string) error {
		n, err := bw.WriteString(text + "\n")
		written += int64(n)
		return err
	}

	for _, key := range s.Keys() {
		value, _ := s.Get(key)
		if err := line("#" + key + ":" + value); err != nil {
			return written, err
		}
	}

	tracks := []Track{P1}
	if s.IsDuet() {
		tracks = append(tracks, P2)
	}
	for _, track := range tracks {
		if s.IsDuet() {
			if err := line(string(track)); err != nil {
				return written, err
			}
		}
		for _, n := range s.SortedNotes(track) {
			if err := line(n.String()); err != nil {
				return written, err
			}
		}
		if err := line(endMarker); err != nil {
			return written, err
		}
	}

	return written, bw.Flush()
}

// String returns the serialized song.
func (s *Song) String() string {
	var sb strings.Builder
	_, _ = s.WriteTo(&sb)
	return sb.String()
}

func normalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

func formatBPM(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(value string) (float64, error) {
	// Some editors write a decimal comma.
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(value), ",", "."), 64)
}
