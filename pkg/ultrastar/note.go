package ultrastar

import (
	"fmt"
	"strconv"
)

// NoteType is the leading marker of a note line.
type NoteType string

const (
	NoteRegular   NoteType = ":"
	NoteFreestyle NoteType = "*"
	NoteGolden    NoteType = "F"
	NoteRap       NoteType = "R"
	NoteRapGolden NoteType = "G"
	NoteLinebreak NoteType = "-"
)

// Valid reports whether t is a note type the format knows about.
func (t NoteType) Valid() bool {
	switch t {
	case NoteRegular, NoteFreestyle, NoteGolden, NoteRap, NoteRapGolden, NoteLinebreak:
		return true
	}
	return false
}

// Note is one line of a note track. Linebreaks only use Start.
type Note struct {
	Type     NoteType
	Start    int
	Duration int
	Pitch    int
	Text     string
}

// Linebreak returns a separator note at the given beat.
func Linebreak(beat int) Note {
	return Note{Type: NoteLinebreak, Start: beat}
}

// IsLinebreak reports whether n separates two lyric lines.
func (n Note) IsLinebreak() bool {
	return n.Type == NoteLinebreak
}

// End is the beat right after the note stops sounding.
func (n Note) End() int {
	if n.IsLinebreak() {
		return n.Start
	}
	return n.Start + n.Duration
}

// Validate checks the fields a sung note must carry. A zero duration is
// allowed; callers treat it as a warning.
func (n Note) Validate() error {
	if !n.Type.Valid() {
		return fmt.Errorf("unknown note type %q", string(n.Type))
	}
	if n.IsLinebreak() {
		return nil
	}
	if n.Duration < 0 {
		return fmt.Errorf("note at beat %d has negative duration %d", n.Start, n.Duration)
	}
	if n.Text == "" {
		return fmt.Errorf("note at beat %d has no text", n.Start)
	}
	return nil
}

// String renders the note in file form.
func (n Note) String() string {
	if n.IsLinebreak() {
		return string(NoteLinebreak) + " " + strconv.Itoa(n.Start)
	}
	return fmt.Sprintf("%s %d %d %d %s", n.Type, n.Start, n.Duration, n.Pitch, n.Text)
}
