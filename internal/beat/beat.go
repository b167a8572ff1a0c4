// Package beat places karaoke syllables on the song beat grid.
package beat

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"karaluxer/internal/ass"
	"karaluxer/internal/karaoke"
	"karaluxer/pkg/ultrastar"
)

const (
	// BeatsPerSecond matches the centisecond resolution of karaoke timings.
	BeatsPerSecond = 100
	// DefaultPitch is written on every note; real pitches come from a
	// post-processor or manual editing.
	DefaultPitch = 19
	// DefaultShrinkBeats is removed from each sung note to leave a gap
	// before the next one.
	DefaultShrinkBeats = 1
)

// Logger is the subset of log.Logger the converter uses.
type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Converter turns subtitle lines into notes.
type Converter struct {
	BeatsPerSecond int
	Pitch          int
	ShrinkBeats    int
	Logger         Logger
}

// NewConverter returns a converter with the default grid, pitch and shrink.
func NewConverter() *Converter {
	return &Converter{
		BeatsPerSecond: BeatsPerSecond,
		Pitch:          DefaultPitch,
		ShrinkBeats:    DefaultShrinkBeats,
	}
}

// SongBPM is the tempo header that makes one format beat last 1/bps seconds.
// The format counts quarter notes, so a beat is a sixteenth.
func SongBPM(bps int) float64 {
	return float64(bps) * 60 / 4
}

func (c *Converter) bps() float64 {
	if c.BeatsPerSecond <= 0 {
		return BeatsPerSecond
	}
	return float64(c.BeatsPerSecond)
}

func (c *Converter) logger() Logger {
	if c.Logger == nil {
		return noopLogger{}
	}
	return c.Logger
}

// Convert converts lines in order and concatenates their notes.
func (c *Converter) Convert(lines []ass.Event) ([]ultrastar.Note, []string) {
	var notes []ultrastar.Note
	var warnings []string
	for _, line := range lines {
		n, w := c.ConvertLine(line)
		notes = append(notes, n...)
		warnings = append(warnings, w...)
	}
	return notes, warnings
}

// ConvertLine converts one line. Its notes are followed by a linebreak at
// the beat where the last syllable ends.
func (c *Converter) ConvertLine(line ass.Event) ([]ultrastar.Note, []string) {
	bps := c.bps()
	shrink := max(c.ShrinkBeats, 0)

	current := int(math.Round(line.Start.Seconds() * bps))
	res := karaoke.Extract(line.Text)
	warnings := append([]string(nil), res.Warnings...)
	for _, w := range res.Warnings {
		c.logger().Printf("line %d: %s", line.Index, w)
	}

	var notes []ultrastar.Note
	for _, syl := range res.Syllables {
		converted := int(math.Round(float64(syl.Centiseconds) / 100 * bps))
		if syl.IsGap() {
			current += converted
			continue
		}

		duration := converted
		if converted > 1 {
			duration = max(converted-shrink, 1)
		}
		if duration == 0 {
			w := fmt.Sprintf("zero-length note %q at beat %d", syl.Text, current)
			warnings = append(warnings, w)
			c.logger().Printf("line %d: %s", line.Index, w)
		}
		notes = append(notes, ultrastar.Note{
			Type:     ultrastar.NoteRegular,
			Start:    current,
			Duration: duration,
			Pitch:    c.Pitch,
			Text:     syl.Text,
		})
		current += converted
	}
	notes = append(notes, ultrastar.Linebreak(current))
	return notes, warnings
}

// ErrBPMRatio reports a song BPM that does not divide the karaoke BPM.
var ErrBPMRatio = errors.New("song BPM must divide the karaoke BPM by a whole number")

// Multiplier returns karaokeBPM / songBPM when it is a positive integer.
func Multiplier(karaokeBPM, songBPM float64) (int, error) {
	if songBPM <= 0 || karaokeBPM <= 0 {
		return 0, fmt.Errorf("%w: got %g and %g", ErrBPMRatio, karaokeBPM, songBPM)
	}
	ratio := karaokeBPM / songBPM
	m := math.Round(ratio)
	if m < 1 || math.Abs(ratio-m) > 1e-9 {
		return 0, fmt.Errorf("%w: %g / %g = %g", ErrBPMRatio, karaokeBPM, songBPM, ratio)
	}
	return int(m), nil
}

// Rescale snaps notes onto a grid of m beats anchored at the first sung note.
// Sung notes keep their order; a note that snapping leaves less than one step
// before the true end of the previous note (its placed start plus its
// unsnapped duration) is moved to start where the snapped previous note ends. Linebreaks follow the next
// sung note. The input is left unchanged and Rescale(Rescale(n, m), m) equals
// Rescale(n, m).
func Rescale(notes []ultrastar.Note, m int) []ultrastar.Note {
	out := append([]ultrastar.Note(nil), notes...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	if m <= 1 {
		return out
	}

	anchor, found := 0, false
	for _, n := range out {
		if !n.IsLinebreak() {
			anchor, found = n.Start, true
			break
		}
	}
	if !found {
		return out
	}

	var pending []int
	prevStart, prevEnd, prevTrueEnd := anchor, anchor, anchor
	first := true
	for i := range out {
		n := &out[i]
		if n.IsLinebreak() {
			pending = append(pending, i)
			continue
		}

		start := anchor + roundSteps(n.Start-anchor, m)*m
		if !first {
			start = max(start, prevStart)
			if start < prevTrueEnd && prevTrueEnd-start < m {
				start = max(start, prevEnd)
			}
		}
		trueEnd := start + n.Duration
		n.Start = start
		n.Duration = max(roundSteps(n.Duration, m)*m, m)

		for _, j := range pending {
			out[j].Start = start
		}
		pending = pending[:0]

		prevStart, prevEnd, prevTrueEnd = n.Start, n.End(), trueEnd
		first = false
	}
	for _, j := range pending {
		snapped := anchor + roundSteps(out[j].Start-anchor, m)*m
		out[j].Start = max(snapped, prevEnd)
	}
	return out
}

// roundSteps divides v by m rounding half up, also for negative v.
func roundSteps(v, m int) int {
	return floorDiv(2*v+m, 2*m)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
