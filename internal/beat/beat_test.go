package beat

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"karaluxer/internal/ass"
	"karaluxer/pkg/ultrastar"
)

func regular(start, duration int, text string) ultrastar.Note {
	return ultrastar.Note{Type: ultrastar.NoteRegular, Start: start, Duration: duration, Pitch: DefaultPitch, Text: text}
}

func TestConvertLineScenario(t *testing.T) {
	line := ass.Event{Start: time.Second, End: 3 * time.Second, Text: `{\k50}Hel{\k50}lo`}
	notes, warnings := NewConverter().ConvertLine(line)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}

	var got []string
	for _, n := range notes {
		got = append(got, n.String())
	}
	want := []string{": 100 49 19 Hel", ": 150 49 19 lo", "- 200"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("notes = %q, want %q", got, want)
	}
}

func TestConvertLineRules(t *testing.T) {
	tests := []struct {
		name     string
		conv     *Converter
		text     string
		want     []ultrastar.Note
		warnings int
	}{
		{
			name: "gaps advance without notes",
			conv: NewConverter(),
			text: `{\k20}{\k30}la`,
			want: []ultrastar.Note{regular(20, 29, "la"), ultrastar.Linebreak(50)},
		},
		{
			name: "short notes are not shrunk",
			conv: NewConverter(),
			text: `{\k1}a{\k2}b`,
			want: []ultrastar.Note{regular(0, 1, "a"), regular(1, 1, "b"), ultrastar.Linebreak(3)},
		},
		{
			name:     "zero length note warns",
			conv:     NewConverter(),
			text:     `{\k0}a`,
			want:     []ultrastar.Note{regular(0, 0, "a"), ultrastar.Linebreak(0)},
			warnings: 1,
		},
		{
			name: "shrink disabled",
			conv: &Converter{BeatsPerSecond: 100, Pitch: DefaultPitch},
			text: `{\k40}a`,
			want: []ultrastar.Note{regular(0, 40, "a"), ultrastar.Linebreak(40)},
		},
		{
			name: "larger shrink keeps one beat",
			conv: &Converter{BeatsPerSecond: 100, Pitch: DefaultPitch, ShrinkBeats: 5},
			text: `{\k3}a{\k10}b`,
			want: []ultrastar.Note{regular(0, 1, "a"), regular(3, 5, "b"), ultrastar.Linebreak(13)},
		},
		{
			name: "coarser grid",
			conv: &Converter{BeatsPerSecond: 50, Pitch: DefaultPitch, ShrinkBeats: 1},
			text: `{\k50}a`,
			want: []ultrastar.Note{regular(0, 24, "a"), ultrastar.Linebreak(25)},
		},
		{
			name:     "unparseable fragments are skipped",
			conv:     NewConverter(),
			text:     `{\fad(10,10)}`,
			want:     []ultrastar.Note{ultrastar.Linebreak(0)},
			warnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notes, warnings := tt.conv.ConvertLine(ass.Event{Text: tt.text})
			if !reflect.DeepEqual(notes, tt.want) {
				t.Fatalf("notes = %+v, want %+v", notes, tt.want)
			}
			if len(warnings) != tt.warnings {
				t.Fatalf("warnings = %v, want %d", warnings, tt.warnings)
			}
		})
	}
}

func TestConvertLineIsMonotonic(t *testing.T) {
	line := ass.Event{Start: 12340 * time.Millisecond, Text: `{\k33}Ma{\k17}{\kf44}ri {\K9}ya{\k120}`}
	notes, _ := NewConverter().ConvertLine(line)

	last := notes[len(notes)-1]
	if !last.IsLinebreak() {
		t.Fatalf("line must end with a linebreak, got %+v", last)
	}
	prev := -1
	for _, n := range notes[:len(notes)-1] {
		if n.Start < prev {
			t.Fatalf("start beats decrease: %+v", notes)
		}
		prev = n.Start
		if n.End() > last.Start {
			t.Fatalf("note %+v ends after linebreak at %d", n, last.Start)
		}
	}
	if last.Start != 1234+33+17+44+9+120 {
		t.Fatalf("linebreak at %d", last.Start)
	}
}

func TestConvertConcatenatesLines(t *testing.T) {
	lines := []ass.Event{
		{Start: 0, Text: `{\k10}a`},
		{Start: time.Second, Text: `{\k10}b`},
	}
	notes, _ := NewConverter().Convert(lines)
	if len(notes) != 4 || notes[2].Start != 100 {
		t.Fatalf("unexpected notes %+v", notes)
	}
}

func TestMultiplier(t *testing.T) {
	tests := []struct {
		karaoke, song float64
		want          int
		wantErr       bool
	}{
		{1500, 300, 5, false},
		{1500, 1500, 1, false},
		{1500, 125.5, 0, true},
		{1500, 0, 0, true},
		{1500, 3000, 0, true},
	}
	for _, tt := range tests {
		got, err := Multiplier(tt.karaoke, tt.song)
		if tt.wantErr {
			if !errors.Is(err, ErrBPMRatio) {
				t.Errorf("Multiplier(%g, %g) error = %v", tt.karaoke, tt.song, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Multiplier(%g, %g) = %d, %v", tt.karaoke, tt.song, got, err)
		}
	}
}

func TestRescaleScenario(t *testing.T) {
	in := []ultrastar.Note{
		regular(0, 5, "a"),
		regular(102, 7, "b"),
		ultrastar.Linebreak(109),
	}
	once := Rescale(in, 5)
	want := []ultrastar.Note{
		regular(0, 5, "a"),
		regular(100, 5, "b"),
		ultrastar.Linebreak(110),
	}
	if !reflect.DeepEqual(once, want) {
		t.Fatalf("Rescale = %+v, want %+v", once, want)
	}
	if in[1].Start != 102 {
		t.Fatal("Rescale modified its input")
	}
	if twice := Rescale(once, 5); !reflect.DeepEqual(twice, once) {
		t.Fatalf("Rescale is not idempotent: %+v vs %+v", twice, once)
	}
}

func TestRescaleRules(t *testing.T) {
	tests := []struct {
		name string
		in   []ultrastar.Note
		m    int
		want []ultrastar.Note
	}{
		{
			name: "half way rounds up",
			in:   []ultrastar.Note{regular(10, 4, "a"), regular(12, 2, "b")},
			m:    4,
			want: []ultrastar.Note{regular(10, 4, "a"), regular(14, 4, "b")},
		},
		{
			name: "anchor stays on the first sung note",
			in:   []ultrastar.Note{ultrastar.Linebreak(3), regular(7, 9, "a"), regular(21, 1, "b")},
			m:    5,
			want: []ultrastar.Note{ultrastar.Linebreak(7), regular(7, 10, "a"), regular(22, 5, "b")},
		},
		{
			name: "quantization overlap is pushed to the previous end",
			in:   []ultrastar.Note{regular(0, 5, "z"), regular(3, 8, "a"), regular(11, 5, "b")},
			m:    5,
			want: []ultrastar.Note{regular(0, 5, "z"), regular(5, 10, "a"), regular(15, 5, "b")},
		},
		{
			name: "pushed notes push the following notes",
			in: []ultrastar.Note{
				regular(0, 14, "a"), regular(15, 14, "b"), regular(30, 14, "c"),
				regular(45, 14, "d"), regular(60, 14, "e"),
			},
			m: 20,
			want: []ultrastar.Note{
				regular(0, 20, "a"), regular(20, 20, "b"), regular(40, 20, "c"),
				regular(60, 20, "d"), regular(80, 20, "e"),
			},
		},
		{
			name: "genuine overlap is kept",
			in:   []ultrastar.Note{regular(100, 60, "a"), regular(150, 10, "b")},
			m:    5,
			want: []ultrastar.Note{regular(100, 60, "a"), regular(150, 10, "b")},
		},
		{
			name: "linebreaks follow the next note",
			in:   []ultrastar.Note{regular(0, 9, "a"), ultrastar.Linebreak(9), regular(31, 9, "b"), ultrastar.Linebreak(40)},
			m:    10,
			want: []ultrastar.Note{regular(0, 10, "a"), ultrastar.Linebreak(30), regular(30, 10, "b"), ultrastar.Linebreak(40)},
		},
		{
			name: "trailing linebreak never precedes the last end",
			in:   []ultrastar.Note{regular(0, 14, "a"), ultrastar.Linebreak(14)},
			m:    10,
			want: []ultrastar.Note{regular(0, 10, "a"), ultrastar.Linebreak(10)},
		},
		{
			name: "multiplier one is a no-op",
			in:   []ultrastar.Note{regular(3, 7, "a")},
			m:    1,
			want: []ultrastar.Note{regular(3, 7, "a")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rescale(tt.in, tt.m)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Rescale = %+v, want %+v", got, tt.want)
			}
			if again := Rescale(got, tt.m); !reflect.DeepEqual(again, got) {
				t.Fatalf("second pass changed notes: %+v", again)
			}
		})
	}
}

func TestSongBPM(t *testing.T) {
	if got := SongBPM(BeatsPerSecond); got != 1500 {
		t.Fatalf("SongBPM = %g", got)
	}
}
