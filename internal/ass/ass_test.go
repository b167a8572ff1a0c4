package ass

import (
	"strings"
	"testing"
	"time"
)

const sample = "\ufeff[Script Info]\n" +
	"Title: Sample Song\n" +
	"ScriptType: v4.00+\n" +
	"\n" +
	"[Events]\n" +
	"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n" +
	"Comment: 0,0:00:03.00,0:00:05.00,Sample,,0,0,0,karaoke,{\\k100}second\n" +
	"Comment: 0,0:00:01.00,0:00:03.00,Sample,,0,0,0,karaoke,{\\k50}Hel{\\k50}lo, world\n" +
	"Dialogue: 0,0:00:01.00,0:00:03.00,Sample,,0,0,0,fx,{\\k50}Hel{\\k50}lo\n"

func TestParseEvents(t *testing.T) {
	script, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if script.Title() != "Sample Song" {
		t.Errorf("unexpected title %q", script.Title())
	}
	if len(script.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(script.Events))
	}

	ev := script.Events[1]
	if ev.Kind != KindComment {
		t.Errorf("expected comment, got %s", ev.Kind)
	}
	if ev.Start != time.Second || ev.End != 3*time.Second {
		t.Errorf("unexpected timing %v-%v", ev.Start, ev.End)
	}
	if ev.Style != "Sample" {
		t.Errorf("unexpected style %q", ev.Style)
	}
	if ev.Text != "{\\k50}Hel{\\k50}lo, world" {
		t.Errorf("text with commas must survive, got %q", ev.Text)
	}
	if ev.Index != 2 {
		t.Errorf("unexpected index %d", ev.Index)
	}
}

func TestLinesPreferComments(t *testing.T) {
	script, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	lines := script.Lines(false)
	if len(lines) != 2 {
		t.Fatalf("expected 2 comment lines, got %d", len(lines))
	}
	if lines[0].Start != time.Second {
		t.Errorf("lines must be sorted by start, got %v first", lines[0].Start)
	}
	for _, l := range lines {
		if l.Kind != KindComment {
			t.Errorf("expected only comments, got %s", l.Kind)
		}
	}

	forced := script.Lines(true)
	if len(forced) != 1 || forced[0].Kind != KindDialogue {
		t.Fatalf("expected the dialogue line when forced, got %v", forced)
	}
}

func TestLinesFallBackToDialogue(t *testing.T) {
	input := "[Events]\n" +
		"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n" +
		"Dialogue: 0,0:00:01.00,0:00:02.00,A,,0,0,0,,{\\k100}la\n"
	script, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if lines := script.Lines(false); len(lines) != 1 {
		t.Fatalf("expected dialogue fallback, got %d lines", len(lines))
	}
}

func TestParseWindows1252(t *testing.T) {
	input := []byte("[Events]\nFormat: Start, End, Style, Text\nDialogue: 0:00:00.00,0:00:01.00,A,{\\k100}caf\xe9\n")
	script, err := Parse(strings.NewReader(string(input)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := script.Events[0].Text; got != "{\\k100}café" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"0:00:01.00", time.Second},
		{"0:01:02.5", time.Minute + 2*time.Second + 500*time.Millisecond},
		{"1:00:00.07", time.Hour + 70*time.Millisecond},
		{"0:00:03", 3 * time.Second},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if err != nil {
			t.Errorf("ParseTime(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseTime("12.00"); err == nil {
		t.Error("expected error for malformed timestamp")
	}
}

func TestFormatTime(t *testing.T) {
	if got := FormatTime(time.Hour + 2*time.Minute + 3*time.Second + 40*time.Millisecond); got != "1:02:03.04" {
		t.Fatalf("FormatTime = %q", got)
	}
}

func TestEventOverlaps(t *testing.T) {
	a := Event{Start: time.Second, End: 3 * time.Second}
	tests := []struct {
		name string
		next Event
		want bool
	}{
		{"starts inside", Event{Start: 2 * time.Second, End: 4 * time.Second}, true},
		{"starts at the end", Event{Start: 3 * time.Second, End: 4 * time.Second}, false},
		{"starts later", Event{Start: 5 * time.Second, End: 6 * time.Second}, false},
	}
	for _, tt := range tests {
		if got := a.Overlaps(tt.next); got != tt.want {
			t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
	}
}
