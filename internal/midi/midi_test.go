package midi

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"

	"karaluxer/pkg/ultrastar"
)

func TestTempo(t *testing.T) {
	if got := Tempo(100); got != 125 {
		t.Fatalf("Tempo(100) = %g, want 125", got)
	}
}

func TestKey(t *testing.T) {
	for pitch, want := range map[int]uint8{0: 60, 19: 79, -12: 48, 100: 127, -100: 0} {
		if got := Key(pitch); got != want {
			t.Errorf("Key(%d) = %d, want %d", pitch, got, want)
		}
	}
}

func TestExport(t *testing.T) {
	song := ultrastar.NewSong(1500)
	song.Set("TITLE", "Song")
	for _, n := range []ultrastar.Note{
		{Type: ultrastar.NoteRegular, Start: 100, Duration: 49, Pitch: 19, Text: "Hel"},
		{Type: ultrastar.NoteRegular, Start: 150, Duration: 49, Pitch: 19, Text: "lo"},
		ultrastar.Linebreak(200),
	} {
		if err := song.AddNote(ultrastar.P1, n); err != nil {
			t.Fatal(err)
		}
	}
	if err := song.AddNote(ultrastar.P2, ultrastar.Note{Type: ultrastar.NoteRegular, Start: 10, Duration: 5, Pitch: 0, Text: "b"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Export(song, 100, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	file, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if mt, ok := file.TimeFormat.(smf.MetricTicks); !ok || mt.Resolution() != Resolution {
		t.Fatalf("unexpected time format %v", file.TimeFormat)
	}
	if len(file.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(file.Tracks))
	}

	type noteOn struct {
		tick uint32
		key  uint8
	}
	var lyrics []string
	var ons []noteOn
	var tick uint32
	for _, ev := range file.Tracks[0] {
		tick += ev.Delta
		var text string
		var ch, key, vel uint8
		switch {
		case ev.Message.GetMetaLyric(&text):
			lyrics = append(lyrics, text)
		case ev.Message.GetNoteOn(&ch, &key, &vel) && vel > 0:
			ons = append(ons, noteOn{tick: tick, key: key})
		}
	}
	if len(lyrics) != 2 || lyrics[0] != "Hel" || lyrics[1] != "lo" {
		t.Fatalf("unexpected lyrics %q", lyrics)
	}
	if len(ons) != 2 || ons[0] != (noteOn{1000, 79}) || ons[1] != (noteOn{1500, 79}) {
		t.Fatalf("unexpected note ons %+v", ons)
	}
}

func TestExportRejectsBadInput(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(nil, 100, &buf); err == nil {
		t.Fatal("expected error for nil song")
	}
	if err := Export(ultrastar.NewSong(1500), 0, &buf); err == nil {
		t.Fatal("expected error for zero bps")
	}
}
