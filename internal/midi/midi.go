// Package midi exports song note tracks as a Standard MIDI File so pitches
// can be refined in a MIDI editor.
package midi

import (
	"errors"
	"fmt"
	"io"
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"karaluxer/pkg/ultrastar"
)

const (
	// Resolution is the ticks per quarter note of exported files.
	Resolution = 480
	// TicksPerBeat is the length of one song beat in ticks.
	TicksPerBeat = 10
	// BaseKey is the MIDI key written for pitch 0 (middle C).
	BaseKey = 60

	velocity = 100
)

// Tempo returns the MIDI tempo at which one song beat lasts 1/bps seconds.
func Tempo(bps int) float64 {
	ticksPerSecond := float64(bps * TicksPerBeat)
	return 60 * ticksPerSecond / Resolution
}

// Key maps a song pitch to a MIDI key, clamped to the valid range.
func Key(pitch int) uint8 {
	return uint8(min(max(BaseKey+pitch, 0), 127))
}

type event struct {
	tick  uint32
	order int
	msg   smf.Message
}

// Export writes one track per song track. Each sung note becomes a lyric
// event plus a note on/off pair; linebreaks are dropped.
func Export(song *ultrastar.Song, bps int, w io.Writer) error {
	if song == nil {
		return errors.New("no song to export")
	}
	if bps <= 0 {
		return fmt.Errorf("invalid beats per second %d", bps)
	}

	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(Resolution)

	tracks := []ultrastar.Track{ultrastar.P1}
	if song.IsDuet() {
		tracks = append(tracks, ultrastar.P2)
	}

	for i, name := range tracks {
		var track smf.Track
		track.Add(0, smf.MetaTrackSequenceName(string(name)))
		if i == 0 {
			if title, ok := song.Get("TITLE"); ok && title != "" {
				track.Add(0, smf.MetaText(title))
			}
			track.Add(0, smf.MetaTempo(Tempo(bps)))
		}

		var last uint32
		for _, ev := range trackEvents(song.SortedNotes(name), uint8(i)) {
			track.Add(ev.tick-last, ev.msg)
			last = ev.tick
		}
		track.Close(0)

		if err := s.Add(track); err != nil {
			return fmt.Errorf("add %s track: %w", name, err)
		}
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}

func trackEvents(notes []ultrastar.Note, channel uint8) []event {
	var events []event
	for _, n := range notes {
		if n.IsLinebreak() {
			continue
		}
		start := uint32(max(n.Start, 0) * TicksPerBeat)
		events = append(events, event{tick: start, order: 1, msg: smf.MetaLyric(n.Text)})
		if n.Duration <= 0 {
			continue
		}
		key := Key(n.Pitch)
		end := start + uint32(n.Duration*TicksPerBeat)
		events = append(events,
			event{tick: start, order: 2, msg: smf.Message(gomidi.NoteOn(channel, key, velocity))},
			event{tick: end, order: 0, msg: smf.Message(gomidi.NoteOff(channel, key))},
		)
	}
	// At equal ticks: note offs, then lyrics, then note ons.
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].order < events[j].order
	})
	return events
}
