// Package ass reads the event lines of Advanced SubStation Alpha subtitle
// files, keeping karaoke override tags intact.
package ass

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Kind tells whether an event came from a Dialogue or a Comment line.
type Kind string

const (
	KindDialogue Kind = "Dialogue"
	KindComment  Kind = "Comment"
)

// Event is one timed subtitle line.
type Event struct {
	// Index is the 1-based position of the event in the file. It identifies
	// the event when several lines share timing and text.
	Index int
	Kind  Kind
	Start time.Duration
	End   time.Duration
	Style string
	Text  string
}

// Overlaps reports whether e is still showing when next starts.
func (e Event) Overlaps(next Event) bool {
	return e.End > next.Start
}

// Script is a parsed subtitle file.
type Script struct {
	Info   map[string]string
	Events []Event
}

// Load reads a subtitle file from disk.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitles: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse reads a subtitle file. UTF-8 (with or without BOM) and UTF-16 with a
// BOM are decoded directly; anything else that is not valid UTF-8 is read as
// Windows-1252.
func Parse(r io.Reader) (*Script, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read subtitles: %w", err)
	}
	text, err := decode(raw)
	if err != nil {
		return nil, err
	}

	script := &Script{Info: map[string]string{}}
	section := ""
	var format []string

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	eventIndex := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		trim := strings.TrimSpace(line)
		if trim == "" || strings.HasPrefix(trim, ";") {
			continue
		}
		if strings.HasPrefix(trim, "[") && strings.HasSuffix(trim, "]") {
			section = strings.ToLower(strings.Trim(trim, "[]"))
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)

		switch section {
		case "script info":
			script.Info[key] = strings.TrimSpace(value)
		case "events":
			switch strings.ToLower(key) {
			case "format":
				format = splitFormat(value)
			case "dialogue", "comment":
				if len(format) == 0 {
					format = defaultFormat
				}
				eventIndex++
				ev, err := parseEvent(strings.TrimLeft(value, " "), format)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				ev.Index = eventIndex
				if strings.EqualFold(key, "comment") {
					ev.Kind = KindComment
				} else {
					ev.Kind = KindDialogue
				}
				script.Events = append(script.Events, ev)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan subtitles: %w", err)
	}
	return script, nil
}

// Lines returns the events the converter should use, sorted by start time.
// Comment lines carry the untouched karaoke timing in most karaoke releases,
// so they win unless there are none or dialogue is forced.
func (s *Script) Lines(forceDialogue bool) []Event {
	var comments, dialogue []Event
	for _, ev := range s.Events {
		switch ev.Kind {
		case KindComment:
			comments = append(comments, ev)
		case KindDialogue:
			dialogue = append(dialogue, ev)
		}
	}

	lines := comments
	if len(comments) == 0 || forceDialogue {
		lines = dialogue
	}
	lines = append([]Event(nil), lines...)
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Start < lines[j].Start
	})
	return lines
}

// Title returns the script title, if any.
func (s *Script) Title() string {
	return s.Info["Title"]
}

var defaultFormat = []string{
	"Layer", "Start", "End", "Style", "Name", "MarginL", "MarginR", "MarginV", "Effect", "Text",
}

func splitFormat(value string) []string {
	fields := strings.Split(value, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func parseEvent(value string, format []string) (Event, error) {
	// Text is always the last column and may itself contain commas.
	parts := strings.SplitN(value, ",", len(format))
	if len(parts) != len(format) {
		return Event{}, fmt.Errorf("event has %d fields, format expects %d", len(parts), len(format))
	}

	var ev Event
	for i, name := range format {
		field := parts[i]
		switch strings.ToLower(name) {
		case "start":
			d, err := ParseTime(field)
			if err != nil {
				return Event{}, err
			}
			ev.Start = d
		case "end":
			d, err := ParseTime(field)
			if err != nil {
				return Event{}, err
			}
			ev.End = d
		case "style":
			ev.Style = strings.TrimSpace(field)
		case "text":
			ev.Text = field
		}
	}
	return ev, nil
}

// ParseTime parses an H:MM:SS.cc timestamp.
func ParseTime(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	sec, frac, _ := strings.Cut(parts[2], ".")
	s, err := strconv.Atoi(sec)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	cs := 0
	if frac != "" {
		// Only centiseconds are meaningful; pad or truncate to two digits.
		frac = (frac + "00")[:2]
		cs, err = strconv.Atoi(frac)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", value, err)
		}
	}
	total := time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(cs)*10*time.Millisecond
	return total, nil
}

// FormatTime renders d as H:MM:SS.cc.
func FormatTime(d time.Duration) string {
	cs := d.Milliseconds() / 10
	h := cs / 360000
	m := cs / 6000 % 60
	s := cs / 100 % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}

func decode(raw []byte) (string, error) {
	bomAware := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	if hasUTF16BOM(raw) || utf8.Valid(raw) {
		out, _, err := transform.Bytes(bomAware, raw)
		if err != nil {
			return "", fmt.Errorf("decode subtitles: %w", err)
		}
		return string(out), nil
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("decode subtitles: %w", err)
	}
	return string(out), nil
}

func hasUTF16BOM(raw []byte) bool {
	return len(raw) >= 2 && ((raw[0] == 0xFF && raw[1] == 0xFE) || (raw[0] == 0xFE && raw[1] == 0xFF))
}
