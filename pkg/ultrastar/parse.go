package ultrastar

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Load reads a song file from disk.
func Load(path string) (*Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open song: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a song file. Headers may appear in any order; a missing BPM
// header is an error because beats cannot be placed in time without it.
func Parse(r io.Reader) (*Song, error) {
	song := NewSong(0)
	var errs ValidationErrors

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	track := P1
	ended := false
	sawBPM := false
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "#"):
			key, value, ok := strings.Cut(trimmed[1:], ":")
			if !ok {
				errs = append(errs, ValidationError{Line: lineNo, Message: "header without ':'"})
				continue
			}
			if normalizeKey(key) == "BPM" {
				if _, err := parseFloat(value); err != nil {
					errs = append(errs, ValidationError{Line: lineNo, Field: "BPM", Message: "is not a number"})
					continue
				}
				sawBPM = true
			}
			song.Set(key, value)
		case isTrackMarker(trimmed):
			track = Track(strings.ReplaceAll(trimmed, " ", ""))
			ended = false
		case trimmed == endMarker:
			ended = true
		case ended:
			// Anything after the end marker is ignored by the game.
		default:
			n, err := parseNote(raw)
			if err != nil {
				errs = append(errs, ValidationError{Line: lineNo, Message: err.Error()})
				continue
			}
			if err := song.AddNote(track, n); err != nil {
				errs = append(errs, ValidationError{Line: lineNo, Message: err.Error()})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read song: %w", err)
	}
	if !sawBPM {
		errs = append(errs, ValidationError{Field: "BPM", Message: "header missing"})
	}
	if len(errs) > 0 {
		return song, errs
	}
	return song, nil
}

func isTrackMarker(s string) bool {
	s = strings.ReplaceAll(s, " ", "")
	return s == string(P1) || s == string(P2)
}

func parseNote(line string) (Note, error) {
	line = strings.TrimLeft(line, " \t")
	if line == "" {
		return Note{}, fmt.Errorf("empty note line")
	}
	typ := NoteType(line[:1])
	if !typ.Valid() {
		return Note{}, fmt.Errorf("unknown note type %q", line[:1])
	}
	rest := strings.TrimLeft(line[1:], " ")

	if typ == NoteLinebreak {
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return Note{}, fmt.Errorf("linebreak without beat")
		}
		beat, err := strconv.Atoi(fields[0])
		if err != nil {
			return Note{}, fmt.Errorf("invalid linebreak beat %q", fields[0])
		}
		return Linebreak(beat), nil
	}

	parts := strings.SplitN(rest, " ", 4)
	if len(parts) < 4 {
		return Note{}, fmt.Errorf("note needs start, duration, pitch and text")
	}
	nums := make([]int, 3)
	for i, label := range []string{"start", "duration", "pitch"} {
		v, err := strconv.Atoi(parts[i])
		if err != nil {
			return Note{}, fmt.Errorf("invalid %s %q", label, parts[i])
		}
		nums[i] = v
	}
	return Note{Type: typ, Start: nums[0], Duration: nums[1], Pitch: nums[2], Text: parts[3]}, nil
}
