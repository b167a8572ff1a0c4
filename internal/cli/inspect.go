package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"karaluxer/internal/ass"
	"karaluxer/internal/karaoke"
	"karaluxer/internal/overlap"
	"karaluxer/internal/tui"
	"karaluxer/pkg/ultrastar"
)

func newInspectCmd() *cobra.Command {
	var forceDialogue bool

	cmd := &cobra.Command{
		Use:   "inspect <file.ass|file.txt>",
		Short: "Summarize a subtitle file or an UltraStar song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			switch strings.ToLower(filepath.Ext(path)) {
			case ".ass":
				return inspectSubtitles(cmd.OutOrStdout(), path, forceDialogue)
			case ".txt":
				return inspectSong(cmd.OutOrStdout(), path)
			default:
				return fmt.Errorf("inspect %s: expected a .ass or .txt file", path)
			}
		},
	}

	cmd.Flags().BoolVar(&forceDialogue, "force-dialogue", false, "Inspect Dialogue lines even when Comment lines exist")
	return cmd
}

type overlapGroup struct {
	Start string   `json:"start"`
	End   string   `json:"end"`
	Lines []string `json:"lines"`
}

type subtitleSummary struct {
	File     string               `json:"file"`
	Title    string               `json:"title,omitempty"`
	Lines    int                  `json:"lines"`
	Styles   []overlap.StyleCount `json:"styles"`
	Overlaps []overlapGroup       `json:"overlaps"`
}

func summarizeSubtitles(path string, forceDialogue bool) (subtitleSummary, error) {
	script, err := ass.Load(path)
	if err != nil {
		return subtitleSummary{}, err
	}
	lines := script.Lines(forceDialogue)
	summary := subtitleSummary{
		File:     path,
		Title:    script.Title(),
		Lines:    len(lines),
		Styles:   overlap.Styles(lines),
		Overlaps: []overlapGroup{},
	}
	for _, group := range overlap.Groups(lines) {
		g := overlapGroup{Start: ass.FormatTime(group[0].Start)}
		end := group[0].End
		for _, ev := range group {
			if ev.End > end {
				end = ev.End
			}
			g.Lines = append(g.Lines, fmt.Sprintf("[%s] %s", ev.Style, karaoke.Strip(ev.Text)))
		}
		g.End = ass.FormatTime(end)
		summary.Overlaps = append(summary.Overlaps, g)
	}
	return summary, nil
}

func inspectSubtitles(w io.Writer, path string, forceDialogue bool) error {
	summary, err := summarizeSubtitles(path, forceDialogue)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(w, summary)
	}

	bold := lipgloss.NewStyle().Bold(true)
	faint := lipgloss.NewStyle().Faint(true)

	fmt.Fprintln(w, bold.Render("File:")+" "+summary.File)
	fmt.Fprintln(w, bold.Render("Title:")+" "+tui.NonEmptyOrDash(summary.Title))
	fmt.Fprintf(w, "%s %d\n\n", bold.Render("Lines:"), summary.Lines)

	fmt.Fprintln(w, bold.Render("STYLE                LINES"))
	for _, s := range summary.Styles {
		fmt.Fprintf(w, "%-20s %5d\n", tui.TruncateWithEllipsis(s.Style, 20), s.Lines)
	}
	fmt.Fprintln(w)

	if len(summary.Overlaps) == 0 {
		fmt.Fprintln(w, "No overlapping lines.")
		return nil
	}
	fmt.Fprintf(w, "%s %d\n", bold.Render("Overlap groups:"), len(summary.Overlaps))
	for _, g := range summary.Overlaps {
		fmt.Fprintln(w, faint.Render(g.Start+" - "+g.End))
		for _, line := range g.Lines {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return nil
}

type songSummary struct {
	File    string            `json:"file"`
	BPM     float64           `json:"bpm"`
	Headers map[string]string `json:"headers"`
	Duet    bool              `json:"duet"`
	Tracks  []trackSummary    `json:"tracks"`
}

type trackSummary struct {
	Track ultrastar.Track `json:"track"`
	Notes int             `json:"notes"`
	Lines int             `json:"lines"`
	First int             `json:"first_beat"`
	Last  int             `json:"last_beat"`
}

func summarizeSong(path string) (songSummary, error) {
	song, err := ultrastar.Load(path)
	if err != nil {
		return songSummary{}, err
	}
	summary := songSummary{
		File:    path,
		BPM:     song.BPM(),
		Headers: map[string]string{},
		Duet:    song.IsDuet(),
	}
	for _, key := range song.Keys() {
		if v, ok := song.Get(key); ok {
			summary.Headers[key] = v
		}
	}
	tracks := []ultrastar.Track{ultrastar.P1}
	if summary.Duet {
		tracks = append(tracks, ultrastar.P2)
	}
	for _, track := range tracks {
		ts := trackSummary{Track: track}
		notes := song.SortedNotes(track)
		for _, n := range notes {
			if n.IsLinebreak() {
				continue
			}
			if ts.Notes == 0 || n.Start < ts.First {
				ts.First = n.Start
			}
			if n.End() > ts.Last {
				ts.Last = n.End()
			}
			ts.Notes++
		}
		if ts.Notes > 0 {
			ts.Lines = 1
			for _, n := range notes {
				if n.IsLinebreak() {
					ts.Lines++
				}
			}
		}
		summary.Tracks = append(summary.Tracks, ts)
	}
	return summary, nil
}

func inspectSong(w io.Writer, path string) error {
	summary, err := summarizeSong(path)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(w, summary)
	}

	bold := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(w, bold.Render("File:")+" "+summary.File)
	for _, key := range []string{"TITLE", "ARTIST", "LANGUAGE", "YEAR", "CREATOR", "AUDIO", "VERSION"} {
		fmt.Fprintf(w, "%s %s\n", bold.Render(fmt.Sprintf("%-9s", key+":")), tui.NonEmptyOrDash(summary.Headers[key]))
	}
	fmt.Fprintf(w, "%s %g\n\n", bold.Render("BPM:     "), summary.BPM)

	fmt.Fprintln(w, bold.Render("TRACK  NOTES  LINES  BEATS"))
	for _, ts := range summary.Tracks {
		fmt.Fprintf(w, "%-5s  %5d  %5d  %d-%d\n", ts.Track, ts.Notes, ts.Lines, ts.First, ts.Last)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
