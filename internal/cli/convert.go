package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"karaluxer/internal/cache"
	"karaluxer/internal/job"
	"karaluxer/internal/overlap"
	"karaluxer/internal/paths"
	"karaluxer/internal/tui"
)

type convertFlags struct {
	subtitles    string
	audio        string
	cover        string
	background   string
	video        string
	instrumental string

	title    string
	artist   string
	language string
	year     int
	creator  string
	tv       bool

	overlapPolicy string
	forceDialogue bool
	songBPM       float64

	output  string
	midi    bool
	noMedia bool
	noCache bool
	noInput bool
	plain   bool
}

func newConvertCmd() *cobra.Command {
	var flags convertFlags

	cmd := &cobra.Command{
		Use:   "convert [kara-url]",
		Short: "Convert a kara.moe karaoke or a local .ass file into an UltraStar song",
		Long: `Convert a karaoke into an UltraStar song folder.

The source is either a kara.moe URL (or bare kara ID), a local .ass file given
with --ass, or both. Files passed with --ass, --audio, --cover, --background,
--video or --instrumental replace the ones downloaded from kara.moe.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, flags, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.subtitles, "ass", "", "Subtitle file (.ass) with karaoke timings")
	f.StringVar(&flags.audio, "audio", "", "Audio or video file to extract the song audio from")
	f.StringVar(&flags.cover, "cover", "", "Cover image")
	f.StringVar(&flags.background, "background", "", "Background image")
	f.StringVar(&flags.video, "video", "", "Background video")
	f.StringVar(&flags.instrumental, "instrumental", "", "Instrumental (off vocal) audio")
	f.StringVar(&flags.title, "title", "", "Override the song title")
	f.StringVar(&flags.artist, "artist", "", "Override the artist")
	f.StringVar(&flags.language, "language", "", "Override the language")
	f.IntVar(&flags.year, "year", 0, "Override the release year")
	f.StringVar(&flags.creator, "creator", "", "Name to add to the CREATOR header")
	f.BoolVar(&flags.tv, "tv", false, "Mark the song as TV sized")
	f.StringVar(&flags.overlapPolicy, "overlap", "", "Overlap policy: ignore, individual, style or duet (default from config)")
	f.BoolVar(&flags.forceDialogue, "force-dialogue", false, "Treat Comment lines as Dialogue")
	f.Float64Var(&flags.songBPM, "song-bpm", 0, "Real tempo of the song; coarsens the beat grid when set")
	f.StringVarP(&flags.output, "output", "o", "", "Output directory (default from config)")
	f.BoolVar(&flags.midi, "midi", false, "Also export a MIDI file")
	f.BoolVar(&flags.noMedia, "no-media", false, "Do not download or transcode media")
	f.BoolVar(&flags.noCache, "no-cache", false, "Download media again instead of using the cache")
	f.BoolVar(&flags.noInput, "no-input", false, "Never ask questions; keep the earliest lines and the largest styles")
	f.BoolVar(&flags.plain, "plain", false, "Disable the interactive progress view")

	return cmd
}

func (f convertFlags) options(args []string) job.Options {
	opts := job.Options{
		SubtitleFile:    f.subtitles,
		Audio:           f.audio,
		Cover:           f.cover,
		BackgroundImage: f.background,
		BackgroundVideo: f.video,
		Instrumental:    f.instrumental,
		Title:           f.title,
		Artist:          f.artist,
		Language:        f.language,
		Year:            f.year,
		Creator:         f.creator,
		TVSized:         f.tv,
		Policy:          overlap.Policy(f.overlapPolicy),
		ForceDialogue:   f.forceDialogue,
		SongBPM:         f.songBPM,
		OutputDir:       f.output,
		MIDI:            f.midi,
		SkipMedia:       f.noMedia,
	}
	if len(args) > 0 {
		opts.KaraURL = args[0]
	}
	return opts
}

func runConvert(cmd *cobra.Command, flags convertFlags, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, cfgPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closer := openLogger(cmd)
	defer closer.Close()
	logger.Printf("karaluxer convert: config=%q args=%q", cfgPath, args)

	svc := job.NewService(cfg, logger)
	opts := flags.options(args)
	if opts.KaraURL != "" && cfg.Kara.CacheEnabled() && !flags.noCache {
		if dir, err := paths.GlobalCacheDir(); err != nil {
			logger.Printf("download cache disabled: %v", err)
		} else {
			svc.Cache = cache.New(dir, logger)
		}
	}

	mode := tui.DetectMode(cmd.OutOrStdout(), flags.plain, outputJSON)
	interactive := !flags.noInput && tui.CanPrompt(cmd.InOrStdin(), mode)
	logger.Printf("output mode=%s interactive=%v", mode, interactive)

	var result job.Result
	switch {
	case mode == tui.ModeTUI && interactive:
		result, err = convertTUI(ctx, cmd, svc, opts)
	default:
		result, err = convertPlain(ctx, cmd, svc, opts, mode, interactive)
	}
	if err != nil {
		logger.Printf("convert failed: %v", err)
		return err
	}

	if outputJSON {
		return writeConvertJSON(cmd.OutOrStdout(), result)
	}
	printConvertResult(cmd, result, mode == tui.ModePlain)
	return nil
}

// convertTUI runs the job behind the bubbletea view. Overlap questions are
// drained from the decider channel and answered in the chooser.
func convertTUI(ctx context.Context, cmd *cobra.Command, svc *job.Service, opts job.Options) (job.Result, error) {
	decider, requests := overlap.NewChannelDecider()
	defer decider.Close()
	svc.Decider = decider

	var result job.Result
	title := "karaluxer"
	if opts.KaraURL != "" {
		title += " · " + opts.KaraURL
	} else if opts.SubtitleFile != "" {
		title += " · " + filepath.Base(opts.SubtitleFile)
	}
	err := tui.RunConvert(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), title, requests, func(ctx context.Context, send func(tea.Msg)) error {
		svc.Status = func(msg string) { send(tui.StatusMsg{Text: msg}) }
		res, err := svc.Run(ctx, opts)
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			send(tui.WarningMsg{Text: w})
		}
		result = res
		return nil
	})
	return result, err
}

// convertPlain runs the job with a status line on stderr. Questions are asked
// as text prompts when a person can answer, otherwise the earliest lines and
// the largest styles are kept.
func convertPlain(ctx context.Context, cmd *cobra.Command, svc *job.Service, opts job.Options, mode tui.OutputMode, interactive bool) (job.Result, error) {
	var status *tui.StatusWriter
	if mode != tui.ModeJSON {
		status = tui.NewStatusWriter(cmd.ErrOrStderr())
		svc.Status = status.Update
	}

	if interactive {
		prompt := tui.NewPrompt(cmd.InOrStdin(), cmd.ErrOrStderr())
		if status != nil {
			prompt.Hold = status.Hold
		}
		svc.Decider = prompt
	} else {
		svc.Decider = overlap.KeepEarliest{}
	}

	result, err := svc.Run(ctx, opts)
	if status != nil {
		status.Stop()
		for _, w := range result.Warnings {
			status.Warn(w)
		}
	}
	return result, err
}

type convertPayload struct {
	Dir      string   `json:"dir"`
	SongFile string   `json:"song_file"`
	MIDIFile string   `json:"midi_file,omitempty"`
	Lines    int      `json:"lines"`
	Kept     int      `json:"kept"`
	Duet     bool     `json:"duet"`
	Warnings []string `json:"warnings"`
}

func writeConvertJSON(w io.Writer, result job.Result) error {
	payload := convertPayload{
		Dir:      result.Dir,
		SongFile: result.SongFile,
		MIDIFile: result.MIDIFile,
		Lines:    result.Lines,
		Kept:     result.Kept,
		Warnings: result.Warnings,
	}
	if result.Song != nil {
		payload.Duet = result.Song.IsDuet()
	}
	if payload.Warnings == nil {
		payload.Warnings = []string{}
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printConvertResult(cmd *cobra.Command, result job.Result, warned bool) {
	bold := lipgloss.NewStyle().Bold(true)
	faint := lipgloss.NewStyle().Faint(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	cmd.Println(bold.Render("Song:") + " " + result.SongFile)
	if result.MIDIFile != "" {
		cmd.Println(bold.Render("MIDI:") + " " + result.MIDIFile)
	}
	cmd.Println(faint.Render(fmt.Sprintf("  %d of %d lines kept", result.Kept, result.Lines)))
	if len(result.Warnings) > 0 && !warned {
		cmd.Println(yellow.Render(fmt.Sprintf("  %d warnings", len(result.Warnings))))
	}
}
