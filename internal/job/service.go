// Package job runs a complete conversion: download, subtitle conversion,
// asset staging, audio extraction and the optional post-processing steps.
package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"karaluxer/internal/ass"
	"karaluxer/internal/cache"
	"karaluxer/internal/config"
	"karaluxer/internal/kara"
	"karaluxer/internal/media"
	"karaluxer/internal/midi"
	"karaluxer/internal/overlap"
	"karaluxer/internal/paths"
	"karaluxer/internal/pitch"
	"karaluxer/pkg/ultrastar"
)

type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Service wires the collaborators of a conversion.
type Service struct {
	Config  config.Config
	Kara    *kara.Client
	// Cache, when set, keeps downloaded media between runs.
	Cache   *cache.Store
	Media   *media.Service
	Pitch   *pitch.Processor
	Decider overlap.Decider
	Logger  Logger
	// Status, when set, receives a short message at the start of each step.
	Status func(msg string)
}

// NewService builds a service from cfg with the default collaborators.
func NewService(cfg config.Config, logger Logger) *Service {
	if logger == nil {
		logger = noopLogger{}
	}
	client := kara.NewClient(cfg.Kara.BaseURL, cfg.Kara.Timeout(), cfg.Kara.UserAgent)
	client.Logger = logger
	return &Service{
		Config: cfg,
		Kara:   client,
		Media:  media.NewService(cfg.Media.FFmpeg, nil, logger),
		Pitch: &pitch.Processor{
			Command: cfg.Pitch.Command,
			Args:    cfg.Pitch.Args,
			Logger:  logger,
		},
		Logger: logger,
	}
}

// Result describes the written song.
type Result struct {
	Dir      string
	SongFile string
	MIDIFile string
	Song     *ultrastar.Song
	Warnings []string
	Lines    int
	Kept     int
}

// sources are the input files of a run, manual or downloaded.
type sources struct {
	subtitles    string
	media        string
	instrumental string
}

func (s *Service) logf(format string, v ...any) {
	if s.Logger == nil {
		return
	}
	s.Logger.Printf(format, v...)
}

func (s *Service) status(msg string) {
	s.logf("job: %s", msg)
	if s.Status != nil {
		s.Status(msg)
	}
}

// Run performs the whole conversion described by opts.
func (s *Service) Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Policy == "" {
		opts.Policy = overlap.Policy(s.Config.Conversion.OverlapPolicy)
	}
	if opts.SongBPM == 0 {
		opts.SongBPM = s.Config.Conversion.SongBPM
	}
	if opts.OutputDir == "" {
		opts.OutputDir = s.Config.Output.Dir
	}
	policy, err := overlap.ParsePolicy(string(opts.Policy))
	if err != nil {
		return Result{}, &ConfigError{Field: "overlap", Err: err}
	}
	opts.Policy = policy
	if err := opts.Validate(s.Config.Conversion.BeatsPerSecond); err != nil {
		return Result{}, err
	}

	workDir, err := os.MkdirTemp("", "karaluxer-*")
	if err != nil {
		return Result{}, fmt.Errorf("create work dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	meta := Metadata{Creator: opts.Creator}
	src := sources{subtitles: opts.SubtitleFile, media: opts.Audio, instrumental: opts.Instrumental}
	if opts.KaraURL != "" {
		meta, src, err = s.fetch(ctx, opts, workDir, src)
		if err != nil {
			return Result{}, err
		}
	}
	meta = overrideMetadata(meta, opts)

	s.status("Reading subtitles")
	script, err := ass.Load(src.subtitles)
	if err != nil {
		return Result{}, err
	}
	if meta.Title == "" {
		meta.Title = script.Title()
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(filepath.Base(src.subtitles), filepath.Ext(src.subtitles))
	}
	if opts.TVSized {
		meta.Title += " (TV)"
	}

	s.status("Converting lines")
	conv, err := Convert(ctx, script, ConvertOptions{
		BeatsPerSecond: s.Config.Conversion.BeatsPerSecond,
		Pitch:          s.Config.Conversion.PitchValue(),
		ShrinkBeats:    s.Config.Conversion.ShrinkValue(),
		SongBPM:        opts.SongBPM,
		Policy:         opts.Policy,
		ForceDialogue:  opts.ForceDialogue || s.Config.Conversion.ForceDialogue,
		Decider:        s.Decider,
		Logger:         s.Logger,
		Metadata:       meta,
	})
	if err != nil {
		return Result{}, err
	}
	song := conv.Song
	warnings := conv.Warnings

	title, _ := song.Get("TITLE")
	artist, _ := song.Get("ARTIST")
	base := paths.SongBaseName(artist, title)
	dir := filepath.Join(opts.OutputDir, base)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create song dir: %w", err)
	}

	audioPath, w, err := s.stageAssets(ctx, opts, src, song, dir, base)
	warnings = append(warnings, w...)
	if err != nil {
		return Result{}, err
	}

	s.status("Writing song file")
	songPath := filepath.Join(dir, base+".txt")
	if err := writeSong(song, songPath); err != nil {
		return Result{}, err
	}

	if s.Pitch.Enabled() {
		s.status("Detecting pitches")
		repitched, err := s.Pitch.Process(ctx, songPath, audioPath)
		if err != nil {
			return Result{}, err
		}
		song = repitched
	}

	result := Result{
		Dir:      dir,
		SongFile: songPath,
		Song:     song,
		Warnings: warnings,
		Lines:    conv.Lines,
		Kept:     conv.Kept,
	}
	if opts.MIDI || s.Config.Output.MIDI {
		s.status("Exporting MIDI")
		result.MIDIFile = filepath.Join(dir, base+".mid")
		if err := writeMIDI(song, s.Config.Conversion.BeatsPerSecond, result.MIDIFile); err != nil {
			return Result{}, err
		}
	}
	s.logf("job: wrote %s (%d warnings)", songPath, len(warnings))
	return result, nil
}

// fetch downloads metadata and every file the user did not supply.
func (s *Service) fetch(ctx context.Context, opts Options, workDir string, src sources) (Metadata, sources, error) {
	id, err := kara.ParseID(opts.KaraURL)
	if err != nil {
		return Metadata{}, src, &ConfigError{Field: "kara", Err: err}
	}

	s.status("Fetching kara metadata")
	info, err := s.Kara.Song(ctx, id)
	if err != nil {
		return Metadata{}, src, fmt.Errorf("fetch kara %s: %w", id, err)
	}
	meta := Metadata{
		Title:    info.Title,
		Artist:   strings.Join(info.Artists, " & "),
		Language: info.Language,
		Year:     info.Year,
		Creator:  joinNonEmpty(" & ", strings.Join(info.Authors, " & "), opts.Creator),
		Tags:     info.Tags,
		Source:   opts.KaraURL,
	}

	if src.subtitles == "" {
		if info.SubFile == "" {
			return meta, src, fmt.Errorf("kara %s has no subtitle file", id)
		}
		s.status("Downloading subtitles")
		if src.subtitles, err = s.Kara.Download(ctx, info.SubFile, workDir); err != nil {
			return meta, src, fmt.Errorf("download subtitles: %w", err)
		}
	}
	if opts.SkipMedia {
		return meta, src, nil
	}
	if src.media == "" && info.MediaFile != "" {
		s.status("Downloading media")
		if src.media, err = s.downloadMedia(ctx, id, info.MediaFile, workDir); err != nil {
			return meta, src, fmt.Errorf("download media: %w", err)
		}
	}
	if src.instrumental == "" && info.OffVocalFile != "" {
		s.status("Downloading off vocal media")
		if src.instrumental, err = s.downloadMedia(ctx, id, info.OffVocalFile, workDir); err != nil {
			return meta, src, fmt.Errorf("download off vocal media: %w", err)
		}
	}
	return meta, src, nil
}

// downloadMedia fetches a media file through the cache when one is set.
// Subtitles always come straight from kara.moe since they are edited often.
func (s *Service) downloadMedia(ctx context.Context, id, filename, workDir string) (string, error) {
	if s.Cache == nil {
		return s.Kara.Download(ctx, filename, workDir)
	}
	path, hit, err := s.Cache.Fetch(ctx, id, filename, s.Kara.Download)
	if err != nil {
		return "", err
	}
	if hit {
		s.logf("job: using cached %s", path)
	}
	return path, nil
}

func overrideMetadata(meta Metadata, opts Options) Metadata {
	if opts.Title != "" {
		meta.Title = opts.Title
	}
	if opts.Artist != "" {
		meta.Artist = opts.Artist
	}
	if opts.Language != "" {
		meta.Language = opts.Language
	}
	if opts.Year > 0 {
		meta.Year = opts.Year
	}
	return meta
}

// stageAssets copies or transcodes the media files into dir and sets the
// matching headers. It returns the path of the song audio.
func (s *Service) stageAssets(ctx context.Context, opts Options, src sources, song *ultrastar.Song, dir, base string) (string, []string, error) {
	var warnings []string

	audioPath := ""
	if src.media != "" {
		s.status("Extracting audio")
		path, w, err := s.audio(ctx, opts, src.media, filepath.Join(dir, base), true)
		warnings = append(warnings, w...)
		if err != nil {
			return "", warnings, err
		}
		audioPath = path
		song.Set("AUDIO", filepath.Base(path))
		song.Set("MP3", filepath.Base(path))

		if media.IsVideo(src.media) && opts.BackgroundVideo == "" {
			dest := filepath.Join(dir, base+strings.ToLower(filepath.Ext(src.media)))
			if _, err := media.Stage(src.media, dest); err != nil {
				return "", warnings, fmt.Errorf("stage video: %w", err)
			}
			song.Set("VIDEO", filepath.Base(dest))
		}
	}

	if src.instrumental != "" {
		s.status("Extracting instrumental")
		path, w, err := s.audio(ctx, opts, src.instrumental, filepath.Join(dir, base+" [INSTR]"), false)
		warnings = append(warnings, w...)
		if err != nil {
			return "", warnings, err
		}
		song.Set("INSTRUMENTAL", filepath.Base(path))
	}

	for _, a := range []struct {
		key, path, suffix string
	}{
		{"COVER", opts.Cover, " [CO]"},
		{"BACKGROUND", opts.BackgroundImage, " [BG]"},
		{"VIDEO", opts.BackgroundVideo, ""},
	} {
		if a.path == "" {
			continue
		}
		dest := filepath.Join(dir, base+a.suffix+strings.ToLower(filepath.Ext(a.path)))
		if _, err := media.Stage(a.path, dest); err != nil {
			return "", warnings, fmt.Errorf("stage %s: %w", strings.ToLower(a.key), err)
		}
		song.Set(a.key, filepath.Base(dest))
	}
	return audioPath, warnings, nil
}

// audio produces "<stem>.mp3" from src. With SkipMedia, or for an MP3 that
// needs no gain, the file is copied instead. Loudness failures only warn.
func (s *Service) audio(ctx context.Context, opts Options, src, stem string, normalize bool) (string, []string, error) {
	isMP3 := strings.EqualFold(filepath.Ext(src), ".mp3")
	if opts.SkipMedia {
		dest := stem + strings.ToLower(filepath.Ext(src))
		if _, err := media.Stage(src, dest); err != nil {
			return "", nil, fmt.Errorf("stage audio: %w", err)
		}
		return dest, nil, nil
	}

	var warnings []string
	gain := 0.0
	if normalize && s.Config.Media.NormalizeAudioEnabled() {
		g, err := s.Media.Loudness(ctx, src)
		if err != nil {
			w := fmt.Sprintf("loudness detection failed, audio left unnormalized: %v", err)
			warnings = append(warnings, w)
			s.logf("job: %s", w)
		} else {
			gain = g
		}
	}

	dest := stem + ".mp3"
	if isMP3 && gain == 0 {
		if _, err := media.Stage(src, dest); err != nil {
			return "", warnings, fmt.Errorf("stage audio: %w", err)
		}
		return dest, warnings, nil
	}
	if err := s.Media.TranscodeMP3(ctx, src, dest, gain, s.Config.Media.BitrateKbps); err != nil {
		return "", warnings, err
	}
	return dest, warnings, nil
}

func writeSong(song *ultrastar.Song, path string) error {
	return writeAtomic(path, func(f *os.File) error {
		_, err := song.WriteTo(f)
		return err
	})
}

func writeMIDI(song *ultrastar.Song, bps int, path string) error {
	return writeAtomic(path, func(f *os.File) error {
		return midi.Export(song, bps, f)
	})
}

// writeAtomic writes through a temporary file in the target directory.
func writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}

func joinNonEmpty(sep string, values ...string) string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}

// IsConfigError reports whether err stems from invalid options.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
