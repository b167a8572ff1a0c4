// Package media wraps the ffmpeg invocations used to prepare song audio.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// DefaultBitrateKbps is used when no bitrate is configured.
const DefaultBitrateKbps = 320

// Service runs ffmpeg through a Runner.
type Service struct {
	Runner Runner
	FFmpeg string
	Logger Logger
	// LogDir, when set, receives one log file per ffmpeg run.
	LogDir string
}

// NewService returns a service using the given ffmpeg binary, or "ffmpeg"
// from PATH when empty.
func NewService(ffmpeg string, runner Runner, logger Logger) *Service {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if runner == nil {
		runner = CmdRunner{}
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Service{Runner: runner, FFmpeg: ffmpeg, Logger: logger}
}

func (s *Service) logf(format string, v ...any) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Printf(format, v...)
}

var maxVolumePattern = regexp.MustCompile(`max_volume:\s*(-?[0-9.]+|-inf) dB`)

// Loudness measures the peak level of src and returns the gain in dB that
// brings it to 0 dB. Zero means the audio is already normalized.
func (s *Service) Loudness(ctx context.Context, src string) (float64, error) {
	args := []string{
		"-hide_banner",
		"-nostats",
		"-i", src,
		"-vn",
		"-af", "volumedetect",
		"-f", "null",
		"-",
	}
	s.logf("ffmpeg volumedetect source=%s", src)
	result, err := s.run(ctx, "volumedetect", args)
	if err != nil {
		return 0, fmt.Errorf("ffmpeg volumedetect: %w", err)
	}
	return parseMaxVolume(string(result.Stderr))
}

func parseMaxVolume(output string) (float64, error) {
	match := maxVolumePattern.FindStringSubmatch(output)
	if match == nil {
		return 0, errors.New("ffmpeg did not report max_volume")
	}
	if match[1] == "-inf" {
		// Silence cannot be normalized.
		return 0, nil
	}
	peak, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse max_volume %q: %w", match[1], err)
	}
	if peak >= 0 {
		return 0, nil
	}
	return -peak, nil
}

// TranscodeMP3 extracts the audio of src into an MP3 at dst, applying
// gainDB when it is non-zero.
func (s *Service) TranscodeMP3(ctx context.Context, src, dst string, gainDB float64, bitrateKbps int) error {
	if bitrateKbps <= 0 {
		bitrateKbps = DefaultBitrateKbps
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", src,
		"-vn",
	}
	if gainDB != 0 {
		args = append(args, "-af", "volume="+strconv.FormatFloat(gainDB, 'f', 2, 64)+"dB")
	}
	args = append(args,
		"-c:a", "libmp3lame",
		"-b:a", strconv.Itoa(bitrateKbps)+"k",
		dst,
	)

	s.logf("ffmpeg transcode source=%s target=%s gain=%.2fdB", src, dst, gainDB)
	if _, err := s.run(ctx, "transcode", args); err != nil {
		return fmt.Errorf("ffmpeg transcode: %w", err)
	}
	return nil
}

func (s *Service) run(ctx context.Context, step string, args []string) (RunResult, error) {
	opts := RunOptions{}
	logPath := ""
	if s.LogDir != "" {
		if err := os.MkdirAll(s.LogDir, 0o755); err != nil {
			return RunResult{}, fmt.Errorf("ensure logs dir: %w", err)
		}
		logPath = filepath.Join(s.LogDir, "ffmpeg_"+step+".log")
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return RunResult{}, fmt.Errorf("open %s log: %w", step, err)
		}
		defer logFile.Close()
		opts.Stdout = logFile
		opts.Stderr = logFile
	}

	result, err := s.Runner.Run(ctx, s.FFmpeg, args, opts)
	if err != nil {
		if logPath != "" {
			return result, fmt.Errorf("%w (see %s)", err, logPath)
		}
		if tail := lastLine(string(result.Stderr)); tail != "" {
			return result, fmt.Errorf("%w: %s", err, tail)
		}
		return result, err
	}
	return result, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
