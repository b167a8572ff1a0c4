// Package pitch runs an external pitch detection tool over a written song
// file and reads the re-pitched result back.
package pitch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"karaluxer/internal/media"
	"karaluxer/pkg/ultrastar"
)

type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Placeholders substituted in Args.
const (
	SongPlaceholder  = "{song}"
	AudioPlaceholder = "{audio}"
)

// Processor describes the external tool. The song path is appended to Args
// when no argument mentions SongPlaceholder.
type Processor struct {
	Command string
	Args    []string
	Runner  media.Runner
	Logger  Logger
}

// Enabled reports whether a command is configured.
func (p *Processor) Enabled() bool {
	return p != nil && strings.TrimSpace(p.Command) != ""
}

// Process runs the tool, which rewrites songPath in place, and parses the
// rewritten file.
func (p *Processor) Process(ctx context.Context, songPath, audioPath string) (*ultrastar.Song, error) {
	if !p.Enabled() {
		return nil, errors.New("no pitch command configured")
	}
	runner := p.Runner
	if runner == nil {
		runner = media.CmdRunner{}
	}
	logger := p.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	args := p.expandArgs(songPath, audioPath)
	logger.Printf("pitch: %s %s", p.Command, strings.Join(args, " "))
	result, err := runner.Run(ctx, p.Command, args, media.RunOptions{Dir: filepath.Dir(songPath)})
	if err != nil {
		if msg := strings.TrimSpace(string(result.Stderr)); msg != "" {
			return nil, fmt.Errorf("pitch command: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("pitch command: %w", err)
	}

	song, err := ultrastar.Load(songPath)
	if err != nil {
		return nil, fmt.Errorf("read re-pitched song: %w", err)
	}
	return song, nil
}

func (p *Processor) expandArgs(songPath, audioPath string) []string {
	args := make([]string, 0, len(p.Args)+1)
	hasSong := false
	for _, arg := range p.Args {
		if strings.Contains(arg, SongPlaceholder) {
			hasSong = true
		}
		arg = strings.ReplaceAll(arg, SongPlaceholder, songPath)
		arg = strings.ReplaceAll(arg, AudioPlaceholder, audioPath)
		args = append(args, arg)
	}
	if !hasSong {
		args = append(args, songPath)
	}
	return args
}
