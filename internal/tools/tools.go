package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"karaluxer/internal/config"
	"karaluxer/internal/media"
)

// Definition describes an external program karaluxer calls.
type Definition struct {
	Name           string
	Command        string
	VersionSwitch  string
	MinimumVersion string
	// Optional tools only produce a warning when missing.
	Optional bool
}

// Status captures the resolved state of a tool.
type Status struct {
	Tool      string   `json:"tool"`
	Command   string   `json:"command"`
	Path      string   `json:"path,omitempty"`
	Version   string   `json:"version,omitempty"`
	Minimum   string   `json:"minimum,omitempty"`
	Optional  bool     `json:"optional,omitempty"`
	Satisfied bool     `json:"satisfied"`
	Error     string   `json:"error,omitempty"`
	Hints     []string `json:"hints,omitempty"`
}

// Definitions lists the tools the configuration refers to. The pitch tool
// is only listed when a command is configured.
func Definitions(cfg config.Config) []Definition {
	defs := []Definition{{
		Name:           "ffmpeg",
		Command:        cfg.Media.FFmpeg,
		VersionSwitch:  "-version",
		MinimumVersion: "4.0",
	}}
	if cmd := strings.TrimSpace(cfg.Pitch.Command); cmd != "" {
		defs = append(defs, Definition{
			Name:          "pitch",
			Command:       cmd,
			VersionSwitch: "--version",
			Optional:      true,
		})
	}
	return defs
}

// Prober runs version checks. Zero values use exec.LookPath and
// media.CmdRunner.
type Prober struct {
	LookPath func(file string) (string, error)
	Runner   media.Runner
}

// Detect returns the status of each definition in order.
func (p Prober) Detect(ctx context.Context, defs []Definition) []Status {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	statuses := make([]Status, 0, len(defs))
	for _, def := range defs {
		statuses = append(statuses, p.detectOne(ctx, def))
	}
	return statuses
}

func (p Prober) detectOne(ctx context.Context, def Definition) Status {
	status := Status{
		Tool:     def.Name,
		Command:  def.Command,
		Minimum:  def.MinimumVersion,
		Optional: def.Optional,
	}

	lookPath := p.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(def.Command)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			status.Error = "not found"
		} else {
			status.Error = err.Error()
		}
		status.Hints = installHints(def.Name)
		return status
	}
	status.Path = path

	version, err := p.readVersion(ctx, def, path)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Version = version
	status.Satisfied = meetsMinimum(version, def.MinimumVersion)
	if !status.Satisfied {
		status.Error = fmt.Sprintf("version %s below minimum %s", version, def.MinimumVersion)
		status.Hints = installHints(def.Name)
	}
	return status
}

func (p Prober) readVersion(ctx context.Context, def Definition, path string) (string, error) {
	runner := p.Runner
	if runner == nil {
		runner = media.CmdRunner{}
	}
	result, err := runner.Run(ctx, path, []string{def.VersionSwitch}, media.RunOptions{})
	if err != nil {
		return "", fmt.Errorf("%s version: %w", def.Name, err)
	}
	output := strings.TrimSpace(string(result.Stdout))
	if output == "" {
		output = strings.TrimSpace(string(result.Stderr))
	}
	line := firstLine(output)
	if def.Name == "ffmpeg" {
		return normalizeFFmpegVersion(line), nil
	}
	return line, nil
}

// MissingRequired returns an error naming every required tool that is not
// usable.
func MissingRequired(statuses []Status) error {
	var missing []string
	for _, st := range statuses {
		if st.Optional || st.Satisfied {
			continue
		}
		msg := st.Tool
		if st.Error != "" {
			msg += " (" + st.Error + ")"
		}
		missing = append(missing, msg)
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("required tools unavailable: %s", strings.Join(missing, ", "))
}
