package cli

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"karaluxer/internal/config"
	"karaluxer/internal/job"
	"karaluxer/internal/logx"
	"karaluxer/internal/paths"
	"karaluxer/internal/tui"
)

// Exit codes.
const (
	exitFailure = 1
	exitConfig  = 2
	exitAborted = 130
)

func exitCode(err error) int {
	switch {
	case job.IsConfigError(err), errors.Is(err, config.ErrInvalid):
		return exitConfig
	case errors.Is(err, tui.ErrAborted):
		return exitAborted
	default:
		return exitFailure
	}
}

// loadConfig resolves, loads and validates the configuration. Warnings are
// echoed to stderr.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.Config{}, "", fmt.Errorf("determine working directory: %w", err)
	}
	path, err := paths.ResolveConfig(configPath, cwd)
	if err != nil {
		return config.Config{}, "", err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, path, err
	}

	results := cfg.Validate()
	for _, v := range results {
		if v.Level == "warning" {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", v.Message)
		}
	}
	if config.HasErrors(results) {
		return cfg, path, config.Errors(results)
	}
	return cfg, path, nil
}

// openLogger opens the global log file. Failing to create it is not fatal;
// the run continues without a log.
func openLogger(cmd *cobra.Command) (*log.Logger, io.Closer) {
	logger, closer, err := logx.NewGlobal()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: logging disabled: %v\n", err)
		return logx.Discard(), nopCloser{}
	}
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
