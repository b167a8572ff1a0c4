// Package logx opens the per-run log files written under ~/.karaluxer/logs.
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"karaluxer/internal/paths"
)

// KeepRuns is how many run logs NewGlobal leaves in the global logs directory.
const KeepRuns = 20

// New creates a logger writing to a file named after the current time inside
// dir. Close the returned closer when the run ends.
func New(dir string) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure logs directory: %w", err)
	}

	name := filepath.Join(dir, time.Now().Format("20060102-150405")+".log")
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return log.New(file, "", log.LstdFlags|log.Lmicroseconds), file, nil
}

// NewGlobal opens a run log under ~/.karaluxer/logs after removing all but the
// newest KeepRuns-1 older logs.
func NewGlobal() (*log.Logger, io.Closer, error) {
	dir, err := paths.GlobalLogsDir()
	if err != nil {
		return nil, nil, err
	}
	if err := Prune(dir, KeepRuns-1); err != nil {
		return nil, nil, err
	}
	return New(dir)
}

// Prune deletes the oldest .log files in dir until at most keep remain. The
// timestamped names sort in creation order.
func Prune(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list logs: %w", err)
	}
	var logs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".log") {
			logs = append(logs, e.Name())
		}
	}
	if len(logs) <= keep {
		return nil
	}
	sort.Strings(logs)
	for _, name := range logs[:len(logs)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("remove old log: %w", err)
		}
	}
	return nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}
