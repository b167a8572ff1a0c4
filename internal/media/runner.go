package media

import (
	"bytes"
	"context"
	"io"
	"os/exec"
)

// RunOptions tunes a single external command. Stdout and Stderr, when set,
// receive a copy of the output while it is also captured in the result.
type RunOptions struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// RunResult holds the captured output of a finished command.
type RunResult struct {
	Stdout []byte
	Stderr []byte
}

// Runner starts external tools such as ffmpeg or a pitch detector. Tests
// substitute a fake.
type Runner interface {
	Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error)
}

// CmdRunner runs commands with os/exec. The process is killed when ctx ends.
type CmdRunner struct{}

func (CmdRunner) Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = opts.Dir
	cmd.Stdout = capture(&stdout, opts.Stdout)
	cmd.Stderr = capture(&stderr, opts.Stderr)

	err := cmd.Run()
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		err = ctxErr
	}
	return RunResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, err
}

func capture(buf *bytes.Buffer, also io.Writer) io.Writer {
	if also == nil {
		return buf
	}
	return io.MultiWriter(buf, also)
}
