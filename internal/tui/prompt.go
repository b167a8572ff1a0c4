package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"karaluxer/internal/ass"
	"karaluxer/internal/overlap"
)

// Prompt asks overlap questions as numbered text prompts. It is used when
// the full TUI is not available but a person can still answer.
type Prompt struct {
	// Hold, when set, wraps each question. StatusWriter.Hold fits.
	Hold func(func())

	out io.Writer
	in  *bufio.Reader
}

var _ overlap.Decider = (*Prompt)(nil)

// NewPrompt reads answers from in and writes questions to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{out: out, in: bufio.NewReader(in)}
}

func (p *Prompt) DiscardLine(ctx context.Context, group []ass.Event) (ass.Event, error) {
	idx, err := p.ask(ctx, "These lines overlap. Which one should be dropped?", lineLabels(group))
	if err != nil {
		return ass.Event{}, err
	}
	return group[idx], nil
}

func (p *Prompt) DiscardStyle(ctx context.Context, styles []overlap.StyleCount) (string, error) {
	idx, err := p.ask(ctx, "Which style should be dropped?", styleLabels(styles))
	if err != nil {
		return "", err
	}
	return styles[idx].Style, nil
}

func (p *Prompt) ask(ctx context.Context, title string, options []string) (idx int, err error) {
	if p.Hold == nil {
		return p.read(ctx, title, options)
	}
	p.Hold(func() {
		idx, err = p.read(ctx, title, options)
	})
	return idx, err
}

func (p *Prompt) read(ctx context.Context, title string, options []string) (int, error) {
	fmt.Fprintln(p.out, title)
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, opt)
	}
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		fmt.Fprintf(p.out, "Drop [1-%d]: ", len(options))
		line, err := p.in.ReadString('\n')
		answer := strings.TrimSpace(line)
		if answer != "" {
			if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(options) {
				return n - 1, nil
			}
			fmt.Fprintf(p.out, "%q is not a choice\n", answer)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, ErrAborted
			}
			return 0, fmt.Errorf("read answer: %w", err)
		}
	}
}
