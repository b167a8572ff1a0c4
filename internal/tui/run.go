package tui

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"karaluxer/internal/overlap"
)

// RunConvert starts the bubbletea program, runs work in a goroutine and
// blocks until both have finished. Questions arriving on requests are shown
// in a chooser. work receives a send callback for StatusMsg and WarningMsg
// values; its context is cancelled if the user quits.
func RunConvert(ctx context.Context, in io.Reader, out io.Writer, title string, requests <-chan *overlap.Request, work func(ctx context.Context, send func(tea.Msg)) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewConvertModel(title), tea.WithInput(in), tea.WithOutput(out))

	go func() {
		for {
			select {
			case req, ok := <-requests:
				if !ok {
					return
				}
				p.Send(RequestMsg{Request: req})
			case <-ctx.Done():
				return
			}
		}
	}()

	workErr := make(chan error, 1)
	go func() {
		err := work(ctx, p.Send)
		if err != nil {
			p.Send(ErrorMsg{Err: err})
		} else {
			p.Send(WorkDoneMsg{})
		}
		workErr <- err
	}()

	finalModel, runErr := p.Run()
	cancel()
	err := <-workErr
	if runErr != nil {
		return runErr
	}
	if m, ok := finalModel.(ConvertModel); ok && errors.Is(m.Err(), ErrAborted) {
		return ErrAborted
	}
	return err
}
