package overlap

import (
	"context"
	"errors"
	"sync"

	"karaluxer/internal/ass"
)

// KeepEarliest decides without asking anyone: it drops the line that starts
// last and the style with the fewest lines.
type KeepEarliest struct{}

func (KeepEarliest) DiscardLine(_ context.Context, group []ass.Event) (ass.Event, error) {
	if len(group) == 0 {
		return ass.Event{}, errors.New("empty overlap group")
	}
	discard := group[0]
	for _, ev := range group[1:] {
		if ev.Start >= discard.Start {
			discard = ev
		}
	}
	return discard, nil
}

func (KeepEarliest) DiscardStyle(_ context.Context, styles []StyleCount) (string, error) {
	if len(styles) == 0 {
		return "", errors.New("no styles offered")
	}
	discard := styles[0]
	for _, s := range styles[1:] {
		if s.Lines <= discard.Lines {
			discard = s
		}
	}
	return discard.Style, nil
}

// Funcs adapts plain functions to a Decider. A nil function fails the
// question it would answer.
type Funcs struct {
	Line  func(group []ass.Event) (ass.Event, error)
	Style func(styles []StyleCount) (string, error)
}

func (f Funcs) DiscardLine(_ context.Context, group []ass.Event) (ass.Event, error) {
	if f.Line == nil {
		return ass.Event{}, ErrNoDecider
	}
	return f.Line(group)
}

func (f Funcs) DiscardStyle(_ context.Context, styles []StyleCount) (string, error) {
	if f.Style == nil {
		return "", ErrNoDecider
	}
	return f.Style(styles)
}

var (
	_ Decider = KeepEarliest{}
	_ Decider = Funcs{}
	_ Decider = (*ChannelDecider)(nil)
)

// ErrClosed is returned once a ChannelDecider has been closed.
var ErrClosed = errors.New("decider closed")

// Request is a question posted by a ChannelDecider. Exactly one of Group or
// Styles is set. The receiver answers with one of the Reply methods.
type Request struct {
	Group  []ass.Event
	Styles []StyleCount

	reply chan answer
}

type answer struct {
	line  ass.Event
	style string
	err   error
}

// IsStyle reports whether the request asks for a style.
func (r *Request) IsStyle() bool {
	return r.Group == nil
}

// DiscardLine answers a line request.
func (r *Request) DiscardLine(ev ass.Event) {
	r.send(answer{line: ev})
}

// DiscardStyle answers a style request.
func (r *Request) DiscardStyle(style string) {
	r.send(answer{style: style})
}

// Cancel fails the request, aborting the resolution.
func (r *Request) Cancel(err error) {
	if err == nil {
		err = context.Canceled
	}
	r.send(answer{err: err})
}

func (r *Request) send(a answer) {
	select {
	case r.reply <- a:
	default:
	}
}

// ChannelDecider hands each question to another goroutine, typically the UI,
// and blocks until it is answered or the context ends.
type ChannelDecider struct {
	requests chan *Request
	done     chan struct{}
	once     sync.Once
}

// NewChannelDecider returns the decider and the channel its questions arrive on.
func NewChannelDecider() (*ChannelDecider, <-chan *Request) {
	d := &ChannelDecider{
		requests: make(chan *Request),
		done:     make(chan struct{}),
	}
	return d, d.requests
}

// Close stops accepting questions. Pending and future calls fail with ErrClosed.
func (d *ChannelDecider) Close() {
	d.once.Do(func() { close(d.done) })
}

func (d *ChannelDecider) DiscardLine(ctx context.Context, group []ass.Event) (ass.Event, error) {
	a, err := d.ask(ctx, &Request{Group: group})
	if err != nil {
		return ass.Event{}, err
	}
	return a.line, nil
}

func (d *ChannelDecider) DiscardStyle(ctx context.Context, styles []StyleCount) (string, error) {
	a, err := d.ask(ctx, &Request{Styles: styles})
	if err != nil {
		return "", err
	}
	return a.style, nil
}

func (d *ChannelDecider) ask(ctx context.Context, req *Request) (answer, error) {
	req.reply = make(chan answer, 1)
	select {
	case d.requests <- req:
	case <-d.done:
		return answer{}, ErrClosed
	case <-ctx.Done():
		return answer{}, ctx.Err()
	}
	select {
	case a := <-req.reply:
		return a, a.err
	case <-d.done:
		return answer{}, ErrClosed
	case <-ctx.Done():
		return answer{}, ctx.Err()
	}
}
