// Package overlap removes subtitle lines that are shown at the same time,
// either line by line, by keeping one style, or by splitting two styles into
// duet tracks.
package overlap

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"karaluxer/internal/ass"
	"karaluxer/internal/karaoke"
)

// Policy selects how overlapping lines are handled.
type Policy string

const (
	PolicyIgnore     Policy = "ignore"
	PolicyIndividual Policy = "individual"
	PolicyStyle      Policy = "style"
	PolicyDuet       Policy = "duet"
)

// ErrUnknownPolicy is returned by ParsePolicy for names it does not know.
var ErrUnknownPolicy = errors.New("unknown overlap policy")

// ErrNoDecider is returned when a policy needs decisions but none can be asked.
var ErrNoDecider = errors.New("overlap policy requires a decider")

// Policies lists every supported policy.
func Policies() []Policy {
	return []Policy{PolicyIgnore, PolicyIndividual, PolicyStyle, PolicyDuet}
}

// ParsePolicy maps a name to a policy. An empty name means PolicyIndividual.
func ParsePolicy(name string) (Policy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return PolicyIndividual, nil
	}
	for _, p := range Policies() {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w %q (expected one of ignore, individual, style, duet)", ErrUnknownPolicy, name)
}

// StyleCount is a style name with the number of lines using it.
type StyleCount struct {
	Style string
	Lines int
}

// Decider answers the questions a policy cannot settle on its own. Both
// methods return the element to DISCARD, which must be one of those offered.
type Decider interface {
	DiscardLine(ctx context.Context, group []ass.Event) (ass.Event, error)
	DiscardStyle(ctx context.Context, styles []StyleCount) (string, error)
}

// Logger is the subset of log.Logger the resolver uses.
type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Resolver applies a policy to a list of lines.
type Resolver struct {
	Policy  Policy
	Decider Decider
	Logger  Logger
}

// Result holds the surviving lines. P2 is only set for duets.
type Result struct {
	P1       []ass.Event
	P2       []ass.Event
	Duet     bool
	Warnings []string
}

// Resolve returns the lines left after applying the policy. The input slice
// is not modified.
func (r Resolver) Resolve(ctx context.Context, lines []ass.Event) (Result, error) {
	lines = sortedCopy(lines)

	switch r.policy() {
	case PolicyIgnore:
		return Result{P1: lines}, nil
	case PolicyIndividual:
		if FirstGroup(lines) == nil {
			return Result{P1: lines}, nil
		}
		if r.Decider == nil {
			return Result{}, ErrNoDecider
		}
		kept, err := r.individual(ctx, lines)
		if err != nil {
			return Result{}, err
		}
		return Result{P1: kept}, nil
	case PolicyStyle:
		return r.keepStyle(ctx, lines)
	case PolicyDuet:
		return r.splitDuet(ctx, lines)
	default:
		return Result{}, fmt.Errorf("%w %q", ErrUnknownPolicy, string(r.Policy))
	}
}

func (r Resolver) policy() Policy {
	if r.Policy == "" {
		return PolicyIndividual
	}
	return r.Policy
}

func (r Resolver) logger() Logger {
	if r.Logger == nil {
		return noopLogger{}
	}
	return r.Logger
}

// individual removes one line per overlap group until none is left, scanning
// from the start again after every removal.
func (r Resolver) individual(ctx context.Context, lines []ass.Event) ([]ass.Event, error) {
	for {
		group := FirstGroup(lines)
		if group == nil {
			return lines, nil
		}
		discard, err := r.askLine(ctx, group)
		if err != nil {
			return nil, err
		}
		r.logger().Printf("overlap: discarding line %d %q", discard.Index, karaoke.Strip(discard.Text))
		lines = removeLine(lines, discard)
	}
}

func (r Resolver) askLine(ctx context.Context, group []ass.Event) (ass.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return ass.Event{}, err
		}
		discard, err := r.Decider.DiscardLine(ctx, append([]ass.Event(nil), group...))
		if err != nil {
			return ass.Event{}, fmt.Errorf("choose line to discard: %w", err)
		}
		for _, ev := range group {
			if ev == discard {
				return discard, nil
			}
		}
		r.logger().Printf("overlap: answer %q is not part of the group, asking again", karaoke.Strip(discard.Text))
	}
}

func (r Resolver) askStyle(ctx context.Context, styles []StyleCount) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		discard, err := r.Decider.DiscardStyle(ctx, append([]StyleCount(nil), styles...))
		if err != nil {
			return "", fmt.Errorf("choose style to discard: %w", err)
		}
		for _, s := range styles {
			if s.Style == discard {
				return discard, nil
			}
		}
		r.logger().Printf("overlap: style %q is not offered, asking again", discard)
	}
}

func (r Resolver) keepStyle(ctx context.Context, lines []ass.Event) (Result, error) {
	styles := Styles(lines)
	if len(styles) <= 1 {
		return Result{
			P1:       lines,
			Warnings: []string{"only one style found, nothing to filter by style"},
		}, nil
	}
	if r.Decider == nil {
		return Result{}, ErrNoDecider
	}
	styles, err := r.narrowStyles(ctx, styles, 1)
	if err != nil {
		return Result{}, err
	}
	return Result{P1: filterStyle(lines, styles[0].Style)}, nil
}

func (r Resolver) splitDuet(ctx context.Context, lines []ass.Event) (Result, error) {
	styles := Styles(lines)
	if len(styles) < 2 {
		return Result{
			P1:       lines,
			Warnings: []string{"fewer than two styles found, writing a single track instead of a duet"},
		}, nil
	}
	if len(styles) > 2 && r.Decider == nil {
		return Result{}, ErrNoDecider
	}
	styles, err := r.narrowStyles(ctx, styles, 2)
	if err != nil {
		return Result{}, err
	}
	return Result{
		P1:   filterStyle(lines, styles[0].Style),
		P2:   filterStyle(lines, styles[1].Style),
		Duet: true,
	}, nil
}

func (r Resolver) narrowStyles(ctx context.Context, styles []StyleCount, keep int) ([]StyleCount, error) {
	for len(styles) > keep {
		discard, err := r.askStyle(ctx, styles)
		if err != nil {
			return nil, err
		}
		r.logger().Printf("overlap: discarding style %q", discard)
		kept := styles[:0:0]
		for _, s := range styles {
			if s.Style != discard {
				kept = append(kept, s)
			}
		}
		styles = kept
	}
	return styles, nil
}

// Styles lists the styles used by lines in order of first appearance.
func Styles(lines []ass.Event) []StyleCount {
	var out []StyleCount
	index := map[string]int{}
	for _, ev := range lines {
		i, ok := index[ev.Style]
		if !ok {
			i = len(out)
			index[ev.Style] = i
			out = append(out, StyleCount{Style: ev.Style})
		}
		out[i].Lines++
	}
	return out
}

// Groups returns every run of two or more lines that overlap, chaining
// through the latest end seen so far. lines must be sorted by start.
func Groups(lines []ass.Event) [][]ass.Event {
	var groups [][]ass.Event
	for i := 0; i < len(lines); {
		j := chainEnd(lines, i)
		if j-i > 1 {
			groups = append(groups, lines[i:j:j])
		}
		i = j
	}
	return groups
}

// FirstGroup returns the earliest overlap group, or nil when lines do not
// overlap.
func FirstGroup(lines []ass.Event) []ass.Event {
	for i := 0; i+1 < len(lines); i++ {
		if !lines[i].Overlaps(lines[i+1]) {
			continue
		}
		return append([]ass.Event(nil), lines[i:chainEnd(lines, i)]...)
	}
	return nil
}

// chainEnd returns the index just past the run of lines overlapping lines[i],
// chaining through whichever line of the run ends last.
func chainEnd(lines []ass.Event, i int) int {
	latest := lines[i]
	j := i + 1
	for j < len(lines) && latest.Overlaps(lines[j]) {
		if lines[j].End > latest.End {
			latest = lines[j]
		}
		j++
	}
	return j
}

func sortedCopy(lines []ass.Event) []ass.Event {
	out := append([]ass.Event(nil), lines...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}

func removeLine(lines []ass.Event, discard ass.Event) []ass.Event {
	out := make([]ass.Event, 0, len(lines))
	removed := false
	for _, ev := range lines {
		if !removed && ev == discard {
			removed = true
			continue
		}
		out = append(out, ev)
	}
	return out
}

func filterStyle(lines []ass.Event, style string) []ass.Event {
	var out []ass.Event
	for _, ev := range lines {
		if ev.Style == style {
			out = append(out, ev)
		}
	}
	return out
}
