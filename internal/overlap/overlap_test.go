package overlap

import (
	"context"
	"errors"
	"testing"
	"time"

	"karaluxer/internal/ass"
)

func line(index int, start, end time.Duration, style string) ass.Event {
	return ass.Event{Index: index, Kind: ass.KindComment, Start: start, End: end, Style: style, Text: "{\\k10}la"}
}

func sec(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyIndividual, false},
		{"Duet", PolicyDuet, false},
		{" style ", PolicyStyle, false},
		{"ignore", PolicyIgnore, false},
		{"random", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownPolicy) {
				t.Errorf("ParsePolicy(%q) error = %v, want ErrUnknownPolicy", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestGroupsChainTransitively(t *testing.T) {
	lines := []ass.Event{
		line(1, sec(0), sec(10), "A"),
		line(2, sec(1), sec(2), "A"),
		line(3, sec(5), sec(6), "A"), // overlaps line 1 only
		line(4, sec(10), sec(11), "A"),
		line(5, sec(20), sec(22), "A"),
		line(6, sec(21), sec(23), "A"),
	}
	groups := Groups(lines)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0]) != 3 || groups[0][2].Index != 3 {
		t.Fatalf("unexpected first group %+v", groups[0])
	}
	if first := FirstGroup(lines); len(first) != 3 {
		t.Fatalf("FirstGroup returned %d lines", len(first))
	}
	if FirstGroup(lines[3:4]) != nil {
		t.Fatal("single line cannot overlap")
	}
}

func TestIndividualDiscardSecondMember(t *testing.T) {
	first := line(1, sec(1), sec(3), "A")
	second := line(2, sec(3)-10*time.Millisecond, sec(5), "A")

	var asked int
	r := Resolver{
		Policy: PolicyIndividual,
		Decider: Funcs{Line: func(group []ass.Event) (ass.Event, error) {
			asked++
			return group[1], nil
		}},
	}
	res, err := r.Resolve(context.Background(), []ass.Event{second, first})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.P1) != 1 || res.P1[0] != first {
		t.Fatalf("expected only the first line, got %+v", res.P1)
	}
	if asked != 1 {
		t.Fatalf("expected one question, got %d", asked)
	}
}

func TestIndividualIsFixedPoint(t *testing.T) {
	lines := []ass.Event{
		line(1, sec(0), sec(4), "A"),
		line(2, sec(1), sec(5), "B"),
		line(3, sec(2), sec(6), "A"),
		line(4, sec(7), sec(8), "A"),
		line(5, sec(7.5), sec(9), "B"),
	}
	r := Resolver{Policy: PolicyIndividual, Decider: KeepEarliest{}}
	res, err := r.Resolve(context.Background(), lines)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if g := FirstGroup(res.P1); g != nil {
		t.Fatalf("overlaps remain: %+v", g)
	}
	if len(res.P1) != 2 || res.P1[0].Index != 1 || res.P1[1].Index != 4 {
		t.Fatalf("unexpected survivors %+v", res.P1)
	}

	again, err := Resolver{Policy: PolicyIndividual, Decider: Funcs{}}.Resolve(context.Background(), res.P1)
	if err != nil {
		t.Fatalf("second pass asked a question: %v", err)
	}
	if len(again.P1) != len(res.P1) {
		t.Fatal("second pass changed the result")
	}
}

func TestInvalidAnswerIsAskedAgain(t *testing.T) {
	a := line(1, sec(0), sec(2), "A")
	b := line(2, sec(1), sec(3), "A")
	stranger := line(9, sec(50), sec(51), "A")

	answers := []ass.Event{stranger, b}
	var asked int
	r := Resolver{Decider: Funcs{Line: func([]ass.Event) (ass.Event, error) {
		ev := answers[asked]
		asked++
		return ev, nil
	}}}
	res, err := r.Resolve(context.Background(), []ass.Event{a, b})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if asked != 2 {
		t.Fatalf("expected two questions, got %d", asked)
	}
	if len(res.P1) != 1 || res.P1[0] != a {
		t.Fatalf("unexpected survivors %+v", res.P1)
	}
}

func TestDeciderErrorAborts(t *testing.T) {
	boom := errors.New("cancelled by user")
	r := Resolver{Decider: Funcs{Line: func([]ass.Event) (ass.Event, error) {
		return ass.Event{}, boom
	}}}
	_, err := r.Resolve(context.Background(), []ass.Event{
		line(1, sec(0), sec(2), "A"),
		line(2, sec(1), sec(3), "A"),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected decider error, got %v", err)
	}
}

func TestMissingDecider(t *testing.T) {
	_, err := Resolver{}.Resolve(context.Background(), []ass.Event{
		line(1, sec(0), sec(2), "A"),
		line(2, sec(1), sec(3), "A"),
	})
	if !errors.Is(err, ErrNoDecider) {
		t.Fatalf("expected ErrNoDecider, got %v", err)
	}
}

func TestIgnoreKeepsOverlaps(t *testing.T) {
	lines := []ass.Event{line(1, sec(0), sec(2), "A"), line(2, sec(1), sec(3), "A")}
	res, err := Resolver{Policy: PolicyIgnore}.Resolve(context.Background(), lines)
	if err != nil || len(res.P1) != 2 {
		t.Fatalf("ignore policy changed lines: %+v, %v", res.P1, err)
	}
}

func TestStyleKeep(t *testing.T) {
	lines := []ass.Event{
		line(1, sec(0), sec(2), "Romaji"),
		line(2, sec(0), sec(2), "Translation"),
		line(3, sec(0), sec(2), "Kanji"),
		line(4, sec(3), sec(4), "Romaji"),
	}
	var offered [][]StyleCount
	r := Resolver{Policy: PolicyStyle, Decider: Funcs{Style: func(styles []StyleCount) (string, error) {
		offered = append(offered, styles)
		return styles[len(styles)-1].Style, nil
	}}}
	res, err := r.Resolve(context.Background(), lines)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(offered) != 2 {
		t.Fatalf("expected two questions, got %d", len(offered))
	}
	if offered[0][0] != (StyleCount{Style: "Romaji", Lines: 2}) {
		t.Fatalf("unexpected style counts %+v", offered[0])
	}
	if len(res.P1) != 2 || res.P1[0].Style != "Romaji" {
		t.Fatalf("unexpected survivors %+v", res.P1)
	}
}

func TestStyleKeepSingleStyleWarns(t *testing.T) {
	lines := []ass.Event{line(1, sec(0), sec(2), "A"), line(2, sec(1), sec(3), "A")}
	res, err := Resolver{Policy: PolicyStyle}.Resolve(context.Background(), lines)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Warnings) != 1 || len(res.P1) != 2 {
		t.Fatalf("expected untouched lines and a warning, got %+v", res)
	}
}

func TestDuetSplit(t *testing.T) {
	lines := []ass.Event{
		line(1, sec(0), sec(2), "B"),
		line(2, sec(1), sec(3), "A"),
		line(3, sec(4), sec(5), "B"),
	}
	res, err := Resolver{Policy: PolicyDuet}.Resolve(context.Background(), lines)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !res.Duet {
		t.Fatal("expected a duet")
	}
	if len(res.P1) != 2 || res.P1[0].Style != "B" || len(res.P2) != 1 || res.P2[0].Style != "A" {
		t.Fatalf("tracks must follow first appearance: P1=%+v P2=%+v", res.P1, res.P2)
	}
}

func TestDuetSplitNarrowsToTwo(t *testing.T) {
	lines := []ass.Event{
		line(1, sec(0), sec(2), "A"),
		line(2, sec(0), sec(2), "B"),
		line(3, sec(0), sec(2), "C"),
		line(4, sec(3), sec(4), "C"),
	}
	res, err := Resolver{Policy: PolicyDuet, Decider: KeepEarliest{}}.Resolve(context.Background(), lines)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.P1[0].Style != "A" || res.P2[0].Style != "C" || len(res.P2) != 2 {
		t.Fatalf("unexpected split P1=%+v P2=%+v", res.P1, res.P2)
	}
}

func TestDuetSplitFallsBack(t *testing.T) {
	lines := []ass.Event{line(1, sec(0), sec(2), "A")}
	res, err := Resolver{Policy: PolicyDuet}.Resolve(context.Background(), lines)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Duet || len(res.P2) != 0 || len(res.Warnings) != 1 {
		t.Fatalf("expected single-track fallback with a warning, got %+v", res)
	}
}

func TestKeepEarliest(t *testing.T) {
	ctx := context.Background()
	group := []ass.Event{line(1, sec(0), sec(3), "A"), line(2, sec(2), sec(4), "A"), line(3, sec(2), sec(5), "A")}
	ev, err := KeepEarliest{}.DiscardLine(ctx, group)
	if err != nil || ev.Index != 3 {
		t.Fatalf("DiscardLine = %+v, %v", ev, err)
	}
	style, err := KeepEarliest{}.DiscardStyle(ctx, []StyleCount{{"A", 1}, {"B", 3}, {"C", 1}})
	if err != nil || style != "C" {
		t.Fatalf("DiscardStyle = %q, %v", style, err)
	}
}

func TestChannelDecider(t *testing.T) {
	decider, requests := NewChannelDecider()
	defer decider.Close()

	a := line(1, sec(0), sec(2), "A")
	b := line(2, sec(1), sec(3), "A")

	go func() {
		for req := range requests {
			if req.IsStyle() {
				req.Cancel(nil)
				continue
			}
			req.DiscardLine(req.Group[0])
		}
	}()

	res, err := Resolver{Decider: decider}.Resolve(context.Background(), []ass.Event{a, b})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.P1) != 1 || res.P1[0] != b {
		t.Fatalf("unexpected survivors %+v", res.P1)
	}
}

func TestChannelDeciderHonoursContext(t *testing.T) {
	decider, _ := NewChannelDecider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := decider.DiscardStyle(ctx, []StyleCount{{"A", 1}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	decider.Close()
	if _, err := decider.DiscardStyle(context.Background(), nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
