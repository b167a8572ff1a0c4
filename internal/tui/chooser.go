package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"karaluxer/internal/ass"
	"karaluxer/internal/karaoke"
	"karaluxer/internal/overlap"
)

// ErrAborted is returned when the user cancels a question.
var ErrAborted = errors.New("aborted by user")

type chooserKeys struct {
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Cancel key.Binding
}

func (k chooserKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Choose, k.Cancel}
}

func (k chooserKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultChooserKeys = chooserKeys{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Choose: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "discard"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "abort"),
	),
}

// Chooser shows an overlap question and answers it once the user picks.
type Chooser struct {
	req     *overlap.Request
	title   string
	options []string
	cursor  int
	keys    chooserKeys
	help    help.Model
}

// NewChooser builds a chooser for req.
func NewChooser(req *overlap.Request) Chooser {
	return Chooser{
		req:     req,
		title:   questionTitle(req),
		options: questionOptions(req),
		keys:    defaultChooserKeys,
		help:    help.New(),
	}
}

// Update handles a key press. It reports whether the question is settled,
// either answered or cancelled.
func (c Chooser) Update(msg tea.KeyMsg) (Chooser, bool) {
	switch {
	case key.Matches(msg, c.keys.Up):
		if c.cursor > 0 {
			c.cursor--
		}
	case key.Matches(msg, c.keys.Down):
		if c.cursor < len(c.options)-1 {
			c.cursor++
		}
	case key.Matches(msg, c.keys.Choose):
		answerRequest(c.req, c.cursor)
		return c, true
	case key.Matches(msg, c.keys.Cancel):
		c.req.Cancel(ErrAborted)
		return c, true
	default:
		// Digits pick an option directly.
		if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(c.options) {
			c.cursor = n - 1
			answerRequest(c.req, c.cursor)
			return c, true
		}
	}
	return c, false
}

// View renders the question.
func (c Chooser) View() string {
	var b strings.Builder
	b.WriteString(promptStyle.Render(c.title))
	b.WriteByte('\n')
	for i, opt := range c.options {
		label := fmt.Sprintf("%d. %s", i+1, opt)
		if i == c.cursor {
			b.WriteString(cursorStyle.Render("›"))
			b.WriteString(selectedStyle.Render(label))
		} else {
			b.WriteString(" ")
			b.WriteString(optionStyle.Render(label))
		}
		b.WriteByte('\n')
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n" + c.help.View(c.keys)
}

func answerRequest(req *overlap.Request, idx int) {
	if req.IsStyle() {
		req.DiscardStyle(req.Styles[idx].Style)
		return
	}
	req.DiscardLine(req.Group[idx])
}

func questionTitle(req *overlap.Request) string {
	if req.IsStyle() {
		return "Which style should be dropped?"
	}
	return "These lines overlap. Which one should be dropped?"
}

func questionOptions(req *overlap.Request) []string {
	if req.IsStyle() {
		return styleLabels(req.Styles)
	}
	return lineLabels(req.Group)
}

const maxLineLabel = 60

func lineLabels(group []ass.Event) []string {
	labels := make([]string, len(group))
	for i, ev := range group {
		labels[i] = fmt.Sprintf("%s-%s [%s] %s",
			ass.FormatTime(ev.Start), ass.FormatTime(ev.End), ev.Style, TruncateWithEllipsis(karaoke.Strip(ev.Text), maxLineLabel))
	}
	return labels
}

func styleLabels(styles []overlap.StyleCount) []string {
	labels := make([]string, len(styles))
	for i, s := range styles {
		noun := "lines"
		if s.Lines == 1 {
			noun = "line"
		}
		labels[i] = fmt.Sprintf("%s (%d %s)", s.Style, s.Lines, noun)
	}
	return labels
}
