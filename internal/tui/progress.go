package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type step struct {
	text    string
	state   string
	start   time.Time
	elapsed time.Duration
}

// ConvertModel is the bubbletea model for a conversion: a list of steps,
// the warnings collected so far, and the chooser while a question is open.
type ConvertModel struct {
	title    string
	steps    []step
	warnings []string
	spinner  spinner.Model
	chooser  *Chooser
	done     bool
	err      error
	now      func() time.Time
}

// NewConvertModel creates a model with the given title.
func NewConvertModel(title string) ConvertModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StepStyle("active")
	return ConvertModel{
		title:   title,
		spinner: s,
		now:     time.Now,
	}
}

// Init satisfies the tea.Model interface.
func (m ConvertModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update satisfies the tea.Model interface.
func (m ConvertModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StatusMsg:
		m.finishStep("done")
		m.steps = append(m.steps, step{text: msg.Text, state: "active", start: m.now()})
		return m, nil

	case WarningMsg:
		m.warnings = append(m.warnings, msg.Text)
		return m, nil

	case RequestMsg:
		c := NewChooser(msg.Request)
		m.chooser = &c
		m.setActiveState("waiting")
		return m, nil

	case WorkDoneMsg:
		m.finishStep("done")
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.finishStep("error")
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		if m.chooser != nil {
			c, settled := m.chooser.Update(msg)
			m.chooser = &c
			if settled {
				m.chooser = nil
				m.setActiveState("active")
			}
			return m, nil
		}
		if msg.String() == "ctrl+c" {
			m.finishStep("error")
			m.err = ErrAborted
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ConvertModel) finishStep(state string) {
	if len(m.steps) == 0 {
		return
	}
	last := &m.steps[len(m.steps)-1]
	if last.state == "done" || last.state == "error" {
		return
	}
	last.state = state
	last.elapsed = m.now().Sub(last.start)
}

func (m *ConvertModel) setActiveState(state string) {
	if len(m.steps) == 0 {
		return
	}
	last := &m.steps[len(m.steps)-1]
	if last.state == "active" || last.state == "waiting" {
		last.state = state
	}
}

// View satisfies the tea.Model interface.
func (m ConvertModel) View() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(HeaderStyle.Render(m.title))
		b.WriteString("\n\n")
	}

	for _, st := range m.steps {
		var mark string
		elapsed := st.elapsed
		switch st.state {
		case "done":
			mark = "✓"
		case "error":
			mark = "✗"
		case "waiting":
			mark = "?"
			elapsed = m.now().Sub(st.start)
		default:
			mark = m.spinner.View()
			elapsed = m.now().Sub(st.start)
		}
		line := fmt.Sprintf("%s %s (%s)", mark, st.text, formatElapsed(elapsed))
		b.WriteString(StepStyle(st.state).Render(line))
		b.WriteByte('\n')
	}

	for _, w := range m.warnings {
		b.WriteString(StepStyle("warning").Render("! " + w))
		b.WriteByte('\n')
	}

	if m.chooser != nil {
		b.WriteByte('\n')
		b.WriteString(m.chooser.View())
		b.WriteByte('\n')
	}

	if m.done && m.err != nil {
		fmt.Fprintf(&b, "\nError: %v\n", m.err)
	}
	return b.String()
}

// Done returns whether the model has finished (work done or error).
func (m ConvertModel) Done() bool {
	return m.done
}

// Err returns any fatal error that occurred.
func (m ConvertModel) Err() error {
	return m.err
}

// Asking reports whether a question is open.
func (m ConvertModel) Asking() bool {
	return m.chooser != nil
}

// NonEmptyOrDash returns "-" for empty/whitespace strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis truncates a string and adds "..." if it exceeds max
// runes.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
