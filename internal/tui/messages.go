package tui

import "karaluxer/internal/overlap"

// StatusMsg starts a new step; the previous one is marked done.
type StatusMsg struct {
	Text string
}

// RequestMsg asks the user to pick what to discard.
type RequestMsg struct {
	Request *overlap.Request
}

// WarningMsg records a non-fatal problem shown under the steps.
type WarningMsg struct {
	Text string
}

// WorkDoneMsg signals that the conversion has completed.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}
