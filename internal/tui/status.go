package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// StatusWriter reports conversion steps in plain mode. On a terminal it
// keeps a spinner next to the current step and leaves a line per finished
// step; elsewhere it prints one line per step.
type StatusWriter struct {
	w          io.Writer
	animate    bool
	mu         sync.Mutex
	message    string
	phaseStart time.Time
	done       chan struct{}
	stopped    bool
}

// NewStatusWriter starts a status writer on w. The spinner only runs when w
// is a terminal.
func NewStatusWriter(w io.Writer) *StatusWriter {
	sw := &StatusWriter{
		w:          w,
		animate:    IsTerminal(w),
		phaseStart: time.Now(),
		done:       make(chan struct{}),
	}
	if sw.animate {
		go sw.loop()
	}
	return sw
}

// Update finishes the current step and starts msg.
func (sw *StatusWriter) Update(msg string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.stopped {
		return
	}
	sw.finishLocked()
	sw.message = msg
	sw.phaseStart = time.Now()
	if !sw.animate {
		fmt.Fprintf(sw.w, "%s...\n", msg)
	}
}

// Warn prints a warning without disturbing the current step.
func (sw *StatusWriter) Warn(msg string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.animate {
		fmt.Fprint(sw.w, "\r\033[K")
	}
	fmt.Fprintf(sw.w, "warning: %s\n", msg)
}

// Hold pauses the spinner while fn runs, so fn can write to the same
// terminal.
func (sw *StatusWriter) Hold(fn func()) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.animate {
		fmt.Fprint(sw.w, "\r\033[K")
	}
	fn()
}

// Stop finishes the current step and stops the spinner.
func (sw *StatusWriter) Stop() {
	sw.mu.Lock()
	if sw.stopped {
		sw.mu.Unlock()
		return
	}
	sw.stopped = true
	sw.finishLocked()
	sw.message = ""
	sw.mu.Unlock()
	close(sw.done)
}

func (sw *StatusWriter) finishLocked() {
	if sw.message == "" || !sw.animate {
		return
	}
	fmt.Fprintf(sw.w, "\r\033[K✓ %s (%s)\n", sw.message, formatElapsed(time.Since(sw.phaseStart)))
}

func (sw *StatusWriter) loop() {
	tick := 0
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sw.done:
			return
		case <-ticker.C:
			sw.mu.Lock()
			if sw.message != "" && !sw.stopped {
				spinner := spinnerFrames[tick%len(spinnerFrames)]
				fmt.Fprintf(sw.w, "\r\033[K%s %s (%s)", spinner, sw.message, formatElapsed(time.Since(sw.phaseStart)))
			}
			sw.mu.Unlock()
			tick++
		}
	}
}

// formatElapsed formats a duration for display next to a step.
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < 10*time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
