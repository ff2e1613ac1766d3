// Package ui renders workflow progress and reports on the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows one in-flight workflow stage. On a terminal it animates in
// place; otherwise each Start and Stop prints a single line so logs stay
// readable in CI.
type Spinner struct {
	mu        sync.Mutex
	message   string
	detail    string
	running   bool
	animated  bool
	done      chan struct{}
	stopped   chan struct{}
	writer    io.Writer
	startTime time.Time
	interval  time.Duration
}

// NewSpinner creates a spinner writing to w. animated selects in-place
// rendering; pass IsTTY() for stdout.
func NewSpinner(w io.Writer, animated bool) *Spinner {
	if w == nil {
		w = os.Stdout
	}
	return &Spinner{
		writer:   w,
		animated: animated,
		interval: 100 * time.Millisecond,
	}
}

// Start begins a stage. Starting a running spinner replaces its message.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	if s.running {
		s.message = message
		s.detail = ""
		s.mu.Unlock()
		return
	}
	s.message = message
	s.detail = ""
	s.running = true
	s.startTime = time.Now()
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	animated := s.animated
	s.mu.Unlock()

	if !animated {
		fmt.Fprintf(s.writer, "%s %s\n", color.CyanString("▸"), message)
		close(s.stopped)
		return
	}
	go s.animate()
}

// Detail sets the text shown after the message, e.g. the last job status.
// Without animation only changed details are printed.
func (s *Spinner) Detail(detail string) {
	s.mu.Lock()
	changed := detail != s.detail
	s.detail = detail
	running, animated := s.running, s.animated
	s.mu.Unlock()

	if running && !animated && changed && detail != "" {
		fmt.Fprintf(s.writer, "  %s\n", color.HiBlackString(detail))
	}
}

// Stop ends the stage and prints finalMessage if it is not empty.
func (s *Spinner) Stop(finalMessage string) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		if finalMessage != "" {
			fmt.Fprintln(s.writer, finalMessage)
		}
		return
	}
	s.running = false
	close(s.done)
	stopped := s.stopped
	animated := s.animated
	s.mu.Unlock()

	<-stopped
	if animated {
		s.clearLine()
	}
	if finalMessage != "" {
		fmt.Fprintln(s.writer, finalMessage)
	}
}

// Success stops with a green checkmark and the elapsed time.
func (s *Spinner) Success(message string) {
	s.Stop(color.GreenString("✓") + " " + message + s.elapsedSuffix())
}

// Fail stops with a red cross.
func (s *Spinner) Fail(message string) {
	s.Stop(color.RedString("✗") + " " + message + s.elapsedSuffix())
}

// Warning stops with a yellow marker.
func (s *Spinner) Warning(message string) {
	s.Stop(color.YellowString("⚠") + " " + message)
}

func (s *Spinner) elapsedSuffix() string {
	s.mu.Lock()
	start := s.startTime
	s.mu.Unlock()
	if start.IsZero() {
		return ""
	}
	elapsed := time.Since(start)
	if elapsed < time.Second {
		return ""
	}
	return color.HiBlackString(" (%s)", FormatDuration(elapsed))
}

func (s *Spinner) animate() {
	defer close(s.stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			message, detail := s.message, s.detail
			elapsed := time.Since(s.startTime)
			s.mu.Unlock()

			s.clearLine()
			s.renderFrame(frames[i%len(frames)], message, detail, elapsed)
			i++
		}
	}
}

func (s *Spinner) clearLine() {
	fmt.Fprint(s.writer, "\r\033[K")
}

func (s *Spinner) renderFrame(frame, message, detail string, elapsed time.Duration) {
	var detailStr string
	if detail != "" {
		detailStr = color.HiBlackString(" %s", detail)
	}
	var timeStr string
	if elapsed > time.Second {
		timeStr = color.HiBlackString(" (%s)", FormatDuration(elapsed))
	}
	fmt.Fprintf(s.writer, "%s %s%s%s", color.CyanString(frame), message, detailStr, timeStr)
}

// FormatDuration renders d as 4.2s or 3m12s.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}
