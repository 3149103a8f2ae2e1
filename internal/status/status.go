// Package status renders catalog summaries.
package status

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/pbaille/msgedit/internal/domain"
)

// Text writes one progress line per summary
type Text struct {
	W     io.Writer
	Width int
}

func (t Text) RenderStatus(s domain.Summary) {
	fmt.Fprintln(t.W, Line(s, t.Width))
}

// Line formats a summary as a progress bar: [████░░░░] 50.0% 2/4, 1 unchanged, 0 errors
func Line(s domain.Summary, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := int(s.Percent * float64(width))
	filled = max(0, min(width, filled))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %.1f%% %d/%d, %d unchanged, %d errors",
		bar, s.Percent*100, s.Translated, s.Total, s.Unchanged, s.Errors)
}

// Log reports summaries through a logger
type Log struct {
	Logger logr.Logger
}

func (l Log) RenderStatus(s domain.Summary) {
	l.Logger.Info("catalog status",
		"translated", s.Translated, "total", s.Total, "percent", s.Percent,
		"unchanged", s.Unchanged, "errors", s.Errors)
}

// Latest remembers the last summary for readers on other goroutines
type Latest struct {
	mu   sync.RWMutex
	last domain.Summary
	seen bool
}

func (l *Latest) RenderStatus(s domain.Summary) {
	l.mu.Lock()
	l.last, l.seen = s, true
	l.mu.Unlock()
}

// Get returns the last summary and whether one was rendered yet
func (l *Latest) Get() (domain.Summary, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last, l.seen
}

// Multi fans a summary out to several sinks
type Multi []interface{ RenderStatus(domain.Summary) }

func (m Multi) RenderStatus(s domain.Summary) {
	for _, sink := range m {
		sink.RenderStatus(s)
	}
}
