package events

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	headStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// Summary collects task outcomes and renders them as a terminal report.
type Summary struct {
	mu       sync.Mutex
	outcomes map[string]Event
}

// NewSummary returns an empty Summary.
func NewSummary() *Summary {
	return &Summary{outcomes: make(map[string]Event)}
}

// Notify implements Observer.
func (s *Summary) Notify(e Event) {
	switch e.Type {
	case TaskComplete, TaskError, TaskSkipped:
	default:
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[e.Key] = e
}

// Counts returns the number of completed, failed and skipped tasks.
func (s *Summary) Counts() (complete, failed, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.outcomes {
		switch e.Type {
		case TaskComplete:
			complete++
		case TaskError:
			failed++
		case TaskSkipped:
			skipped++
		}
	}
	return complete, failed, skipped
}

// Render writes the report to w.
func (s *Summary) Render(w io.Writer) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.outcomes))
	for k := range s.outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		e := s.outcomes[k]
		switch e.Type {
		case TaskComplete:
			lines = append(lines, okStyle.Render("✔ "+k))
		case TaskError:
			lines = append(lines, failStyle.Render("✖ "+k)+" "+e.Error)
		case TaskSkipped:
			lines = append(lines, skipStyle.Render("… "+k+" (skipped)"))
		}
	}
	s.mu.Unlock()

	complete, failed, skipped := s.Counts()
	head := headStyle.Render(fmt.Sprintf("%d done · %d failed · %d skipped", complete, failed, skipped))
	body := head
	if len(lines) > 0 {
		body += "\n" + strings.Join(lines, "\n")
	}
	_, err := fmt.Fprintln(w, summaryStyle.Render(body))
	return err
}
