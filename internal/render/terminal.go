package render

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/gam-cli/internal/explain"
	"github.com/charmbracelet/lipgloss"
)

const barCells = 30

var (
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FD17F"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// TerminalBars renders the top n pairs of each explanation as text bars.
// Weights are scaled against the largest weight in the set. n <= 0 or larger
// than an explanation shows every pair.
func TerminalBars(set explain.Set, n int, sizes []int) string {
	maxW, labelW := 0.0, 0
	for _, e := range set {
		for _, p := range e {
			maxW = max(maxW, p.Weight)
			labelW = max(labelW, lipgloss.Width(p.Label))
		}
	}

	blocks := make([]string, 0, len(set))
	for id, e := range set {
		head := fmt.Sprintf("Explanation %d", id)
		if len(sizes) == len(set) {
			head += mutedStyle.Render(fmt.Sprintf(" (n=%d)", sizes[id]))
		}
		lines := []string{headStyle.Render(head)}
		e = explain.Sorted(e)
		limit := len(e)
		if n > 0 && n < limit {
			limit = n
		}
		for _, p := range e[:limit] {
			cells := 0
			if maxW > 0 && p.Weight > 0 {
				cells = max(1, int(p.Weight/maxW*barCells+0.5))
			}
			label := p.Label + strings.Repeat(" ", labelW-lipgloss.Width(p.Label))
			lines = append(lines, fmt.Sprintf("  %s %s %.3f",
				label, barStyle.Render(strings.Repeat("█", cells)), p.Weight))
		}
		blocks = append(blocks, lipgloss.JoinVertical(lipgloss.Left, lines...))
	}
	return strings.Join(blocks, "\n\n")
}
