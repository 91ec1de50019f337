package mirror

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
)

const columnWidth = 24

var (
	defaultBorder = lipgloss.Color("#3b4261")
	titleStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	priorityColor = map[models.Priority]lipgloss.Color{
		models.PriorityLow:    lipgloss.Color("#9ece6a"),
		models.PriorityMedium: lipgloss.Color("#e0af68"),
		models.PriorityHigh:   lipgloss.Color("#f7768e"),
	}
)

// Render draws the board as side by side columns for a terminal.
func Render(b models.Board) string {
	if len(b.Columns) == 0 {
		return dimStyle.Render("(empty board)")
	}

	boxes := make([]string, 0, len(b.Columns))
	for _, col := range b.Columns {
		border := defaultBorder
		if col.Color != nil {
			border = lipgloss.Color(*col.Color)
		}

		lines := []string{titleStyle.Render(fmt.Sprintf("%d. %s", col.Order, col.Title))}
		if len(col.Cards) == 0 {
			lines = append(lines, dimStyle.Render("no cards"))
		}
		for _, c := range col.Cards {
			lines = append(lines, renderCard(c))
		}

		boxes = append(boxes, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1).
			Width(columnWidth).
			Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func renderCard(c models.Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", c.Order, c.Title)
	if c.Priority != nil {
		style := lipgloss.NewStyle().Foreground(priorityColor[*c.Priority])
		b.WriteString(" " + style.Render(string(*c.Priority)))
	}
	if c.DueDate != nil {
		b.WriteString(" " + dimStyle.Render(c.DueDate.Format("Jan 2")))
	}
	return b.String()
}
