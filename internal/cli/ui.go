package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"evcal/internal/model"
)

var (
	colorCyan  = lipgloss.Color("36")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
	colorGreen = lipgloss.Color("35")
)

var (
	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleHeader = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleCell   = lipgloss.NewStyle().PaddingRight(1)
)

// eventColors maps event colors onto terminal colors.
var eventColors = map[model.Color]lipgloss.Color{
	model.ColorGreen:  colorGreen,
	model.ColorBlue:   lipgloss.Color("75"),
	model.ColorRed:    lipgloss.Color("167"),
	model.ColorYellow: lipgloss.Color("220"),
	model.ColorPurple: lipgloss.Color("141"),
}

func colorDot(c model.Color) string {
	return lipgloss.NewStyle().Foreground(eventColors[c.OrDefault()]).Render("●")
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader.PaddingRight(1)
			}
			return styleCell
		}).
		Render()
}
