// Package report renders basket computations for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vadiminshakov/perpbasket/internal/domain"
	"github.com/vadiminshakov/perpbasket/internal/services/basket"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	danger    = lipgloss.AdaptiveColor{Light: "#D9534F", Dark: "#FF6B6B"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true)

	labelStyle = lipgloss.NewStyle().Foreground(subtle)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
	titleStyle = cellStyle.Bold(true)
)

// Render formats the statistics and the instruments of res.
func Render(res *basket.Result) string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render(fmt.Sprintf("BASKET %s", res.Resolution)))
	sb.WriteString("\n\n")

	s := res.Statistics
	stats := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(subtle)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return cellStyle.Foreground(subtle)
			}
			return cellStyle
		}).
		Rows(
			[]string{"Total return", signed(s.TotalReturn) + "%"},
			[]string{"Annualized volatility", fmt.Sprintf("%.2f%%", s.AnnualizedVolatility)},
			[]string{"Sharpe ratio", fmt.Sprintf("%.2f", s.SharpeRatio)},
			[]string{"Max drawdown", fmt.Sprintf("%.2f%%", s.MaxDrawdown)},
			[]string{"Points", fmt.Sprintf("%d", len(res.Basket))},
		)
	sb.WriteString(stats.Render())
	sb.WriteString("\n")

	returns := make(map[string]float64, len(s.IndividualReturns))
	for _, r := range s.IndividualReturns {
		returns[r.Symbol] = r.Return
	}

	rows := make([][]string, 0, len(res.Selections))
	for _, sel := range res.Selections {
		rows = append(rows, []string{
			sel.Symbol,
			sel.Position.String(),
			fmt.Sprintf("%.2f%%", sel.Weight),
			signed(returns[sel.Symbol]) + "%",
		})
	}

	instruments := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(subtle)).
		Headers("SYMBOL", "SIDE", "WEIGHT", "RETURN").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return titleStyle
			}
			if col == 1 && row >= 0 && row < len(rows) {
				if rows[row][1] == domain.PositionLong.String() {
					return cellStyle.Foreground(special)
				}
				return cellStyle.Foreground(danger)
			}
			return cellStyle
		}).
		Rows(rows...)
	sb.WriteString(instruments.Render())
	sb.WriteString("\n")

	if !res.ComputedAt.IsZero() {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("computed %s, id %s", res.ComputedAt.UTC().Format("2006-01-02 15:04:05 MST"), res.ID)))
		sb.WriteString("\n")
	}

	return sb.String()
}

func signed(v float64) string {
	return fmt.Sprintf("%+.2f", v)
}
