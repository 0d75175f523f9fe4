// Package report renders region totals as a terminal table.
package report

import (
	"fmt"
	"io"
	"strconv"

	"covidanalyzer/pkg/aggregate"
	"covidanalyzer/pkg/domain"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	purple = lipgloss.Color("99")  // borders
	pink   = lipgloss.Color("205") // header text
	cyan   = lipgloss.Color("86")
	green  = lipgloss.Color("82")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(pink).
			MarginBottom(1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(cyan)

	headerStyle = lipgloss.NewStyle().
			Foreground(pink).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	numberStyle = cellStyle.
			Align(lipgloss.Right)

	footerStyle = numberStyle.
			Foreground(green).
			Bold(true)

	borderStyle = lipgloss.NewStyle().
			Foreground(purple)
)

// Title is the heading printed above the table.
func Title(window domain.DateWindow) string {
	return fmt.Sprintf("COVID-19 Cases by Region (Data for %s)", window)
}

// Print writes the table of regions to w, followed by a Total row. An empty
// result prints a single notice instead.
func Print(w io.Writer, window domain.DateWindow, regions []domain.RegionAggregate) error {
	if len(regions) == 0 {
		_, err := fmt.Fprintln(w, emptyStyle.Render(fmt.Sprintf("No data available (Data for %s).", window)))
		return err
	}

	rows := make([][]string, 0, len(regions)+1)
	for _, r := range regions {
		rows = append(rows, []string{r.Region, strconv.FormatInt(r.TotalCases, 10)})
	}
	rows = append(rows, []string{"Total", strconv.FormatInt(aggregate.Total(regions), 10)})
	footer := len(rows) - 1

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("Region", "Total Cases").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == footer && col == 1:
				return footerStyle
			case row == footer:
				return cellStyle.Bold(true)
			case col == 1:
				return numberStyle
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintf(w, "%s\n%s\n", titleStyle.Render(Title(window)), t.Render())

	return err
}
