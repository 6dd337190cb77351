package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

const consoleBarWidth = 30

// WriteTable prints a report as a console table with a text bar per column
func WriteTable(w io.Writer, m MissingValues) error {
	if _, err := fmt.Fprintf(w, "%s  [%d rows]\n", m.Title(), m.Rows); err != nil {
		return err
	}

	config := tablewriter.Config{}
	config.Row.Alignment = tw.CellAlignment{PerColumn: []tw.Align{tw.AlignLeft, tw.AlignRight, tw.AlignLeft}}
	table := tablewriter.NewTable(w, tablewriter.WithConfig(config))
	table.Header("Column", "Missing", "0 ... 1")

	for _, col := range m.Columns {
		if err := table.Append(col.Column, fmt.Sprintf("%.2f%%", col.Fraction*100), bar(col.Fraction)); err != nil {
			return err
		}
	}
	return table.Render()
}

func bar(fraction float64) string {
	n := int(clamp01(fraction)*consoleBarWidth + 0.5)
	return strings.Repeat("#", n) + strings.Repeat(".", consoleBarWidth-n)
}
