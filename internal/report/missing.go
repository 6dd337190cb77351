// Package report builds and renders the per-column missing-value diagnostics
// emitted before and after each cleaning stage.
package report

import (
	"fmt"
	"sort"

	"github.com/yegors/flightrecon/internal/dataset"
)

// Stage marks when a report was taken relative to the transform
type Stage string

const (
	Before Stage = "BEFORE"
	After  Stage = "AFTER"
)

// MissingValues is the null fraction of every column of one dataset at one stage,
// ranked from most to least missing
type MissingValues struct {
	Dataset string                  `json:"dataset"`
	Stage   Stage                   `json:"stage"`
	Rows    int                     `json:"rows"`
	Columns []dataset.ColumnMissing `json:"columns"`
}

// FromTable computes the missing-value report for a table
func FromTable(stage Stage, table *dataset.Table) MissingValues {
	columns := table.Missing()

	// Ties keep source column order
	sort.SliceStable(columns, func(i, j int) bool {
		return columns[i].Fraction > columns[j].Fraction
	})

	return MissingValues{
		Dataset: table.Name(),
		Stage:   stage,
		Rows:    table.Len(),
		Columns: columns,
	}
}

// Title returns the chart title, e.g. "Missing values (%) - AIRCRAFT - (BEFORE)"
func (m MissingValues) Title() string {
	return fmt.Sprintf("Missing values (%%) - %s - (%s)", m.Dataset, m.Stage)
}

// Fraction returns the missing fraction of a column and whether the column is present
func (m MissingValues) Fraction(column string) (float64, bool) {
	for _, c := range m.Columns {
		if c.Column == column {
			return c.Fraction, true
		}
	}
	return 0, false
}
