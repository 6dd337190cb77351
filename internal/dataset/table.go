// Package dataset loads the raw tabular sources into an immutable, null-aware
// table backed by a gota DataFrame.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrMissingColumn is returned when a required column is absent from a source
var ErrMissingColumn = errors.New("missing column")

// ErrInvalidValue is returned when a cell cannot be parsed as the requested type
var ErrInvalidValue = errors.New("invalid value")

// NullTokens are the cell values treated as missing
var NullTokens = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "<nil>"}

// Table is a read-only table of string cells where every cell may be null.
// Column types are never inferred; typed access parses on demand.
type Table struct {
	name  string
	df    dataframe.DataFrame
	index map[string]int
}

// Open reads a CSV file into a table
func Open(name, path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s source: %w", name, err)
	}
	defer file.Close()

	return ReadCSV(name, file)
}

// ReadCSV reads CSV with a header row into a table
func ReadCSV(name string, r io.Reader) (*Table, error) {
	df := dataframe.ReadCSV(r, loadOptions()...)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to read %s source: %w", name, df.Err)
	}
	return newTable(name, df), nil
}

// FromRecords builds a table from a header and rows of nullable cells
func FromRecords(name string, header []string, rows [][]*string) (*Table, error) {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, header)
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("%s row %d has %d cells, want %d", name, i, len(row), len(header))
		}
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = *v
			}
		}
		records = append(records, cells)
	}

	if len(rows) == 0 {
		return emptyTable(name, header), nil
	}

	df := dataframe.LoadRecords(records, loadOptions()...)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to build %s table: %w", name, df.Err)
	}
	return newTable(name, df), nil
}

func loadOptions() []dataframe.LoadOption {
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(NullTokens),
	}
}

func emptyTable(name string, header []string) *Table {
	cols := make([]series.Series, len(header))
	for i, h := range header {
		cols[i] = series.New([]string{}, series.String, h)
	}
	return newTable(name, dataframe.New(cols...))
}

func newTable(name string, df dataframe.DataFrame) *Table {
	t := &Table{name: name, df: df, index: make(map[string]int)}
	for i, col := range df.Names() {
		t.index[col] = i
	}
	return t
}

// Name returns the dataset name used in reports and errors
func (t *Table) Name() string {
	return t.name
}

// Columns returns the column names in source order
func (t *Table) Columns() []string {
	return t.df.Names()
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return t.df.Nrow()
}

// HasColumn reports whether the named column exists
func (t *Table) HasColumn(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Require checks that every named column exists
func (t *Table) Require(cols ...string) error {
	var missing []string
	for _, col := range cols {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s source: %w: %s", t.name, ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// RenameFirst returns a copy of the table with its first column renamed.
// The first column of both sources is a positional identifier with no stable header.
func (t *Table) RenameFirst(newName string) *Table {
	names := t.df.Names()
	if len(names) == 0 || names[0] == newName {
		return t
	}
	return newTable(t.name, t.df.Rename(newName, names[0]))
}

// Value returns the cell at row/col, or nil when the cell is null or the column is absent
func (t *Table) Value(row int, col string) *string {
	c, ok := t.index[col]
	if !ok {
		return nil
	}
	elem := t.df.Elem(row, c)
	if elem.IsNA() {
		return nil
	}
	v := elem.String()
	return &v
}

// Float parses the cell at row/col as a float
func (t *Table) Float(row int, col string) (*float64, error) {
	v := t.Value(row, col)
	if v == nil {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(*v), 64)
	if err != nil {
		return nil, fmt.Errorf("%s row %d column %s: %w: %q", t.name, row, col, ErrInvalidValue, *v)
	}
	if math.IsNaN(f) {
		return nil, nil
	}
	return &f, nil
}

// Int parses the cell at row/col as an integer. Integral floats such as "2015.0" are accepted.
func (t *Table) Int(row int, col string) (*int, error) {
	f, err := t.Float(row, col)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) {
		return nil, fmt.Errorf("%s row %d column %s: %w: %v is not an integer", t.name, row, col, ErrInvalidValue, *f)
	}
	i := int(*f)
	return &i, nil
}

// Flag parses the cell at row/col as a 0/1 indicator. Null is false.
func (t *Table) Flag(row int, col string) (bool, error) {
	f, err := t.Float(row, col)
	if err != nil || f == nil {
		return false, err
	}
	return *f == 1, nil
}

// ColumnMissing is the share of null cells in one column
type ColumnMissing struct {
	Column   string  `json:"column"`
	Fraction float64 `json:"fraction"`
}

// Missing returns the null fraction of every column in source order
func (t *Table) Missing() []ColumnMissing {
	names := t.df.Names()
	result := make([]ColumnMissing, 0, len(names))
	rows := t.df.Nrow()

	for _, name := range names {
		cm := ColumnMissing{Column: name}
		if rows > 0 {
			nulls := 0
			for _, isNaN := range t.df.Col(name).IsNaN() {
				if isNaN {
					nulls++
				}
			}
			cm.Fraction = float64(nulls) / float64(rows)
		}
		result = append(result, cm)
	}
	return result
}
