package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/flightrecon/internal/dataset"
)

func sampleTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.ReadCSV("FLIGHTS", strings.NewReader(
		"ID,A,B,C\n0,,x,\n1,,x,y\n2,z,,\n3,,x,y\n"))
	require.NoError(t, err)
	return table
}

func TestFromTableRanksDescending(t *testing.T) {
	m := FromTable(Before, sampleTable(t))

	assert.Equal(t, "FLIGHTS", m.Dataset)
	assert.Equal(t, Before, m.Stage)
	assert.Equal(t, 4, m.Rows)
	require.Len(t, m.Columns, 4)

	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Column
	}
	assert.Equal(t, []string{"A", "C", "B", "ID"}, names)
	assert.InDelta(t, 0.75, m.Columns[0].Fraction, 1e-9)

	frac, ok := m.Fraction("C")
	assert.True(t, ok)
	assert.InDelta(t, 0.5, frac, 1e-9)
	_, ok = m.Fraction("missing")
	assert.False(t, ok)
}

func TestTitle(t *testing.T) {
	m := MissingValues{Dataset: "AIRCRAFT", Stage: After}
	assert.Equal(t, "Missing values (%) - AIRCRAFT - (AFTER)", m.Title())
	assert.Equal(t, "missing-aircraft-after.pdf", FileName(m))
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, FromTable(Before, sampleTable(t)), MissingValues{Dataset: "EMPTY", Stage: After}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestSavePDF(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	paths, err := SavePDF(dir, FromTable(Before, sampleTable(t)), FromTable(After, sampleTable(t)))
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Equal(t, "missing-flights-before.pdf", filepath.Base(paths[0]))
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, FromTable(After, sampleTable(t))))

	out := buf.String()
	assert.Contains(t, out, "Missing values (%) - FLIGHTS - (AFTER)")
	assert.Contains(t, out, "75.00%")
	assert.Contains(t, out, strings.Repeat("#", 23)+strings.Repeat(".", 7))
}

func TestBar(t *testing.T) {
	assert.Equal(t, strings.Repeat(".", 30), bar(0))
	assert.Equal(t, strings.Repeat("#", 30), bar(1.5))
	assert.Equal(t, strings.Repeat("#", 15)+strings.Repeat(".", 15), bar(0.5))
}
