package utils

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var layouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

func TestParseTime(t *testing.T) {
	ts, err := ParseTime(" 2024-01-02 03:04:05 ", layouts)
	require.NoError(t, err)
	assert.Equal(t, 3, ts.Hour())

	ts, err = ParseTime("", layouts)
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	_, err = ParseTime("02/01/2024", layouts)
	assert.Error(t, err)
}

func TestParseFloat(t *testing.T) {
	v, err := ParseFloat("nan")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))

	v, err = ParseFloat(" 4.5 ")
	require.NoError(t, err)
	assert.Equal(t, 4.5, v)

	_, err = ParseFloat("four")
	assert.Error(t, err)
}

func TestSubSeriesDays(t *testing.T) {
	df := dataframe.ReadCSV(strings.NewReader("end,start\n2024-01-05,2024-01-01\n,2024-01-01\n"),
		dataframe.DetectTypes(false))
	out, err := SubSeriesDays(df, "end", "start", "days", layouts)
	require.NoError(t, err)
	require.True(t, HasColumn(out, "days"))
	assert.Equal(t, 4.0, out.Col("days").Elem(0).Float())
	assert.True(t, math.IsNaN(out.Col("days").Elem(1).Float()))
}

func TestWriteFrame(t *testing.T) {
	type row struct {
		Name  string  `dataframe:"name"`
		Value float64 `dataframe:"value"`
	}
	df := dataframe.LoadStructs([]row{{"a", 1.5}, {"b", math.NaN()}})
	require.NoError(t, df.Err)

	f := excelize.NewFile()
	require.NoError(t, WriteFrame(f, "Data", df))
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Data")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"name", "value"}, rows[0])
	assert.Equal(t, "1.5", rows[1][1])
	assert.Equal(t, []string{"b"}, rows[2])
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]int{1, 2}, 3))
}
