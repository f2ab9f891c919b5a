package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeColumnsDropsIndexColumn(t *testing.T) {
	s := Sheet{
		File:    "a.xlsx",
		Name:    "Sheet1",
		Headers: []string{"Số TT", "Trạm biến áp", " U   danh định "},
		Rows: [][]string{
			{"1", "TBA Hà Nội", "110"},
			{"2", "TBA Đà Nẵng"},
		},
	}

	out := NormalizeColumns(s)
	require.Equal(t, []string{"Trạm biến áp", "U danh định"}, out.Headers)
	assert.Equal(t, []string{"TBA Hà Nội", "110"}, out.Rows[0])
	// Ragged row padded to shape.
	assert.Equal(t, []string{"TBA Đà Nẵng", ""}, out.Rows[1])
}

func TestStationColumn(t *testing.T) {
	exact := Sheet{Headers: []string{"Ngày", "Trạm Biến Áp", "U"}}
	assert.Equal(t, 1, exact.StationColumn())

	fuzzy := Sheet{Headers: []string{"Tên trạm biến áp 110kV", "U"}}
	assert.Equal(t, 0, fuzzy.StationColumn())

	fallback := Sheet{Headers: []string{"anything", "else"}}
	assert.Equal(t, 0, fallback.StationColumn())

	empty := Sheet{}
	assert.Equal(t, -1, empty.StationColumn())
}

func TestNominalColumn(t *testing.T) {
	s := Sheet{Headers: []string{"Trạm biến áp", "U danh định (kV)", "U thực tế"}}
	assert.Equal(t, 1, s.NominalColumn())

	none := Sheet{Headers: []string{"Trạm biến áp", "U"}}
	assert.Equal(t, -1, none.NominalColumn())
}

func TestVoltageColumnPrefersExplicitHeader(t *testing.T) {
	s := Sheet{
		Headers: []string{"Trạm biến áp", "U danh định (kV)", "U thực tế (kV)"},
		Rows: [][]string{
			{"A", "110", "112,3"},
			{"B", "110", "108.9"},
		},
	}
	assert.Equal(t, 2, s.VoltageColumn())
}

func TestCompareColumnNeedsPercentMarker(t *testing.T) {
	s := Sheet{
		Headers: []string{"Trạm biến áp", "SO SÁNH (%)"},
		Rows:    [][]string{{"A", "95,0"}, {"B", "101.2"}},
	}
	assert.Equal(t, 1, s.CompareColumn())

	none := Sheet{
		Headers: []string{"Trạm biến áp", "Ghi chú"},
		Rows:    [][]string{{"A", "ok"}},
	}
	assert.Equal(t, -1, none.CompareColumn())
}

func TestTimestampColumn(t *testing.T) {
	s := Sheet{
		Headers: []string{"Trạm biến áp", "Thời gian"},
		Rows:    [][]string{{"A", "15-03-2026 10:30:00"}},
	}
	assert.Equal(t, 1, s.TimestampColumn())

	none := Sheet{
		Headers: []string{"Trạm biến áp", "Ghi chú"},
		Rows:    [][]string{{"A", "text"}},
	}
	assert.Equal(t, -1, none.TimestampColumn())
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"112.5", 112.5, true},
		{"112,5", 112.5, true},
		{" 95 ", 95, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseFloat(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		if ok {
			assert.Equal(t, tt.want, got, tt.input)
		}
	}
}

func TestParseTimestampDayFirst(t *testing.T) {
	ts := ParseTimestamp("15-03-2026 10:30:00")
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC), *ts)

	slash := ParseTimestamp("02/01/2026")
	require.NotNil(t, slash)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), *slash)

	// Two-digit years read day-first too.
	short := ParseTimestamp("05-03-26")
	require.NotNil(t, short)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), *short)

	assert.Nil(t, ParseTimestamp("not a date"))
	assert.Nil(t, ParseTimestamp(""))
}
