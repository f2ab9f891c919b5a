package exporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"voltcli/internal/dataset"
	"voltcli/internal/filter"
)

func TestWriteUnresolved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unresolved.xlsx")
	require.NoError(t, WriteUnresolved(path, []string{"TBA Hà Nội", "TBA Đà Nẵng"}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Unresolved")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"STT", "Trạm biến áp"}, rows[0])
	assert.Equal(t, []string{"1", "TBA Hà Nội"}, rows[1])
	assert.Equal(t, []string{"2", "TBA Đà Nẵng"}, rows[2])
}

func TestWriteUnresolvedEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unresolved.xlsx")
	require.NoError(t, WriteUnresolved(path, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Unresolved")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}

func TestWriteReport(t *testing.T) {
	summary := &filter.Summary{
		Low: []filter.ZoneStat{
			{Zone: "North", Stations: 2, Occurrences: 3, ExtremeVoltage: 101.2, HasExtreme: true},
			{Zone: "South", Stations: 1, Occurrences: 1, ExtremeVoltage: 210.0, HasExtreme: true},
		},
		High: []filter.ZoneStat{
			{Zone: "North", Stations: 1, Occurrences: 1, ExtremeVoltage: 121.3, HasExtreme: true},
		},
		LowDetail: []filter.DetailRow{
			{Zone: "North", Station: "A", Nominal: "110", Occurrences: 2, ExtremeVoltage: 101.2, UMin: 101.2, UMax: 103.5, HasExtreme: true},
		},
		HighDetail: []filter.DetailRow{
			{Zone: "North", Station: "C", Nominal: "110", Occurrences: 1, ExtremeVoltage: 121.3, UMin: 121.3, UMax: 121.3, HasExtreme: true},
		},
		// Ranking excludes South: the zone sheets honor it, details do not.
		TopZones: []string{"North"},
	}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteReport(path, summary))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t,
		[]string{"Low_Zones", "High_Zones", "Low_Detail", "High_Detail"},
		f.GetSheetList())

	lowRows, err := f.GetRows("Low_Zones")
	require.NoError(t, err)
	require.Len(t, lowRows, 2, "top-N ranking limits the zone sheet")
	assert.Equal(t, "North", lowRows[1][1])
	assert.Equal(t, "3", lowRows[1][3])

	detailRows, err := f.GetRows("Low_Detail")
	require.NoError(t, err)
	require.Len(t, detailRows, 2)
	assert.Equal(t, "A", detailRows[1][2])
	assert.Equal(t, "101.2", detailRows[1][5])
	assert.Equal(t, "103.5", detailRows[1][6])
}

func TestWriteDatasetCSV(t *testing.T) {
	dir := t.TempDir()
	ds := &dataset.Dataset{Records: []dataset.Record{
		{Seq: 1, Station: "TBA Hà Nội", Nominal: "110", Voltage: 112.3, HasVoltage: true, Zone: "North"},
	}}

	writer := NewCSVWriter(nil)
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, writer.WriteDatasetCSV(path, ds))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, raw[:3], "BOM prefix for Excel")
	assert.Contains(t, string(raw), "TBA Hà Nội")
	assert.Contains(t, string(raw), "112.3")
}
