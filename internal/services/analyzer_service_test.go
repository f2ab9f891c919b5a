package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"voltcli/internal/config"
	"voltcli/internal/correction"
	apperrors "voltcli/internal/errors"
	"voltcli/internal/filter"
)

func testConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{
			LowThresholdPct:  95,
			HighThresholdPct: 110,
			StaleCodeRows:    0,
			TopZones:         12,
			SuggestionCount:  5,
			SignatureRows:    20,
		},
	}
}

func testPaths(t *testing.T) *config.Paths {
	dir := t.TempDir()
	return &config.Paths{
		ExecutableDir: dir,
		DataDir:       filepath.Join(dir, "data"),
		ReferenceFile: filepath.Join(dir, "DB_VietSub.xlsx"),
		BackupDir:     filepath.Join(dir, "DB_backups"),
		ReportsDir:    filepath.Join(dir, "reports"),
		LogsDir:       filepath.Join(dir, "logs"),
	}
}

func writeMeasurements(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []interface{}{"Số TT", "Trạm biến áp", "U danh định", "U thực tế", "SO SÁNH (%)"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		require.NoError(t, f.SetCellValue(sheet, cell, h))
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		require.NoError(t, f.SetCellValue(sheet, cell, r+1))
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+2, r+2)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func writeReference(t *testing.T, path string, buses, zones [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), "Buses")
	for col, h := range []string{"TBA_SCADA", "Sym", "zone_code"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		require.NoError(t, f.SetCellValue("Buses", cell, h))
	}
	for r, row := range buses {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			require.NoError(t, f.SetCellValue("Buses", cell, v))
		}
	}
	f.NewSheet("Zones")
	for col, h := range []string{"Sym", "zone_code", "zone_name_vi"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		require.NoError(t, f.SetCellValue("Zones", cell, h))
	}
	for r, row := range zones {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			require.NoError(t, f.SetCellValue("Zones", cell, v))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func newTestService(t *testing.T) (*AnalyzerService, *config.Paths) {
	paths := testPaths(t)
	writeReference(t, paths.ReferenceFile,
		[][]interface{}{
			{"TBA Hà Nội 110kV", "S1", 7},
			{"TBA Đà Nẵng", "S2", 15},
		},
		[][]interface{}{
			{"S1", 7, "North"},
			{"S2", 15, "Central"},
		})
	return NewAnalyzerService(testConfig(), paths), paths
}

func TestIngestResolvesZones(t *testing.T) {
	svc, paths := newTestService(t)
	feed := filepath.Join(paths.ExecutableDir, "feed.xlsx")
	writeMeasurements(t, feed, [][]interface{}{
		{"Trạm Biến Áp Hà Nội", "110", 104.1, 94.6},
		{"TBA Mới Lạ", "110", 112.0, 101.8},
	})

	result, err := svc.Ingest(context.Background(), []string{feed}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.Rows)
	assert.Equal(t, 1, result.Zones.Resolved)
	assert.Equal(t, 1, result.Zones.Unresolved)
	assert.Equal(t, []string{"TBA Mới Lạ"}, svc.UnresolvedStations())
}

func TestIngestMergeIsIdempotent(t *testing.T) {
	svc, paths := newTestService(t)
	feed := filepath.Join(paths.ExecutableDir, "feed.xlsx")
	writeMeasurements(t, feed, [][]interface{}{
		{"Trạm Biến Áp Hà Nội", "110", 104.1, 94.6},
	})

	first, err := svc.Ingest(context.Background(), []string{feed}, false)
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), []string{feed}, true)
	require.NoError(t, err)
	assert.Equal(t, first.Stats.Rows, second.Stats.Rows)
}

func TestFilterRequiresDataset(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Filter(context.Background(), filter.Request{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestSuggestionsIncludeSentinel(t *testing.T) {
	svc, _ := newTestService(t)
	got, err := svc.Suggestions(context.Background(), "TBA Ha Noi")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "TBA Hà Nội 110kV", got[0].Station)
	assert.Equal(t, correction.NotInDirectory, got[len(got)-1].Station)
}

func TestCorrectionRoundTrip(t *testing.T) {
	svc, paths := newTestService(t)
	feed := filepath.Join(paths.ExecutableDir, "feed.xlsx")
	// The telemetry name shares no join key with any reference entry.
	writeMeasurements(t, feed, [][]interface{}{
		{"Thủ Đô EVN", "110", 104.1, 94.6},
	})

	result, err := svc.Ingest(context.Background(), []string{feed}, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.Zones.Unresolved)

	outcome, err := svc.ApplyCorrection(context.Background(), "Thủ Đô EVN", "TBA Hà Nội 110kV")
	require.NoError(t, err)
	assert.Equal(t, correction.StatusApplied, outcome.Status)
	assert.Equal(t, 1, outcome.RowsUpdated)

	// The service re-resolved against the corrected reference.
	zones := svc.LastZones()
	assert.Equal(t, 1, zones.Resolved)
	assert.Equal(t, 0, zones.Unresolved)
	assert.Empty(t, svc.UnresolvedStations())
}

func TestCorrectionNothingMatched(t *testing.T) {
	svc, _ := newTestService(t)
	outcome, err := svc.ApplyCorrection(context.Background(), "Trạm X", "Không Tồn Tại")
	require.NoError(t, err)
	assert.Equal(t, correction.StatusNothingMatched, outcome.Status)
}

func TestExports(t *testing.T) {
	svc, paths := newTestService(t)
	require.NoError(t, paths.EnsureDirectories())
	feed := filepath.Join(paths.ExecutableDir, "feed.xlsx")
	writeMeasurements(t, feed, [][]interface{}{
		{"Trạm Biến Áp Hà Nội", "110", 104.1, 94.6},
		{"TBA Mới Lạ", "110", 112.0, 101.8},
	})
	_, err := svc.Ingest(context.Background(), []string{feed}, false)
	require.NoError(t, err)

	unresolvedPath, err := svc.ExportUnresolved(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, unresolvedPath)

	reportPath, err := svc.ExportReport(context.Background(), filter.Request{}, 0)
	require.NoError(t, err)
	assert.FileExists(t, reportPath)

	csvPath, err := svc.ExportFiltered(context.Background(), filter.Request{Low: true})
	require.NoError(t, err)
	assert.FileExists(t, csvPath)
}
