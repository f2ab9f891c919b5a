package correction

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "voltcli/internal/errors"
	"voltcli/internal/zone"
)

func writeReference(t *testing.T, dir string, stations []string) string {
	t.Helper()

	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), zone.BusesSheet)
	require.NoError(t, f.SetCellValue(zone.BusesSheet, "A1", "TBA_SCADA"))
	require.NoError(t, f.SetCellValue(zone.BusesSheet, "B1", "Sym"))
	require.NoError(t, f.SetCellValue(zone.BusesSheet, "C1", "zone_code"))
	for i, s := range stations {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, f.SetCellValue(zone.BusesSheet, cell, s))
	}

	path := filepath.Join(dir, "DB_VietSub.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func readStations(t *testing.T, path string) []string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(zone.BusesSheet)
	require.NoError(t, err)
	var out []string
	for _, row := range rows[1:] {
		if len(row) > 0 {
			out = append(out, row[0])
		}
	}
	return out
}

func newApplier(t *testing.T, stations []string) (*Applier, string) {
	dir := t.TempDir()
	path := writeReference(t, dir, stations)
	return &Applier{
		ReferencePath: path,
		BackupDir:     filepath.Join(dir, "DB_backups"),
	}, path
}

func TestApplyRenamesCanonicalRows(t *testing.T) {
	applier, path := newApplier(t, []string{"TBA Hà Nội", "tba hà nội", "TBA Đà Nẵng"})

	outcome, err := applier.Apply(context.Background(), "Trạm Hà Nội Mới", "TBA Hà Nội")
	require.NoError(t, err)
	assert.Equal(t, StatusApplied, outcome.Status)
	// Case-insensitive equality catches both spellings.
	assert.Equal(t, 2, outcome.RowsUpdated)
	assert.FileExists(t, outcome.BackupPath)

	// The canonical entries now carry the telemetry spelling; the rename
	// direction folds the reference onto the feed, not vice versa.
	got := readStations(t, path)
	assert.Equal(t, []string{"Trạm Hà Nội Mới", "Trạm Hà Nội Mới", "TBA Đà Nẵng"}, got)

	// Lock released.
	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err))
}

func TestApplyNothingMatched(t *testing.T) {
	applier, path := newApplier(t, []string{"TBA Hà Nội"})
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	outcome, err := applier.Apply(context.Background(), "Trạm X", "TBA Không Có")
	require.NoError(t, err)
	assert.Equal(t, StatusNothingMatched, outcome.Status)
	assert.Equal(t, 0, outcome.RowsUpdated)
	// Backup taken before the scan is retained regardless.
	assert.FileExists(t, outcome.BackupPath)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "no-match correction must leave the file untouched")
}

func TestApplyBusyWhenLocked(t *testing.T) {
	applier, path := newApplier(t, []string{"TBA Hà Nội"})
	require.NoError(t, os.WriteFile(path+".lock", []byte("held"), 0644))
	defer os.Remove(path + ".lock")

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = applier.Apply(context.Background(), "Trạm X", "TBA Hà Nội")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeBusy))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "busy outcome must not mutate the reference")
}

func TestApplyAtomicOnWriteFailure(t *testing.T) {
	applier, path := newApplier(t, []string{"TBA Hà Nội"})
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Occupy the temporary sibling path with a directory so the write
	// phase fails after the in-memory rewrite succeeded.
	require.NoError(t, os.Mkdir(applier.tempPath(), 0755))

	_, err = applier.Apply(context.Background(), "Trạm X", "TBA Hà Nội")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))

	dir := filepath.Dir(path)
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed write must leave the original byte-identical")

	// No temporary leftovers.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "~tmp_")
		assert.NotContains(t, e.Name(), ".lock")
	}
}

func TestApplySkipsSentinel(t *testing.T) {
	applier, path := newApplier(t, []string{"TBA Hà Nội"})
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	outcome, err := applier.Apply(context.Background(), "Trạm X", NotInDirectory)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, outcome.Status)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestApplyValidatesInput(t *testing.T) {
	applier, _ := newApplier(t, []string{"TBA Hà Nội"})

	_, err := applier.Apply(context.Background(), "", "TBA Hà Nội")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	_, err = applier.Apply(context.Background(), "Trạm X", "  ")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}
