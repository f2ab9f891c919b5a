package exporter

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	apperrors "voltcli/internal/errors"
)

// WriteUnresolved writes the distinct unresolved station names as a minimal
// two-column table. stations is expected sorted; no computation happens here.
func WriteUnresolved(path string, stations []string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Unresolved"
	f.SetSheetName(f.GetSheetName(0), sheet)

	f.SetCellValue(sheet, "A1", "STT")
	f.SetCellValue(sheet, "B1", "Trạm biến áp")
	for i, station := range stations {
		row := strconv.Itoa(i + 2)
		f.SetCellValue(sheet, "A"+row, i+1)
		f.SetCellValue(sheet, "B"+row, station)
	}

	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError(
			fmt.Sprintf("failed to write unresolved export %s", path), err)
	}
	return nil
}
