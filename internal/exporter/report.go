package exporter

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	apperrors "voltcli/internal/errors"
	"voltcli/internal/filter"
)

// Report sheet names, one pair per violation class.
const (
	sheetLowZones   = "Low_Zones"
	sheetHighZones  = "High_Zones"
	sheetLowDetail  = "Low_Detail"
	sheetHighDetail = "High_Detail"
)

// WriteReport writes the four aggregate tables of a summary to one workbook:
// per-zone stats and detail rows for each violation class. The top-N ranking
// applies to the zone sheets only; detail sheets carry every row.
func WriteReport(path string, summary *filter.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), sheetLowZones)
	writeZoneSheet(f, sheetLowZones, "U min (kV)", limitZones(summary.Low, summary.TopZones))

	f.NewSheet(sheetHighZones)
	writeZoneSheet(f, sheetHighZones, "U max (kV)", limitZones(summary.High, summary.TopZones))

	f.NewSheet(sheetLowDetail)
	writeDetailSheet(f, sheetLowDetail, summary.LowDetail)

	f.NewSheet(sheetHighDetail)
	writeDetailSheet(f, sheetHighDetail, summary.HighDetail)

	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError(
			fmt.Sprintf("failed to write aggregate report %s", path), err)
	}
	return nil
}

// limitZones keeps the zone stats of the ranked top zones, in rank order.
func limitZones(stats []filter.ZoneStat, topZones []string) []filter.ZoneStat {
	byZone := make(map[string]filter.ZoneStat, len(stats))
	for _, s := range stats {
		byZone[s.Zone] = s
	}
	out := make([]filter.ZoneStat, 0, len(topZones))
	for _, zone := range topZones {
		if s, ok := byZone[zone]; ok {
			out = append(out, s)
		}
	}
	return out
}

func writeZoneSheet(f *excelize.File, sheet, extremeHeader string, stats []filter.ZoneStat) {
	headers := []string{"STT", "Vùng", "Số trạm vi phạm", "Số lần vi phạm", extremeHeader}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for i, s := range stats {
		row := strconv.Itoa(i + 2)
		f.SetCellValue(sheet, "A"+row, i+1)
		f.SetCellValue(sheet, "B"+row, s.Zone)
		f.SetCellValue(sheet, "C"+row, s.Stations)
		f.SetCellValue(sheet, "D"+row, s.Occurrences)
		if s.HasExtreme {
			f.SetCellValue(sheet, "E"+row, s.ExtremeVoltage)
		}
	}
}

func writeDetailSheet(f *excelize.File, sheet string, rows []filter.DetailRow) {
	headers := []string{"STT", "Vùng", "Trạm biến áp", "U danh định", "Số lần vi phạm", "U min (kV)", "U max (kV)", "U/Uđm"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for i, r := range rows {
		row := strconv.Itoa(i + 2)
		f.SetCellValue(sheet, "A"+row, i+1)
		f.SetCellValue(sheet, "B"+row, r.Zone)
		f.SetCellValue(sheet, "C"+row, r.Station)
		f.SetCellValue(sheet, "D"+row, r.Nominal)
		f.SetCellValue(sheet, "E"+row, r.Occurrences)
		if r.HasExtreme {
			f.SetCellValue(sheet, "F"+row, r.UMin)
			f.SetCellValue(sheet, "G"+row, r.UMax)
		}
		if r.Ratio != nil {
			f.SetCellValue(sheet, "H"+row, *r.Ratio)
		}
	}
}
