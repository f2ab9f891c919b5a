package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"voltcli/internal/dataset"
	apperrors "voltcli/internal/errors"
	"voltcli/internal/infrastructure"
)

// Report summarizes one ingestion pass.
type Report struct {
	FilesRead     int      `json:"files_read"`
	SheetsRead    int      `json:"sheets_read"`
	SheetsSkipped int      `json:"sheets_skipped"`
	RowsLoaded    int      `json:"rows_loaded"`
	RowsDeduped   int      `json:"rows_deduped"`
	SkippedFiles  []string `json:"skipped_files,omitempty"`
}

// Loader reads measurement workbooks into a combined dataset.
type Loader struct {
	// SignatureRows is the number of leading data rows hashed into the
	// per-sheet duplicate signature.
	SignatureRows int
}

// NewLoader returns a Loader hashing sampleRows rows per sheet signature.
func NewLoader(sampleRows int) *Loader {
	if sampleRows <= 0 {
		sampleRows = 20
	}
	return &Loader{SignatureRows: sampleRows}
}

// Load reads every workbook in paths, skipping repeated paths, duplicate
// sheet content and exact duplicate rows. The result carries dense 1..N
// sequence numbers. An unreadable workbook is reported and skipped; the pass
// fails only when no workbook could be read at all.
func (l *Loader) Load(ctx context.Context, paths []string) (*dataset.Dataset, *Report, error) {
	logger := infrastructure.LoggerFromContext(ctx)
	report := &Report{}
	ds := &dataset.Dataset{}
	seenSheets := make(map[signature]struct{})

	for _, path := range dedupPaths(paths) {
		readable := ensureReadable(ctx, logger, path)
		f, err := excelize.OpenFile(readable)
		if err != nil {
			logger.WarnContext(ctx, "skipping unreadable workbook",
				"file", filepath.Base(path), "error", err)
			report.SkippedFiles = append(report.SkippedFiles, filepath.Base(path))
			continue
		}
		report.FilesRead++

		for _, sheetName := range f.GetSheetList() {
			sheet, err := readSheet(f, path, sheetName)
			if err != nil {
				logger.WarnContext(ctx, "skipping unreadable sheet",
					"file", filepath.Base(path), "sheet", sheetName, "error", err)
				report.SheetsSkipped++
				continue
			}
			if sheet.IsEmpty() {
				report.SheetsSkipped++
				continue
			}

			sig := sheetSignature(sheet, l.SignatureRows)
			if _, dup := seenSheets[sig]; dup {
				logger.InfoContext(ctx, "skipping duplicate sheet", "signature", sig.String())
				report.SheetsSkipped++
				continue
			}
			seenSheets[sig] = struct{}{}

			records := recordsFromSheet(sheet)
			ds.Records = append(ds.Records, records...)
			report.SheetsRead++
		}

		f.Close()
	}

	if report.FilesRead == 0 {
		return nil, report, apperrors.NewIngestError("no readable workbook in input", nil)
	}

	before := ds.Len()
	ds.Deduplicate()
	report.RowsLoaded = ds.Len()
	report.RowsDeduped = before - ds.Len()

	logger.InfoContext(ctx, "ingestion complete",
		"files", report.FilesRead,
		"sheets", report.SheetsRead,
		"rows", report.RowsLoaded,
		"duplicates_removed", report.RowsDeduped)
	return ds, report, nil
}

// readSheet pulls one worksheet into a normalized Sheet, treating the first
// non-empty row as the header.
func readSheet(f *excelize.File, path, sheetName string) (dataset.Sheet, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return dataset.Sheet{}, apperrors.NewParsingError("failed to read sheet rows", err).
			WithContext("sheet", sheetName)
	}

	headerIdx := -1
	for i, row := range rows {
		if !rowIsBlank(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return dataset.Sheet{File: path, Name: sheetName}, nil
	}

	sheet := dataset.Sheet{
		File:    path,
		Name:    sheetName,
		Headers: rows[headerIdx],
	}
	for _, row := range rows[headerIdx+1:] {
		if rowIsBlank(row) {
			continue
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return dataset.NormalizeColumns(sheet), nil
}

// recordsFromSheet maps sheet rows to records using the sheet's detected
// columns. Rows with neither a station name nor a voltage reading are noise
// and dropped.
func recordsFromSheet(sheet dataset.Sheet) []dataset.Record {
	stationCol := sheet.StationColumn()
	nominalCol := sheet.NominalColumn()
	voltageCol := sheet.VoltageColumn()
	compareCol := sheet.CompareColumn()
	timeCol := sheet.TimestampColumn()

	records := make([]dataset.Record, 0, len(sheet.Rows))
	for r := range sheet.Rows {
		rec := dataset.Record{
			Station:     strings.TrimSpace(sheet.Cell(r, stationCol)),
			SourceFile:  filepath.Base(sheet.File),
			SourceSheet: sheet.Name,
		}
		if nominalCol >= 0 {
			rec.Nominal = strings.TrimSpace(sheet.Cell(r, nominalCol))
		}
		if voltageCol >= 0 {
			if v, ok := dataset.ParseFloat(sheet.Cell(r, voltageCol)); ok {
				rec.Voltage = v
				rec.HasVoltage = true
			}
		}
		if compareCol >= 0 {
			if v, ok := dataset.ParseFloat(sheet.Cell(r, compareCol)); ok {
				rec.Compare = &v
			}
		}
		if timeCol >= 0 {
			rec.Timestamp = dataset.ParseTimestamp(sheet.Cell(r, timeCol))
		}
		if rec.Station == "" && !rec.HasVoltage {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// dedupPaths collapses repeated input paths, keeping first-seen order.
func dedupPaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		key := filepath.Clean(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

func rowIsBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
