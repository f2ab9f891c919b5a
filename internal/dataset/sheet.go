package dataset

import (
	"strconv"
	"strings"
	"time"
)

// Sheet is one tabular worksheet after column normalization, tagged with its
// provenance.
type Sheet struct {
	File    string
	Name    string
	Headers []string
	Rows    [][]string
}

// rowIndexLabels are the header spellings of the sequence column the source
// spreadsheets carry; it is dropped on ingestion and recomputed on output.
var rowIndexLabels = map[string]bool{
	"stt":  true,
	"sott": true,
}

// NormalizeColumns trims and whitespace-collapses every header and removes
// row-index columns. It is a pure transform; already-clean sheets pass
// through unchanged.
func NormalizeColumns(s Sheet) Sheet {
	headers := make([]string, len(s.Headers))
	drop := make([]bool, len(s.Headers))
	kept := 0
	for i, h := range s.Headers {
		headers[i] = NormalizeHeader(h)
		if rowIndexLabels[squashHeader(Fold(h))] {
			drop[i] = true
			continue
		}
		kept++
	}

	out := Sheet{File: s.File, Name: s.Name, Headers: make([]string, 0, kept)}
	for i, h := range headers {
		if !drop[i] {
			out.Headers = append(out.Headers, h)
		}
	}
	out.Rows = make([][]string, len(s.Rows))
	for r, row := range s.Rows {
		cells := make([]string, 0, kept)
		for i := range headers {
			if drop[i] {
				continue
			}
			if i < len(row) {
				cells = append(cells, row[i])
			} else {
				cells = append(cells, "")
			}
		}
		out.Rows[r] = cells
	}
	return out
}

// Cell returns the cell at (row, col), or "" when the row is ragged.
func (s Sheet) Cell(row, col int) string {
	if col < 0 || row < 0 || row >= len(s.Rows) || col >= len(s.Rows[row]) {
		return ""
	}
	return s.Rows[row][col]
}

// IsEmpty reports whether the sheet has no data rows.
func (s Sheet) IsEmpty() bool {
	return len(s.Rows) == 0
}

// StationColumn locates the station-identifier column: exact match on the
// canonical header, then a substring heuristic, then the first column.
// Returns -1 only for a sheet with no columns at all.
func (s Sheet) StationColumn() int {
	for i, h := range s.Headers {
		if Fold(h) == "tram bien ap" {
			return i
		}
	}
	for i, h := range s.Headers {
		low := Fold(h)
		if strings.Contains(low, "tram") && strings.Contains(low, "bien ap") {
			return i
		}
	}
	if len(s.Headers) > 0 {
		return 0
	}
	return -1
}

// NominalColumn locates the nominal-voltage (Uđd) column, or -1.
func (s Sheet) NominalColumn() int {
	for i, h := range s.Headers {
		if strings.Contains(Fold(h), "u danh dinh") {
			return i
		}
	}
	for i, h := range s.Headers {
		if strings.Contains(Fold(h), "danh dinh") {
			return i
		}
	}
	return -1
}

// VoltageColumn locates the actual-voltage reading column: preferred header
// tokens first, then generic hints, then the first mostly-numeric column.
func (s Sheet) VoltageColumn() int {
	preferred := []string{"u thuc te", "utt", "u_tt"}
	for i, h := range s.Headers {
		low := Fold(h)
		for _, p := range preferred {
			if strings.Contains(low, p) && s.columnIsNumeric(i) {
				return i
			}
		}
	}
	hints := []string{"dien ap", "voltage", "kv"}
	for i, h := range s.Headers {
		low := Fold(h)
		for _, hint := range hints {
			if strings.Contains(low, hint) && s.columnIsNumeric(i) {
				return i
			}
		}
	}
	for i, h := range s.Headers {
		if !strings.HasPrefix(h, "_") && s.columnIsNumeric(i) {
			return i
		}
	}
	return -1
}

// CompareColumn locates the precomputed percent-of-nominal column
// ("SO SÁNH (%)" or any header carrying a percent marker), or -1.
func (s Sheet) CompareColumn() int {
	for i, h := range s.Headers {
		low := Fold(h)
		if (strings.Contains(low, "so sanh") || strings.Contains(h, "%")) && s.columnIsNumeric(i) {
			return i
		}
	}
	return -1
}

// TimestampColumn locates a datetime column by header hints, falling back to
// any column with at least one parseable day-first timestamp. Returns -1
// when nothing parses; timestamps are detected, never guaranteed.
func (s Sheet) TimestampColumn() int {
	hints := []string{"ngay", "thoi gian", "date", "time", "thang", "month", "nam", "year"}
	for i, h := range s.Headers {
		low := Fold(h)
		for _, hint := range hints {
			if strings.Contains(low, hint) && s.columnHasTimestamps(i) {
				return i
			}
		}
	}
	for i := range s.Headers {
		if s.columnHasTimestamps(i) {
			return i
		}
	}
	return -1
}

// columnIsNumeric reports whether the column's non-empty cells are mostly
// parseable numbers.
func (s Sheet) columnIsNumeric(col int) bool {
	var seen, numeric int
	for r := range s.Rows {
		v := strings.TrimSpace(s.Cell(r, col))
		if v == "" {
			continue
		}
		seen++
		if _, ok := ParseFloat(v); ok {
			numeric++
		}
	}
	return seen > 0 && numeric*2 > seen
}

func (s Sheet) columnHasTimestamps(col int) bool {
	for r := range s.Rows {
		if ts := ParseTimestamp(s.Cell(r, col)); ts != nil {
			return true
		}
	}
	return false
}

// ParseFloat parses a numeric cell tolerating surrounding whitespace and a
// comma decimal separator.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// timestampLayouts are tried in order; day-first layouts come first because
// the source telemetry exports use them.
var timestampLayouts = []string{
	"02-01-2006 15:04:05",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04",
	"02/01/2006 15:04",
	"02-01-2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02-01-06 15:04",
	"02-01-06",
}

// ParseTimestamp parses a cell as a timestamp, returning nil when the value
// does not look like one.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
