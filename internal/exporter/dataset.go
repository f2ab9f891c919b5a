package exporter

import (
	"strconv"
	"time"

	"voltcli/internal/dataset"
	"voltcli/internal/zone"
)

// DatasetHeaders is the column layout of a dataset CSV export.
var DatasetHeaders = []string{
	"STT", "Trạm biến áp", "U danh định", "U thực tế", "So sánh (%)",
	"Thời gian", "Ký hiệu", "Mã vùng", "Vùng", "Nguồn", "Sheet",
}

// DatasetRecords renders a dataset into CSV rows matching DatasetHeaders.
func DatasetRecords(ds *dataset.Dataset) [][]string {
	out := make([][]string, 0, ds.Len())
	for _, r := range ds.Records {
		voltage := ""
		if r.HasVoltage {
			voltage = strconv.FormatFloat(r.Voltage, 'f', -1, 64)
		}
		compare := ""
		if r.Compare != nil {
			compare = strconv.FormatFloat(*r.Compare, 'f', -1, 64)
		}
		ts := ""
		if r.Timestamp != nil {
			ts = r.Timestamp.Format(time.DateTime)
		}
		out = append(out, []string{
			strconv.Itoa(r.Seq),
			r.Station,
			r.Nominal,
			voltage,
			compare,
			ts,
			r.Symbol,
			zone.FormatCode(r.ZoneCode),
			r.Zone,
			r.SourceFile,
			r.SourceSheet,
		})
	}
	return out
}

// WriteDatasetCSV writes a dataset view to a CSV file with a UTF-8 BOM so
// the exported Vietnamese text opens cleanly in Excel.
func (w *CSVWriter) WriteDatasetCSV(filePath string, ds *dataset.Dataset) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   DatasetHeaders,
		Records:   DatasetRecords(ds),
		BOMPrefix: true,
	})
}
