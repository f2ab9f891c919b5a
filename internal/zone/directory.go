package zone

import (
	"context"
	"strings"

	"github.com/xuri/excelize/v2"

	"voltcli/internal/dataset"
	apperrors "voltcli/internal/errors"
	"voltcli/internal/infrastructure"
)

// Sheet and column names of the reference workbook. Column matching is
// case-insensitive and tolerates the historical spelling variants.
const (
	BusesSheet = "Buses"
	ZonesSheet = "Zones"

	StationColumn = "TBA_SCADA"
)

var (
	stationColumns  = []string{strings.ToLower(StationColumn), "tba scada", "tba"}
	symColumns      = []string{"sym", "symbol", "ky hieu"}
	codeColumns     = []string{"zone_code", "zone code", "zonecode", "zone_id", "zone id", "ma vung"}
	zoneNameColumns = []string{"zone_name_vi", "zone_name", "zone name", "zone_bx", "ten vung", "zone"}
)

// Bus is one station row of the reference directory.
type Bus struct {
	Station string
	Sym     string
	Code    *int64
}

// Zone is one zone row of the reference directory.
type Zone struct {
	Sym  string
	Code *int64
	Name string
}

// Directory is the in-memory zone reference, loaded fresh for each
// resolution pass so corrections written by other processes are picked up.
type Directory struct {
	Path  string
	Buses []Bus
	Zones []Zone

	// SkipReason is non-empty when a required sheet or column is missing;
	// resolution then degrades to a reported no-op instead of failing.
	SkipReason string

	// CodesRebuilt is set when the bus zone-code column was judged stale
	// and rebuilt from the zones sheet.
	CodesRebuilt bool
}

// LoadDirectory reads the reference workbook. staleCutoff is the non-null
// zone-code row count under which the bus codes are considered stale and
// rebuilt from the zones sheet via the Sym column. A missing sheet or column
// yields a directory with SkipReason set, not an error; only an unreadable
// workbook fails.
func LoadDirectory(ctx context.Context, path string, staleCutoff int) (*Directory, error) {
	logger := infrastructure.LoggerFromContext(ctx)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewReferenceError("failed to open reference workbook", err).
			WithContext("path", path)
	}
	defer f.Close()

	dir := &Directory{Path: path}
	if reason := dir.readBuses(f); reason != "" {
		dir.SkipReason = reason
		logger.WarnContext(ctx, "zone resolution will be skipped", "reason", reason)
		return dir, nil
	}
	if reason := dir.readZones(f); reason != "" {
		dir.SkipReason = reason
		logger.WarnContext(ctx, "zone resolution will be skipped", "reason", reason)
		return dir, nil
	}

	populated := 0
	for _, b := range dir.Buses {
		if b.Code != nil {
			populated++
		}
	}
	if populated < staleCutoff {
		rebuilt := dir.rebuildCodes()
		dir.CodesRebuilt = true
		logger.InfoContext(ctx, "rebuilt stale bus zone codes from zones sheet",
			"populated_before", populated, "rebuilt", rebuilt, "cutoff", staleCutoff)
	}

	logger.InfoContext(ctx, "loaded zone reference",
		"buses", len(dir.Buses), "zones", len(dir.Zones))
	return dir, nil
}

// CanonicalStations returns the station names the directory knows, in sheet
// order, for fuzzy-match suggestion candidates.
func (d *Directory) CanonicalStations() []string {
	out := make([]string, 0, len(d.Buses))
	seen := make(map[string]struct{}, len(d.Buses))
	for _, b := range d.Buses {
		if b.Station == "" {
			continue
		}
		if _, dup := seen[b.Station]; dup {
			continue
		}
		seen[b.Station] = struct{}{}
		out = append(out, b.Station)
	}
	return out
}

// rebuildCodes overwrites every bus zone code with the zones-sheet code for
// the same Sym. Buses whose Sym is unknown to the zones sheet end up null.
func (d *Directory) rebuildCodes() int {
	bySym := make(map[string]*int64, len(d.Zones))
	for _, z := range d.Zones {
		key := strings.ToLower(strings.TrimSpace(z.Sym))
		if key == "" || z.Code == nil {
			continue
		}
		if _, dup := bySym[key]; !dup {
			bySym[key] = z.Code
		}
	}

	rebuilt := 0
	for i := range d.Buses {
		key := strings.ToLower(strings.TrimSpace(d.Buses[i].Sym))
		if code, ok := bySym[key]; ok {
			d.Buses[i].Code = code
			rebuilt++
		} else {
			d.Buses[i].Code = nil
		}
	}
	return rebuilt
}

// readBuses fills d.Buses, returning a non-empty skip reason on a missing
// sheet or station column.
func (d *Directory) readBuses(f *excelize.File) string {
	rows, err := f.GetRows(BusesSheet)
	if err != nil {
		return "buses sheet missing from reference workbook"
	}
	if len(rows) == 0 {
		return "buses sheet is empty"
	}

	stationCol := findColumn(rows[0], stationColumns)
	symCol := findColumn(rows[0], symColumns)
	codeCol := findColumn(rows[0], codeColumns)
	if stationCol < 0 {
		return "buses sheet has no station column"
	}
	if symCol < 0 {
		return "buses sheet has no symbol column"
	}

	for _, row := range rows[1:] {
		b := Bus{Station: strings.TrimSpace(cellAt(row, stationCol))}
		if b.Station == "" {
			continue
		}
		b.Sym = strings.TrimSpace(cellAt(row, symCol))
		if codeCol >= 0 {
			b.Code = CoerceZoneCode(cellAt(row, codeCol))
		}
		d.Buses = append(d.Buses, b)
	}
	return ""
}

// readZones fills d.Zones, returning a non-empty skip reason on a missing
// sheet or required column.
func (d *Directory) readZones(f *excelize.File) string {
	rows, err := f.GetRows(ZonesSheet)
	if err != nil {
		return "zones sheet missing from reference workbook"
	}
	if len(rows) == 0 {
		return "zones sheet is empty"
	}

	symCol := findColumn(rows[0], symColumns)
	codeCol := findColumn(rows[0], codeColumns)
	nameCol := findColumn(rows[0], zoneNameColumns)
	if symCol < 0 || codeCol < 0 || nameCol < 0 {
		return "zones sheet is missing a required column"
	}

	for _, row := range rows[1:] {
		z := Zone{
			Sym:  strings.TrimSpace(cellAt(row, symCol)),
			Code: CoerceZoneCode(cellAt(row, codeCol)),
			Name: strings.TrimSpace(cellAt(row, nameCol)),
		}
		if z.Name == "" && z.Code == nil {
			continue
		}
		d.Zones = append(d.Zones, z)
	}
	return ""
}

// CoerceZoneCode parses a zone code tolerating float renderings ("15.0"),
// comma decimals and stray whitespace. Anything unparseable maps to nil,
// never to zero.
func CoerceZoneCode(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, ok := dataset.ParseFloat(s)
	if !ok {
		return nil
	}
	code := int64(v)
	if float64(code) != v {
		return nil
	}
	return &code
}

// findColumn returns the index of the first header cell matching any
// candidate, case-insensitively, or -1.
func findColumn(headers []string, candidates []string) int {
	for i, h := range headers {
		low := strings.ToLower(strings.TrimSpace(h))
		for _, c := range candidates {
			if low == c {
				return i
			}
		}
	}
	return -1
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
