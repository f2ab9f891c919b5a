package dataset

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Record is one voltage measurement row after ingestion. The zone fields
// stay empty until the resolver succeeds on both reference lookups; they are
// never guessed.
type Record struct {
	// Seq is a dense 1-based view artifact, recomputed on every combine or
	// filter pass. It is never a durable key.
	Seq         int        `json:"seq"`
	Station     string     `json:"station"`
	Nominal     string     `json:"nominal"`
	Voltage     float64    `json:"voltage"`
	HasVoltage  bool       `json:"has_voltage"`
	Compare     *float64   `json:"compare,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Symbol      string     `json:"symbol,omitempty"`
	ZoneCode    *int64     `json:"zone_code,omitempty"`
	Zone        string     `json:"zone,omitempty"`
	SourceFile  string     `json:"source_file"`
	SourceSheet string     `json:"source_sheet"`
}

// identity serializes the source fields plus provenance. Seq and the zone
// enrichment fields (Symbol, ZoneCode, Zone) stay out: a resolved record and
// its freshly re-ingested, not-yet-resolved twin are the same measurement.
func (r Record) identity() string {
	var b strings.Builder
	b.WriteString(r.Station)
	b.WriteByte('\x1f')
	b.WriteString(r.Nominal)
	b.WriteByte('\x1f')
	if r.HasVoltage {
		b.WriteString(strconv.FormatFloat(r.Voltage, 'g', -1, 64))
	}
	b.WriteByte('\x1f')
	if r.Compare != nil {
		b.WriteString(strconv.FormatFloat(*r.Compare, 'g', -1, 64))
	}
	b.WriteByte('\x1f')
	if r.Timestamp != nil {
		b.WriteString(r.Timestamp.Format(time.RFC3339Nano))
	}
	b.WriteByte('\x1f')
	b.WriteString(r.SourceFile)
	b.WriteByte('\x1f')
	b.WriteString(r.SourceSheet)
	return b.String()
}

// Dataset is the combined measurement table. It is rebuilt wholesale on each
// ingestion; components other than the loader treat the record slice as
// read-only except for in-place zone enrichment by the resolver.
type Dataset struct {
	Records []Record `json:"records"`
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// IsEmpty reports whether the dataset holds no records. An empty dataset is
// a valid outcome, distinct from a failed read.
func (d *Dataset) IsEmpty() bool {
	return len(d.Records) == 0
}

// Renumber reassigns dense 1..N sequence numbers in current row order.
func (d *Dataset) Renumber() {
	for i := range d.Records {
		d.Records[i].Seq = i + 1
	}
}

// Deduplicate removes exact-content duplicates (all source fields plus
// provenance, ignoring Seq and zone enrichment), keeping the first
// occurrence, then renumbers.
func (d *Dataset) Deduplicate() {
	seen := make(map[string]struct{}, len(d.Records))
	out := d.Records[:0]
	for _, r := range d.Records {
		id := r.identity()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	d.Records = out
	d.Renumber()
}

// Merge appends other's records, deduplicates against the existing content
// and renumbers. Re-ingesting an already-loaded file therefore never
// produces duplicate rows.
func (d *Dataset) Merge(other *Dataset) {
	d.Records = append(d.Records, other.Records...)
	d.Deduplicate()
}

// Clone returns a shallow copy with an independent record slice, so filter
// passes never disturb the source dataset.
func (d *Dataset) Clone() *Dataset {
	records := make([]Record, len(d.Records))
	copy(records, d.Records)
	return &Dataset{Records: records}
}

// DistinctStations returns the sorted distinct station names.
func (d *Dataset) DistinctStations() []string {
	return distinct(d.Records, func(r Record) string { return r.Station })
}

// DistinctZones returns the sorted distinct non-empty zone labels.
func (d *Dataset) DistinctZones() []string {
	return distinct(d.Records, func(r Record) string { return r.Zone })
}

// DistinctNominals returns the sorted distinct nominal-voltage classes.
func (d *Dataset) DistinctNominals() []string {
	return distinct(d.Records, func(r Record) string { return r.Nominal })
}

// UnresolvedStations returns the sorted distinct station names whose zone
// label is still empty.
func (d *Dataset) UnresolvedStations() []string {
	set := make(map[string]struct{})
	for _, r := range d.Records {
		if r.Zone == "" && strings.TrimSpace(r.Station) != "" {
			set[r.Station] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func distinct(records []Record, field func(Record) string) []string {
	set := make(map[string]struct{})
	for _, r := range records {
		if v := strings.TrimSpace(field(r)); v != "" {
			set[v] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
