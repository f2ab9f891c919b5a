package filter

import (
	"context"
	"strings"
	"time"

	"voltcli/internal/dataset"
	"voltcli/internal/infrastructure"
)

// Request carries one filter invocation's parameters. All predicates are
// optional and conjunctive; the zero Request keeps every record.
type Request struct {
	// StationContains is a case- and diacritic-insensitive substring test
	// against the station name.
	StationContains string `json:"station_contains,omitempty"`
	// Nominal keeps records whose nominal class equals it exactly.
	Nominal string `json:"nominal,omitempty"`
	// DateFrom/DateTo bound the record timestamp, inclusive on both ends;
	// DateTo is treated as end-of-day.
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
	// Low keeps records whose comparison value is at or below the low
	// threshold; High symmetrically at or above the high threshold.
	Low  bool `json:"low,omitempty"`
	High bool `json:"high,omitempty"`
	// Zones keeps records whose zone label is in the set. Empty means all
	// zones, not none.
	Zones []string `json:"zones,omitempty"`
}

// Result is a filtered view plus any degraded-predicate conditions. The view
// is renumbered; the source dataset is untouched.
type Result struct {
	Dataset *dataset.Dataset `json:"dataset"`
	// Conditions reports predicates that degraded to no-ops, such as a
	// threshold filter with no comparison column present.
	Conditions []string `json:"conditions,omitempty"`
}

// Engine applies filter requests against a dataset.
type Engine struct {
	LowThresholdPct  float64
	HighThresholdPct float64
}

// NewEngine returns an Engine with the given threshold percentages.
func NewEngine(lowPct, highPct float64) *Engine {
	return &Engine{LowThresholdPct: lowPct, HighThresholdPct: highPct}
}

// Apply evaluates every predicate of req against ds and returns the matching
// records as a fresh renumbered dataset. Threshold predicates requested
// against a dataset with no comparison values become no-ops and are reported
// in the result's conditions rather than failing or silently vanishing.
func (e *Engine) Apply(ctx context.Context, ds *dataset.Dataset, req Request) *Result {
	logger := infrastructure.LoggerFromContext(ctx)
	result := &Result{Dataset: &dataset.Dataset{}}

	thresholdsUsable := hasCompareValues(ds)
	if (req.Low || req.High) && !thresholdsUsable {
		result.Conditions = append(result.Conditions,
			"threshold filter skipped: no comparison column in dataset")
	}

	stationNeedle := dataset.Fold(req.StationContains)
	zoneSet := foldSet(req.Zones)
	var dateUpper *time.Time
	if req.DateTo != nil {
		// Inclusive end-of-day: everything before the following midnight.
		upper := startOfDay(*req.DateTo).AddDate(0, 0, 1)
		dateUpper = &upper
	}

	for _, rec := range ds.Records {
		if stationNeedle != "" && !strings.Contains(dataset.Fold(rec.Station), stationNeedle) {
			continue
		}
		if req.Nominal != "" && rec.Nominal != req.Nominal {
			continue
		}
		if req.DateFrom != nil || dateUpper != nil {
			if rec.Timestamp == nil {
				continue
			}
			if req.DateFrom != nil && rec.Timestamp.Before(startOfDay(*req.DateFrom)) {
				continue
			}
			if dateUpper != nil && !rec.Timestamp.Before(*dateUpper) {
				continue
			}
		}
		if thresholdsUsable {
			if req.Low && (rec.Compare == nil || *rec.Compare > e.LowThresholdPct) {
				continue
			}
			if req.High && (rec.Compare == nil || *rec.Compare < e.HighThresholdPct) {
				continue
			}
		}
		if len(zoneSet) > 0 {
			if _, ok := zoneSet[dataset.Fold(rec.Zone)]; !ok {
				continue
			}
		}
		result.Dataset.Records = append(result.Dataset.Records, rec)
	}

	result.Dataset.Renumber()
	logger.DebugContext(ctx, "filter applied",
		"in", ds.Len(), "out", result.Dataset.Len(), "conditions", len(result.Conditions))
	return result
}

func hasCompareValues(ds *dataset.Dataset) bool {
	for _, rec := range ds.Records {
		if rec.Compare != nil {
			return true
		}
	}
	return false
}

func foldSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if folded := dataset.Fold(v); folded != "" {
			set[folded] = struct{}{}
		}
	}
	return set
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
