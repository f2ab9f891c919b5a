package filter

import (
	"context"
	"math"
	"sort"

	"voltcli/internal/dataset"
	"voltcli/internal/infrastructure"
)

// Top-N bounds on the ranked zone summary. Detail tables are never limited.
const (
	MinTopZones     = 5
	MaxTopZones     = 30
	DefaultTopZones = 12
)

// ZoneStat is one zone's per-class violation summary.
type ZoneStat struct {
	Zone string `json:"zone"`
	// Stations is the distinct count of violating stations in this zone.
	Stations    int `json:"stations"`
	Occurrences int `json:"occurrences"`
	// ExtremeVoltage is the minimum reading of the violating subset for the
	// low class and the maximum for the high class.
	ExtremeVoltage float64 `json:"extreme_voltage"`
	HasExtreme     bool    `json:"has_extreme"`
}

// DetailRow is one violating (station, nominal) pair within a zone. UMin and
// UMax span the violating subset's readings; ExtremeVoltage is the one the
// class reports (UMin for low, UMax for high). All three are valid only when
// HasExtreme is set.
type DetailRow struct {
	Zone           string  `json:"zone"`
	Station        string  `json:"station"`
	Nominal        string  `json:"nominal"`
	Occurrences    int     `json:"occurrences"`
	ExtremeVoltage float64 `json:"extreme_voltage"`
	UMin           float64 `json:"u_min"`
	UMax           float64 `json:"u_max"`
	HasExtreme     bool    `json:"has_extreme"`
	// Ratio is ExtremeVoltage over the nominal class, 3 decimals. Nil when
	// there is no voltage reading or the nominal is not numeric.
	Ratio *float64 `json:"ratio,omitempty"`
}

// Summary carries both violation classes plus the ranked top-N zone labels.
type Summary struct {
	Low        []ZoneStat  `json:"low"`
	High       []ZoneStat  `json:"high"`
	LowDetail  []DetailRow `json:"low_detail"`
	HighDetail []DetailRow `json:"high_detail"`
	// TopZones is ranked by total occurrences (low plus high) descending,
	// ties broken by zone label ascending, and clamped to the top-N bound.
	TopZones []string `json:"top_zones"`
}

// Aggregate groups records by zone and by (station, nominal) pair, counting
// threshold violations per class. A record violates when its actual-over-
// nominal ratio crosses the class threshold; records without a zone label or
// without a usable ratio contribute to neither class. topN is clamped to the
// 5..30 range; zero selects the default.
func (e *Engine) Aggregate(ctx context.Context, ds *dataset.Dataset, topN int) *Summary {
	logger := infrastructure.LoggerFromContext(ctx)

	low := newClassAccumulator(func(extreme, v float64) bool { return v < extreme })
	high := newClassAccumulator(func(extreme, v float64) bool { return v > extreme })
	for _, rec := range ds.Records {
		if rec.Zone == "" {
			continue
		}
		ratio, ok := violationRatio(rec)
		if !ok {
			continue
		}
		if ratio <= e.LowThresholdPct/100 {
			low.add(rec)
		}
		if ratio >= e.HighThresholdPct/100 {
			high.add(rec)
		}
	}

	s := &Summary{
		Low:        low.zoneStats(),
		High:       high.zoneStats(),
		LowDetail:  low.detailRows(),
		HighDetail: high.detailRows(),
	}
	s.TopZones = rankZones(s.Low, s.High, clampTopN(topN))

	logger.DebugContext(ctx, "aggregation complete",
		"low_zones", len(s.Low), "high_zones", len(s.High), "top", len(s.TopZones))
	return s
}

// violationRatio is the actual-over-nominal ratio a record is classified on.
// It is computed from the voltage reading and the nominal class; rows without
// a usable pair fall back to the precomputed comparison percentage, so a
// workbook lacking the voltage column still aggregates.
func violationRatio(rec dataset.Record) (float64, bool) {
	if rec.HasVoltage {
		if nominal, ok := dataset.ParseFloat(rec.Nominal); ok && nominal != 0 {
			return rec.Voltage / nominal, true
		}
	}
	if rec.Compare != nil {
		return *rec.Compare / 100, true
	}
	return 0, false
}

func clampTopN(n int) int {
	if n == 0 {
		return DefaultTopZones
	}
	if n < MinTopZones {
		return MinTopZones
	}
	if n > MaxTopZones {
		return MaxTopZones
	}
	return n
}

// rankZones orders zones by combined occurrence count descending, ties by
// label ascending, keeping the first n.
func rankZones(low, high []ZoneStat, n int) []string {
	totals := make(map[string]int)
	for _, z := range low {
		totals[z.Zone] += z.Occurrences
	}
	for _, z := range high {
		totals[z.Zone] += z.Occurrences
	}

	zones := make([]string, 0, len(totals))
	for z := range totals {
		zones = append(zones, z)
	}
	sort.Slice(zones, func(i, j int) bool {
		if totals[zones[i]] != totals[zones[j]] {
			return totals[zones[i]] > totals[zones[j]]
		}
		return zones[i] < zones[j]
	})
	if len(zones) > n {
		zones = zones[:n]
	}
	return zones
}

type pairKey struct {
	zone    string
	station string
	nominal string
}

type pairAgg struct {
	occurrences int
	extreme     float64
	umin        float64
	umax        float64
	hasExtreme  bool
}

type classAccumulator struct {
	pairs map[pairKey]*pairAgg
	// worse reports whether candidate v should replace the current extreme
	// (less-than for the low class, greater-than for the high class).
	worse func(extreme, v float64) bool
}

func newClassAccumulator(worse func(extreme, v float64) bool) *classAccumulator {
	return &classAccumulator{pairs: make(map[pairKey]*pairAgg), worse: worse}
}

func (c *classAccumulator) add(rec dataset.Record) {
	key := pairKey{zone: rec.Zone, station: rec.Station, nominal: rec.Nominal}
	agg, ok := c.pairs[key]
	if !ok {
		agg = &pairAgg{}
		c.pairs[key] = agg
	}
	agg.occurrences++
	if rec.HasVoltage {
		if !agg.hasExtreme {
			agg.umin = rec.Voltage
			agg.umax = rec.Voltage
		} else {
			if rec.Voltage < agg.umin {
				agg.umin = rec.Voltage
			}
			if rec.Voltage > agg.umax {
				agg.umax = rec.Voltage
			}
		}
		if !agg.hasExtreme || c.worse(agg.extreme, rec.Voltage) {
			agg.extreme = rec.Voltage
		}
		agg.hasExtreme = true
	}
}

func (c *classAccumulator) zoneStats() []ZoneStat {
	type zoneAgg struct {
		stations    map[string]struct{}
		occurrences int
		extreme     float64
		hasExtreme  bool
	}
	byZone := make(map[string]*zoneAgg)
	for key, agg := range c.pairs {
		z, ok := byZone[key.zone]
		if !ok {
			z = &zoneAgg{stations: make(map[string]struct{})}
			byZone[key.zone] = z
		}
		z.stations[key.station] = struct{}{}
		z.occurrences += agg.occurrences
		if agg.hasExtreme {
			if !z.hasExtreme || c.worse(z.extreme, agg.extreme) {
				z.extreme = agg.extreme
			}
			z.hasExtreme = true
		}
	}

	out := make([]ZoneStat, 0, len(byZone))
	for zone, z := range byZone {
		out = append(out, ZoneStat{
			Zone:           zone,
			Stations:       len(z.stations),
			Occurrences:    z.occurrences,
			ExtremeVoltage: z.extreme,
			HasExtreme:     z.hasExtreme,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		return out[i].Zone < out[j].Zone
	})
	return out
}

func (c *classAccumulator) detailRows() []DetailRow {
	out := make([]DetailRow, 0, len(c.pairs))
	for key, agg := range c.pairs {
		row := DetailRow{
			Zone:           key.zone,
			Station:        key.station,
			Nominal:        key.nominal,
			Occurrences:    agg.occurrences,
			ExtremeVoltage: agg.extreme,
			UMin:           agg.umin,
			UMax:           agg.umax,
			HasExtreme:     agg.hasExtreme,
		}
		if agg.hasExtreme {
			if nominal, ok := dataset.ParseFloat(key.nominal); ok && nominal != 0 {
				r := math.Round(agg.extreme/nominal*1000) / 1000
				row.Ratio = &r
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Zone != out[j].Zone {
			return out[i].Zone < out[j].Zone
		}
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		if out[i].Station != out[j].Station {
			return out[i].Station < out[j].Station
		}
		return out[i].Nominal < out[j].Nominal
	})
	return out
}
