package filter

import (
	"math"

	"voltcli/internal/dataset"
)

// Stats is the quick summary shown after ingestion or filtering.
type Stats struct {
	Rows             int     `json:"rows"`
	DistinctStations int     `json:"distinct_stations"`
	DistinctZones    int     `json:"distinct_zones"`
	Unresolved       int     `json:"unresolved"`
	HasVoltage       bool    `json:"has_voltage"`
	UMin             float64 `json:"u_min"`
	UAvg             float64 `json:"u_avg"`
	UMax             float64 `json:"u_max"`
}

// ComputeStats summarizes a dataset. Voltage figures cover only records
// carrying a reading and are rounded to one decimal.
func ComputeStats(ds *dataset.Dataset) Stats {
	s := Stats{
		Rows:             ds.Len(),
		DistinctStations: len(ds.DistinctStations()),
		DistinctZones:    len(ds.DistinctZones()),
		Unresolved:       len(ds.UnresolvedStations()),
	}

	var sum float64
	var n int
	for _, rec := range ds.Records {
		if !rec.HasVoltage {
			continue
		}
		if n == 0 {
			s.UMin, s.UMax = rec.Voltage, rec.Voltage
		} else {
			if rec.Voltage < s.UMin {
				s.UMin = rec.Voltage
			}
			if rec.Voltage > s.UMax {
				s.UMax = rec.Voltage
			}
		}
		sum += rec.Voltage
		n++
	}
	if n > 0 {
		s.HasVoltage = true
		s.UMin = round1(s.UMin)
		s.UMax = round1(s.UMax)
		s.UAvg = round1(sum / float64(n))
	}
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
