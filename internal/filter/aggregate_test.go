package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltcli/internal/dataset"
)

func violation(zone, station, nominal string, compare, voltage float64) dataset.Record {
	return dataset.Record{
		Zone:       zone,
		Station:    station,
		Nominal:    nominal,
		Compare:    fp(compare),
		Voltage:    voltage,
		HasVoltage: true,
	}
}

func TestAggregateClasses(t *testing.T) {
	ds := &dataset.Dataset{Records: []dataset.Record{
		violation("North", "A", "110", 94.0, 103.5),
		violation("North", "A", "110", 92.0, 101.2),
		violation("North", "B", "110", 95.0, 104.5),
		violation("North", "C", "110", 110.0, 121.3),
		violation("South", "D", "220", 111.0, 244.0),
		// In range, counts nowhere.
		violation("South", "E", "220", 100.0, 220.0),
		// No zone label, counts nowhere.
		violation("", "F", "110", 90.0, 99.0),
	}}

	s := testEngine().Aggregate(context.Background(), ds, 12)

	require.Len(t, s.Low, 1)
	north := s.Low[0]
	assert.Equal(t, "North", north.Zone)
	assert.Equal(t, 2, north.Stations)
	assert.Equal(t, 3, north.Occurrences)
	require.True(t, north.HasExtreme)
	assert.Equal(t, 101.2, north.ExtremeVoltage, "low class records the minimum of the violating subset")

	require.Len(t, s.High, 2)
	assert.Equal(t, "North", s.High[0].Zone)
	assert.Equal(t, 121.3, s.High[0].ExtremeVoltage)
	assert.Equal(t, "South", s.High[1].Zone)
	assert.Equal(t, 244.0, s.High[1].ExtremeVoltage)

	require.Len(t, s.LowDetail, 2)
	assert.Equal(t, "A", s.LowDetail[0].Station)
	assert.Equal(t, 2, s.LowDetail[0].Occurrences)
	assert.Equal(t, 101.2, s.LowDetail[0].ExtremeVoltage)
	assert.Equal(t, 101.2, s.LowDetail[0].UMin)
	assert.Equal(t, 103.5, s.LowDetail[0].UMax, "detail rows span the violating subset")
	require.NotNil(t, s.LowDetail[0].Ratio)
	assert.Equal(t, 0.92, *s.LowDetail[0].Ratio, "ratio of the extreme over the nominal class")
}

func TestTopZoneRankingTieBreak(t *testing.T) {
	ds := &dataset.Dataset{}
	addN := func(zone string, n int) {
		for i := 0; i < n; i++ {
			ds.Records = append(ds.Records, violation(zone, "S", "110", 90.0, 99.0))
		}
	}
	addN("A", 10)
	addN("B", 10)
	addN("C", 3)

	s := testEngine().Aggregate(context.Background(), ds, MinTopZones)
	// MinTopZones exceeds the zone count; all three rank.
	assert.Equal(t, []string{"A", "B", "C"}, s.TopZones)

	// Manually rank top-2: the tie between A and B breaks by label order.
	assert.Equal(t, []string{"A", "B"}, rankZones(s.Low, s.High, 2))
}

func TestTopZonesCombinesClasses(t *testing.T) {
	ds := &dataset.Dataset{Records: []dataset.Record{
		violation("X", "S1", "110", 90.0, 99.0),
		violation("X", "S1", "110", 112.0, 123.0),
		violation("Y", "S2", "110", 90.0, 99.0),
	}}

	s := testEngine().Aggregate(context.Background(), ds, 12)
	assert.Equal(t, []string{"X", "Y"}, s.TopZones, "ranking sums low and high occurrences")
}

func TestClampTopN(t *testing.T) {
	assert.Equal(t, DefaultTopZones, clampTopN(0))
	assert.Equal(t, MinTopZones, clampTopN(1))
	assert.Equal(t, MaxTopZones, clampTopN(100))
	assert.Equal(t, 12, clampTopN(12))
}

func TestAggregateClassifiesFromVoltageAndNominal(t *testing.T) {
	// No comparison column at all: classification still works from the
	// voltage reading over the nominal class.
	ds := &dataset.Dataset{Records: []dataset.Record{
		{Zone: "North", Station: "A", Nominal: "110", Voltage: 99.0, HasVoltage: true},
		{Zone: "North", Station: "B", Nominal: "110", Voltage: 104.5, HasVoltage: true}, // exactly 0.95
		{Zone: "North", Station: "C", Nominal: "110", Voltage: 121.3, HasVoltage: true},
		{Zone: "North", Station: "D", Nominal: "110", Voltage: 105.0, HasVoltage: true}, // in range
	}}

	s := testEngine().Aggregate(context.Background(), ds, 12)

	require.Len(t, s.Low, 1)
	assert.Equal(t, 2, s.Low[0].Stations, "boundary ratio counts as a low violation")
	assert.Equal(t, 99.0, s.Low[0].ExtremeVoltage)
	require.Len(t, s.High, 1)
	assert.Equal(t, 121.3, s.High[0].ExtremeVoltage)
}

func TestAggregateWithoutVoltageReadings(t *testing.T) {
	// No voltage reading: the precomputed comparison percentage still
	// classifies, it just cannot contribute an extreme.
	rec := violation("North", "A", "110", 90.0, 0)
	rec.HasVoltage = false
	ds := &dataset.Dataset{Records: []dataset.Record{rec}}

	s := testEngine().Aggregate(context.Background(), ds, 12)
	require.Len(t, s.Low, 1)
	assert.Equal(t, 1, s.Low[0].Occurrences)
	assert.False(t, s.Low[0].HasExtreme)
}

func TestComputeStats(t *testing.T) {
	ds := &dataset.Dataset{Records: []dataset.Record{
		{Station: "A", Voltage: 100.04, HasVoltage: true, Zone: "North"},
		{Station: "A", Voltage: 110.06, HasVoltage: true, Zone: "North"},
		{Station: "B"},
	}}

	s := ComputeStats(ds)
	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 2, s.DistinctStations)
	assert.Equal(t, 1, s.DistinctZones)
	assert.Equal(t, 1, s.Unresolved)
	require.True(t, s.HasVoltage)
	assert.Equal(t, 100.0, s.UMin)
	assert.Equal(t, 110.1, s.UMax)
	assert.Equal(t, 105.1, s.UAvg)
}

func TestComputeStatsEmpty(t *testing.T) {
	s := ComputeStats(&dataset.Dataset{})
	assert.Equal(t, 0, s.Rows)
	assert.False(t, s.HasVoltage)
}
