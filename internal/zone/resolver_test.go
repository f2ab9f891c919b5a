package zone

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltcli/internal/dataset"
)

func testDirectory() *Directory {
	seven := int64(7)
	fifteen := int64(15)
	return &Directory{
		Buses: []Bus{
			{Station: "TBA Hà Nội 110kV", Sym: "S1", Code: &seven},
			{Station: "TBA Đà Nẵng", Sym: "S2", Code: &fifteen},
			{Station: "TBA Huế", Sym: "S3", Code: nil},
		},
		Zones: []Zone{
			{Sym: "S1", Code: &seven, Name: "North"},
			{Sym: "S2", Code: &fifteen, Name: "Central"},
		},
	}
}

func TestResolveMatchesNormalizedNames(t *testing.T) {
	ds := &dataset.Dataset{Records: []dataset.Record{
		// Telemetry spelling differs in case, diacritics and boilerplate.
		{Station: "TRẠM BIẾN ÁP HÀ NỘI"},
		{Station: "Đà Nẵng 110 kV"},
	}}

	result := NewResolver(testDirectory()).Resolve(context.Background(), ds)
	assert.Equal(t, 2, result.Resolved)
	assert.Equal(t, 0, result.Unresolved)

	assert.Equal(t, "North", ds.Records[0].Zone)
	assert.Equal(t, "S1", ds.Records[0].Symbol)
	require.NotNil(t, ds.Records[0].ZoneCode)
	assert.Equal(t, int64(7), *ds.Records[0].ZoneCode)
	assert.Equal(t, "Central", ds.Records[1].Zone)
}

func TestResolveNullCodeStaysUnresolved(t *testing.T) {
	ds := &dataset.Dataset{Records: []dataset.Record{{Station: "TBA Huế"}}}

	result := NewResolver(testDirectory()).Resolve(context.Background(), ds)
	assert.Equal(t, 0, result.Resolved)
	assert.Equal(t, 1, result.Unresolved)

	// Symbol lookup succeeded, but the label is never guessed from a null
	// code.
	assert.Equal(t, "S3", ds.Records[0].Symbol)
	assert.Nil(t, ds.Records[0].ZoneCode)
	assert.Empty(t, ds.Records[0].Zone)
}

func TestResolveUnknownStation(t *testing.T) {
	ds := &dataset.Dataset{Records: []dataset.Record{
		{Station: "TBA Không Tồn Tại"},
	}}

	result := NewResolver(testDirectory()).Resolve(context.Background(), ds)
	assert.Equal(t, 1, result.Unresolved)
	assert.Equal(t, []string{"TBA Không Tồn Tại"}, result.Sample)
	assert.Empty(t, ds.Records[0].Zone)
}

func TestResolveSampleIsBounded(t *testing.T) {
	ds := &dataset.Dataset{}
	for _, name := range []string{"A1x", "B2x", "C3x", "D4x", "E5x", "F6x", "G7x"} {
		ds.Records = append(ds.Records, dataset.Record{Station: "Trạm " + name})
	}

	result := NewResolver(testDirectory()).Resolve(context.Background(), ds)
	assert.Equal(t, 7, result.Unresolved)
	assert.Len(t, result.Sample, 5)
}

func TestResolveSkipsOnUnusableDirectory(t *testing.T) {
	dir := &Directory{SkipReason: "buses sheet has no station column"}
	ds := &dataset.Dataset{Records: []dataset.Record{{Station: "TBA Hà Nội"}}}

	result := NewResolver(dir).Resolve(context.Background(), ds)
	assert.True(t, result.Skipped)
	assert.Equal(t, "buses sheet has no station column", result.SkipReason)
	assert.Empty(t, ds.Records[0].Zone)
}

func TestResolveZoneRequiresMatchingSymbol(t *testing.T) {
	seven := int64(7)
	dir := &Directory{
		Buses: []Bus{{Station: "TBA Hà Nội", Sym: "S1", Code: &seven}},
		// Same code under a different symbol must not satisfy the join.
		Zones: []Zone{{Sym: "S9", Code: &seven, Name: "North"}},
	}
	ds := &dataset.Dataset{Records: []dataset.Record{{Station: "TBA Hà Nội"}}}

	result := NewResolver(dir).Resolve(context.Background(), ds)
	assert.Equal(t, 1, result.Unresolved)
	assert.Empty(t, ds.Records[0].Zone)
}
