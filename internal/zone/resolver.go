package zone

import (
	"context"
	"strconv"
	"strings"

	"voltcli/internal/dataset"
	"voltcli/internal/infrastructure"
)

// ResolveResult reports the outcome of one enrichment pass.
type ResolveResult struct {
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
	// Sample holds up to five unresolved station names for operator review.
	Sample []string `json:"sample,omitempty"`
	// Skipped is set when the reference directory is unusable and the pass
	// was a no-op.
	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skip_reason,omitempty"`
}

const sampleSize = 5

// Resolver attaches symbols, zone codes and zone labels to measurement
// records by canonical-key lookup against the reference directory.
type Resolver struct {
	dir *Directory

	// byKey maps the canonical join key of each reference station to its
	// bus entry; first occurrence wins on key collisions.
	byKey map[string]Bus
	// nameBySymCode maps (symbol, zone code) to the zone display name;
	// first occurrence wins.
	nameBySymCode map[symCode]string
}

type symCode struct {
	sym  string
	code int64
}

// NewResolver builds the lookup tables once per directory load.
func NewResolver(dir *Directory) *Resolver {
	r := &Resolver{
		dir:           dir,
		byKey:         make(map[string]Bus, len(dir.Buses)),
		nameBySymCode: make(map[symCode]string, len(dir.Zones)),
	}
	for _, b := range dir.Buses {
		key := dataset.JoinKey(b.Station)
		if key == "" {
			continue
		}
		if _, dup := r.byKey[key]; !dup {
			r.byKey[key] = b
		}
	}
	for _, z := range dir.Zones {
		if z.Code == nil || z.Name == "" {
			continue
		}
		k := symCode{sym: foldSym(z.Sym), code: *z.Code}
		if _, dup := r.nameBySymCode[k]; !dup {
			r.nameBySymCode[k] = z.Name
		}
	}
	return r
}

// Resolve enriches records in place. Stage one maps the canonical station
// key to a bus entry (symbol plus zone code); stage two maps (symbol, zone
// code) to the zone display name. A record missing either stage keeps an
// empty zone label and counts as unresolved; a label is never guessed.
func (r *Resolver) Resolve(ctx context.Context, ds *dataset.Dataset) ResolveResult {
	logger := infrastructure.LoggerFromContext(ctx)
	result := ResolveResult{}

	if r.dir.SkipReason != "" {
		result.Skipped = true
		result.SkipReason = r.dir.SkipReason
		logger.WarnContext(ctx, "zone resolution skipped", "reason", result.SkipReason)
		return result
	}
	if ds.IsEmpty() {
		return result
	}

	sampled := make(map[string]struct{})
	for i := range ds.Records {
		rec := &ds.Records[i]
		rec.Symbol = ""
		rec.ZoneCode = nil
		rec.Zone = ""

		key := dataset.JoinKey(rec.Station)
		if key == "" {
			result.Unresolved++
			continue
		}

		bus, ok := r.byKey[key]
		if !ok {
			result.Unresolved++
			r.sample(&result, sampled, rec.Station)
			continue
		}
		rec.Symbol = bus.Sym
		rec.ZoneCode = bus.Code

		if bus.Code == nil {
			result.Unresolved++
			r.sample(&result, sampled, rec.Station)
			continue
		}
		name, ok := r.nameBySymCode[symCode{sym: foldSym(bus.Sym), code: *bus.Code}]
		if !ok {
			result.Unresolved++
			r.sample(&result, sampled, rec.Station)
			continue
		}
		rec.Zone = name
		result.Resolved++
	}

	logger.InfoContext(ctx, "zone resolution complete",
		"resolved", result.Resolved,
		"unresolved", result.Unresolved,
		"codes_rebuilt", r.dir.CodesRebuilt)
	return result
}

func (r *Resolver) sample(result *ResolveResult, sampled map[string]struct{}, station string) {
	if station == "" || len(result.Sample) >= sampleSize {
		return
	}
	if _, dup := sampled[station]; dup {
		return
	}
	sampled[station] = struct{}{}
	result.Sample = append(result.Sample, station)
}

func foldSym(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FormatCode renders a zone code for display; nil renders empty.
func FormatCode(code *int64) string {
	if code == nil {
		return ""
	}
	return strconv.FormatInt(*code, 10)
}
