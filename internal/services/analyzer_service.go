package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"voltcli/internal/config"
	"voltcli/internal/correction"
	"voltcli/internal/dataset"
	apperrors "voltcli/internal/errors"
	"voltcli/internal/exporter"
	"voltcli/internal/filter"
	"voltcli/internal/ingest"
	"voltcli/internal/zone"
)

// AnalyzerService owns the loaded dataset and orchestrates ingestion, zone
// resolution, filtering, correction and export. All dataset access goes
// through it; the mutex makes the HTTP surface safe even though each
// individual engine call is synchronous.
type AnalyzerService struct {
	config *config.Config
	paths  *config.Paths
	logger *slog.Logger

	mu         sync.RWMutex
	ds         *dataset.Dataset
	lastReport *ingest.Report
	lastZones  zone.ResolveResult
	canonical  []string
}

// NewAnalyzerService creates the analyzer with default logging.
func NewAnalyzerService(cfg *config.Config, paths *config.Paths) *AnalyzerService {
	return NewAnalyzerServiceWithLogger(cfg, paths, slog.Default())
}

// NewAnalyzerServiceWithLogger creates the analyzer with a specific logger.
func NewAnalyzerServiceWithLogger(cfg *config.Config, paths *config.Paths, logger *slog.Logger) *AnalyzerService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("AnalyzerService initialized",
		slog.String("data_dir", paths.DataDir),
		slog.String("reference_file", paths.ReferenceFile))
	return &AnalyzerService{
		config: cfg,
		paths:  paths,
		logger: logger,
		ds:     &dataset.Dataset{},
	}
}

// IngestResult bundles the outcome of one ingestion pass.
type IngestResult struct {
	Ingest *ingest.Report     `json:"ingest"`
	Zones  zone.ResolveResult `json:"zones"`
	Stats  filter.Stats       `json:"stats"`
}

// Ingest loads the given workbooks, merges them with the current dataset
// when merge is set (replacing it otherwise), and re-resolves zones against
// a freshly loaded reference directory.
func (s *AnalyzerService) Ingest(ctx context.Context, paths []string, merge bool) (*IngestResult, error) {
	if len(paths) == 0 {
		return nil, apperrors.NewValidationError("no input workbooks given")
	}

	loader := ingest.NewLoader(s.config.Analysis.SignatureRows)
	loaded, report, err := loader.Load(ctx, paths)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if merge && !s.ds.IsEmpty() {
		s.ds.Merge(loaded)
	} else {
		s.ds = loaded
	}
	s.lastReport = report

	zones, err := s.resolveLocked(ctx)
	if err != nil {
		return nil, err
	}
	return &IngestResult{
		Ingest: report,
		Zones:  zones,
		Stats:  filter.ComputeStats(s.ds),
	}, nil
}

// Reresolve reloads the reference directory and re-runs zone resolution on
// the current dataset, picking up corrections applied since the last pass.
func (s *AnalyzerService) Reresolve(ctx context.Context) (zone.ResolveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(ctx)
}

// resolveLocked requires s.mu held for writing.
func (s *AnalyzerService) resolveLocked(ctx context.Context) (zone.ResolveResult, error) {
	dir, err := zone.LoadDirectory(ctx, s.paths.ReferenceFile, s.config.Analysis.StaleCodeRows)
	if err != nil {
		return zone.ResolveResult{}, err
	}
	s.canonical = dir.CanonicalStations()
	s.lastZones = zone.NewResolver(dir).Resolve(ctx, s.ds)
	return s.lastZones, nil
}

// Stats summarizes the current dataset.
func (s *AnalyzerService) Stats(ctx context.Context) filter.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter.ComputeStats(s.ds)
}

// LastZones returns the most recent zone resolution outcome.
func (s *AnalyzerService) LastZones() zone.ResolveResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastZones
}

// Snapshot returns an independent copy of the current dataset.
func (s *AnalyzerService) Snapshot() *dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds.Clone()
}

// UnresolvedStations lists the distinct stations still lacking a zone.
func (s *AnalyzerService) UnresolvedStations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds.UnresolvedStations()
}

// FilterResult is a filtered view with its summary statistics.
type FilterResult struct {
	Result *filter.Result `json:"result"`
	Stats  filter.Stats   `json:"stats"`
}

// Filter applies req to the current dataset.
func (s *AnalyzerService) Filter(ctx context.Context, req filter.Request) (*FilterResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds.IsEmpty() {
		return nil, apperrors.NewNotFoundError("dataset")
	}
	res := s.engine().Apply(ctx, s.ds, req)
	return &FilterResult{Result: res, Stats: filter.ComputeStats(res.Dataset)}, nil
}

// Aggregate filters the dataset with req and computes per-zone violation
// aggregates over the view. topN of zero selects the configured default.
func (s *AnalyzerService) Aggregate(ctx context.Context, req filter.Request, topN int) (*filter.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds.IsEmpty() {
		return nil, apperrors.NewNotFoundError("dataset")
	}
	if topN == 0 {
		topN = s.config.Analysis.TopZones
	}
	engine := s.engine()
	res := engine.Apply(ctx, s.ds, req)
	return engine.Aggregate(ctx, res.Dataset, topN), nil
}

// Suggestions returns the top fuzzy candidates for an unresolved station,
// terminated by the explicit not-in-directory option.
func (s *AnalyzerService) Suggestions(ctx context.Context, station string) ([]correction.Suggestion, error) {
	if station == "" {
		return nil, apperrors.NewValidationError("station name is required")
	}

	s.mu.RLock()
	canonical := s.canonical
	s.mu.RUnlock()

	if canonical == nil {
		dir, err := zone.LoadDirectory(ctx, s.paths.ReferenceFile, s.config.Analysis.StaleCodeRows)
		if err != nil {
			return nil, err
		}
		canonical = dir.CanonicalStations()
		s.mu.Lock()
		s.canonical = canonical
		s.mu.Unlock()
	}

	out := correction.Suggestions(station, canonical, s.config.Analysis.SuggestionCount)
	out = append(out, correction.Suggestion{Station: correction.NotInDirectory})
	return out, nil
}

// ApplyCorrection rewrites the reference directory for one confirmed
// (unresolved, canonical) pair and re-resolves zones on success.
func (s *AnalyzerService) ApplyCorrection(ctx context.Context, unresolved, canonical string) (*correction.Outcome, error) {
	applier := &correction.Applier{
		ReferencePath: s.paths.ReferenceFile,
		BackupDir:     s.paths.BackupDir,
	}
	outcome, err := applier.Apply(ctx, unresolved, canonical)
	if err != nil {
		return nil, err
	}

	if outcome.Status == correction.StatusApplied {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.ds.IsEmpty() {
			if _, err := s.resolveLocked(ctx); err != nil {
				s.logger.Warn("re-resolution after correction failed", slog.String("error", err.Error()))
			}
		} else {
			s.canonical = nil
		}
	}
	return outcome, nil
}

// ExportUnresolved writes the distinct unresolved stations to a report file
// and returns its path.
func (s *AnalyzerService) ExportUnresolved(ctx context.Context) (string, error) {
	stations := s.UnresolvedStations()
	path := s.paths.GetReportPath(timestamped("unresolved", "xlsx"))
	if err := exporter.WriteUnresolved(path, stations); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "wrote unresolved export",
		slog.String("path", path), slog.Int("stations", len(stations)))
	return path, nil
}

// ExportReport filters the dataset with req, aggregates the view and writes
// the four-table violation report, returning its path.
func (s *AnalyzerService) ExportReport(ctx context.Context, req filter.Request, topN int) (string, error) {
	summary, err := s.Aggregate(ctx, req, topN)
	if err != nil {
		return "", err
	}
	path := s.paths.GetReportPath(timestamped("violations", "xlsx"))
	if err := exporter.WriteReport(path, summary); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "wrote aggregate report", slog.String("path", path))
	return path, nil
}

// ExportFiltered writes the filtered view as a CSV and returns its path.
func (s *AnalyzerService) ExportFiltered(ctx context.Context, req filter.Request) (string, error) {
	res, err := s.Filter(ctx, req)
	if err != nil {
		return "", err
	}
	name := timestamped("filtered", "csv")
	writer := exporter.NewCSVWriter(s.paths)
	if err := writer.WriteDatasetCSV(name, res.Result.Dataset); err != nil {
		return "", apperrors.NewStorageError("failed to write filtered export", err)
	}
	path := s.paths.GetReportPath(name)
	s.logger.InfoContext(ctx, "wrote filtered export",
		slog.String("path", path), slog.Int("rows", res.Result.Dataset.Len()))
	return path, nil
}

func (s *AnalyzerService) engine() *filter.Engine {
	return filter.NewEngine(s.config.Analysis.LowThresholdPct, s.config.Analysis.HighThresholdPct)
}

func timestamped(stem, ext string) string {
	return fmt.Sprintf("%s_%s.%s", stem, time.Now().Format("20060102_150405"), ext)
}
