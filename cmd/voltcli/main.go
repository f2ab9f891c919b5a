package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"voltcli/internal/config"
	"voltcli/internal/dataset"
	"voltcli/internal/files"
	"voltcli/internal/filter"
	"voltcli/internal/infrastructure"
	"voltcli/internal/services"
	"voltcli/internal/validation"
	"voltcli/pkg/contracts"
)

func main() {
	inDir := flag.String("in", "", "input directory with measurement workbooks (defaults to the configured data dir)")
	merge := flag.Bool("merge", false, "merge into a previous run's dataset instead of replacing it")
	station := flag.String("station", "", "station substring filter (diacritic-insensitive)")
	nominal := flag.String("nominal", "", "nominal voltage class filter (exact)")
	from := flag.String("from", "", "start date filter, YYYY-MM-DD")
	to := flag.String("to", "", "end date filter, YYYY-MM-DD (inclusive end-of-day)")
	low := flag.Bool("low", false, "keep only low-voltage violations")
	high := flag.Bool("high", false, "keep only high-voltage violations")
	zones := flag.String("zones", "", "comma-separated zone labels (empty keeps all)")
	topZones := flag.Int("top", 0, "zones surfaced in the summary (0 uses the configured default)")
	report := flag.Bool("report", false, "write the violation report workbook")
	unresolved := flag.Bool("unresolved", false, "write the unresolved-station workbook")
	csvOut := flag.Bool("csv", false, "write the filtered view as CSV")
	version := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *version {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		slog.Error("Failed to resolve paths", "error", err)
		os.Exit(1)
	}
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to prepare directories", "error", err)
		os.Exit(1)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	service := services.NewAnalyzerServiceWithLogger(cfg, paths, logger)

	dir := *inDir
	if dir == "" {
		dir = paths.DataDir
	}
	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateInputDirectory(dir, ""); err != nil {
		logger.Error("Input directory check failed", "dir", dir, "error", err)
		os.Exit(1)
	}
	workbooks, err := files.NewDiscovery(paths.ExecutableDir).FindWorkbooks(dir)
	if err != nil {
		logger.Error("Failed to scan input directory", "dir", dir, "error", err)
		os.Exit(1)
	}
	if len(workbooks) == 0 {
		logger.Error("No workbooks found", "dir", dir)
		os.Exit(1)
	}

	result, err := service.Ingest(ctx, files.Paths(workbooks), *merge)
	if err != nil {
		logger.Error("Ingestion failed", "error", err)
		os.Exit(1)
	}
	printIngest(result)

	req := filter.Request{
		StationContains: *station,
		Nominal:         *nominal,
		Low:             *low,
		High:            *high,
	}
	if *zones != "" {
		for _, z := range strings.Split(*zones, ",") {
			if z = strings.TrimSpace(z); z != "" {
				req.Zones = append(req.Zones, z)
			}
		}
	}
	if req.DateFrom, err = parseDate(*from); err != nil {
		logger.Error("Invalid -from date", "value", *from, "error", err)
		os.Exit(1)
	}
	if req.DateTo, err = parseDate(*to); err != nil {
		logger.Error("Invalid -to date", "value", *to, "error", err)
		os.Exit(1)
	}

	filtered, err := service.Filter(ctx, req)
	if err != nil {
		logger.Error("Filtering failed", "error", err)
		os.Exit(1)
	}
	printFiltered(filtered)

	if *unresolved {
		path, err := service.ExportUnresolved(ctx)
		if err != nil {
			logger.Error("Unresolved export failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Unresolved stations written to %s\n", path)
	}
	if *report {
		path, err := service.ExportReport(ctx, req, *topZones)
		if err != nil {
			logger.Error("Report export failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Violation report written to %s\n", path)
	}
	if *csvOut {
		path, err := service.ExportFiltered(ctx, req)
		if err != nil {
			logger.Error("CSV export failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Filtered view written to %s\n", path)
	}
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func printIngest(result *services.IngestResult) {
	fmt.Printf("Loaded %d rows from %d sheets across %d files (%d duplicates removed)\n",
		result.Ingest.RowsLoaded, result.Ingest.SheetsRead,
		result.Ingest.FilesRead, result.Ingest.RowsDeduped)
	if len(result.Ingest.SkippedFiles) > 0 {
		fmt.Printf("Skipped unreadable files: %s\n", strings.Join(result.Ingest.SkippedFiles, ", "))
	}
	if result.Zones.Skipped {
		fmt.Printf("Zone resolution skipped: %s\n", result.Zones.SkipReason)
		return
	}
	fmt.Printf("Zones resolved for %d rows, %d unresolved\n",
		result.Zones.Resolved, result.Zones.Unresolved)
	if len(result.Zones.Sample) > 0 {
		fmt.Printf("Unresolved sample: %s\n", strings.Join(result.Zones.Sample, "; "))
	}
}

func printFiltered(res *services.FilterResult) {
	for _, cond := range res.Result.Conditions {
		fmt.Printf("Note: %s\n", cond)
	}
	stats := res.Stats
	fmt.Printf("Filtered view: %d rows, %d stations", stats.Rows, stats.DistinctStations)
	if stats.HasVoltage {
		fmt.Printf(", U min/avg/max = %.1f/%.1f/%.1f kV", stats.UMin, stats.UAvg, stats.UMax)
	}
	fmt.Println()
	printPreview(res.Result.Dataset)
}

// printPreview shows the first few rows of the view.
func printPreview(ds *dataset.Dataset) {
	const limit = 10
	for i, rec := range ds.Records {
		if i == limit {
			fmt.Printf("... and %d more rows\n", ds.Len()-limit)
			break
		}
		zone := rec.Zone
		if zone == "" {
			zone = "-"
		}
		voltage := "-"
		if rec.HasVoltage {
			voltage = fmt.Sprintf("%.1f", rec.Voltage)
		}
		fmt.Printf("%4d  %-40s %-8s %8s  %s\n", rec.Seq, rec.Station, rec.Nominal, voltage, zone)
	}
}
