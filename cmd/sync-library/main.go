package main

import (
	"context"
	"flag"
	"log"
	"os"

	"filmarchive/internal/catalog"
	"filmarchive/internal/config"
	"filmarchive/internal/models"
	"filmarchive/internal/processing"
	"filmarchive/internal/scanner"
	"filmarchive/internal/syncer"
)

func main() {
	logger := log.New(os.Stdout, "[SyncLibrary] ", log.LstdFlags)

	var (
		root           = flag.String("root", "", "library root override (defaults to LIBRARY_ROOT)")
		batch          = flag.String("batch", "", "restrict processing and scanning to a single batch directory")
		skipProcessing = flag.Bool("skip-processing", false, "skip derivative generation, scan the library as-is")
		scanOnly       = flag.Bool("scan-only", false, "scan and report without touching the catalog")
		artifactPath   = flag.String("artifact", "", "write scanned candidates to this JSON file")
		fromArtifact   = flag.String("from-artifact", "", "sync candidates from a previously written artifact instead of scanning")
		dryRun         = flag.Bool("dry-run", false, "log catalog operations without executing them")
		reloadMarked   = flag.Bool("reload-marked", false, "only refresh records carrying the needs_reload mark")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	libraryRoot := cfg.LibraryRoot
	if *root != "" {
		libraryRoot = *root
	}

	ctx := context.Background()

	var candidates []models.ImageRecord
	var report *models.ScanReport

	if *fromArtifact != "" {
		candidates, err = scanner.ReadArtifact(*fromArtifact)
		if err != nil {
			logger.Fatalf("Failed to read artifact %s: %v", *fromArtifact, err)
		}
		logger.Printf("Loaded %d candidates from %s", len(candidates), *fromArtifact)
	} else {
		if !*skipProcessing && !cfg.SkipProcessing {
			runProcessing(ctx, logger, cfg, libraryRoot, *batch)
		}

		candidates, report = runScan(ctx, logger, libraryRoot, cfg.ScanWorkers, *batch)

		if *artifactPath != "" {
			if err := scanner.WriteArtifact(*artifactPath, candidates); err != nil {
				logger.Fatalf("Failed to write artifact %s: %v", *artifactPath, err)
			}
			logger.Printf("Wrote %d candidates to %s", len(candidates), *artifactPath)
		}
	}

	if *scanOnly {
		if report != nil && !report.Ok() {
			os.Exit(1)
		}
		return
	}

	summary := runSync(ctx, logger, cfg, candidates, *dryRun, *reloadMarked)

	if !summary.Ok() || (report != nil && !report.Ok()) {
		os.Exit(1)
	}
}

func runProcessing(ctx context.Context, logger *log.Logger, cfg *config.Config, libraryRoot, batch string) {
	sources := cfg.SourceDirs()
	if len(sources) == 0 {
		logger.Println("No source directories configured, skipping processing")
		return
	}

	proc := processing.New(sources, libraryRoot, logger)

	var procReport processing.Report
	var err error
	if batch != "" {
		procReport, err = proc.RunBatch(ctx, batch)
	} else {
		procReport, err = proc.Run(ctx)
	}
	if err != nil {
		logger.Fatalf("Processing failed: %v", err)
	}

	logger.Printf("Processing: %d new, %d updated, %d skipped, %d errors",
		procReport.New, procReport.Updated, procReport.Skipped, procReport.Errors)
}

func runScan(ctx context.Context, logger *log.Logger, libraryRoot string, workers int, batch string) ([]models.ImageRecord, *models.ScanReport) {
	sc := scanner.New(libraryRoot, workers, logger)

	var candidates []models.ImageRecord
	var report *models.ScanReport
	var err error
	if batch != "" {
		candidates, report, err = sc.ScanBatch(ctx, batch)
	} else {
		candidates, report, err = sc.ScanLibrary(ctx)
	}
	if err != nil {
		logger.Fatalf("Scan failed: %v", err)
	}

	logger.Printf("Scan: %d candidates, %d incomplete, %d exif extracted, %d exif missing, %d collisions",
		report.Candidates, report.Incomplete, report.ExifExtracted, report.ExifMissing, len(report.Collisions))
	for _, id := range report.Collisions {
		logger.Printf("Collision: %s maps to more than one source folder", id)
	}

	return candidates, report
}

func runSync(ctx context.Context, logger *log.Logger, cfg *config.Config, candidates []models.ImageRecord, dryRun, reloadMarked bool) models.SyncSummary {
	store, err := catalog.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to catalog: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatalf("Failed to ensure catalog schema: %v", err)
	}

	var opts []syncer.Option
	if dryRun {
		opts = append(opts, syncer.WithDryRun())
	}
	if reloadMarked {
		opts = append(opts, syncer.WithReloadMarked())
	}

	summary := syncer.New(store, logger, opts...).Run(ctx, candidates)

	logger.Printf("Sync: %d inserted, %d updated, %d skipped, %d errors",
		summary.Inserted, summary.Updated, summary.Skipped, summary.Errors)

	return summary
}
