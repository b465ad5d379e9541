package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stackdid/internal/config"
	"stackdid/internal/exporter"
	"stackdid/internal/infrastructure"
	"stackdid/internal/panelio"
	"stackdid/internal/stacking"
)

func main() {
	inputPath := flag.String("in", "", "input panel file (.csv or .xlsx)")
	sheet := flag.String("sheet", "", "worksheet name for xlsx input (defaults to first sheet)")
	outputDir := flag.String("out", "", "output directory (defaults to configured output dir)")
	kappaPre := flag.Int("pre", -1, "pre-treatment event-window length (defaults to configured kappa_pre)")
	kappaPost := flag.Int("post", -1, "post-treatment event-window length (defaults to configured kappa_post)")
	concurrency := flag.Int("concurrency", 0, "max parallel sub-experiment builds (defaults to configured max_concurrency)")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: stacker -in panel.csv [-out dir] [-pre N] [-post N]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	// Flags override configured defaults.
	window := stacking.Window{Pre: cfg.Stacking.KappaPre, Post: cfg.Stacking.KappaPost}
	if *kappaPre >= 0 {
		window.Pre = *kappaPre
	}
	if *kappaPost >= 0 {
		window.Post = *kappaPost
	}
	if *concurrency > 0 {
		cfg.Stacking.MaxConcurrency = *concurrency
	}
	if *outputDir == "" {
		*outputDir = cfg.Output.Dir
	}

	logger.Info("Loading panel", "path", *inputPath)
	panel, err := loadPanel(*inputPath, *sheet, cfg.Fields)
	if err != nil {
		logger.Error("Failed to load panel", "error", err)
		os.Exit(1)
	}
	logger.Info("Loaded panel", "rows", len(panel))

	ctx := context.Background()
	started := time.Now()

	builder, err := stacking.NewBuilder(window, logger)
	if err != nil {
		logger.Error("Invalid event window", "error", err)
		os.Exit(1)
	}

	assembler := stacking.NewAssembler(builder, logger)
	assembler.SetMaxConcurrency(cfg.Stacking.MaxConcurrency)

	stack, err := assembler.Assemble(ctx, panel)
	if err != nil {
		logger.Error("Failed to assemble stack", "error", err)
		os.Exit(1)
	}

	weighted, err := stacking.ComputeWeights(ctx, stack, logger)
	if err != nil {
		logger.Error("Failed to compute weights", "error", err)
		os.Exit(1)
	}

	balances, err := stacking.Diagnose(ctx, weighted, logger)
	if err != nil {
		logger.Error("Failed to compute diagnostics", "error", err)
		os.Exit(1)
	}

	writer := exporter.NewCSVWriter(cfg.Fields)
	stackPath := filepath.Join(*outputDir, cfg.Output.StackFile)
	if err := writer.WriteStack(stackPath, weighted); err != nil {
		logger.Error("Failed to write stacked panel", "error", err, "path", stackPath)
		os.Exit(1)
	}

	diagPath := filepath.Join(*outputDir, cfg.Output.DiagnosticsFile)
	if err := writer.WriteDiagnostics(diagPath, balances); err != nil {
		logger.Error("Failed to write diagnostics", "error", err, "path", diagPath)
		os.Exit(1)
	}

	logger.Info("Stack construction complete",
		"rows", len(weighted),
		"cells", len(balances),
		"duration", time.Since(started).String(),
		"stack", stackPath,
		"diagnostics", diagPath)
}

// loadPanel reads the panel from CSV or XLSX depending on the file extension.
func loadPanel(path, sheet string, fields panelio.FieldMap) ([]stacking.Observation, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return panelio.ReadCSVFile(path, fields)
	case ".xlsx":
		return panelio.ReadXLSXFile(path, sheet, fields)
	default:
		return nil, fmt.Errorf("unsupported input format: %s", filepath.Ext(path))
	}
}
