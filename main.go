package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"eigenimages/config"
	"eigenimages/database"
	"eigenimages/exporter"
	"eigenimages/logging"
	"eigenimages/metrics"
	"eigenimages/pipeline"
	"eigenimages/scanner"
	"eigenimages/signalhandler"
	"eigenimages/types"
	"eigenimages/utils"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	// Parse command line arguments into a map
	args := utils.ParseArguments(argv)

	// Get the command (run, batch or results)
	command, hasCommand := args["command"]

	// Check if required arguments are missing
	showUsage := !hasCommand
	if hasCommand && command != "results" && args["folder"] == "" {
		showUsage = true
	}
	if hasCommand && command == "run" && args["output"] == "" {
		showUsage = true
	}
	if showUsage {
		utils.PrintUsage(os.Stderr)
		return 1
	}

	cfg, err := config.Load(args["config"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := applyOverrides(&cfg, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	_, debugMode := args["debug"]
	if err := logging.SetupLogger(logging.Options{
		Level:   cfg.Logging.Level,
		LogFile: cfg.Logging.File,
		Debug:   debugMode,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to setup logging: %v\n", err)
	}
	defer logging.CloseLogger()

	// Set up proper signal handling
	ctx, stop := signalhandler.SetupHandler(context.Background())
	defer stop()

	var code int
	switch command {
	case "run":
		code = handleRunCommand(ctx, args, cfg)
	case "batch":
		code = handleBatchCommand(ctx, args, cfg)
	case "results":
		code = handleResultsCommand(args, cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		utils.PrintUsage(os.Stderr)
		return 1
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logging.LogWarning("Cannot write metrics to %s: %v", cfg.Metrics.Textfile, err)
		}
	}

	return code
}

// applyOverrides copies command-line values over the configuration file
func applyOverrides(cfg *config.Config, args map[string]string) error {
	if v, ok := args["static-resize"]; ok {
		b, err := utils.ParseBool(v)
		if err != nil {
			return err
		}
		cfg.Pipeline.StaticResize = &b
	}
	if v, ok := args["components"]; ok {
		n, err := utils.ParseComponents(v)
		if err != nil {
			return err
		}
		cfg.Pipeline.Components = n
	}
	if v, ok := args["threshold"]; ok {
		th, err := utils.ParseThreshold(v)
		if err != nil {
			return err
		}
		cfg.Pipeline.VarianceThreshold = th
	}
	if v := args["results"]; v != "" {
		cfg.Output.ResultsDir = v
	}
	if v := args["database"]; v != "" {
		cfg.Database.Path = v
	} else if v := args["db"]; v != "" {
		// Allow --db as an alias for --database
		cfg.Database.Path = v
	}
	if _, ok := args["no-database"]; ok {
		cfg.Database.Disabled = true
	}
	if v := args["logfile"]; v != "" {
		cfg.Logging.File = v
	}
	if v := args["metrics-file"]; v != "" {
		cfg.Metrics.Textfile = v
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = utils.GetDefaultDatabasePath()
	}
	return cfg.Validate()
}

// openLedger opens the run ledger unless it is disabled. Failure to open it
// is a warning; runs still proceed.
func openLedger(cfg config.Config) *sql.DB {
	if cfg.Database.Disabled {
		return nil
	}
	db, err := database.InitDatabase(cfg.Database.Path)
	if err != nil {
		logging.LogWarning("Cannot open run ledger %s: %v", cfg.Database.Path, err)
		return nil
	}
	return db
}

func recordRun(db *sql.DB, record types.FolderResult) {
	if db == nil {
		return
	}
	if err := database.StoreFolderResult(db, record); err != nil {
		logging.LogWarning("Cannot record run for %s: %v", record.FolderPath, err)
	}
}

func handleRunCommand(ctx context.Context, args map[string]string, cfg config.Config) int {
	folderPath := args["folder"]
	if info, err := os.Stat(folderPath); err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "Error: not a readable folder: %s\n", folderPath)
		return 1
	}

	db := openLedger(cfg)
	if db != nil {
		defer db.Close()
	}

	opts := pipeline.Options{
		Folder:       folderPath,
		StaticResize: cfg.UseStaticResize(),
		Components:   cfg.Pipeline.Components,
		Threshold:    cfg.Pipeline.VarianceThreshold,
		OutputPrefix: exporter.PrefixFromCSVPath(args["output"]),
	}

	start := time.Now()
	res, err := pipeline.Run(ctx, opts)
	if err != nil {
		recordRun(db, pipeline.FailedRecord(opts, err, time.Since(start)))
		logging.LogFolderProcessed(folderPath, false, err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	recordRun(db, res.Record(opts.OutputPrefix))
	logging.LogFolderProcessed(folderPath, true, nil)

	fmt.Printf("Processed %d images (%s -> %s), %d of %d components explain %.4f of the variance.\n",
		res.ImageCount, res.Original, res.Working, res.SelectedComponents, res.ComponentBudget, res.ExplainedVariance)
	fmt.Printf("All values: %g\nNo Negatives: %g\n", res.Scores.All, res.Scores.NonNegative)
	fmt.Printf("Wrote %s, %s, %s\n", res.Artifacts.CSV, res.Artifacts.Image, res.Artifacts.NonNegImage)
	return 0
}

func handleBatchCommand(ctx context.Context, args map[string]string, cfg config.Config) int {
	folderPath := args["folder"]
	if info, err := os.Stat(folderPath); err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "Error: not a readable folder: %s\n", folderPath)
		return 1
	}

	db := openLedger(cfg)
	if db != nil {
		defer db.Close()
	}

	summary, err := scanner.RunBatch(ctx, db, scanner.BatchOptions{
		InputDir:     folderPath,
		ResultsDir:   cfg.Output.ResultsDir,
		StaticResize: cfg.UseStaticResize(),
		Components:   cfg.Pipeline.Components,
		Threshold:    cfg.Pipeline.VarianceThreshold,
		Progress:     os.Stdout,
	})
	if err != nil {
		logging.LogError("Batch over %s failed: %v", folderPath, err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	logging.LogInfo("Batch results written to %s", summary.ResultsDir)

	if summary.Cancelled || summary.Failed > 0 {
		return 2
	}
	return 0
}

func handleResultsCommand(args map[string]string, cfg config.Config) int {
	if _, err := os.Stat(cfg.Database.Path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: no run ledger at %s\n", cfg.Database.Path)
		return 1
	}

	db, err := database.InitDatabase(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer db.Close()

	results, err := database.QueryResults(db, args["folder"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	stats, err := database.GetRunStats(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if len(results) == 0 {
		fmt.Println("No runs recorded.")
		return 0
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FOLDER\tSTATUS\tIMAGES\tSELECTED\tVARIANCE\tALL VALUES\tNO NEGATIVES\tPROCESSED")
	for _, r := range results {
		if r.Status != types.StatusOK {
			fmt.Fprintf(w, "%s\t%s\t\t\t\t\t\t%s\t%s\n", r.FolderName, r.Status, r.ProcessedAt, r.Error)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d/%d\t%.4f\t%g\t%g\t%s\n",
			r.FolderName, r.Status, r.ImageCount, r.SelectedComponents, r.ComponentBudget,
			r.ExplainedVariance, r.Scores.All, r.Scores.NonNegative, r.ProcessedAt)
	}
	w.Flush()

	fmt.Printf("\n%d runs (%d failed) over %d folders in %s\n",
		stats.TotalRuns, stats.FailedRuns, stats.DistinctFolders, filepath.Base(cfg.Database.Path))
	return 0
}
