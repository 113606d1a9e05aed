package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	mockupcrop "github.com/menta2k/mockup-crop"
	"github.com/menta2k/mockup-crop/internal/config"
	"github.com/menta2k/mockup-crop/internal/errlog"
	"github.com/menta2k/mockup-crop/internal/logging"
	"github.com/menta2k/mockup-crop/internal/utils"
	"github.com/menta2k/mockup-crop/pkg/batch"
	"github.com/menta2k/mockup-crop/pkg/types"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mockup-crop", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		inputDir, outputDir, configPath, envFile, logFile, debugDir string
		overwrite, safeMode, nonRecursive, verbose, dryRun          bool
		workers                                                     int
	)
	fs.StringVar(&inputDir, "input-dir", "", "folder with source images (required)")
	fs.StringVar(&outputDir, "output-dir", "", "folder for the 800x800 exports (required)")
	fs.BoolVar(&overwrite, "overwrite", false, "overwrite existing exports")
	fs.BoolVar(&safeMode, "safe-mode", false, "less aggressive crops, biased toward the image center")
	fs.IntVar(&workers, "workers", batch.DefaultWorkers, "parallel workers (1-8)")
	fs.BoolVar(&nonRecursive, "non-recursive", false, "only process the top level of -input-dir")
	fs.StringVar(&configPath, "config", "", "JSON configuration file")
	fs.StringVar(&envFile, "env", ".env", "optional .env file with MOCKUP_* overrides")
	fs.StringVar(&logFile, "log-file", "", "write logs to a rotating file instead of stderr")
	fs.StringVar(&debugDir, "debug-dir", "", "write crop overlay PNGs to this folder")
	fs.BoolVar(&verbose, "verbose", false, "enable debug logging")
	fs.BoolVar(&dryRun, "dry-run", false, "print crop decisions as JSON without writing exports")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			fmt.Fprintf(stderr, "[ERROR] %v\n", err)
			return exitUsage
		}
		cfg = loaded
	}
	if err := cfg.LoadEnv(envFile); err != nil {
		fmt.Fprintf(stderr, "[ERROR] %v\n", err)
		return exitUsage
	}

	// explicit flags win over file and environment
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output-dir":
			cfg.Output.Dir = outputDir
		case "overwrite":
			cfg.Processing.Overwrite = overwrite
		case "safe-mode":
			cfg.Processing.SafeMode = safeMode
		case "workers":
			cfg.Processing.Workers = workers
		case "non-recursive":
			cfg.Processing.Recursive = !nonRecursive
		case "log-file":
			cfg.Log.File = logFile
		case "debug-dir":
			cfg.Output.DebugDir = debugDir
		case "verbose":
			cfg.Log.Verbose = verbose
		}
	})
	cfg.ClampWorkers()

	if inputDir == "" || cfg.Output.Dir == "" {
		fmt.Fprintln(stderr, "usage: mockup-crop -input-dir DIR -output-dir DIR [-overwrite] [-safe-mode] [-workers N] [-non-recursive]")
		return exitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "[ERROR] invalid configuration: %v\n", err)
		return exitUsage
	}

	logging.SetDebug(cfg.Log.Verbose)
	if cfg.Log.File != "" {
		closer, err := logging.SetFile(cfg.Log.File)
		if err != nil {
			fmt.Fprintf(stderr, "[ERROR] %v\n", err)
			return exitUsage
		}
		defer closer.Close()
	}

	if !utils.DirExists(inputDir) {
		fmt.Fprintf(stderr, "[ERROR] input folder does not exist: %s\n", inputDir)
		return exitUsage
	}
	if err := utils.EnsureDir(cfg.Output.Dir); err != nil {
		fmt.Fprintf(stderr, "[ERROR] cannot create output folder: %v\n", err)
		return exitFailure
	}

	paths, err := mockupcrop.CollectImages(inputDir, cfg.Processing.Recursive)
	if err != nil {
		fmt.Fprintf(stderr, "[ERROR] cannot list %s: %v\n", inputDir, err)
		return exitFailure
	}
	if len(paths) == 0 {
		fmt.Fprintln(stdout, "[WARN] no supported images found")
		return exitFailure
	}

	opts := mockupcrop.DefaultOptions()
	opts.TargetSize = cfg.Processing.TargetSize
	opts.Quality = cfg.Processing.JPEGQuality
	opts.Vision.WorkingMaxSide = cfg.Processing.WorkingMaxSide
	mc := mockupcrop.NewWithOptions(opts)

	if dryRun {
		return dryRunDecisions(mc, paths, cfg.Processing.SafeMode, stdout, stderr)
	}

	fmt.Fprintf(stdout, "[INFO] %d images, %d workers, safe mode %t\n", len(paths), cfg.Processing.Workers, cfg.Processing.SafeMode)

	results := mc.Scheduler().Run(paths, batch.Options{
		OutputDir: cfg.Output.Dir,
		Overwrite: cfg.Processing.Overwrite,
		SafeMode:  cfg.Processing.SafeMode,
		Workers:   cfg.Processing.Workers,
		Suffix:    cfg.Output.Suffix,
		DebugDir:  cfg.Output.DebugDir,
	}, func(ev batch.ProgressEvent) {
		fmt.Fprintf(stdout, "[%d/%d] %s -> %s: %s\n", ev.Done, ev.Total, filepath.Base(ev.Result.InputPath), ev.Result.Status, ev.Result.Message)
	})

	var ok, skipped, failed int
	for _, r := range results {
		switch r.Status {
		case types.StatusOK:
			ok++
		case types.StatusSkipped:
			skipped++
		default:
			failed++
		}
	}

	if failed > 0 {
		logPath, err := errlog.WriteErrors(cfg.Output.Dir, cfg.Output.ErrorLogPrefix, time.Now(), results)
		if err != nil {
			fmt.Fprintf(stderr, "[ERROR] cannot write error log: %v\n", err)
		} else {
			fmt.Fprintf(stdout, "[INFO] error log: %s\n", logPath)
		}
	}

	fmt.Fprintf(stdout, "[SUMMARY] OK=%d | Skipped=%d | Errors=%d | Total=%d\n", ok, skipped, failed, len(results))
	if failed > 0 {
		return exitFailure
	}
	return exitOK
}

func dryRunDecisions(mc *mockupcrop.MockupCropper, paths []string, safeMode bool, stdout, stderr io.Writer) int {
	type entry struct {
		Path string `json:"path"`
		mockupcrop.Analysis
		Error string `json:"error,omitempty"`
	}

	code := exitOK
	entries := make([]entry, 0, len(paths))
	for _, p := range paths {
		a, err := mc.Analyze(p, safeMode)
		e := entry{Path: p, Analysis: a}
		if err != nil {
			e.Error = err.Error()
			code = exitFailure
		}
		entries = append(entries, e)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		fmt.Fprintf(stderr, "[ERROR] %v\n", err)
		return exitFailure
	}
	return code
}
