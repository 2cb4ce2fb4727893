package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"assetcache/internal/downloader"
	"assetcache/internal/env"
	apperrors "assetcache/internal/errors"
	errlog "assetcache/internal/errors/logging"
	"assetcache/internal/hashlist"
	"assetcache/internal/journal"
	"assetcache/internal/logger"
	"assetcache/internal/ui"
)

const version = "1.0.0"

type args struct {
	Manifest string `arg:"positional,required" help:"path to the asset manifest (TOML or YAML)"`
	Dir      string `arg:"positional,required" help:"directory the assets are cached in"`

	Filter   string        `arg:"--filter,env:ASSETCACHE_FILTER" help:"only process assets whose key or filename contains this substring"`
	Attempts uint64        `arg:"--attempts,env:ASSETCACHE_ATTEMPTS" default:"3" help:"batch attempts before giving up"`
	MaxDelay time.Duration `arg:"--max-delay,env:ASSETCACHE_MAX_DELAY" default:"1s" help:"upper bound for the retry backoff delay"`
	Timeout  time.Duration `arg:"--timeout,env:ASSETCACHE_TIMEOUT" default:"5m" help:"per-request HTTP timeout"`

	Verify  bool `arg:"--verify" help:"re-hash cached files against their recorded digests instead of downloading"`
	Prune   bool `arg:"--prune" help:"remove files in DIR that the manifest no longer claims"`
	Yes     bool `arg:"-y,--yes" help:"skip interactive confirmations"`
	History int  `arg:"--history" placeholder:"N" help:"show the last N recorded runs and exit"`

	NoJournal  bool `arg:"--no-journal,env:ASSETCACHE_NO_JOURNAL" help:"do not record this run in the journal database"`
	NoProgress bool `arg:"--no-progress,env:ASSETCACHE_NO_PROGRESS" help:"disable live progress indicators"`
	Verbose    bool `arg:"-v,--verbose" help:"info level logging with a per-file summary"`
	Debug      bool `arg:"--debug,env:ASSETCACHE_DEBUG" help:"debug level logging with caller locations"`
	LogJSON    bool `arg:"--log-json,env:ASSETCACHE_LOG_JSON" help:"emit logs as JSON"`
}

func (args) Version() string {
	return "assetcache " + version
}

func (args) Description() string {
	return "Downloads integrity-checked test assets and keeps a local cache in sync with a manifest."
}

func main() {
	envErr := env.Load()

	var a args
	arg.MustParse(&a)

	log := buildLogger(a)
	if envErr != nil {
		log.Warn("Ignoring unreadable .env file: %v", envErr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Received exit signal, shutting down gracefully...")
		cancel()
	}()

	if code := run(ctx, a, log); code != 0 {
		os.Exit(code)
	}
}

func buildLogger(a args) logger.Logger {
	level := logger.LevelWarn
	if a.Verbose {
		level = logger.LevelInfo
	}
	if a.Debug {
		level = logger.LevelDebug
	}

	opts := []logger.Option{logger.WithLevel(level)}
	if a.Debug {
		opts = append(opts, logger.WithCaller())
	}

	if a.LogJSON {
		opts = append(opts, logger.WithFormatter(&logger.JSONFormatter{}))
		return logger.NewStandardLogger(opts...)
	}

	return logger.NewColoredLogger(opts...)
}

func run(ctx context.Context, a args, log logger.Logger) int {
	printer := ui.NewPrinter(os.Stdout)

	runID := uuid.NewString()
	ctx = logger.ContextWithRun(ctx, logger.RunContext{RunID: runID, Manifest: a.Manifest})

	switch {
	case a.History > 0:
		return showHistory(ctx, a, printer, log)
	case a.Verify:
		return runVerify(a, log, printer)
	}

	assets, err := downloader.LoadAssets(a.Manifest)
	if err != nil {
		logFailure(ctx, log, "Failed to load asset manifest", err)
		return 1
	}

	assets = downloader.FilterAssets(assets, a.Filter)
	if len(assets) == 0 {
		if a.Filter != "" {
			log.Warn("No assets match filter %q in %s", a.Filter, a.Manifest)
		} else {
			log.Warn("Asset manifest %s lists no assets", a.Manifest)
		}
		return 0
	}

	if a.Prune {
		return runPrune(a, assets, log, printer)
	}

	return runBatch(ctx, a, assets, runID, log, printer)
}

func runBatch(ctx context.Context, a args, assets []downloader.Asset, runID string, log logger.Logger, printer *ui.Printer) int {
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		log.Error("Failed to create asset directory %s: %v", a.Dir, err)
		return 1
	}

	fetcherOpts := []downloader.FetcherOption{
		downloader.WithTimeout(a.Timeout),
	}
	if ua := env.String("ASSETCACHE_USER_AGENT", ""); ua != "" {
		fetcherOpts = append(fetcherOpts, downloader.WithUserAgent(ua))
	}
	if maxBody := env.Int64("ASSETCACHE_MAX_BODY_BYTES", 0); maxBody > 0 {
		fetcherOpts = append(fetcherOpts, downloader.WithMaxBodySize(maxBody))
	}
	if a.Verbose && !a.NoProgress && !a.LogJSON {
		fetcherOpts = append(fetcherOpts, downloader.WithProgressReporter(ui.NewBarReporter(os.Stderr)))
	}

	fetcher, err := downloader.NewFetcher(log, fetcherOpts...)
	if err != nil {
		logFailure(ctx, log, "Failed to initialise downloader", err)
		return 1
	}

	batch, err := downloader.NewBatch(fetcher, log)
	if err != nil {
		logFailure(ctx, log, "Failed to initialise batch", err)
		return 1
	}

	recorder := openJournal(a, log)
	defer recorder.Close()

	if err := recorder.Begin(ctx, runID, a.Manifest, a.Dir, len(assets)); err != nil {
		log.Warn("Journal unavailable for this run: %v", err)
		recorder = journal.NoopRecorder{}
	}

	policy := downloader.DefaultRetryPolicy(a.MaxDelay)
	policy.MaxAttempts = a.Attempts
	policy.InitialDelay = env.Duration("ASSETCACHE_RETRY_INITIAL_DELAY", policy.InitialDelay)

	log.Info("Processing %d asset(s) from %s into %s", len(assets), a.Manifest, a.Dir)
	report, runErr := batch.RunWithBackoff(ctx, assets, a.Dir, policy)

	journalOutcome(recorder, runID, report, runErr, log)

	if a.Verbose && !a.LogJSON {
		printer.Summary(report)
	}

	if runErr != nil {
		logFailure(ctx, log, "Batch failed", runErr)
		return 1
	}

	var fetched, cached int
	if report != nil {
		for _, res := range report.Results {
			switch res.Disposition {
			case downloader.DispositionFetched:
				fetched++
			case downloader.DispositionCached:
				cached++
			}
		}
		log.Success("Batch complete: %d fetched, %d cached (attempt %d)", fetched, cached, report.Attempt)
	}

	return 0
}

func runVerify(a args, log logger.Logger, printer *ui.Printer) int {
	list, err := hashlist.Load(hashlist.PathIn(a.Dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("No hash manifest found in %s, nothing to verify", a.Dir)
			return 0
		}
		log.Error("Failed to load hash manifest: %v", err)
		return 1
	}

	drifts, err := downloader.NewValidator(log).VerifyDir(a.Dir, list)
	if err != nil {
		log.Error("Verification failed: %v", err)
		return 1
	}

	if len(drifts) > 0 {
		printer.Drifts(drifts)
		log.Error("%d of %d files failed verification", len(drifts), list.Len())
		return 1
	}

	log.Success("All %d files match their recorded digests", list.Len())
	return 0
}

func runPrune(a args, assets []downloader.Asset, log logger.Logger, printer *ui.Printer) int {
	candidates, err := downloader.PruneCandidates(a.Dir, assets)
	if err != nil {
		log.Error("Failed to scan %s for unmanaged files: %v", a.Dir, err)
		return 1
	}
	if len(candidates) == 0 {
		log.Success("No unmanaged files in %s", a.Dir)
		return 0
	}

	printer.PruneList(candidates)

	if !a.Yes {
		confirmed, err := ui.ConfirmRemoval(candidates)
		if err != nil {
			log.Error("Confirmation prompt failed: %v", err)
			return 1
		}
		if !confirmed {
			log.Info("Keeping %d unmanaged file(s)", len(candidates))
			return 0
		}
	}

	list, err := hashlist.Load(hashlist.PathIn(a.Dir))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Error("Failed to load hash manifest: %v", err)
			return 1
		}
		list = hashlist.New()
	}

	if err := downloader.Prune(a.Dir, candidates, list, log); err != nil {
		log.Error("Prune failed: %v", err)
		return 1
	}
	if err := list.Save(hashlist.PathIn(a.Dir)); err != nil {
		log.Error("Failed to persist hash manifest: %v", err)
		return 1
	}

	log.Success("Removed %d unmanaged file(s) from %s", len(candidates), a.Dir)
	return 0
}

func showHistory(ctx context.Context, a args, printer *ui.Printer, log logger.Logger) int {
	path := filepath.Join(a.Dir, journal.FileName)
	if _, err := os.Stat(path); err != nil {
		printer.History(nil)
		return 0
	}

	rec, err := journal.Open(path)
	if err != nil {
		log.Error("Failed to open journal: %v", err)
		return 1
	}
	defer rec.Close()

	records, err := rec.Recent(ctx, a.History)
	if err != nil {
		log.Error("Failed to read journal: %v", err)
		return 1
	}

	printer.History(records)
	return 0
}

func openJournal(a args, log logger.Logger) journal.Recorder {
	if a.NoJournal {
		return journal.NoopRecorder{}
	}

	rec, err := journal.Open(filepath.Join(a.Dir, journal.FileName))
	if err != nil {
		log.Warn("Journal disabled: %v", err)
		return journal.NoopRecorder{}
	}
	return rec
}

// journalOutcome records the final per-file rows and closes the batch entry.
// It runs on its own context so a cancelled run still gets journalled.
func journalOutcome(recorder journal.Recorder, runID string, report *downloader.Report, runErr error, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if report != nil {
		for _, res := range report.Results {
			rec := journal.FileRecord{
				Filename:    res.Filename,
				Disposition: string(res.Disposition),
				Digest:      res.Digest.Hex(),
				Bytes:       res.Bytes,
				Duration:    res.Duration,
			}
			if err := recorder.File(ctx, runID, rec); err != nil {
				log.Warn("Failed to journal %s: %v", res.Filename, err)
			}
		}
	}

	status := journal.StatusCompleted
	errMsg := ""
	if runErr != nil {
		status = journal.StatusFailed
		errMsg = runErr.Error()
	}
	if err := recorder.End(ctx, runID, status, errMsg); err != nil {
		log.Warn("Failed to close journal entry: %v", err)
	}
}

func logFailure(ctx context.Context, log logger.Logger, msg string, err error) {
	if appErr, ok := apperrors.As(err); ok {
		errlog.Error(ctx, log, msg, appErr)
		return
	}
	log.Error("%s: %v", msg, err)
}
