// Package app runs one synchronization pass: fetch pages, extract records,
// sync them to the posts worksheet, then publish analytics and the CSV mirror.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/feedsync/internal/analytics"
	"github.com/ibeckermayer/feedsync/internal/config"
	"github.com/ibeckermayer/feedsync/internal/diff"
	"github.com/ibeckermayer/feedsync/internal/extract"
	"github.com/ibeckermayer/feedsync/internal/mirror"
	"github.com/ibeckermayer/feedsync/internal/pacer"
	"github.com/ibeckermayer/feedsync/internal/resolver"
	"github.com/ibeckermayer/feedsync/internal/scraper"
	"github.com/ibeckermayer/feedsync/internal/sheet"
	"github.com/ibeckermayer/feedsync/internal/store"
	"github.com/ibeckermayer/feedsync/internal/syncer"
	"github.com/ibeckermayer/feedsync/internal/types"
)

// App holds the collaborators of a run. It is not safe for concurrent runs;
// the scheduler never overlaps them.
type App struct {
	config   *config.Config
	workbook sheet.Workbook
	fetcher  scraper.Fetcher
	logger   *slog.Logger

	// now is replaced in tests
	now func() time.Time
}

// New creates a new App instance.
func New(cfg *config.Config, wb sheet.Workbook, f scraper.Fetcher, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		config:   cfg,
		workbook: wb,
		fetcher:  f,
		logger:   logger,
		now:      time.Now,
	}
}

// keepSteps is the number of cached outputs kept per step
const keepSteps = 20

// target is the posts worksheet with its index loaded
type target struct {
	sheet sheet.Worksheet
	index *diff.Index
}

// Run performs one full pass over the configured page range. Cancelling ctx
// stops the pass before the next page; records from completed pages are
// still synced and the mirror and analytics still written.
func (a *App) Run(ctx context.Context) (Stats, error) {
	cfg := a.config
	stats := Stats{RunID: uuid.NewString(), Started: a.now()}
	logger := a.logger.With("run_id", stats.RunID)
	logger.InfoContext(ctx, "starting run",
		"start_page", cfg.Sync.StartPage,
		"end_page", cfg.EndPage(),
		"store", cfg.Store.Backend)

	// Writes that have started must finish even after an interrupt.
	writeCtx := context.WithoutCancel(ctx)

	posts, res, err := a.prepare(ctx, logger)
	if err != nil {
		return stats, err
	}

	agg := analytics.New()
	ext := extract.New(cfg.Source.BaseURL, res, agg, logger.With("component", "extract"))
	ext.Now = a.now
	syn := a.synchronizer(posts, logger)

	var (
		total          syncer.Result
		pending        []types.Record
		extracted      []types.Record
		pagesSinceSync int
	)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		total.Add(syn.Sync(writeCtx, pending))
		pending = nil
		pagesSinceSync = 0
	}

	minDelay, maxDelay := cfg.Delays()
	between := pacer.New(minDelay, maxDelay, nil, logger)
	for page := cfg.Sync.StartPage; page <= cfg.EndPage(); page++ {
		if ctx.Err() != nil {
			stats.Interrupted = true
			break
		}
		if page > cfg.Sync.StartPage {
			// best effort: a cancelled wait is caught by the fetch below
			_ = between.Wait(ctx)
		}

		raws, err := a.fetcher.FetchPage(ctx, page)
		if ctx.Err() != nil {
			logger.WarnContext(writeCtx, "interrupted, discarding page in flight", "page", page)
			stats.Interrupted = true
			break
		}
		stats.Pages++
		if err != nil {
			logger.ErrorContext(ctx, "failed to fetch page", "page", page, "error", err)
			stats.EmptyPages++
			continue
		}
		if len(raws) == 0 {
			logger.WarnContext(ctx, "no posts on page", "page", page)
			stats.EmptyPages++
			continue
		}

		records, discarded := ext.ExtractPage(raws, page)
		stats.Scraped += len(records)
		stats.Discarded += discarded
		logger.InfoContext(ctx, "extracted page", "page", page, "records", len(records), "discarded", discarded)

		extracted = append(extracted, records...)
		pending = append(pending, records...)
		pagesSinceSync++
		if pagesSinceSync >= cfg.Sync.SyncEveryPages || len(pending) >= cfg.Sync.BatchSize {
			flush()
		}
	}
	flush()

	stats.New = total.Inserted
	stats.SeenAgain = total.Bumped
	stats.Failed = total.Failed

	summary := agg.Summarize(a.now().Format(analytics.DateLayout))
	if err := a.publishAnalytics(writeCtx, summary); err != nil {
		logger.ErrorContext(writeCtx, "failed to write analytics", "error", err)
	} else {
		logger.InfoContext(writeCtx, "wrote analytics", "authors", len(summary))
	}

	if cfg.Mirror.CSVPath != "" {
		entries := mirrorEntries(extracted, syn.Index())
		if err := mirror.Write(cfg.Mirror.CSVPath, entries); err != nil {
			logger.ErrorContext(writeCtx, "failed to write CSV mirror", "path", cfg.Mirror.CSVPath, "error", err)
		} else {
			logger.InfoContext(writeCtx, "wrote CSV mirror", "path", cfg.Mirror.CSVPath, "rows", len(entries))
		}
	}

	if cfg.Mirror.SaveSteps {
		saveSteps(writeCtx, logger, extracted, total.Synced, summary)
	}

	stats.Finished = a.now()
	if stats.Interrupted {
		logger.WarnContext(writeCtx, "run interrupted", "stats", stats)
	} else {
		logger.InfoContext(writeCtx, "run complete", "stats", stats)
	}
	return stats, nil
}

// Resync writes previously extracted records to the posts worksheet again.
// Records already present only get their seen-count bumped.
func (a *App) Resync(ctx context.Context, records []types.Record) (syncer.Result, error) {
	logger := a.logger.With("run_id", uuid.NewString())
	var valid []types.Record
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			logger.WarnContext(ctx, "skipping cached record", "error", err)
			continue
		}
		valid = append(valid, rec)
	}

	posts, _, err := a.prepare(ctx, logger)
	if err != nil {
		return syncer.Result{}, err
	}
	res := a.synchronizer(posts, logger).Sync(context.WithoutCancel(ctx), valid)
	logger.InfoContext(ctx, "resync complete",
		"records", len(valid),
		"new", res.Inserted,
		"seen_again", res.Bumped,
		"failed", res.Failed)
	return res, nil
}

// prepare opens the posts worksheet and loads the index, profiles and tag
// lists concurrently. Only a failure on the posts worksheet is fatal.
func (a *App) prepare(ctx context.Context, logger *slog.Logger) (target, *resolver.Resolver, error) {
	cfg := a.config
	ws, err := a.workbook.FindOrCreateWorksheet(ctx, cfg.Store.PostsSheet, len(types.PostHeaders))
	if err != nil {
		return target{}, nil, fmt.Errorf("open %s: %w", cfg.Store.PostsSheet, err)
	}
	reset, err := sheet.EnsureHeader(ctx, ws, types.PostHeaders)
	if err != nil {
		return target{}, nil, err
	}
	if reset {
		logger.WarnContext(ctx, "posts header did not match, worksheet was reset", "sheet", ws.Name())
	}

	var (
		index    *diff.Index
		profiles []types.Profile
		tags     resolver.TagSets
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := ws.ReadAllRows(gctx)
		if err != nil {
			return fmt.Errorf("load index: %w", err)
		}
		if len(rows) > 0 {
			rows = rows[1:]
		}
		index = diff.LoadIndex(rows)
		return nil
	})
	g.Go(func() error {
		rows := a.readOptional(gctx, logger, cfg.Store.ProfilesSheet)
		profiles = resolver.ProfilesFromRows(rows)
		return nil
	})
	g.Go(func() error {
		rows := a.readOptional(gctx, logger, cfg.Store.TagsSheet)
		tags = resolver.TagSetsFromRows(rows)
		return nil
	})
	if err := g.Wait(); err != nil {
		return target{}, nil, err
	}

	res := resolver.New(profiles, tags)
	logger.InfoContext(ctx, "loaded store state",
		"existing", index.Len(),
		"profiles", res.ProfileCount())
	return target{sheet: ws, index: index}, res, nil
}

// readOptional reads a lookup worksheet. A missing or unreadable worksheet
// only disables the enrichment it provides.
func (a *App) readOptional(ctx context.Context, logger *slog.Logger, name string) [][]string {
	if name == "" {
		return nil
	}
	rows, found, err := sheet.ReadOptional(ctx, a.workbook, name)
	switch {
	case err != nil:
		logger.WarnContext(ctx, "failed to read worksheet", "sheet", name, "error", err)
	case !found:
		logger.WarnContext(ctx, "worksheet not found", "sheet", name)
	}
	return rows
}

func (a *App) synchronizer(t target, logger *slog.Logger) *syncer.Synchronizer {
	minDelay, maxDelay := a.config.Delays()
	p := pacer.New(minDelay, maxDelay, sheet.IsRetryable, logger)
	p.MaxRetries = a.config.Sync.MaxRetries
	return syncer.New(t.sheet, t.index, p, logger.With("component", "syncer"))
}

func (a *App) publishAnalytics(ctx context.Context, summary []types.AnalyticsRow) error {
	name := a.config.Store.AnalyticsSheet
	if name == "" {
		return nil
	}
	ws, err := a.workbook.FindOrCreateWorksheet(ctx, name, len(types.AnalyticsHeaders))
	if err != nil {
		return err
	}
	rows := make([][]string, len(summary))
	for i, r := range summary {
		rows[i] = r.Values()
	}
	return sheet.ReplaceAll(ctx, ws, types.AnalyticsHeaders, rows)
}

// mirrorEntries returns one entry per extracted record, in extraction
// order, whether or not the store accepted it. Records in the index carry
// their seen-count at the end of the run; the rest count as seen once.
func mirrorEntries(extracted []types.Record, index *diff.Index) []mirror.Entry {
	entries := make([]mirror.Entry, 0, len(extracted))
	for _, rec := range extracted {
		seen := 1
		if e, ok := index.Lookup(rec.Fingerprint); ok {
			seen = e.Seen
		}
		entries = append(entries, mirror.Entry{Record: rec, Seen: seen})
	}
	return entries
}

func saveSteps(ctx context.Context, logger *slog.Logger, extracted, synced []types.Record, summary []types.AnalyticsRow) {
	save := func(step store.StepName, path string, err error) {
		if err != nil {
			logger.WarnContext(ctx, "failed to cache step output", "step", step, "error", err)
			return
		}
		logger.DebugContext(ctx, "cached step output", "step", step, "path", path)
	}
	path, err := store.SaveStepOutput(store.StepRecords, extracted)
	save(store.StepRecords, path, err)
	path, err = store.SaveStepOutput(store.StepSynced, synced)
	save(store.StepSynced, path, err)
	path, err = store.SaveStepOutput(store.StepAnalytics, summary)
	save(store.StepAnalytics, path, err)

	for _, step := range []store.StepName{store.StepRecords, store.StepSynced, store.StepAnalytics} {
		if _, err := store.PruneStepOutputs(step, keepSteps); err != nil {
			logger.WarnContext(ctx, "failed to prune step cache", "step", step, "error", err)
		}
	}
}

// LoadCachedRecords returns the records saved by the most recent run with
// step caching enabled.
func LoadCachedRecords() ([]types.Record, string, error) {
	records, path, err := store.LoadLatestStepOutput[[]types.Record](store.StepRecords)
	if err != nil {
		return nil, "", fmt.Errorf("no cached records: %w", err)
	}
	if len(records) == 0 {
		return nil, path, errors.New("cached record set is empty")
	}
	return records, path, nil
}
