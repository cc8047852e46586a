// Package runner sequences one snapshot capture: credentials, browser
// session, login, table scrape, truncate, and per-record inserts. Execution
// is strictly sequential; the browser and the database connection are
// scoped to the run and released on every exit path.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/config"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/credentials"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/domain"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/monitoring"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/scraper"
)

// Store is the persistence surface the runner needs.
type Store interface {
	Truncate(ctx context.Context) error
	Insert(ctx context.Context, dtSnapshot time.Time, rec domain.FollowUpRecord) (domain.InsertResult, error)
}

// Browser is the authenticated-page surface the runner needs. The session
// owns its own browser context, so methods carry no ctx.
type Browser interface {
	Login(user, pass string) error
	FrameHTML() ([]string, error)
	Screenshot() ([]byte, error)
}

// Guard suppresses duplicate scheduler firings. May be absent.
type Guard interface {
	RecentlyCaptured(ctx context.Context) (bool, error)
	MarkCaptured(ctx context.Context, ttl time.Duration) error
}

// Runner executes snapshot captures one at a time.
type Runner struct {
	cfg     *config.Config
	creds   credentials.Source
	guard   Guard // nil disables the run guard
	metrics *monitoring.Metrics
	logger  *zap.Logger

	// NewStore connects to the destination store for a run; the returned
	// func releases the connection. Opened only after the secrets resolve,
	// so a broken secret store aborts with zero network activity. Replaced
	// in tests.
	NewStore func(ctx context.Context) (Store, func(), error)
	// NewBrowser opens the browser session for a run; the returned func
	// closes it. Replaced in tests.
	NewBrowser func(ctx context.Context) (Browser, func(), error)
	// Now supplies the batch timestamp. Replaced in tests.
	Now func() time.Time
	// Sleep paces the populated-data wait loop. Replaced in tests.
	Sleep func(time.Duration)
}

func New(cfg *config.Config, creds credentials.Source, g Guard, m *monitoring.Metrics, l *zap.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		creds:   creds,
		guard:   g,
		metrics: m,
		logger:  l,
		Now:     time.Now,
		Sleep:   time.Sleep,
	}
}

// Metrics exposes the run metrics for the ops server.
func (r *Runner) Metrics() *monitoring.Metrics {
	return r.metrics
}

// Run performs one capture and reports its summary. A non-nil error means
// the run failed and the process should exit non-zero.
func (r *Runner) Run(ctx context.Context) (*domain.RunSummary, error) {
	summary := &domain.RunSummary{StartedAt: r.Now()}
	err := r.run(ctx, summary)
	summary.FinishedAt = r.Now()
	if err != nil {
		summary.Error = err.Error()
		r.metrics.IncRuns("failed")
		return summary, err
	}
	if summary.Skipped {
		r.metrics.IncRuns("skipped")
	} else {
		r.metrics.IncRuns("ok")
	}
	return summary, nil
}

func (r *Runner) run(ctx context.Context, summary *domain.RunSummary) error {
	// Secrets come first so a misconfigured store aborts before any
	// network activity.
	user, pass, err := credentials.Login(r.creds, r.cfg.CredentialService)
	if err != nil {
		return err
	}

	store, closeStore, err := r.NewStore(ctx)
	if err != nil {
		return fmt.Errorf("connect to destination store: %w", err)
	}
	defer closeStore()

	if r.guard != nil && r.cfg.RunGuardTTL > 0 {
		recent, err := r.guard.RecentlyCaptured(ctx)
		if err != nil {
			r.logger.Warn("run guard unavailable, continuing", zap.Error(err))
		} else if recent {
			r.logger.Info("snapshot already captured within guard window, skipping run")
			summary.Skipped = true
			return nil
		}
	}

	browser, closeBrowser, err := r.NewBrowser(ctx)
	if err != nil {
		return fmt.Errorf("open browser session: %w", err)
	}
	defer closeBrowser()

	if err := browser.Login(user, pass); err != nil {
		r.captureScreenshot(browser, "login_failed")
		return err
	}

	batch, stats, err := r.scrapeBatch(ctx, browser)
	if err != nil {
		return err
	}
	summary.RowsScraped = len(batch.Records)
	summary.RowsSkipped = stats.SkippedRows
	r.metrics.RowsScraped.Add(float64(len(batch.Records)))
	r.metrics.RowsSkipped.Add(float64(stats.SkippedRows))
	r.metrics.ParseWarnings.Add(float64(stats.ParseWarnings))
	if stats.ParseWarnings > 0 {
		r.logger.Warn("some numeric cells were substituted with 0",
			zap.Int("count", stats.ParseWarnings))
	}

	if err := r.persist(ctx, store, batch, summary); err != nil {
		return err
	}

	if r.guard != nil && r.cfg.RunGuardTTL > 0 {
		ttl := time.Duration(r.cfg.RunGuardTTL) * time.Hour
		if err := r.guard.MarkCaptured(ctx, ttl); err != nil {
			r.logger.Warn("could not mark run as captured", zap.Error(err))
		}
	}

	r.logger.Info("snapshot complete",
		zap.Time("dt_snapshot", batch.DtSnapshot),
		zap.Int("rows", len(batch.Records)),
		zap.Int("inserted", summary.Inserted),
		zap.Int("failed", summary.Failed),
		zap.Int("missing_lcode", len(summary.MissingLcode)))
	return nil
}

// scrapeBatch polls until the matched table holds believable data or the
// attempt budget runs out; the final attempt's rows are used either way so
// an all-zero day still snapshots. The batch timestamp is taken once here
// and shared by every record.
func (r *Runner) scrapeBatch(ctx context.Context, browser Browser) (*domain.SnapshotBatch, scraper.ParseStats, error) {
	attempts := r.cfg.TableWaitAttempts
	if attempts < 1 {
		attempts = 1
	}
	interval := time.Duration(r.cfg.TableWaitInterval) * time.Second

	var records []domain.FollowUpRecord
	var stats scraper.ParseStats
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, stats, fmt.Errorf("%w: %v", domain.ErrNavigationTimeout, err)
		}

		docs, err := browser.FrameHTML()
		if err != nil {
			r.captureScreenshot(browser, "page_unreadable")
			return nil, stats, err
		}

		table, err := scraper.Locate(docs)
		if err != nil {
			if attempt >= attempts {
				r.captureScreenshot(browser, "no_table_found")
				return nil, stats, err
			}
			r.logger.Info("table not present yet",
				zap.Int("attempt", attempt), zap.Int("max_attempts", attempts))
			r.Sleep(interval)
			continue
		}

		records, stats = table.Rows()
		if scraper.HasRealData(records) || attempt >= attempts {
			break
		}
		r.logger.Info("table rows not populated yet",
			zap.Int("attempt", attempt), zap.Int("max_attempts", attempts),
			zap.Int("rows", len(records)))
		r.Sleep(interval)
	}

	if len(records) == 0 {
		r.captureScreenshot(browser, "empty_table")
		return nil, stats, fmt.Errorf("%w: matched table yielded no records", domain.ErrTableNotFound)
	}

	return &domain.SnapshotBatch{DtSnapshot: r.Now(), Records: records}, stats, nil
}

// persist truncates the destination once, then issues one insert per record
// in batch order. Insert failures follow the configured policy: count and
// continue by default, abort on first failure when ABORT_ON_INSERT_ERROR is
// set. A run where every insert failed is a failed run under either policy.
func (r *Runner) persist(ctx context.Context, store Store, batch *domain.SnapshotBatch, summary *domain.RunSummary) error {
	if err := store.Truncate(ctx); err != nil {
		return err
	}
	r.logger.Info("destination truncated for fresh snapshot")

	for i, rec := range batch.Records {
		res, err := store.Insert(ctx, batch.DtSnapshot, rec)
		if err != nil {
			summary.Failed++
			r.metrics.IncInserts("failed")
			r.logger.Error("insert failed",
				zap.String("location", rec.LocationName),
				zap.Time("dt_snapshot", batch.DtSnapshot),
				zap.Error(err))
			if r.cfg.AbortOnInsertError {
				return err
			}
			continue
		}
		summary.Inserted++
		r.metrics.IncInserts("ok")
		if res.Lcode == nil {
			summary.MissingLcode = append(summary.MissingLcode, rec.LocationName)
		}
		if (i+1)%50 == 0 {
			r.logger.Info("insert progress",
				zap.Int("processed", i+1), zap.Int("total", len(batch.Records)))
		}
	}

	if summary.Inserted == 0 && summary.Failed > 0 {
		return fmt.Errorf("%w: all %d inserts failed", domain.ErrPersistence, summary.Failed)
	}
	if len(summary.MissingLcode) > 0 {
		preview := summary.MissingLcode
		if len(preview) > 10 {
			preview = preview[:10]
		}
		r.logger.Warn("locations without an Lcode mapping",
			zap.Int("count", len(summary.MissingLcode)),
			zap.Strings("locations", preview))
	}
	return nil
}

// captureScreenshot writes a diagnostic image next to the fatal error being
// propagated. Best-effort only: a screenshot failure is logged and must
// never mask the original error.
func (r *Runner) captureScreenshot(browser Browser, label string) {
	png, err := browser.Screenshot()
	if err != nil {
		r.logger.Warn("diagnostic screenshot failed", zap.Error(err))
		return
	}
	name := fmt.Sprintf("%s_%s.png", label, r.Now().Format("20060102_150405"))
	path := filepath.Join(r.cfg.ScreenshotDir, name)
	if err := os.MkdirAll(r.cfg.ScreenshotDir, 0o755); err != nil {
		r.logger.Warn("could not create screenshot directory", zap.Error(err))
		return
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		r.logger.Warn("could not write diagnostic screenshot", zap.Error(err))
		return
	}
	r.logger.Info("diagnostic screenshot written", zap.String("path", path))
}
