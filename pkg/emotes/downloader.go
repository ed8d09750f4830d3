package emotes

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"emotedl/internal/downloader"
	"emotedl/pkg/catalog"
	"emotedl/pkg/config"
	"emotedl/pkg/errors"
	"emotedl/pkg/extract"
	"emotedl/pkg/logger"
	"emotedl/pkg/metadata"
	"emotedl/pkg/models"
	"emotedl/pkg/render"
	"emotedl/pkg/resolver"
	"emotedl/pkg/retry"
	"emotedl/pkg/storage"
	"emotedl/pkg/ui"

	"github.com/google/uuid"
)

// SessionFactory opens the render session for one user query
type SessionFactory func(ctx context.Context) (render.Session, error)

// ChromeSessions starts a new browser per query from the browser config
func ChromeSessions(cfg config.BrowserConfig, log logger.Logger) SessionFactory {
	return func(ctx context.Context) (render.Session, error) {
		return render.NewChromeSession(ctx, cfg, log)
	}
}

// Options configures a Downloader. Only Config is required.
type Options struct {
	Config   *config.Config
	Sessions SessionFactory
	Fetcher  downloader.Fetcher
	Display  ui.Display
	Logger   logger.Logger
	Clock    catalog.Clock
	Backoff  retry.BackoffStrategy
}

// Summary describes one finished user query
type Summary struct {
	RunID       string                 `json:"run_id"`
	UserID      string                 `json:"user_id"`
	DisplayName string                 `json:"display_name"`
	State       models.ListingState    `json:"state"`
	Directory   string                 `json:"directory,omitempty"`
	Assets      []models.ResolvedAsset `json:"assets,omitempty"`
	Counters    models.Counters        `json:"counters"`
	Duration    time.Duration          `json:"duration"`
}

// Downloader runs user queries: materialize the catalog, extract the records,
// resolve them and download every asset.
type Downloader struct {
	cfg       *config.Config
	sessions  SessionFactory
	extractor *extract.Extractor
	resolver  *resolver.Resolver
	pipeline  *downloader.Pipeline
	display   ui.Display
	clock     catalog.Clock
	logger    logger.Logger
}

// New creates a Downloader
func New(opts Options) (*Downloader, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("emotes: config is required")
	}
	cfg := opts.Config

	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	display := opts.Display
	if display == nil {
		display = ui.NopDisplay{}
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = ChromeSessions(cfg.Browser, log)
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = downloader.NewHTTPFetcher(cfg.Download, log)
	}
	backoff := opts.Backoff
	if backoff == nil {
		backoff = backoffFromConfig(cfg.Download)
	}

	return &Downloader{
		cfg:       cfg,
		sessions:  sessions,
		extractor: extract.New(cfg.Catalog.Selectors),
		resolver:  resolver.New(resolver.PolicyFromConfig(cfg.Resolver)),
		pipeline: downloader.NewPipeline(fetcher, downloader.Options{
			Concurrency:   cfg.Download.ConcurrentDownloads,
			RetryAttempts: cfg.Download.RetryAttempts,
			Backoff:       backoff,
			Reporter:      display,
			Logger:        log,
		}),
		display: display,
		clock:   opts.Clock,
		logger:  log,
	}, nil
}

// backoffFromConfig picks the retry delay strategy named by retry_backoff
func backoffFromConfig(cfg config.DownloadConfig) retry.BackoffStrategy {
	if cfg.RetryBackoff == "constant" {
		return &retry.ConstantBackoff{Delay: cfg.RetryDelay}
	}
	return &retry.ExponentialBackoff{
		BaseDelay:    cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// DownloadUser downloads every emote of userID into
// <base directory>/<display name>. A missing user or an empty listing is not
// an error: the summary carries the state and zero counters.
func (d *Downloader) DownloadUser(ctx context.Context, userID string) (*Summary, error) {
	return d.run(ctx, userID, true)
}

// ListUser resolves every emote of userID without downloading anything
func (d *Downloader) ListUser(ctx context.Context, userID string) (*Summary, error) {
	return d.run(ctx, userID, false)
}

// ListSession resolves the emotes of a page already loaded in session, such
// as a saved catalog page parsed with render.ParseHTML
func (d *Downloader) ListSession(ctx context.Context, session render.Session, userID string) (*Summary, error) {
	start := time.Now()
	summary, log, err := d.begin(userID)
	if err != nil {
		return nil, err
	}
	_, err = d.collect(ctx, session, summary, log)
	summary.Duration = time.Since(start)
	return summary, err
}

func (d *Downloader) begin(userID string) (*Summary, logger.Logger, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil, errors.New(errors.ErrorTypeParsing, "user id is empty")
	}

	summary := &Summary{
		RunID:  uuid.NewString(),
		UserID: userID,
		State:  models.ListingLoading,
	}
	log := d.logger.WithFields(map[string]interface{}{
		"run_id":  summary.RunID,
		"user_id": userID,
	})
	return summary, log, nil
}

func (d *Downloader) run(ctx context.Context, userID string, download bool) (*Summary, error) {
	start := time.Now()
	summary, log, err := d.begin(userID)
	if err != nil {
		return nil, err
	}
	defer func() { summary.Duration = time.Since(start) }()

	d.display.LoadingPage(summary.UserID)

	session, err := d.sessions(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to open render session")
		return summary, fmt.Errorf("opening render session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close render session")
		}
	}()

	ok, err := d.collect(ctx, session, summary, log)
	if err != nil || !ok || !download {
		return summary, err
	}

	summary.Directory = filepath.Join(d.cfg.Output.BaseDirectory, storage.SanitizeName(summary.DisplayName))
	log = log.WithField("directory", summary.Directory)
	log.InfoWithFields("Starting downloads", map[string]interface{}{
		"assets": len(summary.Assets),
	})
	if prev, err := metadata.Load(summary.Directory); err == nil {
		log.InfoWithFields("Found manifest of an earlier run", map[string]interface{}{
			"previous_run_id": prev.RunID,
			"missing":         len(prev.Missing(summary.Directory)),
		})
	}

	counters, err := d.pipeline.DownloadAll(ctx, summary.Assets, summary.Directory)
	summary.Counters = counters
	logger.LogDownloadSummary(log, summary.UserID, counters.Attempted, counters.Succeeded, counters.Skipped, counters.Failed)
	if err != nil {
		log.WithError(err).Error("Download aborted")
		return summary, fmt.Errorf("downloading emotes of %s: %w", summary.UserID, err)
	}

	if d.cfg.Output.SaveManifest {
		manifest := metadata.New(summary.RunID, summary.UserID, summary.DisplayName,
			d.cfg.Catalog.UserURL(summary.UserID), summary.Assets, counters)
		if err := manifest.Save(summary.Directory); err != nil {
			log.WithError(err).Warn("Failed to save manifest")
		}
	}

	d.display.Finished(summary.UserID, counters)
	return summary, nil
}

// collect materializes the listing and resolves every entry. It reports
// false when the listing ended without entries to download.
func (d *Downloader) collect(ctx context.Context, session render.Session, summary *Summary, log logger.Logger) (bool, error) {
	materializer := catalog.New(catalog.Options{
		Catalog:       d.cfg.Catalog,
		PollInterval:  d.cfg.Browser.PollInterval,
		Clock:         d.clock,
		Logger:        log,
		OnDisplayName: d.display.UserFound,
		OnProgress: func(p catalog.Progress) {
			d.display.EmotesLoaded(p.LoadedCount)
		},
	})

	page, err := materializer.Materialize(ctx, session, summary.UserID)
	if err != nil {
		log.WithError(err).Error("Failed to load catalog")
		return false, fmt.Errorf("loading catalog of %s: %w", summary.UserID, err)
	}
	summary.DisplayName = page.DisplayName
	summary.State = page.State

	switch page.State {
	case models.ListingNotFound:
		d.display.UserNotFound(summary.UserID)
		return false, nil
	case models.ListingEmpty:
		d.display.NoEmotes(summary.UserID)
		return false, nil
	}
	d.display.ListingFinished(page.LoadedCount)

	records, err := d.extractor.Extract(ctx, page.Entries)
	if err != nil {
		log.WithError(err).Error("Failed to extract emotes")
		return false, fmt.Errorf("extracting emotes of %s: %w", summary.UserID, err)
	}

	assets, err := d.resolver.ResolveAll(records)
	if err != nil {
		log.WithError(err).Error("Failed to resolve emotes")
		return false, fmt.Errorf("resolving emotes of %s: %w", summary.UserID, err)
	}
	summary.Assets = assets
	return true, nil
}
