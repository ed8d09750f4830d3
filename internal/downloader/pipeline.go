package downloader

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"emotedl/pkg/errors"
	"emotedl/pkg/logger"
	"emotedl/pkg/models"
	"emotedl/pkg/retry"
	"emotedl/pkg/storage"

	"golang.org/x/sync/errgroup"
)

// Store is the filesystem side of the pipeline
type Store interface {
	Lock(fileName string) func()
	Exists(fileName string) bool
	Save(r io.Reader, fileName string) (int64, error)
}

// savedCounter is implemented by stores that count their own writes
type savedCounter interface {
	GetOutputDir() string
	SavedCount() int
}

// Reporter receives every outcome as soon as it is known
type Reporter interface {
	Report(o models.DownloadOutcome)
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(models.DownloadOutcome)

func (f ReporterFunc) Report(o models.DownloadOutcome) { f(o) }

// Options configures a Pipeline
type Options struct {
	// Concurrency bounds parallel downloads; 1 keeps listing order
	Concurrency   int
	RetryAttempts int
	Backoff       retry.BackoffStrategy
	Reporter      Reporter
	Logger        logger.Logger
	// NewStore opens the destination directory; defaults to storage.NewManager
	NewStore func(dir string) (Store, error)
}

// Pipeline downloads resolved assets into a directory, skipping files that exist
type Pipeline struct {
	fetcher     Fetcher
	concurrency int
	retryCfg    retry.Config
	reporter    Reporter
	newStore    func(dir string) (Store, error)
	logger      logger.Logger
}

// NewPipeline creates a Pipeline
func NewPipeline(fetcher Fetcher, opts Options) *Pipeline {
	p := &Pipeline{
		fetcher:     fetcher,
		concurrency: opts.Concurrency,
		reporter:    opts.Reporter,
		newStore:    opts.NewStore,
		logger:      opts.Logger,
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	if p.logger == nil {
		p.logger = logger.GetLogger()
	}
	p.logger = p.logger.WithField("component", "downloader")
	if p.reporter == nil {
		p.reporter = ReporterFunc(func(models.DownloadOutcome) {})
	}
	if p.newStore == nil {
		p.newStore = func(dir string) (Store, error) {
			m, err := storage.NewManager(dir)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}

	backoff := opts.Backoff
	if backoff == nil {
		backoff = retry.DefaultExponentialBackoff()
	}
	p.retryCfg = retry.Config{
		MaxAttempts: opts.RetryAttempts,
		Backoff:     backoff,
		RetryIf:     retry.DefaultRetryIf,
		Logger:      p.logger,
	}
	return p
}

// DownloadAll fetches every asset into destDir. Failed fetches are counted and
// the batch continues; a write error stops the batch and is returned together
// with the counters accumulated so far.
func (p *Pipeline) DownloadAll(ctx context.Context, assets []models.ResolvedAsset, destDir string) (models.Counters, error) {
	store, err := p.newStore(destDir)
	if err != nil {
		return models.Counters{}, err
	}

	logger.LogComponentStart(p.logger, "downloader", map[string]interface{}{
		"dest_dir":    destDir,
		"assets":      len(assets),
		"concurrency": p.concurrency,
	})
	start := time.Now()

	var mu sync.Mutex
	outcomes := make([]models.DownloadOutcome, 0, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, asset := range assets {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcome, err := p.downloadOne(gctx, store, asset, i+1, len(assets))
			if err != nil {
				return err
			}

			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			p.reporter.Report(outcome)
			return nil
		})
	}

	err = g.Wait()
	counters := models.Fold(outcomes)
	p.checkSaved(store, counters)

	if err == nil {
		err = ctx.Err()
	}
	reason := "completed"
	if err != nil {
		reason = err.Error()
	}
	logger.LogComponentStop(p.logger.WithField("duration", time.Since(start)), "downloader", reason)
	return counters, err
}

// checkSaved warns when the store wrote a different number of files than
// the outcomes claim succeeded
func (p *Pipeline) checkSaved(store Store, counters models.Counters) {
	sc, ok := store.(savedCounter)
	if !ok || sc.SavedCount() == counters.Succeeded {
		return
	}
	p.logger.WarnWithFields("Saved file count does not match succeeded downloads", map[string]interface{}{
		"dest_dir":  sc.GetOutputDir(),
		"saved":     sc.SavedCount(),
		"succeeded": counters.Succeeded,
	})
}

func (p *Pipeline) downloadOne(ctx context.Context, store Store, asset models.ResolvedAsset, index, total int) (models.DownloadOutcome, error) {
	if err := ctx.Err(); err != nil {
		return models.DownloadOutcome{}, err
	}

	outcome := models.DownloadOutcome{Asset: asset, Index: index, Total: total}
	fileName := asset.FileName()
	log := p.logger.WithFields(map[string]interface{}{
		"name": asset.Name,
		"url":  asset.DownloadURL,
	})

	// Check and write form one critical section per file name
	unlock := store.Lock(fileName)
	defer unlock()

	if store.Exists(fileName) {
		outcome.Kind = models.OutcomeSkipped
		log.Debug("Already exists, skipping")
		return outcome, nil
	}

	var status int
	var body []byte
	err := retry.Do(ctx, func(ctx context.Context) error {
		var err error
		status, body, err = p.fetcher.Get(ctx, asset.DownloadURL)
		return err
	}, &p.retryCfg)
	if err != nil {
		if ctx.Err() != nil {
			return models.DownloadOutcome{}, ctx.Err()
		}
		outcome.Kind = models.OutcomeFailed
		outcome.Err = err
		log.WithError(err).Warn("Transport failure")
		return outcome, nil
	}

	if status != 200 {
		outcome.Kind = models.OutcomeFailed
		outcome.StatusCode = status
		outcome.Err = errors.Fetch(status, asset.DownloadURL)
		log.WithField("status", status).Warn("Download failed")
		return outcome, nil
	}

	n, err := store.Save(bytes.NewReader(body), fileName)
	if err != nil {
		log.WithError(err).Error("Write failed")
		return models.DownloadOutcome{}, err
	}

	outcome.Kind = models.OutcomeSucceeded
	outcome.StatusCode = status
	outcome.Size = int(n)
	log.WithField("size", outcome.Size).Debug("Downloaded")
	return outcome, nil
}
