// Package retry retries operations that fail with transient network errors.
//
// Only errors classified as network errors by pkg/errors are retried by
// default. HTTP responses with a status code are never retried here: a
// non-200 answer is a definitive result for the download pipeline.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		status, body, err = fetcher.Get(ctx, url)
//		return err
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		Logger:      log,
//	})
package retry
