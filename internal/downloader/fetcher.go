package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"emotedl/pkg/config"
	"emotedl/pkg/errors"
	"emotedl/pkg/logger"
)

// Fetcher retrieves one asset. A non-200 answer is returned as a status with
// no error; err is set only when no status was obtained or the body could not
// be read.
type Fetcher interface {
	Get(ctx context.Context, url string) (status int, body []byte, err error)
}

// HTTPFetcher fetches assets over plain HTTP GET
type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
	logger     logger.Logger
}

// NewHTTPFetcher creates a fetcher with the configured timeout and User-Agent
func NewHTTPFetcher(cfg config.DownloadConfig, log logger.Logger) *HTTPFetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: cfg.DownloadTimeout},
		userAgent:  cfg.UserAgent,
		logger:     log.WithField("component", "fetcher"),
	}
}

func (f *HTTPFetcher) Get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, errors.Wrap(errors.ErrorTypeParsing, err, "invalid url "+url)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return 0, nil, errors.Wrap(errors.ErrorTypeNetwork, err, fmt.Sprintf("GET %s", url))
	}
	defer resp.Body.Close()

	logger.LogRequest(f.logger, req.Method, url, resp.StatusCode, float64(time.Since(start).Microseconds())/1000)

	if resp.StatusCode != http.StatusOK {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			f.logger.WithError(err).DebugWithFields("Failed to drain response body", map[string]interface{}{
				"url":    url,
				"status": resp.StatusCode,
			})
		}
		return resp.StatusCode, nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(errors.ErrorTypeNetwork, err, fmt.Sprintf("read body of %s", url))
	}
	return resp.StatusCode, body, nil
}
