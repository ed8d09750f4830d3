package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"emotedl/pkg/config"
	"emotedl/pkg/errors"
	"emotedl/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDownloadConfig() config.DownloadConfig {
	cfg := config.DefaultConfig().Download
	cfg.DownloadTimeout = 5 * time.Second
	cfg.UserAgent = "emotedl-test"
	return cfg
}

func TestHTTPFetcherGet(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("emote bytes"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(testDownloadConfig(), logger.NewTestLogger())

	status, body, err := f.Get(context.Background(), server.URL+"/a_4x.png")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "emote bytes", string(body))
	assert.Equal(t, "emotedl-test", gotUA)

	status, body, err = f.Get(context.Background(), server.URL+"/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Nil(t, body)
}

func TestHTTPFetcherTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	tl := logger.NewTestLogger()
	f := NewHTTPFetcher(testDownloadConfig(), tl)

	status, _, err := f.Get(context.Background(), url+"/a.png")
	require.Error(t, err)
	assert.Zero(t, status)
	assert.Equal(t, errors.ErrorTypeNetwork, errors.TypeOf(err))
	assert.True(t, tl.HasError())
}

func TestHTTPFetcherInvalidURL(t *testing.T) {
	f := NewHTTPFetcher(testDownloadConfig(), logger.NewNopLogger())

	_, _, err := f.Get(context.Background(), "://nope")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeParsing, errors.TypeOf(err))
}

func TestHTTPFetcherTruncatedErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("short"))
	}))
	defer server.Close()

	tl := logger.NewTestLogger()
	f := NewHTTPFetcher(testDownloadConfig(), tl)

	status, body, err := f.Get(context.Background(), server.URL+"/gone.png")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Nil(t, body)
	assert.True(t, tl.HasMessage("Failed to drain response body"))
	assert.False(t, tl.HasError())
}
