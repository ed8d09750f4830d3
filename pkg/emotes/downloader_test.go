package emotes

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"emotedl/pkg/config"
	"emotedl/pkg/errors"
	"emotedl/pkg/logger"
	"emotedl/pkg/metadata"
	"emotedl/pkg/models"
	"emotedl/pkg/render"
	"emotedl/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cdn struct {
	*httptest.Server
	hits   atomic.Int32
	status map[string]int
}

func newCDN(t *testing.T, status map[string]int) *cdn {
	c := &cdn{status: status}
	c.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.hits.Add(1)
		if code, ok := c.status[r.URL.Path]; ok {
			w.WriteHeader(code)
			return
		}
		w.Write([]byte("image:" + r.URL.Path))
	}))
	t.Cleanup(c.Close)
	return c
}

type emote struct {
	name string
	id   string
}

// catalogPage renders a fully loaded catalog whose sources point at base
func catalogPage(base, displayName string, emotes []emote) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, `<div class="user"><span class="name">%s</span></div>`, displayName)
	b.WriteString(`<div class="emotes">`)
	for _, e := range emotes {
		fmt.Fprintf(&b, `<div class="emote"><span class="name">%s</span>`, e.name)
		fmt.Fprintf(&b, `<source srcset="%s/emote/%s/1x.avif 1x, %s/emote/%s/2x.avif 2x">`, base, e.id, base, e.id)
		fmt.Fprintf(&b, `<source srcset="%s/emote/%s/1x.png 1x, %s/emote/%s/2x.png 2x">`, base, e.id, base, e.id)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
	if len(emotes) == 0 {
		b.WriteString("<p>No emotes</p>")
	} else {
		b.WriteString("<p>No more emotes</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

func notFoundPage() string {
	return `<html><body><div class="user"><span class="name">?</span></div>` +
		`<div class="emotes"></div><img class="troll" src="troll.gif"></body></html>`
}

type trackingSession struct {
	*render.HTMLSession
	closed bool
}

func (s *trackingSession) Close() error {
	s.closed = true
	return nil
}

func staticSessions(t *testing.T, html string, opened *[]*trackingSession) SessionFactory {
	return func(ctx context.Context) (render.Session, error) {
		s, err := render.ParseHTML(strings.NewReader(html))
		require.NoError(t, err)
		ts := &trackingSession{HTMLSession: s}
		if opened != nil {
			*opened = append(*opened, ts)
		}
		return ts, nil
	}
}

// recordingDisplay keeps every event as a line
type recordingDisplay struct {
	mu    sync.Mutex
	lines []string
}

func (d *recordingDisplay) add(format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = append(d.lines, fmt.Sprintf(format, args...))
}

func (d *recordingDisplay) LoadingPage(userID string) { d.add("loading %s", userID) }
func (d *recordingDisplay) UserFound(name string) { d.add("found %s", name) }
func (d *recordingDisplay) EmotesLoaded(count int) { d.add("loaded %d", count) }
func (d *recordingDisplay) UserNotFound(userID string) { d.add("not found %s", userID) }
func (d *recordingDisplay) NoEmotes(userID string) { d.add("no emotes %s", userID) }
func (d *recordingDisplay) ListingFinished(count int) { d.add("finished loading %d", count) }
func (d *recordingDisplay) LogInfo(f string, a ...interface{}) {}
func (d *recordingDisplay) LogWarning(f string, a ...interface{}) {}
func (d *recordingDisplay) LogError(f string, a ...interface{}) {}

func (d *recordingDisplay) Report(o models.DownloadOutcome) {
	d.add("%s %s (%d/%d)", o.Kind, o.Asset.FileName(), o.Index, o.Total)
}

func (d *recordingDisplay) Finished(userID string, c models.Counters) {
	d.add("done %s %d", userID, c.Succeeded)
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = t.TempDir()
	cfg.Browser.PollInterval = time.Millisecond
	cfg.Download.RetryAttempts = 1
	return cfg
}

func newTestDownloader(t *testing.T, cfg *config.Config, sessions SessionFactory, display *recordingDisplay) *Downloader {
	d, err := New(Options{
		Config:   cfg,
		Sessions: sessions,
		Display:  display,
		Logger:   logger.NewTestLogger(),
		Backoff:  &retry.ConstantBackoff{Delay: time.Millisecond},
	})
	require.NoError(t, err)
	return d
}

func TestDownloadUserEndToEnd(t *testing.T) {
	server := newCDN(t, nil)
	cfg := testConfig(t)
	display := &recordingDisplay{}
	var opened []*trackingSession

	page := catalogPage(server.URL, "forsen", []emote{{"KEKW", "a1"}, {"OMEGALUL", "b2"}})
	d := newTestDownloader(t, cfg, staticSessions(t, page, &opened), display)

	summary, err := d.DownloadUser(context.Background(), " 60ae3e98 ")
	require.NoError(t, err)

	assert.Equal(t, "60ae3e98", summary.UserID)
	assert.Equal(t, "forsen", summary.DisplayName)
	assert.Equal(t, models.ListingComplete, summary.State)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, models.Counters{Attempted: 2, Succeeded: 2}, summary.Counters)
	assert.Equal(t, filepath.Join(cfg.Output.BaseDirectory, "forsen"), summary.Directory)

	// The last source wins and 1x is rewritten to 4x
	require.Len(t, summary.Assets, 2)
	assert.Equal(t, server.URL+"/emote/a1/4x.png", summary.Assets[0].DownloadURL)
	assert.Equal(t, "png", summary.Assets[0].Extension)

	data, err := os.ReadFile(filepath.Join(summary.Directory, "KEKW.png"))
	require.NoError(t, err)
	assert.Equal(t, "image:/emote/a1/4x.png", string(data))
	assert.FileExists(t, filepath.Join(summary.Directory, "OMEGALUL.png"))

	assert.Equal(t, []string{
		"loading 60ae3e98",
		"found forsen",
		"loaded 2",
		"finished loading 2",
		"succeeded KEKW.png (1/2)",
		"succeeded OMEGALUL.png (2/2)",
		"done 60ae3e98 2",
	}, display.lines)

	require.Len(t, opened, 1)
	assert.True(t, opened[0].closed)
}

func TestDownloadUserRerunSkipsEverything(t *testing.T) {
	server := newCDN(t, nil)
	cfg := testConfig(t)
	page := catalogPage(server.URL, "forsen", []emote{{"KEKW", "a1"}, {"OMEGALUL", "b2"}})

	d := newTestDownloader(t, cfg, staticSessions(t, page, nil), &recordingDisplay{})
	_, err := d.DownloadUser(context.Background(), "u")
	require.NoError(t, err)
	require.Equal(t, int32(2), server.hits.Load())

	summary, err := d.DownloadUser(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, models.Counters{Attempted: 2, Skipped: 2}, summary.Counters)
	assert.Equal(t, int32(2), server.hits.Load())
}

func TestDownloadUserFailedFetchContinues(t *testing.T) {
	server := newCDN(t, map[string]int{"/emote/a1/4x.png": http.StatusNotFound})
	cfg := testConfig(t)
	display := &recordingDisplay{}
	page := catalogPage(server.URL, "forsen", []emote{{"KEKW", "a1"}, {"OMEGALUL", "b2"}})

	d := newTestDownloader(t, cfg, staticSessions(t, page, nil), display)
	summary, err := d.DownloadUser(context.Background(), "u")
	require.NoError(t, err)

	assert.Equal(t, models.Counters{Attempted: 2, Succeeded: 1, Failed: 1}, summary.Counters)
	assert.Contains(t, display.lines, "failed KEKW.png (1/2)")
	assert.Contains(t, display.lines, "done u 1")
	assert.NoFileExists(t, filepath.Join(summary.Directory, "KEKW.png"))
}

func TestDownloadUserWritesManifest(t *testing.T) {
	server := newCDN(t, map[string]int{"/emote/a1/4x.png": http.StatusNotFound})
	cfg := testConfig(t)
	cfg.Output.SaveManifest = true
	page := catalogPage(server.URL, "forsen", []emote{{"KEKW", "a1"}, {"OMEGALUL", "b2"}})

	d := newTestDownloader(t, cfg, staticSessions(t, page, nil), &recordingDisplay{})
	summary, err := d.DownloadUser(context.Background(), "u")
	require.NoError(t, err)

	manifest, err := metadata.Load(summary.Directory)
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, manifest.RunID)
	assert.Equal(t, "forsen", manifest.DisplayName)
	assert.Equal(t, cfg.Catalog.UserURL("u"), manifest.SourceURL)
	assert.Equal(t, summary.Counters, manifest.Counters)
	require.Len(t, manifest.Emotes, 2)

	missing := manifest.Missing(summary.Directory)
	require.Len(t, missing, 1)
	assert.Equal(t, "KEKW", missing[0].Name)
}

func TestDownloadUserNotFound(t *testing.T) {
	server := newCDN(t, nil)
	cfg := testConfig(t)
	display := &recordingDisplay{}

	d := newTestDownloader(t, cfg, staticSessions(t, notFoundPage(), nil), display)
	summary, err := d.DownloadUser(context.Background(), "nobody")
	require.NoError(t, err)

	assert.Equal(t, models.ListingNotFound, summary.State)
	assert.Equal(t, models.Counters{}, summary.Counters)
	assert.Empty(t, summary.Assets)
	assert.Equal(t, "not found nobody", display.lines[len(display.lines)-1])
	assert.Equal(t, int32(0), server.hits.Load())

	entries, err := os.ReadDir(cfg.Output.BaseDirectory)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadUserEmpty(t *testing.T) {
	cfg := testConfig(t)
	display := &recordingDisplay{}

	d := newTestDownloader(t, cfg, staticSessions(t, catalogPage("http://unused", "lonely", nil), nil), display)
	summary, err := d.DownloadUser(context.Background(), "lonely")
	require.NoError(t, err)

	assert.Equal(t, models.ListingEmpty, summary.State)
	assert.Equal(t, "lonely", summary.DisplayName)
	assert.Equal(t, "no emotes lonely", display.lines[len(display.lines)-1])
	assert.NotContains(t, display.lines, "done lonely 0")
}

func TestDownloadUserBrokenMarkup(t *testing.T) {
	cfg := testConfig(t)
	d := newTestDownloader(t, cfg, staticSessions(t, "<html><body><p>maintenance</p></body></html>", nil), &recordingDisplay{})

	_, err := d.DownloadUser(context.Background(), "u")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypePageStructure, errors.TypeOf(err))
}

func TestDownloadUserMissingSource(t *testing.T) {
	cfg := testConfig(t)
	page := `<html><body><div class="user"><span class="name">forsen</span></div>` +
		`<div class="emotes"><div class="emote"><span class="name">KEKW</span></div></div>` +
		`<p>No more emotes</p></body></html>`
	d := newTestDownloader(t, cfg, staticSessions(t, page, nil), &recordingDisplay{})

	_, err := d.DownloadUser(context.Background(), "u")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypePageStructure, errors.TypeOf(err))
	assert.Contains(t, err.Error(), "entry 0")
}

func TestDownloadUserSessionFailure(t *testing.T) {
	cfg := testConfig(t)
	boom := stderrors.New("no chrome")
	d := newTestDownloader(t, cfg, func(ctx context.Context) (render.Session, error) {
		return nil, boom
	}, &recordingDisplay{})

	summary, err := d.DownloadUser(context.Background(), "u")
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, summary)
	assert.Equal(t, "u", summary.UserID)
}

func TestDownloadUserEmptyID(t *testing.T) {
	d := newTestDownloader(t, testConfig(t), staticSessions(t, notFoundPage(), nil), &recordingDisplay{})

	summary, err := d.DownloadUser(context.Background(), "   ")
	assert.Nil(t, summary)
	assert.Equal(t, errors.ErrorTypeParsing, errors.TypeOf(err))
}

func TestDownloadUserSanitizesDirectory(t *testing.T) {
	server := newCDN(t, nil)
	cfg := testConfig(t)
	page := catalogPage(server.URL, "a/b", []emote{{"KEKW", "a1"}})

	d := newTestDownloader(t, cfg, staticSessions(t, page, nil), &recordingDisplay{})
	summary, err := d.DownloadUser(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Output.BaseDirectory, "a_b"), summary.Directory)
}

func TestListUserDoesNotDownload(t *testing.T) {
	server := newCDN(t, nil)
	cfg := testConfig(t)
	page := catalogPage(server.URL, "forsen", []emote{{"KEKW", "a1"}, {"OMEGALUL", "b2"}})

	d := newTestDownloader(t, cfg, staticSessions(t, page, nil), &recordingDisplay{})
	summary, err := d.ListUser(context.Background(), "u")
	require.NoError(t, err)

	assert.Len(t, summary.Assets, 2)
	assert.Empty(t, summary.Directory)
	assert.Equal(t, int32(0), server.hits.Load())
}

func TestListSessionFromSavedPage(t *testing.T) {
	cfg := testConfig(t)
	session, err := render.ParseHTML(strings.NewReader(catalogPage("https://cdn.7tv.app", "forsen", []emote{{"KEKW", "a1"}})))
	require.NoError(t, err)

	d := newTestDownloader(t, cfg, nil, &recordingDisplay{})
	summary, err := d.ListSession(context.Background(), session, "u")
	require.NoError(t, err)

	require.Len(t, summary.Assets, 1)
	assert.Equal(t, "https://cdn.7tv.app/emote/a1/4x.png", summary.Assets[0].DownloadURL)
	assert.Equal(t, "https://7tv.app/users/u", session.URL())
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestBackoffFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Download
	cfg.RetryDelay = 250 * time.Millisecond

	exp, ok := backoffFromConfig(cfg).(*retry.ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, exp.BaseDelay)

	cfg.RetryBackoff = "constant"
	constant, ok := backoffFromConfig(cfg).(*retry.ConstantBackoff)
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, constant.NextDelay(1))
	assert.Equal(t, 250*time.Millisecond, constant.NextDelay(3))
}
