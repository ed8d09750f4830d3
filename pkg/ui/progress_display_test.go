package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"emotedl/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plain(t *testing.T) {
	t.Helper()
	SetColorEnabled(false)
	t.Cleanup(func() { SetColorEnabled(true) })
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestProgressDisplayListingLines(t *testing.T) {
	plain(t)
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, false)

	p.LoadingPage("01ABC")
	p.UserFound("forsen")
	p.EmotesLoaded(0)
	p.EmotesLoaded(12)
	p.EmotesLoaded(24)
	p.ListingFinished(24)

	assert.Equal(t, []string{
		"Loading page...",
		"Found user: forsen",
		"Loading emotes...",
		"Loaded 12 emotes...",
		"Loaded 24 emotes...",
		"Finished loading 24 emotes.",
	}, lines(&buf))
}

func TestProgressDisplayTerminalStates(t *testing.T) {
	plain(t)
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, false)

	p.UserNotFound("nobody")
	p.NoEmotes("empty")

	assert.Equal(t, []string{
		"User was not found. Exiting...",
		"User has no emotes. Exiting...",
	}, lines(&buf))
}

func TestProgressDisplayReport(t *testing.T) {
	plain(t)
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, false)

	asset := models.ResolvedAsset{Name: "KEKW", DownloadURL: "https://cdn.7tv.app/emote/1/4x.webp", Extension: "ebp"}
	p.Report(models.DownloadOutcome{Kind: models.OutcomeSucceeded, Asset: asset, Index: 1, Total: 3, StatusCode: 200, Size: 2048})
	p.Report(models.DownloadOutcome{Kind: models.OutcomeSkipped, Asset: asset, Index: 2, Total: 3})
	p.Report(models.DownloadOutcome{Kind: models.OutcomeFailed, Asset: asset, Index: 3, Total: 3, StatusCode: 404})
	p.Finished("01ABC", p.Tracker().Counters())

	assert.Equal(t, []string{
		"Downloaded: KEKW https://cdn.7tv.app/emote/1/4x.webp (1/3)",
		"KEKW.ebp already exists - skipping. (2/3)",
		"Failed! (Error: 404) while downloading: KEKW https://cdn.7tv.app/emote/1/4x.webp (3/3)",
		"Successfully downloaded 1 emotes.",
	}, lines(&buf))

	c := p.Tracker().Counters()
	assert.Equal(t, models.Counters{Attempted: 3, Succeeded: 1, Skipped: 1, Failed: 1}, c)
	assert.Equal(t, int64(2048), p.Tracker().Bytes())
}

func TestProgressDisplayTransportFailureUsesError(t *testing.T) {
	plain(t)
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, false)

	p.Report(models.DownloadOutcome{
		Kind:  models.OutcomeFailed,
		Asset: models.ResolvedAsset{Name: "a", DownloadURL: "u"},
		Index: 1, Total: 1,
		Err: errors.New("connection refused"),
	})

	assert.Equal(t, "Failed! (Error: connection refused) while downloading: a u (1/1)\n", buf.String())
}

func TestProgressDisplayQuiet(t *testing.T) {
	plain(t)
	SetQuietMode(true)
	t.Cleanup(func() { SetQuietMode(false) })

	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, false)

	asset := models.ResolvedAsset{Name: "a", DownloadURL: "u", Extension: "png"}
	p.LoadingPage("x")
	p.UserFound("x")
	p.EmotesLoaded(5)
	p.Report(models.DownloadOutcome{Kind: models.OutcomeSucceeded, Asset: asset, Index: 1, Total: 2})
	p.Report(models.DownloadOutcome{Kind: models.OutcomeFailed, Asset: asset, Index: 2, Total: 2, StatusCode: 500})
	p.Finished("x", models.Counters{Attempted: 2, Succeeded: 1, Failed: 1})

	assert.Equal(t, []string{
		"Failed! (Error: 500) while downloading: a u (2/2)",
		"Successfully downloaded 1 emotes.",
	}, lines(&buf))
}

func TestProgressDisplayVerboseSummary(t *testing.T) {
	plain(t)
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, true)

	p.Finished("x", models.Counters{Attempted: 5, Succeeded: 2, Skipped: 2, Failed: 1})

	out := lines(&buf)
	require.Len(t, out, 4)
	assert.Equal(t, "Successfully downloaded 2 emotes.", out[0])
	assert.Contains(t, out[2], "2 already present")
	assert.Contains(t, out[3], "1 downloads failed")
}

func TestPrintHelpersUseOutput(t *testing.T) {
	plain(t)
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })

	PrintInfo("Target", "forsen")
	PrintError("Failed to load configuration", "bad yaml")
	PrintSuccess("done")
	PrintPlain("goodbye :3")

	assert.Equal(t, []string{
		"Target: forsen",
		"Failed to load configuration: bad yaml",
		"done",
		"goodbye :3",
	}, lines(&buf))
}

func TestColorize(t *testing.T) {
	assert.Equal(t, "\033[31mx\033[0m", Red("x"))

	SetColorEnabled(false)
	defer SetColorEnabled(true)
	assert.Equal(t, "x", Red("x"))
}

func TestStatusTrackerProgress(t *testing.T) {
	st := NewStatusTracker()
	assert.Equal(t, "["+strings.Repeat(ProgressEmpty, 20)+"] 0/0", st.GetProgress())

	st.Record(models.DownloadOutcome{Kind: models.OutcomeSucceeded, Index: 1, Total: 4})
	st.Record(models.DownloadOutcome{Kind: models.OutcomeSkipped, Index: 2, Total: 4})
	assert.Equal(t, "["+strings.Repeat(ProgressBar, 10)+strings.Repeat(ProgressEmpty, 10)+"] 2/4", st.GetProgress())

	st.Reset()
	assert.Equal(t, models.Counters{}, st.Counters())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "45s", FormatDuration(45e9))
	assert.Equal(t, "2m5s", FormatDuration(125e9))
}

type recordingSender struct {
	title, message string
}

func (r *recordingSender) Send(title, message string) error {
	r.title, r.message = title, message
	return nil
}

func TestNotifierFinished(t *testing.T) {
	rec := &recordingSender{}
	n := NewNotifierWithSender(rec)

	require.NoError(t, n.NotifyFinished("forsen", 10, 2))
	assert.Equal(t, "emotedl: forsen", rec.title)
	assert.Equal(t, "Downloaded 10 emotes, 2 failed", rec.message)

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.Notify("a", "b"))
}
