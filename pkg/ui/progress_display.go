package ui

import (
	"fmt"
	"io"
	"sync"

	"emotedl/pkg/models"
)

// ProgressDisplay prints one line per event, in the classic downloader format:
//
//	Found user: forsen
//	Loaded 24 emotes...
//	Downloaded: KEKW https://cdn.7tv.app/emote/01/4x.webp (1/24)
type ProgressDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	tracker *StatusTracker
	quiet   bool
	verbose bool
}

// NewProgressDisplay creates a display writing to out, or to the package
// output when out is nil. Quiet mode is read once at construction.
func NewProgressDisplay(out io.Writer, verbose bool) *ProgressDisplay {
	if out == nil {
		out = Output()
	}
	return &ProgressDisplay{
		out:     out,
		tracker: NewStatusTracker(),
		quiet:   IsQuietMode(),
		verbose: verbose,
	}
}

// Tracker exposes the running totals
func (p *ProgressDisplay) Tracker() *StatusTracker { return p.tracker }

func (p *ProgressDisplay) line(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *ProgressDisplay) info(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.line(format, args...)
}

func (p *ProgressDisplay) LoadingPage(userID string) {
	p.tracker.Reset()
	p.info("Loading page...")
}

func (p *ProgressDisplay) UserFound(displayName string) {
	p.info("Found user: %s", Cyan(displayName))
	p.info("Loading emotes...")
}

// EmotesLoaded reports a new entry count; an empty first poll prints nothing
func (p *ProgressDisplay) EmotesLoaded(count int) {
	if count == 0 {
		return
	}
	p.info("Loaded %d emotes...", count)
}

func (p *ProgressDisplay) UserNotFound(userID string) {
	p.line("%s", Yellow("User was not found. Exiting..."))
}

func (p *ProgressDisplay) NoEmotes(userID string) {
	p.line("%s", Yellow("User has no emotes. Exiting..."))
}

func (p *ProgressDisplay) ListingFinished(count int) {
	p.info("Finished loading %d emotes.", count)
}

// Report prints the line for one asset. Failures print even in quiet mode.
func (p *ProgressDisplay) Report(o models.DownloadOutcome) {
	p.tracker.Record(o)

	switch o.Kind {
	case models.OutcomeSkipped:
		p.info("%s already exists - skipping. (%d/%d)", Dim(o.Asset.FileName()), o.Index, o.Total)
	case models.OutcomeSucceeded:
		p.info("%s %s %s (%d/%d)", Green("Downloaded:"), o.Asset.Name, o.Asset.DownloadURL, o.Index, o.Total)
	case models.OutcomeFailed:
		reason := fmt.Sprint(o.StatusCode)
		if o.StatusCode == 0 && o.Err != nil {
			reason = o.Err.Error()
		}
		p.line("%s while downloading: %s %s (%d/%d)",
			Red(fmt.Sprintf("Failed! (Error: %s)", reason)), o.Asset.Name, o.Asset.DownloadURL, o.Index, o.Total)
	}
}

// Finished prints the summary for one user
func (p *ProgressDisplay) Finished(userID string, c models.Counters) {
	p.line("%s", Green(fmt.Sprintf("Successfully downloaded %d emotes.", c.Succeeded)))

	if !p.verbose {
		return
	}
	p.line("  %s %s in %s (%.1f emotes/min)",
		Dim("•"),
		FormatBytes(p.tracker.Bytes()),
		FormatDuration(p.tracker.GetElapsedTime()),
		p.tracker.GetDownloadRate(),
	)
	if c.Skipped > 0 {
		p.line("  %s %d already present", Dim("•"), c.Skipped)
	}
	if c.Failed > 0 {
		p.line("  %s %d downloads failed", Dim("•"), c.Failed)
	}
}

func (p *ProgressDisplay) LogInfo(format string, args ...interface{}) {
	p.info(format, args...)
}

func (p *ProgressDisplay) LogWarning(format string, args ...interface{}) {
	p.info("%s", Yellow(fmt.Sprintf(format, args...)))
}

func (p *ProgressDisplay) LogError(format string, args ...interface{}) {
	p.line("%s", Red(fmt.Sprintf(format, args...)))
}
