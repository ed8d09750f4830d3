// Package catalog drives a lazily rendered user catalog page until every entry
// is loaded and classifies how the listing ended.
//
// The page renders entries in batches as the last entry scrolls into view, so
// the materializer waits for the page shell, then polls the entry count,
// scrolls to the newest last entry whenever the count changes, and stops only
// when the page renders one of its terminal markers or the NotFound marker.
// There is no iteration bound; cancellation comes from the context.
package catalog

import (
	"context"
	"fmt"
	"time"

	"emotedl/pkg/config"
	"emotedl/pkg/logger"
	"emotedl/pkg/models"
	"emotedl/pkg/render"
)

// ListingPage is the materialized state of one user's catalog
type ListingPage struct {
	UserID      string
	DisplayName string
	LoadedCount int
	State       models.ListingState
	Entries     []render.Element
	Scrolls     int
}

// Progress is reported every time the loaded entry count changes
type Progress struct {
	UserID      string
	DisplayName string
	LoadedCount int
	Scrolls     int
}

// Clock sleeps between polls
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Options configures a Materializer
type Options struct {
	Catalog      config.CatalogConfig
	PollInterval time.Duration
	Clock        Clock
	Logger       logger.Logger
	// OnDisplayName is called once the user's display name is known
	OnDisplayName func(name string)
	// OnProgress is called on every change of the loaded count
	OnProgress func(Progress)
}

// Materializer forces a catalog page to full materialization
type Materializer struct {
	catalog       config.CatalogConfig
	pollInterval  time.Duration
	clock         Clock
	logger        logger.Logger
	onDisplayName func(string)
	onProgress    func(Progress)
}

// New creates a Materializer
func New(opts Options) *Materializer {
	m := &Materializer{
		catalog:       opts.Catalog,
		pollInterval:  opts.PollInterval,
		clock:         opts.Clock,
		logger:        opts.Logger,
		onDisplayName: opts.OnDisplayName,
		onProgress:    opts.OnProgress,
	}
	if m.clock == nil {
		m.clock = realClock{}
	}
	if m.logger == nil {
		m.logger = logger.GetLogger()
	}
	m.logger = m.logger.WithField("component", "materializer")
	return m
}

// phase is where a materialization run stands in the page lifecycle. The
// terminal classification itself lives in ListingPage.State.
type phase int

const (
	awaitingShell phase = iota
	scrolling
	finished
)

func (p phase) String() string {
	switch p {
	case awaitingShell:
		return "awaiting_shell"
	case scrolling:
		return "scrolling"
	default:
		return "finished"
	}
}

// run is the state of one Materialize call
type run struct {
	session  render.Session
	page     *ListingPage
	log      logger.Logger
	phase    phase
	previous int
}

func (r *run) enter(p phase) {
	r.log.WithFields(map[string]interface{}{
		"from": r.phase.String(),
		"to":   p.String(),
	}).Debug("Materializer phase change")
	r.phase = p
}

// Materialize loads the whole catalog of userID into session. A missing user
// is reported as a NotFound page with no error.
func (m *Materializer) Materialize(ctx context.Context, session render.Session, userID string) (*ListingPage, error) {
	r := &run{
		session:  session,
		page:     &ListingPage{UserID: userID, State: models.ListingLoading},
		log:      m.logger.WithField("user_id", userID),
		phase:    awaitingShell,
		previous: -1,
	}

	url := m.catalog.UserURL(userID)
	r.log.WithField("url", url).Info("Opening catalog page")
	if err := session.Navigate(ctx, url); err != nil {
		return nil, err
	}

	for r.phase != finished {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var err error
		switch r.phase {
		case awaitingShell:
			err = m.awaitShell(ctx, r)
		case scrolling:
			err = m.poll(ctx, r)
		}
		if err != nil {
			return nil, err
		}
	}

	page := r.page
	if page.State == models.ListingNotFound {
		return page, nil
	}

	// Final authoritative snapshot
	entries, err := session.Query(ctx, render.Query{Selector: m.catalog.Selectors.Entry})
	if err != nil {
		return nil, err
	}
	page.Entries = entries
	page.LoadedCount = len(entries)

	r.log.WithFields(map[string]interface{}{
		"state":   string(page.State),
		"entries": page.LoadedCount,
		"scrolls": page.Scrolls,
	}).Info("Catalog materialized")
	return page, nil
}

// awaitShell waits for the listing container and the display name. The
// container only means the shell rendered, not that entries loaded.
func (m *Materializer) awaitShell(ctx context.Context, r *run) error {
	sel := m.catalog.Selectors

	if _, err := r.session.Query(ctx, render.Query{Selector: sel.Container, Wait: render.Blocking}); err != nil {
		return fmt.Errorf("waiting for catalog shell: %w", err)
	}

	names, err := r.session.Query(ctx, render.Query{
		Selector:     sel.DisplayName,
		Wait:         render.Blocking,
		NonEmptyText: true,
		VisibleOnly:  true,
	})
	if err != nil {
		return fmt.Errorf("waiting for display name: %w", err)
	}
	if r.page.DisplayName, err = names[0].Text(ctx); err != nil {
		return err
	}
	r.log = r.log.WithField("display_name", r.page.DisplayName)
	if m.onDisplayName != nil {
		m.onDisplayName(r.page.DisplayName)
	}

	r.enter(scrolling)
	return nil
}

// poll runs one iteration of the scroll loop: classify NotFound, scroll on a
// count change, stop on a terminal marker, otherwise sleep
func (m *Materializer) poll(ctx context.Context, r *run) error {
	sel := m.catalog.Selectors
	page := r.page

	missing, err := r.session.Query(ctx, render.Query{Selector: sel.NotFound})
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		r.log.Info("User not found")
		page.State = models.ListingNotFound
		page.LoadedCount = 0
		page.Entries = nil
		r.enter(finished)
		return nil
	}

	entries, err := r.session.Query(ctx, render.Query{Selector: sel.Entry})
	if err != nil {
		return err
	}
	if count := len(entries); count != r.previous {
		r.previous = count
		page.LoadedCount = count
		if count > 0 {
			if err := r.session.ScrollTo(ctx, entries[count-1]); err != nil {
				return fmt.Errorf("scrolling to entry %d: %w", count-1, err)
			}
			page.Scrolls++
		}
		logger.LogMaterializeProgress(r.log, page.UserID, count, page.Scrolls)
		if m.onProgress != nil {
			m.onProgress(Progress{
				UserID:      page.UserID,
				DisplayName: page.DisplayName,
				LoadedCount: count,
				Scrolls:     page.Scrolls,
			})
		}
	}

	state, err := m.terminalState(ctx, r.session)
	if err != nil {
		return err
	}
	if state.IsTerminal() {
		page.State = state
		r.enter(finished)
		return nil
	}

	return m.clock.Sleep(ctx, m.pollInterval)
}

// terminalState looks for the paragraph the page renders once loading stops
func (m *Materializer) terminalState(ctx context.Context, session render.Session) (models.ListingState, error) {
	markers, err := session.Query(ctx, render.Query{
		Selector:    m.catalog.Selectors.Terminal,
		Texts:       []string{m.catalog.NoMoreText, m.catalog.NoEntriesText},
		VisibleOnly: true,
	})
	if err != nil || len(markers) == 0 {
		return models.ListingLoading, err
	}

	text, err := markers[0].Text(ctx)
	if err != nil {
		return models.ListingLoading, err
	}
	if text == m.catalog.NoEntriesText {
		return models.ListingEmpty, nil
	}
	return models.ListingComplete, nil
}
