package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"emotedl/pkg/config"
	"emotedl/pkg/errors"
	"emotedl/pkg/logger"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
)

// ChromeSession renders pages in a headless Chrome driven over the DevTools protocol
type ChromeSession struct {
	ctx          context.Context
	cancel       context.CancelFunc
	waitTimeout  time.Duration
	pollInterval time.Duration
	logger       logger.Logger
}

// BuildAllocatorOptions creates exec allocator options from the browser config
func BuildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
	)

	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// NewChromeSession starts a browser (or attaches to a remote one) and opens a tab.
// The browser lives until Close is called.
func NewChromeSession(ctx context.Context, cfg config.BrowserConfig, log logger.Logger) (*ChromeSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "chrome")

	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(context.Background(), BuildAllocatorOptions(cfg)...)
	}

	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			log.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			log.Warn(fmt.Sprintf(format, args...))
		}),
	)

	s := &ChromeSession{
		ctx: tabCtx,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
		waitTimeout:  cfg.WaitTimeout,
		pollInterval: cfg.PollInterval,
		logger:       log,
	}
	if s.pollInterval <= 0 {
		s.pollInterval = 250 * time.Millisecond
	}

	// The first Run allocates the browser; its context must be tabCtx itself or
	// the browser would die with the caller's context.
	if err := chromedp.Run(tabCtx); err != nil {
		s.cancel()
		return nil, errors.Wrap(errors.ErrorTypeNetwork, err, "failed to start browser")
	}

	logger.LogComponentStart(log, "chrome", map[string]interface{}{
		"headless": cfg.Headless,
		"remote":   cfg.RemoteURL != "",
	})
	return s, nil
}

// run executes actions on the tab, aborting early if ctx is cancelled
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	s.logger.WithField("url", url).Debug("Navigating")
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return errors.Wrap(errors.ErrorTypeNetwork, err, "navigate to "+url)
	}
	return nil
}

func (s *ChromeSession) Query(ctx context.Context, q Query) ([]Element, error) {
	if q.Wait == NonBlocking {
		return s.queryOnce(ctx, q, nil)
	}

	deadline := time.Now().Add(s.waitTimeout)
	for {
		elems, err := s.queryOnce(ctx, q, nil)
		if err != nil {
			return nil, err
		}
		if len(elems) > 0 {
			return elems, nil
		}
		if time.Now().After(deadline) {
			return nil, errors.PageStructure(q.Selector,
				fmt.Errorf("no match within %s", s.waitTimeout))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

func (s *ChromeSession) queryOnce(ctx context.Context, q Query, from *cdp.Node) ([]Element, error) {
	nodes, err := s.nodes(ctx, q.Selector, from)
	if err != nil {
		return nil, err
	}

	elems := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elems = append(elems, &chromeElement{session: s, node: n})
	}
	return filter(ctx, elems, q)
}

func (s *ChromeSession) nodes(ctx context.Context, selector string, from *cdp.Node) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if from != nil {
		opts = append(opts, chromedp.FromNode(from))
	}

	if err := s.run(ctx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, err, "query "+selector)
	}
	return nodes, nil
}

func (s *ChromeSession) ScrollTo(ctx context.Context, el Element) error {
	ce, ok := el.(*chromeElement)
	if !ok {
		return fmt.Errorf("cannot scroll to %T", el)
	}

	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return dom.ScrollIntoViewIfNeeded().WithNodeID(ce.node.NodeID).Do(ctx)
	}))
	if err != nil {
		return errors.Wrap(errors.ErrorTypeNetwork, err, "scroll")
	}
	return nil
}

// Close shuts the tab and the browser down
func (s *ChromeSession) Close() error {
	s.cancel()
	logger.LogComponentStop(s.logger, "chrome", "closed")
	return nil
}

type chromeElement struct {
	session *ChromeSession
	node    *cdp.Node
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.session.run(ctx, chromedp.JavascriptAttribute(
		[]cdp.NodeID{e.node.NodeID}, "innerText", &text, chromedp.ByNodeID))
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeNetwork, err, "read text")
	}
	return strings.TrimSpace(text), nil
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var attrs []string
	err := e.session.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		attrs, err = dom.GetAttributes(e.node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", false, errors.Wrap(errors.ErrorTypeNetwork, err, "read attribute "+name)
	}

	// Attributes come back as a flat name, value list
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == name {
			return attrs[i+1], true, nil
		}
	}
	return "", false, nil
}

func (e *chromeElement) Find(ctx context.Context, selector string) ([]Element, error) {
	return e.session.queryOnce(ctx, Query{Selector: selector}, e.node)
}

func (e *chromeElement) visible(ctx context.Context) (bool, error) {
	err := e.session.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		// Nodes without a layout box are not rendered
		return false, nil
	}
	return true, nil
}
