package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"emotedl/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// HTMLSession serves queries from a static document, such as a catalog page
// saved from a browser. The document never changes, so blocking queries fail
// immediately when nothing matches.
type HTMLSession struct {
	doc *goquery.Document
	url string
}

// NewHTMLSession wraps an already parsed document
func NewHTMLSession(doc *goquery.Document) *HTMLSession {
	return &HTMLSession{doc: doc}
}

// ParseHTML reads a document and wraps it in a session
func ParseHTML(r io.Reader) (*HTMLSession, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeParsing, err, "failed to parse HTML")
	}
	return NewHTMLSession(doc), nil
}

// Navigate only records the URL
func (s *HTMLSession) Navigate(ctx context.Context, url string) error {
	s.url = url
	return ctx.Err()
}

// URL returns the last navigated URL
func (s *HTMLSession) URL() string {
	return s.url
}

func (s *HTMLSession) Query(ctx context.Context, q Query) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	elems, err := filter(ctx, wrapSelection(s.doc.Find(q.Selector)), q)
	if err != nil {
		return nil, err
	}
	if q.Wait == Blocking && len(elems) == 0 {
		return nil, errors.PageStructure(q.Selector, nil)
	}
	return elems, nil
}

// ScrollTo is a no-op on a static document
func (s *HTMLSession) ScrollTo(ctx context.Context, el Element) error {
	if _, ok := el.(*htmlElement); !ok {
		return fmt.Errorf("cannot scroll to %T", el)
	}
	return ctx.Err()
}

func (s *HTMLSession) Close() error {
	return nil
}

type htmlElement struct {
	sel *goquery.Selection
}

func wrapSelection(sel *goquery.Selection) []Element {
	elems := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elems = append(elems, &htmlElement{sel: s})
	})
	return elems
}

func (e *htmlElement) Text(ctx context.Context) (string, error) {
	return strings.TrimSpace(e.sel.Text()), nil
}

func (e *htmlElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *htmlElement) Find(ctx context.Context, selector string) ([]Element, error) {
	return wrapSelection(e.sel.Find(selector)), nil
}

// visible approximates CSS visibility from inline markup on the node and its ancestors
func (e *htmlElement) visible(ctx context.Context) (bool, error) {
	for s := e.sel; s.Length() > 0; s = s.Parent() {
		if _, hidden := s.Attr("hidden"); hidden {
			return false, nil
		}
		style := strings.ReplaceAll(strings.ToLower(s.AttrOr("style", "")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false, nil
		}
	}
	return true, nil
}
