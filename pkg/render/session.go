// Package render defines the boundary between the catalog logic and whatever
// renders the remote page. A Session exposes only the operations the
// materializer needs: navigation, element queries and scrolling.
package render

import (
	"context"
	"strings"
)

// WaitMode controls whether a query waits for at least one match
type WaitMode int

const (
	// NonBlocking returns whatever matches right now, possibly nothing
	NonBlocking WaitMode = iota
	// Blocking waits until something matches or the session's wait budget runs out
	Blocking
)

// Query selects elements by CSS selector, optionally filtered by text and visibility
type Query struct {
	Selector string
	Wait     WaitMode
	// Texts keeps only elements whose trimmed text equals one of these
	Texts        []string
	NonEmptyText bool
	VisibleOnly  bool
}

// Element is a handle to one rendered node
type Element interface {
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
	Find(ctx context.Context, selector string) ([]Element, error)
}

// Session drives a single rendered page. Calls must not be made concurrently.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Query(ctx context.Context, q Query) ([]Element, error)
	ScrollTo(ctx context.Context, el Element) error
	Close() error
}

type visibleElement interface {
	visible(ctx context.Context) (bool, error)
}

// filter applies the text and visibility constraints of q
func filter(ctx context.Context, elems []Element, q Query) ([]Element, error) {
	if len(q.Texts) == 0 && !q.NonEmptyText && !q.VisibleOnly {
		return elems, nil
	}

	var out []Element
	for _, el := range elems {
		if q.VisibleOnly {
			if v, ok := el.(visibleElement); ok {
				vis, err := v.visible(ctx)
				if err != nil {
					return nil, err
				}
				if !vis {
					continue
				}
			}
		}

		if len(q.Texts) > 0 || q.NonEmptyText {
			text, err := el.Text(ctx)
			if err != nil {
				return nil, err
			}
			text = strings.TrimSpace(text)
			if q.NonEmptyText && text == "" {
				continue
			}
			if len(q.Texts) > 0 && !contains(q.Texts, text) {
				continue
			}
		}

		out = append(out, el)
	}
	return out, nil
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
