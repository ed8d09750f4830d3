package models

import (
	"fmt"
	"strings"
)

// ListingState is the terminal classification of a user's catalog page
type ListingState string

const (
	ListingLoading  ListingState = "loading"
	ListingComplete ListingState = "complete"
	ListingEmpty    ListingState = "empty"
	ListingNotFound ListingState = "not_found"
)

// IsTerminal reports whether the listing has stopped loading
func (s ListingState) IsTerminal() bool {
	return s == ListingComplete || s == ListingEmpty || s == ListingNotFound
}

// SourceVariant is one resolution-specific candidate of a srcset attribute
type SourceVariant struct {
	URL        string `json:"url"`
	Descriptor string `json:"descriptor,omitempty"`
}

// EmoteRecord is the data extracted from one rendered listing entry
type EmoteRecord struct {
	Name     string          `json:"name"`
	Srcset   string          `json:"srcset"`
	Variants []SourceVariant `json:"variants"`
}

// BaseURL returns the first whitespace-delimited token of the srcset
func (r EmoteRecord) BaseURL() string {
	fields := strings.Fields(r.Srcset)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimSuffix(fields[0], ",")
}

// Best returns the highest-resolution variant, which the page always renders last
func (r EmoteRecord) Best() (SourceVariant, bool) {
	if len(r.Variants) == 0 {
		return SourceVariant{}, false
	}
	return r.Variants[len(r.Variants)-1], true
}

// ResolvedAsset is an emote ready to be fetched
type ResolvedAsset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
	Extension   string `json:"extension"`
}

// FileName returns the on-disk name of the asset
func (a ResolvedAsset) FileName() string {
	return fmt.Sprintf("%s.%s", a.Name, a.Extension)
}

// OutcomeKind tags a DownloadOutcome
type OutcomeKind int

const (
	OutcomeSkipped OutcomeKind = iota
	OutcomeSucceeded
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DownloadOutcome is the result of one fetch attempt
type DownloadOutcome struct {
	Kind       OutcomeKind
	Asset      ResolvedAsset
	Index      int
	Total      int
	StatusCode int
	Size       int
	Err        error
}

// Counters aggregates download outcomes for one user query
type Counters struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Add folds one outcome into the counters
func (c Counters) Add(o DownloadOutcome) Counters {
	c.Attempted++
	switch o.Kind {
	case OutcomeSkipped:
		c.Skipped++
	case OutcomeSucceeded:
		c.Succeeded++
	case OutcomeFailed:
		c.Failed++
	}
	return c
}

// Fold aggregates a set of outcomes in any order
func Fold(outcomes []DownloadOutcome) Counters {
	var c Counters
	for _, o := range outcomes {
		c = c.Add(o)
	}
	return c
}
