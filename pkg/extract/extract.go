// Package extract reads emote records out of rendered listing entries.
package extract

import (
	"context"
	"fmt"
	"strings"

	"emotedl/pkg/config"
	"emotedl/pkg/errors"
	"emotedl/pkg/models"
	"emotedl/pkg/render"
)

// Extractor pulls the name and image sources out of each entry
type Extractor struct {
	nameSelector   string
	sourceSelector string
	sourceAttr     string
}

// New creates an Extractor for the configured markup
func New(sel config.SelectorsConfig) *Extractor {
	return &Extractor{
		nameSelector:   sel.EntryName,
		sourceSelector: sel.Source,
		sourceAttr:     sel.SourceAttr,
	}
}

// Extract returns one record per entry, in order. A malformed entry fails the
// whole call.
func (x *Extractor) Extract(ctx context.Context, entries []render.Element) ([]models.EmoteRecord, error) {
	records := make([]models.EmoteRecord, 0, len(entries))
	for i, entry := range entries {
		record, err := x.extractOne(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (x *Extractor) extractOne(ctx context.Context, entry render.Element) (models.EmoteRecord, error) {
	names, err := entry.Find(ctx, x.nameSelector)
	if err != nil {
		return models.EmoteRecord{}, err
	}
	if len(names) == 0 {
		return models.EmoteRecord{}, errors.PageStructure(x.nameSelector, nil)
	}
	name, err := names[0].Text(ctx)
	if err != nil {
		return models.EmoteRecord{}, err
	}
	if name == "" {
		return models.EmoteRecord{}, errors.PageStructure(x.nameSelector, fmt.Errorf("empty name"))
	}

	sources, err := entry.Find(ctx, x.sourceSelector)
	if err != nil {
		return models.EmoteRecord{}, err
	}
	if len(sources) == 0 {
		return models.EmoteRecord{}, errors.PageStructure(x.sourceSelector, nil)
	}

	// The page lists sources from lowest to highest quality; the last one wins
	srcset, ok, err := sources[len(sources)-1].Attribute(ctx, x.sourceAttr)
	if err != nil {
		return models.EmoteRecord{}, err
	}
	if !ok || strings.TrimSpace(srcset) == "" {
		return models.EmoteRecord{}, errors.PageStructure(x.sourceSelector+"["+x.sourceAttr+"]", nil)
	}

	return models.EmoteRecord{
		Name:     name,
		Srcset:   srcset,
		Variants: ParseSrcset(srcset),
	}, nil
}

// ParseSrcset splits a srcset attribute into its comma separated candidates
func ParseSrcset(srcset string) []models.SourceVariant {
	var variants []models.SourceVariant
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		v := models.SourceVariant{URL: fields[0]}
		if len(fields) > 1 {
			v.Descriptor = fields[1]
		}
		variants = append(variants, v)
	}
	return variants
}
