// Package resolver turns extracted emote records into downloadable assets.
package resolver

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"emotedl/pkg/config"
	"emotedl/pkg/errors"
	"emotedl/pkg/models"
)

// Policy holds the positional conventions of the asset host
type Policy struct {
	SizeFrom        string
	SizeTo          string
	ExtensionLength int
	StrictExtension bool
}

// DefaultPolicy rewrites 1x to 4x and takes the last three characters as the extension
func DefaultPolicy() Policy {
	return Policy{SizeFrom: "1x", SizeTo: "4x", ExtensionLength: 3}
}

// PolicyFromConfig builds a Policy from the resolver section of the config
func PolicyFromConfig(cfg config.ResolverConfig) Policy {
	return Policy{
		SizeFrom:        cfg.SizeFrom,
		SizeTo:          cfg.SizeTo,
		ExtensionLength: cfg.ExtensionLength,
		StrictExtension: cfg.StrictExtension,
	}
}

// Resolver is pure: the same record always yields the same asset
type Resolver struct {
	policy Policy
}

// New creates a Resolver for the given policy
func New(policy Policy) *Resolver {
	if policy.ExtensionLength <= 0 {
		policy.ExtensionLength = 3
	}
	return &Resolver{policy: policy}
}

// Resolve derives the download URL and file extension of a record
func (r *Resolver) Resolve(record models.EmoteRecord) (models.ResolvedAsset, error) {
	base := record.BaseURL()
	if base == "" {
		return models.ResolvedAsset{}, errors.New(errors.ErrorTypeParsing,
			fmt.Sprintf("emote %q has an empty srcset", record.Name))
	}

	downloadURL := base
	if r.policy.SizeFrom != "" {
		downloadURL = strings.ReplaceAll(base, r.policy.SizeFrom, r.policy.SizeTo)
	}

	ext, err := r.extension(downloadURL)
	if err != nil {
		return models.ResolvedAsset{}, errors.Wrap(errors.ErrorTypeParsing, err,
			fmt.Sprintf("emote %q", record.Name))
	}

	return models.ResolvedAsset{
		Name:        record.Name,
		DownloadURL: downloadURL,
		Extension:   ext,
	}, nil
}

// ResolveAll resolves records in order and stops at the first failure
func (r *Resolver) ResolveAll(records []models.EmoteRecord) ([]models.ResolvedAsset, error) {
	assets := make([]models.ResolvedAsset, 0, len(records))
	for i, record := range records {
		asset, err := r.Resolve(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

func (r *Resolver) extension(rawURL string) (string, error) {
	if r.policy.StrictExtension {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", err
		}
		ext := strings.TrimPrefix(path.Ext(u.Path), ".")
		if ext == "" {
			return "", fmt.Errorf("no extension in %q", u.Path)
		}
		return ext, nil
	}

	// Legacy rule: the trailing characters, verbatim
	n := r.policy.ExtensionLength
	if len(rawURL) < n {
		return "", fmt.Errorf("url %q is shorter than the extension length %d", rawURL, n)
	}
	return rawURL[len(rawURL)-n:], nil
}
