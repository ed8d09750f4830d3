package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"emotedl/pkg/models"
)

// FileName is the manifest written next to the emotes of a user
const FileName = ".emotedl.json"

// Manifest records what one run found for a user
type Manifest struct {
	// Identifiers
	RunID       string `json:"run_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	SourceURL   string `json:"source_url"`

	// Timestamps
	FetchedAt time.Time `json:"fetched_at"`

	Counters models.Counters `json:"counters"`
	Emotes   []Emote         `json:"emotes"`
}

// Emote is one resolved asset as it was saved
type Emote struct {
	Name string `json:"name"`
	File string `json:"file"`
	URL  string `json:"url"`
}

// New builds a manifest from the resolved assets of a run
func New(runID, userID, displayName, sourceURL string, assets []models.ResolvedAsset, counters models.Counters) *Manifest {
	m := &Manifest{
		RunID:       runID,
		UserID:      userID,
		DisplayName: displayName,
		SourceURL:   sourceURL,
		FetchedAt:   time.Now().UTC(),
		Counters:    counters,
		Emotes:      make([]Emote, 0, len(assets)),
	}
	for _, a := range assets {
		m.Emotes = append(m.Emotes, Emote{Name: a.Name, File: a.FileName(), URL: a.DownloadURL})
	}
	return m
}

// Save writes the manifest into dir, replacing the previous one
func (m *Manifest) Save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(dir, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, FileName)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Load reads the manifest of dir
func Load(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Missing returns the emotes of the manifest whose files are not in dir,
// such as failed downloads or files removed since
func (m *Manifest) Missing(dir string) []Emote {
	var missing []Emote
	for _, e := range m.Emotes {
		if _, err := os.Stat(filepath.Join(dir, e.File)); os.IsNotExist(err) {
			missing = append(missing, e)
		}
	}
	return missing
}
