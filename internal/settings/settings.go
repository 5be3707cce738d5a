// Package settings defines the per-context plugin settings and the store that persists them.
package settings

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Setting names as persisted by the host's generic settings store.
const (
	KeyPrimaryCitationStyle     = "primaryCitationStyle"
	KeyEnabledCitationStyles    = "enabledCitationStyles"
	KeyEnabledCitationDownloads = "enabledCitationDownloads"
	KeyPublisherLocation        = "publisherLocation"
)

// LegacyGroupKeys are the removed contributor group-id mapping settings.
var LegacyGroupKeys = []string{"groupAuthor", "groupEditor", "groupTranslator", "groupChapterAuthor"}

// ErrInvalid indicates a settings update failed validation.
var ErrInvalid = errors.New("invalid settings")

// Settings holds the plugin settings of one context.
//
// A nil enabled list means "not configured": every catalog entry flagged as
// enabled is used. A non-nil empty list disables everything.
type Settings struct {
	PrimaryCitationStyle     string   `json:"primaryCitationStyle,omitempty"`
	EnabledCitationStyles    []string `json:"enabledCitationStyles"`
	EnabledCitationDownloads []string `json:"enabledCitationDownloads"`
	PublisherLocation        string   `json:"publisherLocation,omitempty"`
}

// Validate checks that referenced ids exist in the given catalogs.
func (s Settings) Validate(styleIDs, downloadIDs []string) error {
	if s.PrimaryCitationStyle != "" && !slices.Contains(styleIDs, s.PrimaryCitationStyle) {
		return fmt.Errorf("%w: unknown primary citation style %q", ErrInvalid, s.PrimaryCitationStyle)
	}
	for _, id := range s.EnabledCitationStyles {
		if !slices.Contains(styleIDs, id) {
			return fmt.Errorf("%w: unknown citation style %q", ErrInvalid, id)
		}
	}
	for _, id := range s.EnabledCitationDownloads {
		if !slices.Contains(downloadIDs, id) {
			return fmt.Errorf("%w: unknown citation download %q", ErrInvalid, id)
		}
	}
	return nil
}

// Store loads and saves settings per context.
type Store interface {
	Load(ctx context.Context, contextID int64) (Settings, error)
	Save(ctx context.Context, contextID int64, s Settings) error
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[int64]Settings
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[int64]Settings)}
}

// Load returns the settings of a context, or zero settings if none were saved.
func (m *Memory) Load(_ context.Context, contextID int64) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.data[contextID]), nil
}

// Save replaces the settings of a context.
func (m *Memory) Save(_ context.Context, contextID int64, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[contextID] = clone(s)
	return nil
}

func clone(s Settings) Settings {
	if s.EnabledCitationStyles != nil {
		s.EnabledCitationStyles = slices.Clone(s.EnabledCitationStyles)
	}
	if s.EnabledCitationDownloads != nil {
		s.EnabledCitationDownloads = slices.Clone(s.EnabledCitationDownloads)
	}
	return s
}
