// Package style holds the catalog of citation styles and download formats.
package style

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/matsen/cslcite/internal/hooks"
	"github.com/matsen/cslcite/internal/settings"
)

var (
	// ErrNotFound indicates no catalog entry has the requested id.
	ErrNotFound = errors.New("citation style not found")

	// ErrEmptyCatalog indicates a primary style was requested from an empty catalog.
	ErrEmptyCatalog = errors.New("citation style catalog is empty")
)

// Config describes a citation style or a download format.
type Config struct {
	ID            string `json:"id" yaml:"id"`
	Title         string `json:"title" yaml:"title"`
	IsEnabled     bool   `json:"isEnabled" yaml:"enabled"`
	IsPrimary     bool   `json:"isPrimary,omitempty" yaml:"primary,omitempty"`
	StyleFile     string `json:"useCsl,omitempty" yaml:"style_file,omitempty"`     // CSL file overriding the built-in one
	Template      string `json:"useTemplate,omitempty" yaml:"template,omitempty"`  // Render with a template instead of CSL
	FileExtension string `json:"fileExtension,omitempty" yaml:"file_extension,omitempty"`
	ContentType   string `json:"contentType,omitempty" yaml:"content_type,omitempty"`
}

// CatalogHook may append to or modify catalog entries before the catalog is frozen.
type CatalogHook interface {
	ExtendCatalog(entries []Config) []Config
}

// CatalogFunc adapts a function to CatalogHook.
type CatalogFunc func(entries []Config) []Config

// ExtendCatalog calls f.
func (f CatalogFunc) ExtendCatalog(entries []Config) []Config { return f(entries) }

// Extension points for the style and download catalogs.
var (
	StyleDefaults    = hooks.NewPoint[CatalogHook]("CitationStyleLanguage::citationStyleDefaults")
	DownloadDefaults = hooks.NewPoint[CatalogHook]("CitationStyleLanguage::citationDownloadDefaults")
)

// Registry resolves style ids and computes per-context enabled and primary styles.
// Catalogs are built on first use and frozen for the life of the registry.
type Registry struct {
	hooks    *hooks.Registry
	settings settings.Store

	stylesOnce    sync.Once
	styles        []Config
	downloadsOnce sync.Once
	downloads     []Config
}

// NewRegistry creates a registry. Either argument may be nil.
func NewRegistry(h *hooks.Registry, store settings.Store) *Registry {
	return &Registry{hooks: h, settings: store}
}

// Styles returns the citation style catalog in catalog order.
func (r *Registry) Styles() []Config {
	r.stylesOnce.Do(func() {
		r.styles = build(DefaultStyles(), hooks.Callbacks(r.hooks, StyleDefaults))
	})
	return slices.Clone(r.styles)
}

// Downloads returns the download format catalog in catalog order.
func (r *Registry) Downloads() []Config {
	r.downloadsOnce.Do(func() {
		r.downloads = build(DefaultDownloads(), hooks.Callbacks(r.hooks, DownloadDefaults))
	})
	return slices.Clone(r.downloads)
}

func build(defaults []Config, extensions []CatalogHook) []Config {
	entries := defaults
	for _, ext := range extensions {
		entries = ext.ExtendCatalog(entries)
	}
	return entries
}

// Resolve finds an entry by exact id across styles and downloads.
func (r *Registry) Resolve(id string) (Config, error) {
	for _, c := range append(r.Styles(), r.Downloads()...) {
		if c.ID == id {
			return c, nil
		}
	}
	return Config{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Primary returns the primary style of a context.
func (r *Registry) Primary(ctx context.Context, contextID int64) (Config, error) {
	s, err := r.load(ctx, contextID)
	if err != nil {
		return Config{}, err
	}
	return PrimaryOf(r.Styles(), s.PrimaryCitationStyle)
}

// EnabledStyles returns the styles enabled for a context.
func (r *Registry) EnabledStyles(ctx context.Context, contextID int64) ([]Config, error) {
	s, err := r.load(ctx, contextID)
	if err != nil {
		return nil, err
	}
	return Enabled(r.Styles(), s.EnabledCitationStyles), nil
}

// EnabledDownloads returns the download formats enabled for a context.
func (r *Registry) EnabledDownloads(ctx context.Context, contextID int64) ([]Config, error) {
	s, err := r.load(ctx, contextID)
	if err != nil {
		return nil, err
	}
	return Enabled(r.Downloads(), s.EnabledCitationDownloads), nil
}

func (r *Registry) load(ctx context.Context, contextID int64) (settings.Settings, error) {
	if r.settings == nil {
		return settings.Settings{}, nil
	}
	s, err := r.settings.Load(ctx, contextID)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("loading settings for context %d: %w", contextID, err)
	}
	return s, nil
}

// PrimaryOf returns the entry named by override when it exists, else the first
// entry flagged primary, else the first entry.
func PrimaryOf(catalog []Config, override string) (Config, error) {
	if len(catalog) == 0 {
		return Config{}, ErrEmptyCatalog
	}
	if override != "" {
		for _, c := range catalog {
			if c.ID == override {
				return c, nil
			}
		}
	}
	for _, c := range catalog {
		if c.IsPrimary {
			return c, nil
		}
	}
	return catalog[0], nil
}

// Enabled returns the flagged entries when explicit is nil, otherwise the
// entries whose id is listed. Catalog order is kept in both cases.
func Enabled(catalog []Config, explicit []string) []Config {
	out := make([]Config, 0, len(catalog))
	for _, c := range catalog {
		if explicit == nil {
			if c.IsEnabled {
				out = append(out, c)
			}
			continue
		}
		if slices.Contains(explicit, c.ID) {
			out = append(out, c)
		}
	}
	return out
}

// IDs returns the ids of entries in order.
func IDs(entries []Config) []string {
	ids := make([]string, len(entries))
	for i, c := range entries {
		ids[i] = c.ID
	}
	return ids
}
