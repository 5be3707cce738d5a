package style

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/matsen/cslcite/internal/hooks"
	"github.com/matsen/cslcite/internal/settings"
)

func TestResolve(t *testing.T) {
	r := NewRegistry(nil, nil)

	apa, err := r.Resolve("apa")
	if err != nil {
		t.Fatalf("Resolve(apa) error = %v", err)
	}
	if !apa.IsPrimary || apa.Template != "" {
		t.Errorf("Resolve(apa) = %+v", apa)
	}

	ris, err := r.Resolve("ris")
	if err != nil {
		t.Fatalf("Resolve(ris) error = %v", err)
	}
	if ris.FileExtension != "ris" || ris.ContentType != "application/x-Research-Info-Systems" {
		t.Errorf("Resolve(ris) = %+v", ris)
	}

	if _, err := r.Resolve("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(nope) error = %v, want ErrNotFound", err)
	}
}

func TestCatalogOrder(t *testing.T) {
	ids := IDs(NewRegistry(nil, nil).Styles())
	if ids[0] != "acm-sig-proceedings" || ids[len(ids)-1] != "ama" || len(ids) != 12 {
		t.Errorf("style ids = %v", ids)
	}
	if got := IDs(NewRegistry(nil, nil).Downloads()); !reflect.DeepEqual(got, []string{"ris", "bibtex"}) {
		t.Errorf("download ids = %v", got)
	}
}

func TestPrimaryOf(t *testing.T) {
	catalog := []Config{{ID: "a"}, {ID: "b", IsPrimary: true}, {ID: "c", IsPrimary: true}}

	tests := []struct {
		name     string
		catalog  []Config
		override string
		want     string
	}{
		{"first flagged", catalog, "", "b"},
		{"override", catalog, "c", "c"},
		{"invalid override", catalog, "zzz", "b"},
		{"no flag uses first", []Config{{ID: "x"}, {ID: "y"}}, "", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PrimaryOf(tt.catalog, tt.override)
			if err != nil {
				t.Fatalf("PrimaryOf() error = %v", err)
			}
			if got.ID != tt.want {
				t.Errorf("PrimaryOf() = %s, want %s", got.ID, tt.want)
			}
		})
	}

	if _, err := PrimaryOf(nil, ""); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("PrimaryOf(nil) error = %v, want ErrEmptyCatalog", err)
	}
}

func TestEnabled(t *testing.T) {
	catalog := []Config{{ID: "a", IsEnabled: true}, {ID: "b"}, {ID: "c", IsEnabled: true}}

	if got := IDs(Enabled(catalog, nil)); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Enabled(nil) = %v", got)
	}
	// Catalog order, not list order; flags are ignored with an explicit list.
	if got := IDs(Enabled(catalog, []string{"c", "b"})); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("Enabled(explicit) = %v", got)
	}
	if got := Enabled(catalog, []string{}); len(got) != 0 {
		t.Errorf("Enabled(empty) = %v, want none", got)
	}
}

func TestRegistryUsesSettings(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemory()
	if err := store.Save(ctx, 1, settings.Settings{
		PrimaryCitationStyle:     "ieee",
		EnabledCitationStyles:    []string{"vancouver", "apa"},
		EnabledCitationDownloads: []string{"bibtex"},
	}); err != nil {
		t.Fatal(err)
	}
	r := NewRegistry(nil, store)

	primary, err := r.Primary(ctx, 1)
	if err != nil || primary.ID != "ieee" {
		t.Errorf("Primary(1) = %v, %v; want ieee", primary.ID, err)
	}
	primary, _ = r.Primary(ctx, 2)
	if primary.ID != "apa" {
		t.Errorf("Primary(2) = %s, want apa", primary.ID)
	}

	styles, _ := r.EnabledStyles(ctx, 1)
	if got := IDs(styles); !reflect.DeepEqual(got, []string{"apa", "vancouver"}) {
		t.Errorf("EnabledStyles(1) = %v", got)
	}
	downloads, _ := r.EnabledDownloads(ctx, 1)
	if got := IDs(downloads); !reflect.DeepEqual(got, []string{"bibtex"}) {
		t.Errorf("EnabledDownloads(1) = %v", got)
	}
	all, _ := r.EnabledStyles(ctx, 2)
	if len(all) != 12 {
		t.Errorf("EnabledStyles(2) has %d entries, want 12", len(all))
	}
}

func TestCatalogHooks(t *testing.T) {
	h := hooks.NewRegistry()
	calls := 0
	hooks.Register[CatalogHook](h, StyleDefaults, CatalogFunc(func(entries []Config) []Config {
		calls++
		entries[0].IsEnabled = false
		return append(entries, Config{ID: "house", Title: "House style", IsEnabled: true, StyleFile: "/srv/house.csl"})
	}))
	r := NewRegistry(h, nil)

	r.Styles()
	styles := r.Styles()
	if calls != 1 {
		t.Errorf("catalog hook ran %d times, want 1", calls)
	}
	if styles[0].IsEnabled {
		t.Error("hook modification was not applied")
	}
	house, err := r.Resolve("house")
	if err != nil || house.StyleFile != "/srv/house.csl" {
		t.Errorf("Resolve(house) = %+v, %v", house, err)
	}

	// Returned slices are copies.
	styles[1].Title = "changed"
	if r.Styles()[1].Title == "changed" {
		t.Error("Styles() exposes the frozen catalog")
	}
}
