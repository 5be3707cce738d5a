package settings

import (
	"context"
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	styles := []string{"apa", "ieee"}
	downloads := []string{"ris", "bibtex"}

	tests := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"empty", Settings{}, false},
		{"valid", Settings{PrimaryCitationStyle: "ieee", EnabledCitationStyles: []string{"apa"}, EnabledCitationDownloads: []string{"ris"}}, false},
		{"unknown primary", Settings{PrimaryCitationStyle: "mla"}, true},
		{"unknown style", Settings{EnabledCitationStyles: []string{"apa", "ris"}}, true},
		{"unknown download", Settings{EnabledCitationDownloads: []string{"endnote"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate(styles, downloads)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error %v does not wrap ErrInvalid", err)
			}
		})
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	got, err := m.Load(ctx, 1)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.EnabledCitationStyles != nil {
		t.Error("unsaved context should have nil enabled list")
	}

	enabled := []string{"apa"}
	if err := m.Save(ctx, 1, Settings{EnabledCitationStyles: enabled, PublisherLocation: "Vancouver"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	enabled[0] = "mutated"

	got, _ = m.Load(ctx, 1)
	if got.EnabledCitationStyles[0] != "apa" {
		t.Errorf("store shares caller slice: %v", got.EnabledCitationStyles)
	}
	if got.PublisherLocation != "Vancouver" {
		t.Errorf("PublisherLocation = %q", got.PublisherLocation)
	}

	other, _ := m.Load(ctx, 2)
	if other.PublisherLocation != "" {
		t.Error("contexts should be isolated")
	}
}
