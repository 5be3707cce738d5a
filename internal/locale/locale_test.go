package locale

import (
	"reflect"
	"testing"
	"testing/fstest"
)

func TestResolve(t *testing.T) {
	available := []string{"de-AT", "de-DE", "en-US", "it-IT", "pt-BR", "pt-PT", "sv-SE"}

	tests := []struct {
		name      string
		available []string
		requested string
		want      string
	}{
		{"exact underscore", available, "pt_BR", "pt-BR"},
		{"exact dash", available, "de-AT", "de-AT"},
		{"preference", available, "en", "en-US"},
		{"no preference with region", available, "fr_CA", "en-US"},
		{"region skips preference", []string{"de-AT", "de-CH", "en-US"}, "de_LU", "de-AT"},
		{"bare language preference", []string{"de-AT", "de-CH", "en-US"}, "de", "de-DE"},
		{"language prefix", available, "it", "it-IT"},
		{"language prefix with region", available, "sv_FI", "sv-SE"},
		{"no match", available, "xx-YY", "en-US"},
		{"empty", available, "", "en-US"},
		{"pt-BR without file", []string{"en-US", "de-DE", "pt-PT"}, "pt-BR", "pt-PT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.available, tt.requested, DefaultLocale); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.requested, got, tt.want)
			}
		})
	}
}

func TestResolveCustomDefault(t *testing.T) {
	if got := Resolve(nil, "xx", "de-DE"); got != "de-DE" {
		t.Errorf("Resolve() = %q, want supplied default", got)
	}
}

func TestResolveFS(t *testing.T) {
	fsys := fstest.MapFS{
		"locales-en-US.xml": {Data: []byte("<locale/>")},
		"locales-nl-NL.xml": {Data: []byte("<locale/>")},
		"README.md":         {Data: []byte("ignored")},
	}
	got, err := Available(fsys)
	if err != nil {
		t.Fatalf("Available() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"en-US", "nl-NL"}) {
		t.Errorf("Available() = %v", got)
	}
	if got := ResolveFS(fsys, "nl_BE", DefaultLocale); got != "nl-NL" {
		t.Errorf("ResolveFS(nl_BE) = %q", got)
	}
}

func TestSplit(t *testing.T) {
	tests := []struct{ in, lang, region string }{
		{"pt_BR", "pt", "BR"},
		{"en-us", "en", "US"},
		{"fr", "fr", ""},
		{"xx_YY", "xx", "YY"},
		{"_", "", ""},
	}
	for _, tt := range tests {
		lang, region := Split(tt.in)
		if lang != tt.lang || region != tt.region {
			t.Errorf("Split(%q) = %q, %q; want %q, %q", tt.in, lang, region, tt.lang, tt.region)
		}
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("en-US"); got != "locales-en-US.xml" {
		t.Errorf("FileName() = %q", got)
	}
}
