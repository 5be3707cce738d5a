// Package assets embeds the bundled CSL styles, CSL locales and download templates.
package assets

import (
	"embed"
	"errors"
	"io/fs"
	"os"
	"sort"
)

//go:embed styles/*.csl
var styles embed.FS

//go:embed locales/*.xml
var locales embed.FS

//go:embed templates/*.tmpl
var templates embed.FS

// Styles returns the bundled CSL styles, named "<id>.csl".
func Styles() fs.FS {
	return sub(styles, "styles")
}

// Locales returns the bundled CSL locales, named "locales-<code>.xml".
func Locales() fs.FS {
	return sub(locales, "locales")
}

// Templates returns the bundled download templates, named "<name>.tmpl".
func Templates() fs.FS {
	return sub(templates, "templates")
}

// StyleFile returns the file name of the CSL style with the given id.
func StyleFile(id string) string {
	return id + ".csl"
}

func sub(fsys fs.FS, dir string) fs.FS {
	s, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return s
}

// WithDir returns base overlaid by the files in dir. An empty dir returns base.
func WithDir(dir string, base fs.FS) fs.FS {
	if dir == "" {
		return base
	}
	return Overlay(os.DirFS(dir), base)
}

// Overlay returns a file system that serves files from upper and falls back to lower.
// Directory listings merge both layers.
func Overlay(upper, lower fs.FS) fs.FS {
	return overlay{upper: upper, lower: lower}
}

type overlay struct {
	upper, lower fs.FS
}

func (o overlay) Open(name string) (fs.File, error) {
	f, err := o.upper.Open(name)
	if err == nil {
		return f, nil
	}
	return o.lower.Open(name)
}

func (o overlay) ReadDir(name string) ([]fs.DirEntry, error) {
	seen := make(map[string]fs.DirEntry)
	var firstErr error
	for _, layer := range []fs.FS{o.lower, o.upper} {
		entries, err := fs.ReadDir(layer, name)
		if err != nil {
			if firstErr == nil && !errors.Is(err, fs.ErrNotExist) {
				firstErr = err
			}
			continue
		}
		for _, e := range entries {
			seen[e.Name()] = e
		}
	}
	if len(seen) == 0 && firstErr != nil {
		return nil, firstErr
	}
	if len(seen) == 0 {
		if _, err := fs.Stat(o, name); err != nil {
			return nil, err
		}
	}
	out := make([]fs.DirEntry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}
