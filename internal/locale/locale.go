// Package locale maps site locales onto the CSL locale files available to the processor.
package locale

import (
	"io/fs"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLocale is used when nothing else matches.
const DefaultLocale = "en-US"

const (
	filePrefix = "locales-"
	fileSuffix = ".xml"
)

// preferences picks a regional variant for bare languages with several CSL locale files.
var preferences = map[string]string{
	"de": "de-DE",
	"en": "en-US",
	"es": "es-ES",
	"fr": "fr-FR",
	"pt": "pt-PT",
}

// FileName returns the locale file name for a CSL locale code.
func FileName(code string) string {
	return filePrefix + code + fileSuffix
}

// Available lists the CSL locale codes present in fsys, in lexical order.
func Available(fsys fs.FS) ([]string, error) {
	matches, err := fs.Glob(fsys, filePrefix+"*"+fileSuffix)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(matches))
	for _, m := range matches {
		codes = append(codes, strings.TrimSuffix(strings.TrimPrefix(m, filePrefix), fileSuffix))
	}
	return codes, nil
}

// Resolve returns the closest available CSL locale for a site locale such as
// "pt_BR" or "pt-BR". The first rule that matches wins:
//  1. an exact language-REGION file
//  2. the preferred variant, for a bare language only
//  3. the first file for the same language
//  4. def
func Resolve(available []string, requested, def string) string {
	lang, region := Split(requested)
	if lang == "" {
		return def
	}

	if region != "" {
		exact := lang + "-" + region
		for _, code := range available {
			if code == exact {
				return code
			}
		}
	}

	if region == "" {
		if pref, ok := preferences[lang]; ok {
			return pref
		}
	}

	for _, code := range available {
		if strings.HasPrefix(code, lang+"-") {
			return code
		}
	}

	return def
}

// ResolveFS resolves requested against the locale files in fsys.
func ResolveFS(fsys fs.FS, requested, def string) string {
	available, err := Available(fsys)
	if err != nil {
		return def
	}
	return Resolve(available, requested, def)
}

// Split returns the lowercase language and uppercase region of a locale code.
// The region is empty when the code does not state one explicitly.
func Split(code string) (lang, region string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ""
	}
	if tag, err := language.Parse(code); err == nil {
		base, _ := tag.Base()
		lang = base.String()
		if r, conf := tag.Region(); conf == language.Exact {
			region = r.String()
		}
		if lang != "und" {
			return lang, region
		}
	}

	parts := strings.FieldsFunc(code, func(r rune) bool { return r == '-' || r == '_' })
	if len(parts) == 0 {
		return "", ""
	}
	lang = strings.ToLower(parts[0])
	if len(parts) > 1 {
		region = strings.ToUpper(parts[len(parts)-1])
	}
	return lang, region
}
