package export

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
)

// BibTeXIndex indexes existing BibTeX entries for deduplication.
type BibTeXIndex struct {
	// Keys maps citation keys to true for existence check
	Keys map[string]bool
	// DOIs maps normalized DOI values to citation keys
	DOIs map[string]string
}

// NewBibTeXIndex creates an empty BibTeX index.
func NewBibTeXIndex() *BibTeXIndex {
	return &BibTeXIndex{
		Keys: make(map[string]bool),
		DOIs: make(map[string]string),
	}
}

// HasEntry returns true if the entry already exists.
// DOI is the primary match; citation key is the fallback if no DOI.
func (idx *BibTeXIndex) HasEntry(key, doi string) bool {
	if doi != "" {
		if _, exists := idx.DOIs[normalizeDOI(doi)]; exists {
			return true
		}
	}
	return idx.Keys[key]
}

// Add records an entry in the index.
func (idx *BibTeXIndex) Add(key, doi string) {
	idx.Keys[key] = true
	if d := normalizeDOI(doi); d != "" {
		idx.DOIs[d] = key
	}
}

var (
	entryStartRegex = regexp.MustCompile(`@\w+\{([^,]+),`)
	doiFieldRegex   = regexp.MustCompile(`(?i)^\s*doi\s*=\s*[\{"]([^\}"]+)[\}"]`)
)

// ReadBibTeXIndex builds an index from BibTeX source.
func ReadBibTeXIndex(r io.Reader) (*BibTeXIndex, error) {
	idx := NewBibTeXIndex()
	scanner := bufio.NewScanner(r)
	var currentKey string
	for scanner.Scan() {
		line := scanner.Text()
		if matches := entryStartRegex.FindStringSubmatch(line); len(matches) > 1 {
			currentKey = strings.TrimSpace(matches[1])
			idx.Keys[currentKey] = true
		}
		if matches := doiFieldRegex.FindStringSubmatch(line); len(matches) > 1 && currentKey != "" {
			idx.Add(currentKey, matches[1])
		}
	}
	return idx, scanner.Err()
}

// ParseBibTeXFile builds an index from an existing .bib file.
// Returns an empty index if the file doesn't exist.
func ParseBibTeXFile(path string) (*BibTeXIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewBibTeXIndex(), nil
		}
		return nil, err
	}
	defer file.Close()
	return ReadBibTeXIndex(file)
}

// normalizeDOI lowercases a DOI and strips resolver prefixes.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi.org/", "DOI:", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return strings.ToLower(strings.TrimSpace(doi))
}

// AppendBibTeX appends the record's entry to a .bib file unless an entry with the same
// DOI or citation key is already present. It reports whether the entry was written.
func AppendBibTeX(path, entry, key, doi string) (bool, error) {
	idx, err := ParseBibTeXFile(path)
	if err != nil {
		return false, err
	}
	if idx.HasEntry(key, doi) {
		return false, nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return false, err
	}
	defer file.Close()

	// Ensure we start on a new line
	if _, err := file.WriteString("\n" + entry); err != nil {
		return false, err
	}
	return true, nil
}
