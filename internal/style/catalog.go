package style

// Built-in template names used by the download formats.
const (
	TemplateRIS    = "ris"
	TemplateBibTeX = "bibtex"
)

// DefaultStyles returns the built-in citation styles in catalog order.
func DefaultStyles() []Config {
	return []Config{
		{ID: "acm-sig-proceedings", Title: "ACM", IsEnabled: true},
		{ID: "acs-nano", Title: "ACS", IsEnabled: true},
		{ID: "apa", Title: "APA", IsEnabled: true, IsPrimary: true},
		{ID: "associacao-brasileira-de-normas-tecnicas", Title: "ABNT", IsEnabled: true},
		{ID: "chicago-author-date", Title: "Chicago", IsEnabled: true},
		{ID: "harvard-cite-them-right", Title: "Harvard", IsEnabled: true},
		{ID: "ieee", Title: "IEEE", IsEnabled: true},
		{ID: "modern-language-association", Title: "MLA", IsEnabled: true},
		{ID: "national-library-of-medicine", Title: "NLM", IsEnabled: true},
		{ID: "turabian-fullnote-bibliography", Title: "Turabian", IsEnabled: true},
		{ID: "vancouver", Title: "Vancouver", IsEnabled: true},
		{ID: "ama", Title: "AMA", IsEnabled: true},
	}
}

// DefaultDownloads returns the built-in download formats in catalog order.
func DefaultDownloads() []Config {
	return []Config{
		{
			ID:            "ris",
			Title:         "Endnote/Zotero/Mendeley (RIS)",
			IsEnabled:     true,
			Template:      TemplateRIS,
			FileExtension: "ris",
			ContentType:   "application/x-Research-Info-Systems",
		},
		{
			ID:            "bibtex",
			Title:         "BibTeX",
			IsEnabled:     true,
			Template:      TemplateBibTeX,
			FileExtension: "bib",
			ContentType:   "application/x-bibtex",
		},
	}
}
