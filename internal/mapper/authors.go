package mapper

import (
	"github.com/matsen/cslcite/internal/citation"
	"github.com/matsen/cslcite/internal/reference"
)

// name converts a contributor to a csl-json name. A contributor without a family
// name is cited by the given name alone, carried in Family.
func (b *builder) name(a reference.Author) citation.Name {
	family := a.LocalizedFamilyName(b.loc, b.pubLoc)
	given := a.LocalizedGivenName(b.loc, b.pubLoc)
	if family == "" {
		return citation.Name{Family: escape(given)}
	}
	return citation.Name{Family: escape(family), Given: escape(given)}
}

// contributors classifies the contributors of an article or a whole monograph.
// Roles other than editor and translator are cited as authors.
func (b *builder) contributors(authors []reference.Author) {
	for _, a := range authors {
		n := b.name(a)
		switch a.Role.Normalize() {
		case reference.RoleEditor:
			b.rec.Editor = append(b.rec.Editor, n)
		case reference.RoleTranslator:
			b.rec.Translator = append(b.rec.Translator, n)
		default:
			b.rec.Author = append(b.rec.Author, n)
		}
	}
}

// chapterAuthors classifies chapter contributors as authors and the monograph's own
// contributors as editors, translators or container authors. Book-level chapter
// authors belong to some chapter and are skipped. Container authors are dropped when
// every one of them is also a chapter author.
func (b *builder) chapterAuthors(chapterAuthors, bookAuthors []reference.Author) {
	for _, a := range chapterAuthors {
		n := b.name(a)
		if a.Role.Normalize() == reference.RoleTranslator {
			b.rec.Translator = append(b.rec.Translator, n)
			continue
		}
		b.rec.Author = append(b.rec.Author, n)
	}

	for _, a := range bookAuthors {
		n := b.name(a)
		switch a.Role.Normalize() {
		case reference.RoleEditor:
			b.rec.Editor = append(b.rec.Editor, n)
		case reference.RoleTranslator:
			b.rec.Translator = append(b.rec.Translator, n)
		case reference.RoleAuthor:
			b.rec.ContainerAuthor = append(b.rec.ContainerAuthor, n)
		}
	}

	if len(b.rec.ContainerAuthor) > 0 && citation.SameNames(b.rec.ContainerAuthor, b.rec.Author) {
		b.rec.ContainerAuthor = nil
	}
}
