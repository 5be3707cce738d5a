package reference

// Role is a contributor's bibliographic role, already resolved by the host.
type Role string

const (
	RoleAuthor        Role = "author"
	RoleEditor        Role = "editor"
	RoleTranslator    Role = "translator"
	RoleChapterAuthor Role = "chapter-author"
)

// Normalize maps unknown or empty roles to RoleAuthor.
func (r Role) Normalize() Role {
	switch r {
	case RoleAuthor, RoleEditor, RoleTranslator, RoleChapterAuthor:
		return r
	default:
		return RoleAuthor
	}
}

// Author represents a contributor to a publication or chapter.
type Author struct {
	ID     int64     `json:"id,omitempty"`
	Given  Localized `json:"given"`            // Given name(s) per locale
	Family Localized `json:"family,omitempty"` // Family name per locale
	Role   Role      `json:"role,omitempty"`
	ORCID  string    `json:"orcid,omitempty"` // ORCID identifier (without URL prefix)
}

// LocalizedGivenName returns the given name in locale.
func (a Author) LocalizedGivenName(locale, primary string) string {
	return a.Given.In(locale, primary)
}

// LocalizedFamilyName returns the family name in locale.
func (a Author) LocalizedFamilyName(locale, primary string) string {
	return a.Family.In(locale, primary)
}
