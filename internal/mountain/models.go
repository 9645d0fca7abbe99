package mountain

import "time"

type Mountain struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	NameEn      string    `json:"name_en"`
	CountrySlug string    `json:"country_slug"`
	ElevationM  int       `json:"elevation_m"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// DisplayName prefers the English name when one is set.
func (m Mountain) DisplayName() string {
	if m.NameEn != "" {
		return m.NameEn
	}
	return m.Name
}
