// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Article is one bibliographic entry inside a collection file. Only DOI is
// required for acquisition; the remaining fields are carried through from
// the upstream record store.
type Article struct {
	// CollectionID is the accession the article was found for.
	CollectionID string `json:"bioproject_id,omitempty"`

	// Title is the article title as reported by the record store.
	Title string `json:"title,omitempty"`

	// Link is the landing-page URL the DOI was resolved from.
	Link string `json:"link,omitempty"`

	// Citations is the citation count at discovery time.
	Citations int `json:"citations,omitempty"`

	// DOI is the document identifier to acquire.
	DOI string `json:"doi"`

	// Status is the upstream resolution status ("success", "failed").
	Status string `json:"status,omitempty"`
}

// Collection is one input collection: the unit of work grouping many
// identifiers (one dataset accession's article list).
type Collection struct {
	// Name identifies the collection (derived from the input filename,
	// e.g. "PRJNA715058" from "PRJNA715058_articles.json").
	Name string `json:"-"`

	// Articles lists the collection's bibliographic entries.
	Articles []Article `json:"articles"`
}

// DOIs returns the distinct non-empty DOIs in the collection, in order of
// first appearance.
func (c Collection) DOIs() []string {
	seen := make(map[string]bool, len(c.Articles))
	var out []string
	for _, a := range c.Articles {
		if a.DOI == "" || seen[a.DOI] {
			continue
		}
		seen[a.DOI] = true
		out = append(out, a.DOI)
	}
	return out
}
