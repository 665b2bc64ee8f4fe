// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RecordMeta carries extraction bookkeeping for a structured record.
type RecordMeta struct {
	// ExtractionTimestamp is when the record was extracted, RFC 3339.
	ExtractionTimestamp string `json:"extraction_timestamp"`

	// ArticleType is the publisher's article-type attribute (e.g.
	// "research-article").
	ArticleType string `json:"article_type"`

	// Language is the article language code, defaulting to "en".
	Language string `json:"language"`
}

// PublicationInfo holds journal- and article-level publication metadata.
type PublicationInfo struct {
	Journal   string `json:"journal,omitempty"`
	ISSN      string `json:"issn,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	DOI       string `json:"doi,omitempty"`
	Volume    string `json:"volume,omitempty"`
	Issue     string `json:"issue,omitempty"`

	// PublicationDates maps a date type ("epub", "ppub", ...) to a
	// YYYY[-MM[-DD]] date string.
	PublicationDates map[string]string `json:"publication_dates,omitempty"`
}

// RecordAuthor is one article contributor.
type RecordAuthor struct {
	Surname         string   `json:"surname"`
	GivenNames      string   `json:"given_names"`
	FullName        string   `json:"full_name"`
	Email           string   `json:"email,omitempty"`
	IsCorresponding bool     `json:"is_corresponding"`
	AffiliationRefs []string `json:"affiliation_refs"`
}

// Address is a partial postal address attached to an affiliation.
type Address struct {
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// Affiliation is one institutional affiliation, keyed by its article-local ID.
type Affiliation struct {
	Institution string   `json:"institution,omitempty"`
	Department  string   `json:"department,omitempty"`
	Address     *Address `json:"address,omitempty"`
}

// Abstract holds the article abstract, both per-section and as flat text.
type Abstract struct {
	// Sections maps a lowercased section title ("background",
	// "results", ...) to its text, for structured abstracts.
	Sections map[string]string `json:"sections,omitempty"`

	// FullText is the whole abstract as one string.
	FullText string `json:"full_text"`
}

// KeywordGroup is one keyword group with its language.
type KeywordGroup struct {
	Language string   `json:"language"`
	Keywords []string `json:"keywords"`
}

// Funding is one funding award.
type Funding struct {
	Source  string `json:"source,omitempty"`
	AwardID string `json:"award_id,omitempty"`
}

// Paragraph is one body paragraph with its article-local ID.
type Paragraph struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Section is one body section, optionally with direct subsections.
type Section struct {
	ID          string      `json:"id"`
	Title       string      `json:"title,omitempty"`
	Paragraphs  []Paragraph `json:"paragraphs,omitempty"`
	Subsections []Section   `json:"subsections,omitempty"`
}

// BodyContent holds the article body, sectioned and as flat text.
type BodyContent struct {
	Sections []Section `json:"sections"`
	FullText string    `json:"full_text"`
}

// StructuredRecord is the machine-readable form of one article: publication
// metadata, contributors, abstract, and full body text. It serializes to a
// JSON artifact, one file per acquired identifier.
type StructuredRecord struct {
	Metadata        RecordMeta             `json:"metadata"`
	Publication     PublicationInfo        `json:"publication_info"`
	Title           string                 `json:"title,omitempty"`
	Authors         []RecordAuthor         `json:"authors"`
	Affiliations    map[string]Affiliation `json:"affiliations,omitempty"`
	Abstract        *Abstract              `json:"abstract,omitempty"`
	Keywords        []KeywordGroup         `json:"keywords,omitempty"`
	Funding         []Funding              `json:"funding,omitempty"`
	Content         *BodyContent           `json:"content,omitempty"`
	ReferencesCount int                    `json:"references_count,omitempty"`
}
