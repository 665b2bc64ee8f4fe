// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jomare1188/studious-funicular/internal/httputil"
	"github.com/jomare1188/studious-funicular/internal/source"
	"github.com/jomare1188/studious-funicular/pkg/types"
)

// elsevierAPIBase is the Elsevier Article Retrieval endpoint; the DOI is
// appended to the path.
const elsevierAPIBase = "https://api.elsevier.com/content/article/doi/"

// Elsevier fetches full-text XML from the Article Retrieval API. The
// response vocabulary differs from JATS, so the adapter maps the coredata
// envelope and raw text itself.
type Elsevier struct {
	Client    httputil.Doer
	APIKey    string
	UserAgent string
	BaseURL   string
}

func NewElsevier(client httputil.Doer, apiKey, userAgent string) *Elsevier {
	return &Elsevier{Client: client, APIKey: apiKey, UserAgent: userAgent, BaseURL: elsevierAPIBase}
}

func (e *Elsevier) Kind() source.Kind { return source.KindElsevier }

// elsevierResponse captures the fields we need from a full-text retrieval
// response.
type elsevierResponse struct {
	Coredata struct {
		Title       string   `xml:"title"`
		DOI         string   `xml:"doi"`
		Publication string   `xml:"publicationName"`
		CoverDate   string   `xml:"coverDate"`
		Description string   `xml:"description"`
		Creators    []string `xml:"creator"`
	} `xml:"coredata"`
	OriginalText string `xml:"originalText"`
}

func (e *Elsevier) Fetch(ctx context.Context, doi string) (*Result, error) {
	if e.APIKey == "" {
		return nil, fmt.Errorf("elsevier: %w", ErrNoCredential)
	}

	req, err := newRequest(ctx, e.BaseURL+doi, e.UserAgent, "text/xml")
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-ELS-APIKey", e.APIKey)

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elsevier API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(e.Kind(), resp.StatusCode)
	}

	var er elsevierResponse
	if err := xml.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("parsing elsevier response: %w", err)
	}

	title := strings.TrimSpace(er.Coredata.Title)
	text := strings.TrimSpace(er.OriginalText)
	if title == "" && text == "" {
		return nil, fmt.Errorf("elsevier has no record for %s: %w", doi, ErrUnavailable)
	}

	rec := &types.StructuredRecord{
		Metadata: types.RecordMeta{
			ExtractionTimestamp: time.Now().Format(time.RFC3339),
			Language:            "en",
		},
		Publication: types.PublicationInfo{
			Journal:   strings.TrimSpace(er.Coredata.Publication),
			Publisher: "Elsevier",
			DOI:       strings.TrimSpace(er.Coredata.DOI),
		},
		Title: title,
	}
	if rec.Publication.DOI == "" {
		rec.Publication.DOI = doi
	}
	if d := strings.TrimSpace(er.Coredata.CoverDate); d != "" {
		rec.Publication.PublicationDates = map[string]string{"cover": d}
	}
	for _, c := range er.Coredata.Creators {
		name := strings.TrimSpace(c)
		if name == "" {
			continue
		}
		rec.Authors = append(rec.Authors, types.RecordAuthor{
			FullName:        name,
			AffiliationRefs: []string{},
		})
	}
	if desc := strings.TrimSpace(er.Coredata.Description); desc != "" {
		rec.Abstract = &types.Abstract{FullText: desc}
	}
	if text != "" {
		rec.Content = &types.BodyContent{
			Sections: []types.Section{},
			FullText: text,
		}
	}
	return &Result{Source: e.Kind(), Record: rec}, nil
}
