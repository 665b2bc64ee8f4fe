// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jomare1188/studious-funicular/internal/httputil"
	"github.com/jomare1188/studious-funicular/internal/jats"
	"github.com/jomare1188/studious-funicular/internal/source"
)

// springerAPIBase is the Springer Nature OpenAccess JATS endpoint.
const springerAPIBase = "https://api.springernature.com/openaccess/jats"

// Springer fetches open-access full text from the Springer Nature API and
// parses the JATS payload into a structured record.
type Springer struct {
	Client    httputil.Doer
	APIKey    string
	UserAgent string

	// BaseURL defaults to the production endpoint; tests point it at an
	// httptest server.
	BaseURL string
}

// NewSpringer builds the Springer adapter. An empty apiKey is legal; the
// adapter then reports a configuration failure on every fetch.
func NewSpringer(client httputil.Doer, apiKey, userAgent string) *Springer {
	return &Springer{Client: client, APIKey: apiKey, UserAgent: userAgent, BaseURL: springerAPIBase}
}

func (s *Springer) Kind() source.Kind { return source.KindSpringer }

func (s *Springer) Fetch(ctx context.Context, doi string) (*Result, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("springer: %w", ErrNoCredential)
	}

	query := url.Values{}
	query.Set("api_key", s.APIKey)
	query.Set("q", fmt.Sprintf("doi:%q", doi))

	req, err := newRequest(ctx, s.BaseURL+"?"+query.Encode(), s.UserAgent, "application/xml")
	if err != nil {
		return nil, err
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("springer API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(s.Kind(), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading springer response: %w", err)
	}

	rec, err := jats.Parse(body)
	if err != nil {
		if errors.Is(err, jats.ErrNoArticle) {
			// Soft 200: an OK response with no article means the DOI is
			// not in the open-access corpus.
			return nil, fmt.Errorf("springer has no record for %s: %w", doi, ErrUnavailable)
		}
		return nil, fmt.Errorf("springer payload for %s: %w", doi, err)
	}
	return &Result{Source: s.Kind(), Record: rec}, nil
}
