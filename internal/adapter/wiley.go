// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jomare1188/studious-funicular/internal/artifact"
	"github.com/jomare1188/studious-funicular/internal/httputil"
	"github.com/jomare1188/studious-funicular/internal/source"
)

// wileyAPIBase is the Wiley TDM article delivery endpoint; the
// percent-encoded DOI is appended to the path.
const wileyAPIBase = "https://api.wiley.com/onlinelibrary/tdm/v1/articles/"

// Wiley fetches PDFs through the Wiley TDM API. The TDM client contract
// is that delivery and persistence are one step, so this adapter writes
// the artifact itself and reports the saved path; the caller must treat
// that as terminal success and must not write again.
type Wiley struct {
	Client    httputil.Doer
	Token     string
	UserAgent string
	BaseURL   string

	// Out persists the delivered PDF under the identifier-derived name.
	Out *artifact.Writer
}

func NewWiley(client httputil.Doer, token, userAgent string, out *artifact.Writer) *Wiley {
	return &Wiley{Client: client, Token: token, UserAgent: userAgent, BaseURL: wileyAPIBase, Out: out}
}

func (w *Wiley) Kind() source.Kind { return source.KindWiley }

func (w *Wiley) Fetch(ctx context.Context, doi string) (*Result, error) {
	if w.Token == "" {
		return nil, fmt.Errorf("wiley: %w", ErrNoCredential)
	}

	req, err := newRequest(ctx, w.BaseURL+url.PathEscape(doi), w.UserAgent, "application/pdf")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Wiley-TDM-Client-Token", w.Token)

	resp, err := w.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wiley TDM request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(w.Kind(), resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "pdf") {
		return nil, fmt.Errorf("wiley delivered %s for %s: %w", ct, doi, ErrUnavailable)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading wiley delivery: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("wiley delivered empty body for %s: %w", doi, ErrUnavailable)
	}

	path, err := w.Out.WriteRaw(doi, data)
	if err != nil {
		return nil, fmt.Errorf("persisting wiley delivery: %w", err)
	}
	return &Result{Source: w.Kind(), SavedPath: path}, nil
}
