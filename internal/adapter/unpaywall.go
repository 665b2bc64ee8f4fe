// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jomare1188/studious-funicular/internal/httputil"
	"github.com/jomare1188/studious-funicular/internal/source"
)

// unpaywallAPIBase is the Unpaywall DOI lookup endpoint.
const unpaywallAPIBase = "https://api.unpaywall.org/v2/"

// Unpaywall looks up an open-access copy of a DOI. On a hit it returns a
// Redirect (the located PDF URL), never the bytes themselves: the caller
// performs the one extra fetch to materialize the payload.
type Unpaywall struct {
	Client    httputil.Doer
	Email     string
	UserAgent string
	BaseURL   string
}

func NewUnpaywall(client httputil.Doer, email, userAgent string) *Unpaywall {
	return &Unpaywall{Client: client, Email: email, UserAgent: userAgent, BaseURL: unpaywallAPIBase}
}

func (u *Unpaywall) Kind() source.Kind { return source.KindUnpaywall }

// unpaywallResponse captures the fields we need from a DOI lookup.
type unpaywallResponse struct {
	IsOA           bool `json:"is_oa"`
	BestOALocation *struct {
		URLForPDF string `json:"url_for_pdf"`
	} `json:"best_oa_location"`
}

func (u *Unpaywall) Fetch(ctx context.Context, doi string) (*Result, error) {
	if u.Email == "" {
		return nil, fmt.Errorf("unpaywall: %w", ErrNoCredential)
	}

	lookup := u.BaseURL + url.PathEscape(doi) + "?email=" + url.QueryEscape(u.Email)
	req, err := newRequest(ctx, lookup, u.UserAgent, "application/json")
	if err != nil {
		return nil, err
	}

	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unpaywall request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(u.Kind(), resp.StatusCode)
	}

	var ur unpaywallResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return nil, fmt.Errorf("parsing unpaywall response: %w", err)
	}

	if !ur.IsOA || ur.BestOALocation == nil || ur.BestOALocation.URLForPDF == "" {
		return nil, fmt.Errorf("no open-access copy of %s: %w", doi, ErrUnavailable)
	}
	return &Result{Source: u.Kind(), RedirectURL: ur.BestOALocation.URLForPDF}, nil
}
