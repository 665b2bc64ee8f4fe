// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package adapter implements one fetch behavior per upstream source. All
// adapters share a uniform capability: given a DOI, produce exactly one of
// a structured record, a raw payload, a redirect URL, or an error. Rate
// admission and retry policy belong to the caller, never to an adapter.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jomare1188/studious-funicular/internal/source"
	"github.com/jomare1188/studious-funicular/pkg/types"
)

var (
	// ErrNoCredential marks a configuration failure: the credential the
	// adapter needs is absent. The adapter is skipped for the whole run;
	// the failure is not retryable and not fatal to the run.
	ErrNoCredential = errors.New("missing credential")

	// ErrUnavailable marks an upstream miss: the source answered but
	// cannot serve this identifier (no open-access copy, empty result
	// set, wrong content type). The caller falls back to the next source.
	ErrUnavailable = errors.New("document unavailable from source")
)

// Result is the outcome of one successful fetch. Exactly one of Record,
// Bytes, RedirectURL, or SavedPath is populated.
type Result struct {
	// Source is the kind that produced the result.
	Source source.Kind

	// Record is a structured metadata-and-fulltext document.
	Record *types.StructuredRecord

	// Bytes is an opaque binary payload (a PDF).
	Bytes []byte

	// RedirectURL is a located PDF URL requiring one more fetch step.
	RedirectURL string

	// SavedPath is set when the adapter persisted the artifact itself
	// (the Wiley TDM client owns its own downloads); the caller must not
	// write a second artifact.
	SavedPath string
}

// Empty reports whether no variant is populated. A fetch that returns an
// empty result without an error is treated as an upstream failure by the
// caller.
func (r *Result) Empty() bool {
	return r == nil ||
		(r.Record == nil && len(r.Bytes) == 0 && r.RedirectURL == "" && r.SavedPath == "")
}

// Adapter is the uniform capability wrapping one upstream source.
type Adapter interface {
	// Kind names the source, which keys its rate budget.
	Kind() source.Kind

	// Fetch attempts to acquire the document for one DOI. Adapters never
	// retry internally.
	Fetch(ctx context.Context, doi string) (*Result, error)
}

// statusError formats a non-2xx upstream response as an unavailability
// error so callers can fall back uniformly.
func statusError(kind source.Kind, code int) error {
	return fmt.Errorf("%s returned HTTP %d: %w", kind, code, ErrUnavailable)
}

func newRequest(ctx context.Context, url, userAgent, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return req, nil
}
