// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"fmt"
	"io"

	"github.com/jomare1188/studious-funicular/internal/httputil"
	"github.com/jomare1188/studious-funicular/internal/source"
)

// Generic performs one plain binary fetch of a known URL. It materializes
// redirect results from the aggregator and serves as the last-resort
// fetch path; it has its own quota key.
type Generic struct {
	Client    httputil.Doer
	UserAgent string
}

func NewGeneric(client httputil.Doer, userAgent string) *Generic {
	return &Generic{Client: client, UserAgent: userAgent}
}

func (g *Generic) Kind() source.Kind { return source.KindGeneric }

// FetchURL downloads the payload at rawURL. Transient 429 responses are
// retried with backoff; any other non-2xx status is an unavailability
// error. No chaining: the caller gets exactly one fetch per call.
func (g *Generic) FetchURL(ctx context.Context, rawURL string) (*Result, error) {
	req, err := newRequest(ctx, rawURL, g.UserAgent, "application/pdf")
	if err != nil {
		return nil, err
	}

	resp, err := httputil.DoWithRetry(ctx, g.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(g.Kind(), resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty body from %s: %w", rawURL, ErrUnavailable)
	}
	return &Result{Source: g.Kind(), Bytes: data}, nil
}
