// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest drives full-text acquisition: for each identifier it
// walks the classified source chain, falls back to the open-access
// aggregator, persists the first successful result, and records the
// identifiers that exhausted every source.
package harvest

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/jomare1188/studious-funicular/internal/adapter"
	"github.com/jomare1188/studious-funicular/internal/artifact"
	"github.com/jomare1188/studious-funicular/internal/index"
	"github.com/jomare1188/studious-funicular/internal/rate"
	"github.com/jomare1188/studious-funicular/internal/source"
)

// ErrMalformed marks an identifier that fails the well-formedness check.
// Such identifiers go straight to the failure ledger without touching the
// network or the rate gate.
var ErrMalformed = errors.New("malformed identifier")

// ErrExhausted marks an identifier for which every source failed.
var ErrExhausted = errors.New("all sources exhausted")

// errPersist marks a write failure after a successful fetch. It is
// terminal for the identifier: falling back to another source would just
// hit the same disk.
var errPersist = errors.New("artifact write failed")

// Outcome is the per-identifier acquisition result.
type Outcome struct {
	// DOI is the identifier the outcome belongs to.
	DOI string

	// Source is the kind that served the artifact.
	Source source.Kind

	// Path is the persisted artifact path.
	Path string

	// Skipped reports that an artifact already existed and no network
	// interaction happened.
	Skipped bool
}

// AdapterSet holds the adapters for one collection, keyed by kind, plus
// the aggregator and the generic fetcher which sit outside the
// classification chain.
type AdapterSet struct {
	Primary    map[source.Kind]adapter.Adapter
	Aggregator adapter.Adapter
	Generic    *adapter.Generic
}

// Pipeline acquires identifiers for one collection. The gate and ledger
// are shared across collections; the writer and adapter set are owned by
// the collection being processed.
type Pipeline struct {
	Collection string
	Gate       *rate.Gate
	Writer     *artifact.Writer
	Ledger     *artifact.Ledger
	Adapters   AdapterSet

	// Index is optional; when set, acquisitions are recorded and
	// previously acquired identifiers are skipped.
	Index *index.Index
}

// Acquire runs the fallback chain for one identifier. On success it
// returns the persisted artifact path; on exhaustion the identifier is
// added to the failure ledger and ErrExhausted is returned. Errors are
// contained per identifier: the caller keeps processing siblings.
func (p *Pipeline) Acquire(ctx context.Context, doi string) (*Outcome, error) {
	if !source.WellFormed(doi) {
		p.exhaust(ctx, doi)
		return nil, fmt.Errorf("%q: %w", doi, ErrMalformed)
	}

	if path := p.existing(ctx, doi); path != "" {
		log.WithFields(log.Fields{"doi": doi, "path": path}).Debug("artifact exists, skipping")
		return &Outcome{DOI: doi, Path: path, Skipped: true}, nil
	}

	for _, kind := range source.Classify(doi) {
		ad, ok := p.Adapters.Primary[kind]
		if !ok {
			continue
		}
		out, err := p.attempt(ctx, ad, doi)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, errPersist) {
				return nil, err
			}
			log.WithFields(log.Fields{"doi": doi, "source": kind.String()}).
				WithError(err).Debug("source failed, falling back")
			continue
		}
		return out, nil
	}

	if p.Adapters.Aggregator != nil {
		out, err := p.attempt(ctx, p.Adapters.Aggregator, doi)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, errPersist) {
			return nil, err
		}
		log.WithFields(log.Fields{"doi": doi}).WithError(err).Debug("aggregator failed")
	}

	p.exhaust(ctx, doi)
	return nil, fmt.Errorf("%q: %w", doi, ErrExhausted)
}

// attempt runs one adapter under rate admission, chains a redirect result
// through exactly one generic fetch, and persists the outcome.
func (p *Pipeline) attempt(ctx context.Context, ad adapter.Adapter, doi string) (*Outcome, error) {
	var res *adapter.Result
	err := p.Gate.Do(ctx, ad.Kind(), func() error {
		var ferr error
		res, ferr = ad.Fetch(ctx, doi)
		if ferr != nil {
			return ferr
		}
		if res.Empty() {
			// An adapter that returns neither a populated result nor an
			// error counts as an upstream failure.
			return fmt.Errorf("%s returned nothing for %s: %w", ad.Kind(), doi, adapter.ErrUnavailable)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.RedirectURL != "" {
		redirected, rerr := p.materialize(ctx, doi, res.RedirectURL)
		if rerr != nil {
			return nil, rerr
		}
		redirected.Source = res.Source
		res = redirected
	}

	return p.persist(ctx, doi, res)
}

// materialize performs the single follow-up fetch for a redirect result,
// under the generic quota key. No further chaining.
func (p *Pipeline) materialize(ctx context.Context, doi, url string) (*adapter.Result, error) {
	var res *adapter.Result
	err := p.Gate.Do(ctx, p.Adapters.Generic.Kind(), func() error {
		var ferr error
		res, ferr = p.Adapters.Generic.FetchURL(ctx, url)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("materializing redirect for %s: %w", doi, err)
	}
	return res, nil
}

// persist writes the artifact for a successful result. A result carrying
// SavedPath was already written by its adapter and is terminal as is.
func (p *Pipeline) persist(ctx context.Context, doi string, res *adapter.Result) (*Outcome, error) {
	var path string
	var err error
	switch {
	case res.SavedPath != "":
		path = res.SavedPath
	case res.Record != nil:
		path, err = p.Writer.WriteRecord(doi, res.Record)
	default:
		path, err = p.Writer.WriteRaw(doi, res.Bytes)
	}
	if err != nil {
		// Fatal to this identifier only. The identifier still lands in
		// the ledger so the failure is durable.
		p.exhaust(ctx, doi)
		return nil, fmt.Errorf("persisting %s (%v): %w", doi, err, errPersist)
	}

	p.record(ctx, index.Entry{
		DOI:          doi,
		CollectionID: p.Collection,
		Source:       res.Source.String(),
		Status:       index.StatusAcquired,
		ArtifactPath: path,
	})
	return &Outcome{DOI: doi, Source: res.Source, Path: path}, nil
}

// existing returns a previously persisted artifact path for doi, checking
// the on-disk writer first and then the acquisition index.
func (p *Pipeline) existing(ctx context.Context, doi string) string {
	if path := p.Writer.Existing(doi); path != "" {
		return path
	}
	if p.Index != nil {
		if ok, err := p.Index.Acquired(ctx, doi); err == nil && ok {
			if e, err := p.Index.Lookup(ctx, doi); err == nil && e != nil {
				return e.ArtifactPath
			}
		}
	}
	return ""
}

func (p *Pipeline) exhaust(ctx context.Context, doi string) {
	p.Ledger.Add(p.Collection, doi)
	p.record(ctx, index.Entry{
		DOI:          doi,
		CollectionID: p.Collection,
		Source:       source.KindUnknown.String(),
		Status:       index.StatusFailed,
	})
}

func (p *Pipeline) record(ctx context.Context, e index.Entry) {
	if p.Index == nil {
		return
	}
	if err := p.Index.Record(ctx, e); err != nil {
		log.WithFields(log.Fields{"doi": e.DOI}).WithError(err).Warn("recording acquisition")
	}
}
