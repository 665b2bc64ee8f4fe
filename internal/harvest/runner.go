// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.yaml.in/yaml/v3"

	"github.com/jomare1188/studious-funicular/internal/adapter"
	"github.com/jomare1188/studious-funicular/internal/artifact"
	"github.com/jomare1188/studious-funicular/internal/httputil"
	"github.com/jomare1188/studious-funicular/internal/index"
	"github.com/jomare1188/studious-funicular/internal/rate"
	"github.com/jomare1188/studious-funicular/internal/source"
	"github.com/jomare1188/studious-funicular/pkg/types"
)

// collectionSuffix is the input filename convention: one JSON file per
// collection, named <collection>_articles.json.
const collectionSuffix = "_articles.json"

// Ledger filenames, one per collection plus a combined file at the
// output root.
const (
	failedFile   = "failed_dois.json"
	combinedFile = "all_failed_dois.json"
	manifestFile = "manifest.yaml"
)

// Manifest summarizes one collection run. It is written to the
// collection's output directory as YAML.
type Manifest struct {
	Collection string         `yaml:"collection"`
	StartedAt  time.Time      `yaml:"started_at"`
	FinishedAt time.Time      `yaml:"finished_at"`
	Attempted  int            `yaml:"attempted"`
	Acquired   int            `yaml:"acquired"`
	Skipped    int            `yaml:"skipped"`
	Failed     int            `yaml:"failed"`
	BySource   map[string]int `yaml:"by_source,omitempty"`
	FailedDOIs []string       `yaml:"failed_dois,omitempty"`
}

// Runner processes collections sequentially, sharing one rate gate, one
// failure ledger, and one acquisition index across all of them.
type Runner struct {
	cfg    types.HarvestConfig
	client httputil.Doer
	creds  map[string]string

	gate   *rate.Gate
	ledger *artifact.Ledger
	idx    *index.Index
}

// NewRunner builds a Runner. creds is the loaded credential set, keyed by
// secret name; missing keys disable the corresponding adapters without
// failing the run. idx may be nil to run without an acquisition index.
func NewRunner(cfg types.HarvestConfig, client httputil.Doer, creds map[string]string, idx *index.Index) *Runner {
	return &Runner{
		cfg:    cfg,
		client: client,
		creds:  creds,
		gate:   rate.New(cfg.Rate),
		ledger: artifact.NewLedger(),
		idx:    idx,
	}
}

// Gate exposes the shared rate gate for observability.
func (r *Runner) Gate() *rate.Gate { return r.gate }

// unpaywallEmail prefers the configured operator email and falls back to
// the credential set.
func (r *Runner) unpaywallEmail() string {
	if r.cfg.Email != "" {
		return r.cfg.Email
	}
	return r.creds["unpaywall-email"]
}

// adapters builds the per-collection adapter set. The wiley adapter
// persists through the collection's writer, so the set is rebuilt for
// every collection.
func (r *Runner) adapters(w *artifact.Writer) AdapterSet {
	ua := r.cfg.UserAgent
	primary := map[source.Kind]adapter.Adapter{
		source.KindSpringer:  adapter.NewSpringer(r.client, r.creds["springer-api-key"], ua),
		source.KindElsevier:  adapter.NewElsevier(r.client, r.creds["elsevier-api-key"], ua),
		source.KindWiley:     adapter.NewWiley(r.client, r.creds["wiley-tdm-token"], ua, w),
		source.KindPLOS:      adapter.NewPLOS(r.client, ua),
		source.KindFrontiers: adapter.NewFrontiers(r.client, ua),
		source.KindBioRxiv:   adapter.NewBioRxiv(r.client, ua),
		source.KindArxiv:     adapter.NewArxiv(r.client, ua),
		source.KindIEEE:      adapter.NewIEEE(r.client, ua),
	}
	return AdapterSet{
		Primary:    primary,
		Aggregator: adapter.NewUnpaywall(r.client, r.unpaywallEmail(), ua),
		Generic:    adapter.NewGeneric(r.client, ua),
	}
}

// RunCollection acquires every identifier in one collection. The failure
// ledger for the collection is flushed even when the run errors midway.
func (r *Runner) RunCollection(ctx context.Context, col types.Collection) (m Manifest, err error) {
	outDir := filepath.Join(r.cfg.OutputDir, col.Name)
	writer := artifact.NewWriter(outDir)

	p := &Pipeline{
		Collection: col.Name,
		Gate:       r.gate,
		Writer:     writer,
		Ledger:     r.ledger,
		Adapters:   r.adapters(writer),
		Index:      r.idx,
	}

	m = Manifest{
		Collection: col.Name,
		StartedAt:  time.Now().UTC(),
		BySource:   make(map[string]int),
	}

	defer func() {
		m.FinishedAt = time.Now().UTC()
		m.FailedDOIs = r.ledger.Failed(col.Name)
		m.Failed = len(m.FailedDOIs)
		if ferr := r.ledger.FlushCollection(filepath.Join(outDir, failedFile), col.Name); ferr != nil && err == nil {
			err = ferr
		}
		if merr := writeManifest(filepath.Join(outDir, manifestFile), m); merr != nil && err == nil {
			err = merr
		}
	}()

	for _, doi := range col.DOIs() {
		if ctx.Err() != nil {
			return m, ctx.Err()
		}
		m.Attempted++

		out, aerr := p.Acquire(ctx, doi)
		switch {
		case aerr != nil:
			log.WithFields(log.Fields{
				"collection": col.Name,
				"doi":        doi,
			}).WithError(aerr).Error("acquisition failed")
		case out.Skipped:
			m.Skipped++
		default:
			m.Acquired++
			m.BySource[out.Source.String()]++
			log.WithFields(log.Fields{
				"collection": col.Name,
				"doi":        doi,
				"source":     out.Source.String(),
				"path":       out.Path,
			}).Info("acquired")
		}
	}

	if r.idx != nil {
		if counts, cerr := r.idx.CollectionCounts(ctx, col.Name); cerr == nil {
			log.WithFields(log.Fields{
				"collection":     col.Name,
				"acquired_total": counts[index.StatusAcquired],
				"failed_total":   counts[index.StatusFailed],
			}).Info("collection totals")
		}
	}
	return m, nil
}

// Run processes every collection in order, pausing between them, then
// writes the combined cross-collection failure ledger.
func (r *Runner) Run(ctx context.Context, collections []types.Collection) error {
	delay := r.cfg.CollectionDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	for i, col := range collections {
		if ctx.Err() != nil {
			break
		}
		log.WithFields(log.Fields{
			"collection": col.Name,
			"articles":   len(col.Articles),
		}).Info("processing collection")

		if _, err := r.RunCollection(ctx, col); err != nil {
			// The collection's ledger already flushed; keep going.
			log.WithFields(log.Fields{"collection": col.Name}).
				WithError(err).Error("collection run failed")
		}

		if i < len(collections)-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}
	}

	return r.ledger.WriteCombined(filepath.Join(r.cfg.OutputDir, combinedFile))
}

func writeManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := artifact.WriteAtomic(path, data); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// LoadCollection reads one <collection>_articles.json file. The
// collection name is the filename with the suffix stripped.
func LoadCollection(path string) (types.Collection, error) {
	var col types.Collection

	data, err := os.ReadFile(path)
	if err != nil {
		return col, fmt.Errorf("reading collection file: %w", err)
	}
	if err := json.Unmarshal(data, &col); err != nil {
		return col, fmt.Errorf("parsing collection file %s: %w", path, err)
	}

	base := filepath.Base(path)
	col.Name = strings.TrimSuffix(base, collectionSuffix)
	col.Name = strings.TrimSuffix(col.Name, ".json")
	return col, nil
}

// LoadCollections reads every collection file in dir, sorted by name for
// a stable processing order.
func LoadCollections(dir string) ([]types.Collection, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+collectionSuffix))
	if err != nil {
		return nil, fmt.Errorf("listing collection files: %w", err)
	}
	sort.Strings(matches)

	var out []types.Collection
	for _, path := range matches {
		col, err := LoadCollection(path)
		if err != nil {
			// An unreadable collection must not sink the others.
			log.WithFields(log.Fields{"path": path}).WithError(err).Error("skipping collection file")
			continue
		}
		out = append(out, col)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", collectionSuffix, dir)
	}
	return out, nil
}
