// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Ledger accumulates identifiers that exhausted every source, grouped by
// collection. Entries are deduplicated, so re-running an identifier does
// not grow the ledger. Writes are full snapshots of the accumulated
// state, never incremental diffs.
type Ledger struct {
	mu     sync.Mutex
	failed map[string][]string
	seen   map[string]map[string]bool
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		failed: make(map[string][]string),
		seen:   make(map[string]map[string]bool),
	}
}

// Add records doi as exhausted for collection. Duplicate adds are ignored.
func (l *Ledger) Add(collection, doi string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen[collection] == nil {
		l.seen[collection] = make(map[string]bool)
	}
	if l.seen[collection][doi] {
		return
	}
	l.seen[collection][doi] = true
	l.failed[collection] = append(l.failed[collection], doi)
}

// Failed returns a copy of the exhausted identifiers for collection, in
// insertion order.
func (l *Ledger) Failed(collection string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.failed[collection]))
	copy(out, l.failed[collection])
	return out
}

// Collections returns the collection IDs with at least one failure,
// sorted for stable output.
func (l *Ledger) Collections() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.failed))
	for c := range l.failed {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// FlushCollection writes collection's failure snapshot to path as JSON,
// keyed by the collection ID. An empty collection still writes a file, so
// a clean run is distinguishable from one that never completed.
func (l *Ledger) FlushCollection(path, collection string) error {
	snapshot := map[string][]string{collection: l.Failed(collection)}
	if snapshot[collection] == nil {
		snapshot[collection] = []string{}
	}
	return writeJSON(path, snapshot)
}

// WriteCombined writes the full cross-collection snapshot to path.
func (l *Ledger) WriteCombined(path string) error {
	l.mu.Lock()
	snapshot := make(map[string][]string, len(l.failed))
	for c, dois := range l.failed {
		cp := make([]string, len(dois))
		copy(cp, dois)
		snapshot[c] = cp
	}
	l.mu.Unlock()
	return writeJSON(path, snapshot)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling ledger: %w", err)
	}
	if err := WriteAtomic(path, data); err != nil {
		return fmt.Errorf("writing ledger %s: %w", path, err)
	}
	return nil
}
