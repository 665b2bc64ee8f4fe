// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rate implements the process-wide per-source admission gate. One
// Gate instance is shared by reference across every adapter call for the
// life of the process; it is the only component that must be safe under
// concurrent callers.
package rate

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jomare1188/studious-funicular/internal/source"
	"github.com/jomare1188/studious-funicular/pkg/types"
)

// Defaults applied when the config leaves a field zero.
const (
	DefaultRequestLimit = 450
	DefaultCooldown     = 90000 * time.Millisecond
)

// Gate tracks admitted requests per source kind and enforces a cooldown
// once a source exhausts its quota. Admission counts successful dispatch:
// callers refund attempts whose wrapped operation failed.
type Gate struct {
	limit    int
	cooldown time.Duration

	mu      sync.Mutex
	sources map[source.Kind]*sourceState
}

// sourceState is one kind's counter. Its mutex serializes that kind only,
// so unrelated sources never delay each other.
type sourceState struct {
	mu      sync.Mutex
	count   int
	cooling bool
	cleared chan struct{} // closed when the current cooldown ends
	timer   *time.Timer
}

// New builds a Gate from config, substituting defaults for zero values.
func New(cfg types.RateConfig) *Gate {
	limit := cfg.RequestLimit
	if limit <= 0 {
		limit = DefaultRequestLimit
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Gate{
		limit:    limit,
		cooldown: cooldown,
		sources:  make(map[source.Kind]*sourceState),
	}
}

// Limit returns the configured per-source request limit.
func (g *Gate) Limit() int { return g.limit }

func (g *Gate) state(kind source.Kind) *sourceState {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.sources[kind]
	if !ok {
		st = &sourceState{}
		g.sources[kind] = st
	}
	return st
}

// Admit blocks until one request against kind's quota is permitted, then
// counts it. When the counter reaches the limit, the admitting call
// resets the counter, marks the kind cooling, and schedules the unmark on
// a detached timer; the triggering caller itself is not delayed. Callers
// arriving while the kind is cooling wait until the cooldown clears, or
// until ctx is done.
func (g *Gate) Admit(ctx context.Context, kind source.Kind) error {
	st := g.state(kind)
	for {
		st.mu.Lock()
		if !st.cooling {
			st.count++
			if st.count >= g.limit {
				g.startCooldownLocked(st)
			}
			st.mu.Unlock()
			return nil
		}
		wait := st.cleared
		st.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wait:
		}
	}
}

// startCooldownLocked begins a cooldown cycle for st. The caller holds
// st.mu. The timer callback only clears the cycle it started, so a kind
// is never in two cooldown cycles at once even across Reset calls.
func (g *Gate) startCooldownLocked(st *sourceState) {
	st.count = 0
	st.cooling = true
	ch := make(chan struct{})
	st.cleared = ch
	st.timer = time.AfterFunc(g.cooldown, func() {
		st.mu.Lock()
		if st.cleared == ch {
			st.cooling = false
			st.cleared = nil
			st.timer = nil
			close(ch)
		}
		st.mu.Unlock()
	})
}

// Refund returns one admission for kind after its wrapped operation
// failed, so failed calls do not burn quota. Best-effort: a refund that
// races a cooldown reset is dropped rather than corrupting the counter.
func (g *Gate) Refund(kind source.Kind) {
	st := g.state(kind)
	st.mu.Lock()
	if st.count > 0 {
		st.count--
	}
	st.mu.Unlock()
}

// Do admits one request for kind, runs fn, and refunds the admission if
// fn returns an error.
func (g *Gate) Do(ctx context.Context, kind source.Kind, fn func() error) error {
	if err := g.Admit(ctx, kind); err != nil {
		return err
	}
	if err := fn(); err != nil {
		g.Refund(kind)
		return err
	}
	return nil
}

// Counts returns a snapshot copy of every tracked counter. The returned
// map is owned by the caller; mutating it has no effect on the gate.
func (g *Gate) Counts() map[source.Kind]int {
	g.mu.Lock()
	states := make(map[source.Kind]*sourceState, len(g.sources))
	for k, st := range g.sources {
		states[k] = st
	}
	g.mu.Unlock()

	out := make(map[source.Kind]int, len(states))
	for k, st := range states {
		st.mu.Lock()
		out[k] = st.count
		st.mu.Unlock()
	}
	return out
}

// SourceStatus is one kind's observable gate state.
type SourceStatus struct {
	Kind    source.Kind
	Count   int
	Limit   int
	Cooling bool
}

// Status reports every source's counter against its limit, in source
// priority order. Untracked kinds report zero.
func (g *Gate) Status() []SourceStatus {
	var out []SourceStatus
	for _, k := range source.Kinds() {
		s := SourceStatus{Kind: k, Limit: g.limit}
		g.mu.Lock()
		st := g.sources[k]
		g.mu.Unlock()
		if st != nil {
			st.mu.Lock()
			s.Count = st.count
			s.Cooling = st.cooling
			st.mu.Unlock()
		}
		out = append(out, s)
	}
	return out
}

// WriteStatus prints a human-readable status table to w.
func (g *Gate) WriteStatus(w io.Writer) {
	fmt.Fprintf(w, "%-12s %9s  %s\n", "source", "requests", "state")
	for _, s := range g.Status() {
		state := "ok"
		if s.Cooling {
			state = "cooling"
		}
		fmt.Fprintf(w, "%-12s %4d/%4d  %s\n", s.Kind, s.Count, s.Limit, state)
	}
}

// Reset forces kind's counter to zero and clears any active cooldown,
// waking blocked callers. Operator intervention only; the steady-state
// path never calls it.
func (g *Gate) Reset(kind source.Kind) {
	st := g.state(kind)
	st.mu.Lock()
	st.count = 0
	if st.cooling {
		if st.timer != nil {
			st.timer.Stop()
		}
		ch := st.cleared
		st.cooling = false
		st.cleared = nil
		st.timer = nil
		close(ch)
	}
	st.mu.Unlock()
}

// ResetAll resets every tracked source.
func (g *Gate) ResetAll() {
	g.mu.Lock()
	kinds := make([]source.Kind, 0, len(g.sources))
	for k := range g.sources {
		kinds = append(kinds, k)
	}
	g.mu.Unlock()
	for _, k := range kinds {
		g.Reset(k)
	}
}
