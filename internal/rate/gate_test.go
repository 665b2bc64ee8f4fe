// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jomare1188/studious-funicular/internal/source"
	"github.com/jomare1188/studious-funicular/pkg/types"
)

func newTestGate(limit int, cooldown time.Duration) *Gate {
	return New(types.RateConfig{RequestLimit: limit, Cooldown: cooldown})
}

func TestDefaults(t *testing.T) {
	g := New(types.RateConfig{})
	if g.limit != DefaultRequestLimit {
		t.Errorf("limit = %d, want %d", g.limit, DefaultRequestLimit)
	}
	if g.cooldown != DefaultCooldown {
		t.Errorf("cooldown = %v, want %v", g.cooldown, DefaultCooldown)
	}
}

func TestAdmitCounts(t *testing.T) {
	g := newTestGate(100, time.Minute)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := g.Admit(ctx, source.KindSpringer); err != nil {
			t.Fatalf("Admit: %v", err)
		}
	}
	if got := g.Counts()[source.KindSpringer]; got != 5 {
		t.Errorf("count = %d, want 5", got)
	}
}

// After exactly limit admissions the next one must block until the
// cooldown elapses.
func TestAdmitBlocksAtLimit(t *testing.T) {
	const limit = 3
	cooldown := 100 * time.Millisecond
	g := newTestGate(limit, cooldown)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < limit; i++ {
		if err := g.Admit(ctx, source.KindPLOS); err != nil {
			t.Fatalf("Admit %d: %v", i, err)
		}
	}
	// The limit-th admission started the cooldown but must not have
	// blocked its own caller.
	if elapsed := time.Since(start); elapsed > cooldown/2 {
		t.Fatalf("threshold admission blocked for %v", elapsed)
	}

	if err := g.Admit(ctx, source.KindPLOS); err != nil {
		t.Fatalf("Admit after cooldown: %v", err)
	}
	if elapsed := time.Since(start); elapsed < cooldown {
		t.Errorf("over-limit admission returned after %v, want >= %v", elapsed, cooldown)
	}
}

// A cooldown on one source must never delay admissions for another.
func TestSourcesIndependent(t *testing.T) {
	g := newTestGate(1, time.Minute)
	ctx := context.Background()

	// Exhaust springer so it is cooling.
	if err := g.Admit(ctx, source.KindSpringer); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Admit(ctx, source.KindWiley)
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Admit(wiley): %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Admit(wiley) delayed by springer cooldown")
	}
}

// Failed wrapped operations are refunded, so counters after N failures
// must not exceed counters after N successes.
func TestDoRefundsFailures(t *testing.T) {
	g := newTestGate(100, time.Minute)
	ctx := context.Background()
	fail := errors.New("upstream")

	for i := 0; i < 10; i++ {
		err := g.Do(ctx, source.KindFrontiers, func() error { return fail })
		if !errors.Is(err, fail) {
			t.Fatalf("Do = %v, want wrapped failure", err)
		}
	}
	if got := g.Counts()[source.KindFrontiers]; got != 0 {
		t.Errorf("count after 10 failures = %d, want 0", got)
	}

	for i := 0; i < 10; i++ {
		if err := g.Do(ctx, source.KindFrontiers, func() error { return nil }); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	if got := g.Counts()[source.KindFrontiers]; got != 10 {
		t.Errorf("count after 10 successes = %d, want 10", got)
	}
}

func TestCountsIsSnapshot(t *testing.T) {
	g := newTestGate(100, time.Minute)
	if err := g.Admit(context.Background(), source.KindPLOS); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	snap := g.Counts()
	snap[source.KindPLOS] = 999
	if got := g.Counts()[source.KindPLOS]; got != 1 {
		t.Errorf("live count changed through snapshot: %d", got)
	}
}

func TestResetWakesWaiters(t *testing.T) {
	g := newTestGate(1, time.Hour)
	ctx := context.Background()
	if err := g.Admit(ctx, source.KindIEEE); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Admit(ctx, source.KindIEEE)
	}()
	time.Sleep(20 * time.Millisecond)
	g.Reset(source.KindIEEE)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Admit after reset: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by Reset")
	}
}

func TestAdmitHonorsContext(t *testing.T) {
	g := newTestGate(1, time.Hour)
	if err := g.Admit(context.Background(), source.KindElsevier); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := g.Admit(ctx, source.KindElsevier); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Admit = %v, want deadline exceeded", err)
	}
}

func TestConcurrentAdmits(t *testing.T) {
	g := newTestGate(1000, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if err := g.Admit(ctx, source.KindGeneric); err != nil {
					t.Errorf("Admit: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := g.Counts()[source.KindGeneric]; got != 400 {
		t.Errorf("count = %d, want 400", got)
	}
}

func TestWriteStatus(t *testing.T) {
	g := newTestGate(10, time.Minute)
	if err := g.Admit(context.Background(), source.KindSpringer); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	var sb strings.Builder
	g.WriteStatus(&sb)
	out := sb.String()
	if !strings.Contains(out, "springer") {
		t.Errorf("status missing springer row:\n%s", out)
	}
	if !strings.Contains(out, "1/") {
		t.Errorf("status missing count:\n%s", out)
	}
}
