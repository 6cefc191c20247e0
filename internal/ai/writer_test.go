package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nyashahama/vitality-blueprint-backend/internal/ai"
	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
	"github.com/nyashahama/vitality-blueprint-backend/internal/personalize"
	"github.com/nyashahama/vitality-blueprint-backend/internal/ruleset"
	"github.com/nyashahama/vitality-blueprint-backend/internal/scoring"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

type stubWriter struct {
	result ai.Blueprint
	err    error
	calls  int
}

func (s *stubWriter) WriteBlueprint(_ context.Context, _ assessment.Result) (ai.Blueprint, error) {
	s.calls++
	return s.result, s.err
}

type memCache struct {
	entries map[string][]byte
	getErr  error
	sets    int
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	b, ok := m.entries[key]
	return b, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte) error {
	if m.entries == nil {
		m.entries = map[string][]byte{}
	}
	m.entries[key] = value
	m.sets++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleResult(t *testing.T) assessment.Result {
	t.Helper()
	rs, err := ruleset.Default()
	if err != nil {
		t.Fatal(err)
	}
	res, err := assessment.Run(rs, assessment.Input{
		Answers: scoring.Answers{"1.1": "Always", "2.1": "Often", "4.1": "Always"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

// ─── FallbackWriter ───────────────────────────────────────────────────────────

func TestFallbackWriter_PrimarySucceeds_SecondaryNotCalled(t *testing.T) {
	primary := &stubWriter{result: ai.Blueprint{Summary: "Primary summary", Source: "p"}}
	secondary := &stubWriter{result: ai.Blueprint{Summary: "Secondary summary"}}

	w := ai.NewFallbackWriter(discardLogger(), primary, secondary)
	bp, err := w.WriteBlueprint(context.Background(), sampleResult(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bp.Summary != "Primary summary" {
		t.Errorf("expected primary result, got %q", bp.Summary)
	}
	if primary.calls != 1 || secondary.calls != 0 {
		t.Errorf("calls: primary=%d secondary=%d", primary.calls, secondary.calls)
	}
}

func TestFallbackWriter_WalksChainInOrder(t *testing.T) {
	first := &stubWriter{err: errors.New("deepseek timeout")}
	second := &stubWriter{err: errors.New("anthropic overloaded")}
	third := &stubWriter{result: ai.Blueprint{Summary: "Third", Source: ai.SourceGemini}}

	w := ai.NewFallbackWriter(discardLogger(), first, nil, second, third)
	bp, err := w.WriteBlueprint(context.Background(), sampleResult(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bp.Source != ai.SourceGemini {
		t.Errorf("source = %q", bp.Source)
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Errorf("calls: %d %d %d", first.calls, second.calls, third.calls)
	}
}

func TestFallbackWriter_AllFail_JoinsErrors(t *testing.T) {
	errA := errors.New("primary blew up")
	errB := errors.New("secondary blew up")
	w := ai.NewFallbackWriter(discardLogger(), &stubWriter{err: errA}, &stubWriter{err: errB})

	_, err := w.WriteBlueprint(context.Background(), sampleResult(t))
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both errors in chain, got: %v", err)
	}
}

func TestFallbackWriter_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	second := &stubWriter{result: ai.Blueprint{Summary: "late"}}
	w := ai.NewFallbackWriter(discardLogger(), &stubWriter{err: errors.New("cancelled")}, second)

	_, err := w.WriteBlueprint(ctx, sampleResult(t))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got: %v", err)
	}
	if second.calls != 0 {
		t.Error("secondary should not run after cancellation")
	}
}

func TestFallbackWriter_Empty(t *testing.T) {
	w := ai.NewFallbackWriter(discardLogger(), nil, nil)
	if _, err := w.WriteBlueprint(context.Background(), sampleResult(t)); !errors.Is(err, ai.ErrNoWriters) {
		t.Errorf("got %v, want ErrNoWriters", err)
	}
}

// ─── CachingWriter ────────────────────────────────────────────────────────────

func TestCachingWriter_MissThenHit(t *testing.T) {
	res := sampleResult(t)
	next := &stubWriter{result: ai.Blueprint{Summary: "fresh", Source: ai.SourceAnthropic}}
	cache := &memCache{}
	w := ai.NewCachingWriter(next, cache, discardLogger())

	first, err := w.WriteBlueprint(context.Background(), res)
	if err != nil {
		t.Fatal(err)
	}
	second, err := w.WriteBlueprint(context.Background(), res)
	if err != nil {
		t.Fatal(err)
	}

	if next.calls != 1 {
		t.Errorf("provider called %d times, want 1", next.calls)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached copy differs (-first +second):\n%s", diff)
	}
	if _, ok := cache.entries[ai.CacheKey(res)]; !ok {
		t.Error("entry not stored under CacheKey")
	}
}

func TestCachingWriter_ReadErrorFallsThrough(t *testing.T) {
	next := &stubWriter{result: ai.Blueprint{Summary: "fresh"}}
	w := ai.NewCachingWriter(next, &memCache{getErr: errors.New("redis down")}, discardLogger())

	bp, err := w.WriteBlueprint(context.Background(), sampleResult(t))
	if err != nil || bp.Summary != "fresh" {
		t.Errorf("got %+v, %v", bp, err)
	}
}

func TestCachingWriter_ProviderErrorNotCached(t *testing.T) {
	cache := &memCache{}
	w := ai.NewCachingWriter(&stubWriter{err: errors.New("nope")}, cache, discardLogger())

	if _, err := w.WriteBlueprint(context.Background(), sampleResult(t)); err == nil {
		t.Fatal("expected error")
	}
	if cache.sets != 0 {
		t.Error("failed call should not be cached")
	}
}

func TestCachingWriter_CorruptEntryIgnored(t *testing.T) {
	res := sampleResult(t)
	cache := &memCache{entries: map[string][]byte{ai.CacheKey(res): []byte("{not json")}}
	next := &stubWriter{result: ai.Blueprint{Summary: "fresh"}}
	w := ai.NewCachingWriter(next, cache, discardLogger())

	bp, err := w.WriteBlueprint(context.Background(), res)
	if err != nil || bp.Summary != "fresh" || next.calls != 1 {
		t.Errorf("got %+v, %v, calls=%d", bp, err, next.calls)
	}
	var stored ai.Blueprint
	if err := json.Unmarshal(cache.entries[ai.CacheKey(res)], &stored); err != nil || stored.Summary != "fresh" {
		t.Errorf("entry not replaced: %v", err)
	}
}

// ─── DefaultBlueprint ─────────────────────────────────────────────────────────

func TestDefaultBlueprint_CoversEveryPhase(t *testing.T) {
	res := sampleResult(t)
	bp := ai.DefaultBlueprint(res)

	if bp.Source != ai.SourceDefault {
		t.Errorf("source = %q", bp.Source)
	}
	for _, name := range res.Personalize.PhaseOrder {
		if strings.TrimSpace(bp.Phases[name]) == "" {
			t.Errorf("phase %q has no copy", name)
		}
	}
	if len(bp.Phases) != len(res.Personalize.PhaseOrder) {
		t.Errorf("phases = %d, want %d", len(bp.Phases), len(res.Personalize.PhaseOrder))
	}
	if !strings.Contains(bp.TopPriorityHTML, res.Personalize.PhaseOrder[0]) {
		t.Errorf("top priority should name the first phase: %q", bp.TopPriorityHTML)
	}
}

func TestDefaultBlueprint_SummaryNamesHighestArea(t *testing.T) {
	res := assessment.Result{
		Scores: map[string]int{
			personalize.CompositeLifestyleLoad: 40,
			personalize.CompositeCognitive:     85,
		},
		Personalize: assessment.Personalization{PhaseOrder: personalize.DefaultPhaseOrder},
	}
	bp := ai.DefaultBlueprint(res)
	if !strings.Contains(bp.Summary, "cognitive strain") || !strings.Contains(bp.Summary, "85") {
		t.Errorf("summary = %q", bp.Summary)
	}

	res.Scores[personalize.CompositeCognitive] = 20
	if strings.Contains(ai.DefaultBlueprint(res).Summary, "cognitive") {
		t.Error("low scores should use the neutral summary")
	}
}

func TestCacheKey_FollowsResult(t *testing.T) {
	a := sampleResult(t)
	b := sampleResult(t)
	if ai.CacheKey(a) != ai.CacheKey(b) {
		t.Error("identical results should share a key")
	}
	b.Scores["cognitive"]++
	if ai.CacheKey(a) == ai.CacheKey(b) {
		t.Error("different results should not share a key")
	}
}
