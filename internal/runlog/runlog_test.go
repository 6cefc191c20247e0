package runlog_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
	"github.com/nyashahama/vitality-blueprint-backend/internal/ruleset"
	"github.com/nyashahama/vitality-blueprint-backend/internal/runlog"
)

func openStore(t *testing.T) *runlog.Store {
	t.Helper()
	s, err := runlog.Open(filepath.Join(t.TempDir(), "runs", "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func defaultRules(t *testing.T) *ruleset.Ruleset {
	t.Helper()
	rs, err := ruleset.Default()
	if err != nil {
		t.Fatalf("ruleset.Default: %v", err)
	}
	return rs
}

// score runs raw through rs and archives it under name.
func score(t *testing.T, s *runlog.Store, rs *ruleset.Ruleset, name, raw string) runlog.Run {
	t.Helper()
	in, err := assessment.ParseInput([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	res, err := assessment.Run(rs, in)
	if err != nil {
		t.Fatal(err)
	}
	r, err := runlog.NewRun(name, []byte(raw), res, rs)
	if err != nil {
		t.Fatal(err)
	}
	r, err = s.Record(context.Background(), r)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	return r
}

const (
	submissionA = `{"answers": {"1.1": "Always", "2.1": "Often"}}`
	submissionB = `{"answers": {"4.1": "Rarely"}, "biological": {"age": 61}}`
)

func TestRecordAndList(t *testing.T) {
	s := openStore(t)
	rs := defaultRules(t)

	first := score(t, s, rs, "a.json", submissionA)
	second := score(t, s, rs, "b.json", submissionB)

	runs, err := s.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != first.ID || runs[1].ID != second.ID {
		t.Errorf("order: got %s,%s want %s,%s", runs[0].ID, runs[1].ID, first.ID, second.ID)
	}

	got := runs[0]
	if got.Name != "a.json" || got.Digest != first.Digest {
		t.Errorf("round trip: got %+v", got)
	}
	if got.RulesVersion != rs.Version || got.RulesFingerprint != rs.Fingerprint() {
		t.Errorf("rules: got %s/%s", got.RulesVersion, got.RulesFingerprint)
	}
	if !json.Valid(got.Result) {
		t.Error("archived result is not valid JSON")
	}

	limited, err := s.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("List(1): %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit: expected 1 run, got %d", len(limited))
	}
}

func TestRegress_NoDriftUnderSameRules(t *testing.T) {
	s := openStore(t)
	rs := defaultRules(t)
	score(t, s, rs, "a.json", submissionA)
	score(t, s, rs, "b.json", submissionB)

	drifts, total, err := runlog.Regress(context.Background(), s, rs)
	if err != nil {
		t.Fatalf("Regress: %v", err)
	}
	if total != 2 {
		t.Errorf("total: got %d, want 2", total)
	}
	if len(drifts) != 0 {
		t.Errorf("expected no drift, got %+v", drifts)
	}
}

func TestRegress_ReportsChangedScores(t *testing.T) {
	s := openStore(t)
	rs := defaultRules(t)
	r := score(t, s, rs, "a.json", submissionA)

	// Archive a tampered copy whose stored result no longer matches.
	var res assessment.Result
	if err := json.Unmarshal(r.Result, &res); err != nil {
		t.Fatal(err)
	}
	composite := rs.Composites[0]
	res.Scores[composite]++
	tampered, err := runlog.NewRun("tampered.json", r.Input, res, rs)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Record(context.Background(), tampered); err != nil {
		t.Fatal(err)
	}

	drifts, total, err := runlog.Regress(context.Background(), s, rs)
	if err != nil {
		t.Fatalf("Regress: %v", err)
	}
	if total != 2 || len(drifts) != 1 {
		t.Fatalf("expected 1 drift of 2 runs, got %d of %d", len(drifts), total)
	}

	d := drifts[0]
	if d.Run.Name != "tampered.json" {
		t.Errorf("drifted run: got %q", d.Run.Name)
	}
	want := [2]int{res.Scores[composite], res.Scores[composite] - 1}
	if d.Scores[composite] != want {
		t.Errorf("score delta for %s: got %v, want %v", composite, d.Scores[composite], want)
	}
	if len(d.Scores) != 1 {
		t.Errorf("expected only %s to move, got %v", composite, d.Scores)
	}
}

func TestRegress_UnparseableInput(t *testing.T) {
	s := openStore(t)
	rs := defaultRules(t)

	if _, err := s.Record(context.Background(), runlog.Run{
		Name:   "broken.json",
		Input:  json.RawMessage(`{"answers": 7}`),
		Result: json.RawMessage(`{}`),
	}); err != nil {
		t.Fatal(err)
	}

	drifts, _, err := runlog.Regress(context.Background(), s, rs)
	if err != nil {
		t.Fatalf("Regress: %v", err)
	}
	if len(drifts) != 1 || drifts[0].Err == nil {
		t.Fatalf("expected one drift with Err set, got %+v", drifts)
	}
}
