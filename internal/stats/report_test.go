package stats

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vargamartonaron/cogex/internal/model"
	"github.com/vargamartonaron/cogex/internal/store"
)

func seedStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cogex.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	cfg := model.DefaultExperimentConfig()
	cfg.PracticeTrials = 0
	cfg.ExperimentTrials = 2
	ctx := context.Background()
	for i, meanNs := range []int64{400_000_000, 350_000_000, 300_000_000} {
		start := time.Date(2026, 8, 1+i, 10, 0, 0, 0, time.UTC)
		records := []model.ResultRecord{
			{TrialID: 1, StimulusType: "circle", ReactionTimeNs: &meanNs, ResponseCorrect: true, Timestamp: start.UnixMilli()},
			{TrialID: 2, StimulusType: "square", ResponseCorrect: false, Timestamp: start.UnixMilli() + 4000},
		}
		run := model.RunInfo{
			StartedAt: start,
			EndedAt:   start.Add(2 * time.Minute),
			Seed:      int64(i + 1),
			Config:    cfg,
			FrameRate: 240,
		}
		if _, err := st.InsertRun(ctx, run, records); err != nil {
			t.Fatalf("insert run %d: %v", i, err)
		}
	}
	return st
}

func TestBuildReport(t *testing.T) {
	st := seedStore(t)
	rep, err := BuildReport(context.Background(), st, model.StatsConfig{CurveWindow: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(rep.Runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(rep.Runs))
	}
	curve := rep.MeanRTCurve()
	if len(curve) != 3 {
		t.Fatalf("expected 3 curve points, got %d", len(curve))
	}
	// Means fall run over run, so the smoothed curve does too.
	if !(curve[0] > curve[2]) {
		t.Fatalf("expected downward trend, got %v", curve)
	}
}

func TestBuildReportLastFilter(t *testing.T) {
	st := seedStore(t)
	rep, err := BuildReport(context.Background(), st, model.StatsConfig{Last: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(rep.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(rep.Runs))
	}
}

func TestReportRender(t *testing.T) {
	st := seedStore(t)
	rep, err := BuildReport(context.Background(), st, model.StatsConfig{})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	out := rep.Render(72)
	for _, want := range []string{"Run history", "circle", "square", "Mean reaction time trend"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestSinceFlag(t *testing.T) {
	ts, err := SinceFlag("2026-08-01")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if ts == nil || ts.Year() != 2026 || ts.Month() != time.August {
		t.Fatalf("unexpected time: %v", ts)
	}

	ts, err = SinceFlag("48h")
	if err != nil {
		t.Fatalf("parse duration: %v", err)
	}
	if ts == nil || time.Since(*ts) < 47*time.Hour {
		t.Fatalf("unexpected relative time: %v", ts)
	}

	ts, err = SinceFlag("")
	if err != nil || ts != nil {
		t.Fatalf("expected nil for empty value, got %v, %v", ts, err)
	}

	if _, err := SinceFlag("yesterday"); err == nil {
		t.Fatal("expected error for unparseable value")
	}
}
