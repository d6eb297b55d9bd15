package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vargamartonaron/cogex/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "cogex.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func sampleRun(seed int64, start time.Time) model.RunInfo {
	return model.RunInfo{
		StartedAt: start,
		EndedAt:   start.Add(5 * time.Minute),
		Seed:      seed,
		Config: model.ExperimentConfig{
			PracticeTrials:   2,
			ExperimentTrials: 3,
			FixationMinMs:    500,
			FixationMaxMs:    1500,
			StimulusMs:       200,
			ResponseWindowMs: 2000,
			FeedbackMs:       500,
			InterTrialMs:     1000,
		},
		FrameRate: 240,
	}
}

func sampleRecords() []model.ResultRecord {
	rt1 := int64(300_000_000)
	rt2 := int64(450_000_000)
	rt3 := int64(500_000_000)
	return []model.ResultRecord{
		{TrialID: 1, StimulusType: "circle", ReactionTimeNs: &rt1, ResponseCorrect: true, Timestamp: 1700000000000, Practice: true},
		{TrialID: 2, StimulusType: "square", ResponseCorrect: false, Timestamp: 1700000002000, Practice: true},
		{TrialID: 3, StimulusType: "circle", ReactionTimeNs: &rt2, ResponseCorrect: true, Timestamp: 1700000004000},
		{TrialID: 4, StimulusType: "arrow-left", ReactionTimeNs: &rt3, ResponseCorrect: false, Timestamp: 1700000006000},
		{TrialID: 5, StimulusType: "square", ResponseCorrect: false, Timestamp: 1700000008000},
	}
}

func TestInsertAndListRuns(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	id, err := st.InsertRun(ctx, sampleRun(42, start), sampleRecords())
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
	if id == 0 {
		t.Fatal("expected nonzero run id")
	}

	runs, err := st.ListRuns(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Seed != 42 || run.FrameRate != 240 {
		t.Fatalf("unexpected run meta: %+v", run)
	}
	// Experiment phase only: trials 3..5.
	if run.Trials != 3 {
		t.Fatalf("expected 3 experiment trials, got %d", run.Trials)
	}
	if run.Timeouts != 1 {
		t.Fatalf("expected 1 timeout, got %d", run.Timeouts)
	}
	if run.Correct != 1 {
		t.Fatalf("expected 1 correct, got %d", run.Correct)
	}
	if run.RTCount != 2 {
		t.Fatalf("expected 2 responded trials, got %d", run.RTCount)
	}

	withPractice, err := st.ListRuns(ctx, model.StatsConfig{IncludePractice: true})
	if err != nil {
		t.Fatalf("list runs with practice: %v", err)
	}
	if withPractice[0].Trials != 5 {
		t.Fatalf("expected 5 trials including practice, got %d", withPractice[0].Trials)
	}
}

func TestListRunsFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if _, err := st.InsertRun(ctx, sampleRun(int64(i), base.AddDate(0, 0, i)), sampleRecords()); err != nil {
			t.Fatalf("insert run %d: %v", i, err)
		}
	}

	since := base.AddDate(0, 0, 2)
	runs, err := st.ListRuns(ctx, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs since filter, got %d", len(runs))
	}

	runs, err = st.ListRuns(ctx, model.StatsConfig{Last: 3})
	if err != nil {
		t.Fatalf("list last: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected last 3 runs, got %d", len(runs))
	}
	if runs[0].Seed != 1 || runs[2].Seed != 3 {
		t.Fatalf("unexpected run order: %+v", runs)
	}
}

func TestListResultsRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	id, err := st.InsertRun(ctx, sampleRun(7, time.Now().UTC()), sampleRecords())
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
	records, err := st.ListResults(ctx, id)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	if !records[0].Practice || records[2].Practice {
		t.Fatalf("practice tags lost: %+v", records)
	}
	if records[1].ReactionTimeNs != nil {
		t.Fatal("timeout gained a reaction time")
	}
	if records[0].ReactionTimeNs == nil || *records[0].ReactionTimeNs != 300_000_000 {
		t.Fatalf("reaction time mismatch: %+v", records[0])
	}

	seed, degraded, err := st.RunSeedAndDegraded(ctx, id)
	if err != nil {
		t.Fatalf("run seed: %v", err)
	}
	if seed != 7 || degraded {
		t.Fatalf("unexpected seed/degraded: %d %v", seed, degraded)
	}
}

func TestStimulusAggregates(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if _, err := st.InsertRun(ctx, sampleRun(1, time.Now().UTC()), sampleRecords()); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	aggs, err := st.GetStimulusAggregates(ctx, 10, false)
	if err != nil {
		t.Fatalf("aggregates: %v", err)
	}
	byStim := map[string]model.StimulusAggregate{}
	for _, agg := range aggs {
		byStim[agg.StimulusType] = agg
	}
	circle := byStim["circle"]
	if circle.Correct != 1 || circle.RTCount != 1 {
		t.Fatalf("unexpected circle aggregate: %+v", circle)
	}
	square := byStim["square"]
	if square.Timeouts != 1 {
		t.Fatalf("unexpected square aggregate: %+v", square)
	}
	arrow := byStim["arrow-left"]
	if arrow.Incorrect != 1 || arrow.Correct != 0 {
		t.Fatalf("unexpected arrow aggregate: %+v", arrow)
	}

	if aggs, err = st.GetStimulusAggregates(ctx, 0, false); err != nil || aggs != nil {
		t.Fatalf("expected nil aggregates for zero window, got %v, %v", aggs, err)
	}
}
