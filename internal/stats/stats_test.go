package stats

import (
	"math"
	"testing"

	"github.com/vargamartonaron/cogex/internal/model"
)

func rtPtr(ns int64) *int64 {
	return &ns
}

func TestSummarize(t *testing.T) {
	records := []model.ResultRecord{
		{TrialID: 1, ReactionTimeNs: rtPtr(300_000_000), ResponseCorrect: true},
		{TrialID: 2, ReactionTimeNs: rtPtr(500_000_000), ResponseCorrect: true},
		{TrialID: 3, ReactionTimeNs: rtPtr(400_000_000), ResponseCorrect: false},
		{TrialID: 4, ResponseCorrect: false},
	}
	sum := Summarize(records)
	if sum.Trials != 4 || sum.Correct != 2 || sum.Incorrect != 1 || sum.Timeouts != 1 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	if math.Abs(sum.MeanMs-400) > 1e-9 {
		t.Fatalf("expected mean 400ms, got %f", sum.MeanMs)
	}
	if math.Abs(sum.MedianMs-400) > 1e-9 {
		t.Fatalf("expected median 400ms, got %f", sum.MedianMs)
	}
	if sum.MinMs != 300 || sum.MaxMs != 500 {
		t.Fatalf("expected range [300, 500], got [%f, %f]", sum.MinMs, sum.MaxMs)
	}
	if math.Abs(sum.Accuracy-0.5) > 1e-9 {
		t.Fatalf("expected accuracy 0.5, got %f", sum.Accuracy)
	}
	if math.Abs(sum.ResponseRate-0.75) > 1e-9 {
		t.Fatalf("expected response rate 0.75, got %f", sum.ResponseRate)
	}
}

func TestSummarizeMedianEvenCount(t *testing.T) {
	records := []model.ResultRecord{
		{ReactionTimeNs: rtPtr(200_000_000), ResponseCorrect: true},
		{ReactionTimeNs: rtPtr(600_000_000), ResponseCorrect: true},
	}
	sum := Summarize(records)
	if math.Abs(sum.MedianMs-400) > 1e-9 {
		t.Fatalf("expected median 400ms, got %f", sum.MedianMs)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(nil)
	if sum.Trials != 0 || sum.MeanMs != 0 || sum.Accuracy != 0 {
		t.Fatalf("expected zero summary, got %+v", sum)
	}
}

func TestSummarizeAllTimeouts(t *testing.T) {
	records := []model.ResultRecord{
		{TrialID: 1},
		{TrialID: 2},
	}
	sum := Summarize(records)
	if sum.Timeouts != 2 || sum.ResponseRate != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.MeanMs != 0 || sum.MedianMs != 0 {
		t.Fatalf("expected zero RT stats without responses, got %+v", sum)
	}
}

func TestMovingAverage(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	got := MovingAverage(values, 3)
	want := []float64{1, 1.5, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestMovingAverageWindowOne(t *testing.T) {
	values := []float64{5, 3, 8}
	got := MovingAverage(values, 1)
	for i := range values {
		if got[i] != values[i] {
			t.Fatalf("expected passthrough, got %v", got)
		}
	}
}

func TestSparkline(t *testing.T) {
	line := Sparkline([]float64{0, 1, 2, 3})
	if len(line) != 4 {
		t.Fatalf("expected 4 cells, got %q", line)
	}
	if line[0] != sparkChars[0] {
		t.Fatalf("expected lowest glyph first, got %q", line)
	}
	if line[3] != sparkChars[len(sparkChars)-1] {
		t.Fatalf("expected highest glyph last, got %q", line)
	}
}

func TestSparklineFlat(t *testing.T) {
	line := Sparkline([]float64{2, 2, 2})
	if len(line) != 3 {
		t.Fatalf("expected 3 cells, got %q", line)
	}
	for i := 1; i < len(line); i++ {
		if line[i] != line[0] {
			t.Fatalf("expected uniform glyphs for flat series, got %q", line)
		}
	}
}
