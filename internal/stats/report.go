package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vargamartonaron/cogex/internal/model"
	"github.com/vargamartonaron/cogex/internal/store"
)

// Report holds the aggregates that back the stats views.
type Report struct {
	Runs       []model.RunInfo
	Aggregates []model.StimulusAggregate
	// CurveWindow is the rolling-mean window applied to the RT curve.
	CurveWindow int
}

// BuildReport loads stored runs and stimulus aggregates per the filters.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (*Report, error) {
	runs, err := st.ListRuns(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}
	window := cfg.Last
	if window == 0 {
		window = len(runs)
	}
	aggs, err := st.GetStimulusAggregates(ctx, window, cfg.IncludePractice)
	if err != nil {
		return nil, fmt.Errorf("failed to load stimulus aggregates: %w", err)
	}
	curve := cfg.CurveWindow
	if curve <= 0 {
		curve = 1
	}
	return &Report{Runs: runs, Aggregates: aggs, CurveWindow: curve}, nil
}

// MeanRTCurve returns the per-run mean RT series, smoothed by the report's
// rolling window, oldest run first.
func (r *Report) MeanRTCurve() []float64 {
	values := make([]float64, 0, len(r.Runs))
	for _, run := range r.Runs {
		values = append(values, run.MeanRTMs())
	}
	return MovingAverage(values, r.CurveWindow)
}

// RenderRuns renders the run history table.
func (r *Report) RenderRuns() string {
	if len(r.Runs) == 0 {
		return "no runs recorded\n"
	}
	rows := [][]string{{"run", "ended", "trials", "mean rt", "accuracy", "timeouts", "timing"}}
	for _, run := range r.Runs {
		meanMs, accuracy, timeoutRate := RunMetrics(run)
		timing := "ok"
		if run.Degraded {
			timing = "degraded"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", run.RunID),
			run.EndedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", run.Trials),
			fmt.Sprintf("%.1f ms", meanMs),
			fmt.Sprintf("%.1f%%", accuracy*100),
			fmt.Sprintf("%.1f%%", timeoutRate*100),
			timing,
		})
	}
	return formatTable(rows)
}

// RenderStimuli renders the per-stimulus aggregate table.
func (r *Report) RenderStimuli() string {
	if len(r.Aggregates) == 0 {
		return "no trials recorded\n"
	}
	rows := [][]string{{"stimulus", "trials", "mean rt", "accuracy", "timeouts"}}
	for _, agg := range r.Aggregates {
		total := agg.Correct + agg.Incorrect + agg.Timeouts
		rows = append(rows, []string{
			agg.StimulusType,
			fmt.Sprintf("%d", total),
			fmt.Sprintf("%.1f ms", agg.MeanRTMs()),
			fmt.Sprintf("%.1f%%", agg.Accuracy()*100),
			fmt.Sprintf("%d", agg.Timeouts),
		})
	}
	return formatTable(rows)
}

// RenderCurve renders the mean-RT trend across runs as a plot, falling back
// to a sparkline on very narrow terminals.
func (r *Report) RenderCurve(width int) string {
	curve := r.MeanRTCurve()
	if len(curve) < 2 {
		return "not enough runs for a trend\n"
	}
	if width < minPlotWidth {
		return Sparkline(curve) + "\n"
	}
	return PlotSeries(Series{Name: "mean rt (ms)", Values: curve}, width)
}

// Render produces the full plain-text report, for non-interactive output.
func (r *Report) Render(width int) string {
	var b strings.Builder
	b.WriteString("Run history\n\n")
	b.WriteString(r.RenderRuns())
	b.WriteString("\nPer-stimulus performance\n\n")
	b.WriteString(r.RenderStimuli())
	b.WriteString("\nMean reaction time trend\n\n")
	b.WriteString(r.RenderCurve(width))
	return b.String()
}

// SinceFlag parses a --since value of the form accepted on the command line.
func SinceFlag(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	if d, err := time.ParseDuration(v); err == nil {
		t := time.Now().Add(-d)
		return &t, nil
	}
	return nil, fmt.Errorf("failed to parse since value %q", v)
}
