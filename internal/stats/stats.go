// Package stats contains reaction-time statistics and reporting.
package stats

import (
	"math"
	"sort"
	"strings"

	"github.com/vargamartonaron/cogex/internal/model"
)

const sparkChars = " .:-=+*#%@"

// RTSummary aggregates terminal trial outcomes.
type RTSummary struct {
	Trials    int
	Correct   int
	Incorrect int
	Timeouts  int

	// Reaction-time statistics over responded trials, in milliseconds.
	MeanMs   float64
	MedianMs float64
	MinMs    float64
	MaxMs    float64

	Accuracy     float64
	ResponseRate float64
}

// Summarize computes the per-run summary shown in the debrief and reports.
func Summarize(records []model.ResultRecord) RTSummary {
	sum := RTSummary{Trials: len(records)}
	var rts []float64
	for _, rec := range records {
		switch {
		case rec.ReactionTimeNs == nil:
			sum.Timeouts++
		case rec.ResponseCorrect:
			sum.Correct++
		default:
			sum.Incorrect++
		}
		if rec.ReactionTimeNs != nil {
			rts = append(rts, float64(*rec.ReactionTimeNs)/1e6)
		}
	}
	if sum.Trials > 0 {
		sum.Accuracy = float64(sum.Correct) / float64(sum.Trials)
		sum.ResponseRate = float64(len(rts)) / float64(sum.Trials)
	}
	if len(rts) == 0 {
		return sum
	}
	sort.Float64s(rts)
	sum.MinMs = rts[0]
	sum.MaxMs = rts[len(rts)-1]
	var total float64
	for _, rt := range rts {
		total += rt
	}
	sum.MeanMs = total / float64(len(rts))
	mid := len(rts) / 2
	if len(rts)%2 == 1 {
		sum.MedianMs = rts[mid]
	} else {
		sum.MedianMs = (rts[mid-1] + rts[mid]) / 2
	}
	return sum
}

// RunMetrics computes mean RT (ms), accuracy, and timeout rate for a stored
// run aggregate.
func RunMetrics(run model.RunInfo) (meanMs, accuracy, timeoutRate float64) {
	meanMs = run.MeanRTMs()
	if run.Trials > 0 {
		accuracy = float64(run.Correct) / float64(run.Trials)
		timeoutRate = float64(run.Timeouts) / float64(run.Trials)
	}
	return meanMs, accuracy, timeoutRate
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
