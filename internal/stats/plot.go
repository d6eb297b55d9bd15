package stats

import (
	"fmt"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	minPlotWidth     = 20
	defaultPlotWidth = 72
	plotHeight       = 10
	// yLabelWidth covers a "9999.9 |" gutter.
	yLabelWidth = 9
)

// Series is a named sequence of y-values plotted against their index.
type Series struct {
	Name   string
	Values []float64
}

// AutoPlotWidth returns the plot width for the current terminal, clamped to
// the given maximum. Falls back to a fixed width when stdout is not a
// terminal.
func AutoPlotWidth(max int) int {
	width := defaultPlotWidth
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w - 2
	}
	if max > 0 && width > max {
		width = max
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}
	return width
}

// PlotSeries renders the series as an ASCII chart of the given total width.
func PlotSeries(s Series, width int) string {
	if len(s.Values) == 0 {
		return ""
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}
	plotWidth := width - yLabelWidth
	if plotWidth < 2 {
		plotWidth = 2
	}

	values := resample(s.Values, plotWidth)
	minVal, maxVal := bounds(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		maxVal = minVal + 1
	}

	grid := make([][]byte, plotHeight)
	for i := range grid {
		grid[i] = []byte(strings.Repeat(" ", plotWidth))
	}
	prevRow := -1
	for x, v := range values {
		row := plotHeight - 1 - int(math.Round((v-minVal)/(maxVal-minVal)*float64(plotHeight-1)))
		grid[row][x] = '*'
		// Fill vertical gaps so steep slopes stay connected.
		if prevRow >= 0 {
			lo, hi := row, prevRow
			if lo > hi {
				lo, hi = hi, lo
			}
			for y := lo + 1; y < hi; y++ {
				if grid[y][x] == ' ' {
					grid[y][x] = '|'
				}
			}
		}
		prevRow = row
	}

	var b strings.Builder
	if s.Name != "" {
		b.WriteString(s.Name)
		b.WriteByte('\n')
	}
	for i, row := range grid {
		label := " "
		switch i {
		case 0:
			label = fmt.Sprintf("%6.1f", maxVal)
		case plotHeight - 1:
			label = fmt.Sprintf("%6.1f", minVal)
		}
		fmt.Fprintf(&b, "%6s | %s\n", label, row)
	}
	fmt.Fprintf(&b, "%6s +-%s\n", "", strings.Repeat("-", plotWidth))
	return b.String()
}

// resample stretches or shrinks values to exactly width points.
func resample(values []float64, width int) []float64 {
	if len(values) == width {
		out := make([]float64, width)
		copy(out, values)
		return out
	}
	out := make([]float64, width)
	if len(values) == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	for i := 0; i < width; i++ {
		pos := float64(i) / float64(width-1) * float64(len(values)-1)
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		if hi >= len(values) {
			hi = len(values) - 1
		}
		frac := pos - float64(lo)
		out[i] = values[lo]*(1-frac) + values[hi]*frac
	}
	return out
}

func bounds(values []float64) (minVal, maxVal float64) {
	minVal, maxVal = values[0], values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	return minVal, maxVal
}
