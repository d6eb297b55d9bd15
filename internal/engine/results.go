package engine

import (
	"fmt"

	"github.com/vargamartonaron/cogex/internal/model"
)

// ResultsLog is the append-only record of terminal trials. The engine owns it
// while the run is live; once finalized it is read-only and safe to hand to
// an exporter.
type ResultsLog struct {
	records   []model.ResultRecord
	finalized bool
}

func (l *ResultsLog) append(rec model.ResultRecord) {
	if l.finalized {
		return
	}
	l.records = append(l.records, rec)
}

// Len returns the number of recorded trials.
func (l *ResultsLog) Len() int {
	return len(l.records)
}

// Finalize freezes the log. Idempotent.
func (l *ResultsLog) Finalize() {
	l.finalized = true
}

// Finalized reports whether the log is frozen.
func (l *ResultsLog) Finalized() bool {
	return l.finalized
}

// Snapshot returns a copy of the records. It fails until the log is
// finalized, so exporters cannot observe a run in flight.
func (l *ResultsLog) Snapshot() ([]model.ResultRecord, error) {
	if !l.finalized {
		return nil, fmt.Errorf("results log is not finalized")
	}
	out := make([]model.ResultRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}
