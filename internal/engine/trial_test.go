package engine

import (
	"math/rand"
	"testing"
)

func TestFixationDurationWithinRange(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 5000; i++ {
		trial := generateTrial(i+1, rng, 500, 1500, 0)
		if trial.FixationMs < 500 || trial.FixationMs > 1500 {
			t.Fatalf("fixation %d outside [500,1500]", trial.FixationMs)
		}
	}
}

func TestFixationRangeInclusive(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seenMin, seenMax := false, false
	for i := 0; i < 2000; i++ {
		trial := generateTrial(i+1, rng, 10, 11, 0)
		switch trial.FixationMs {
		case 10:
			seenMin = true
		case 11:
			seenMax = true
		default:
			t.Fatalf("fixation %d outside [10,11]", trial.FixationMs)
		}
	}
	if !seenMin || !seenMax {
		t.Fatalf("bounds not both sampled: min=%v max=%v", seenMin, seenMax)
	}
}

func TestDegenerateFixationRange(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		trial := generateTrial(i+1, rng, 500, 500, 0)
		if trial.FixationMs != 500 {
			t.Fatalf("expected fixed 500ms fixation, got %d", trial.FixationMs)
		}
	}
}

func TestExpectedResponseTableCoversStimulusSet(t *testing.T) {
	for _, s := range stimulusSet {
		code := ExpectedResponse(s)
		if !code.IsResponse() {
			t.Fatalf("stimulus %s maps to non-response code %d", s.Tag(), code)
		}
		if s.Tag() == "unknown" {
			t.Fatalf("stimulus %d has no tag", s)
		}
	}
}
