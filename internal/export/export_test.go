package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/vargamartonaron/cogex/internal/model"
)

func TestWriteDocument(t *testing.T) {
	rt := int64(345234567)
	doc := Document{
		Seed: 42,
		Results: []model.ResultRecord{
			{TrialID: 1, StimulusType: "circle", ReactionTimeNs: &rt, ResponseCorrect: true, Timestamp: 1700000000000},
			{TrialID: 2, StimulusType: "square", ResponseCorrect: false, Timestamp: 1700000001000},
		},
	}
	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		t.Fatalf("write: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	results, ok := decoded["results"].([]any)
	if !ok || len(results) != 2 {
		t.Fatalf("expected 2 results, got %v", decoded["results"])
	}
	first := results[0].(map[string]any)
	if first["reaction_time_ns"].(float64) != float64(rt) {
		t.Fatalf("unexpected reaction time: %v", first["reaction_time_ns"])
	}
	second := results[1].(map[string]any)
	// Timeout records omit the reaction time entirely rather than writing 0.
	if _, present := second["reaction_time_ns"]; present {
		t.Fatal("absent reaction time serialized")
	}
}

func TestWriteFileEmptyResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.json")
	if err := WriteFile(path, Document{Seed: 1}); err != nil {
		t.Fatalf("write file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var decoded Document
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Results == nil || len(decoded.Results) != 0 {
		t.Fatalf("expected empty results array, got %v", decoded.Results)
	}
}
