package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExperimentWithTimeline_WirePayload(t *testing.T) {
	raw := `{"experiment":{"id":"exp-1","title":"Stroop","scientists":[{"id":"s1","user":{"id":"u1"}}]}}`

	var e ExperimentWithTimeline
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.ID != "exp-1" || e.Title != "Stroop" {
		t.Fatalf("expected promoted experiment fields, got %#v", e)
	}
	if !e.HasScientist("u1") || e.HasScientist("u2") {
		t.Fatalf("unexpected scientist membership: %#v", e.Scientists)
	}

	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.HasPrefix(string(b), `{"experiment":`) {
		t.Fatalf("expected the experiment wrapper on the wire, got %s", b)
	}
}
