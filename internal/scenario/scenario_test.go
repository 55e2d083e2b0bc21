// internal/scenario/scenario_test.go
package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwiater/recallbench/internal/providers"
	"github.com/mwiater/recallbench/internal/providers/memory"
)

const movedScenario = `
name: moved_city
category: temporal
conversations:
  - session: s1
    messages:
      - role: user
        content: I live in Lisbon now
      - role: assistant
        content: Lisbon is great
      - role: user
        content: I also adopted a cat
task:
  query: where do I live now
  expected_behavior:
    should_ignore: [Porto]
  success:
    contains: [Lisbon]
failure_modes:
  - type: stale_retrieval
    description: Old city returned
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func boolPtr(b bool) *bool { return &b }

func TestParseAcceptsAliases(t *testing.T) {
	sc, err := Parse([]byte(movedScenario))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if sc.Name != "moved_city" || sc.Category != "temporal" || len(sc.Conversations) != 1 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if got := sc.Task.Success.Indicators(); len(got) != 1 || got[0] != "Lisbon" {
		t.Fatalf("expected contains alias to feed indicators, got %v", got)
	}
	if !sc.Task.ExpectedBehavior.Retrieves() {
		t.Fatal("expected should_retrieve to default to true")
	}
	if sc.FailureModes[0].Type != ModeStaleRetrieval {
		t.Fatalf("unexpected failure modes %+v", sc.FailureModes)
	}
}

func TestParseDefaultsAndValidation(t *testing.T) {
	sc, err := Parse([]byte("task:\n  query: anything\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if sc.Name != "unnamed" || sc.Category != "unknown" {
		t.Fatalf("expected defaults, got %q %q", sc.Name, sc.Category)
	}

	if _, err := Parse([]byte("name: no task\n")); err == nil || !strings.Contains(err.Error(), "invalid scenario") {
		t.Fatalf("expected schema error for missing task, got %v", err)
	}
	if _, err := Parse([]byte("task:\n  query: q\n  expected_behavior:\n    should_retrieve: maybe\n")); err == nil {
		t.Fatal("expected schema error for non-boolean should_retrieve")
	}
	if _, err := Parse([]byte("")); !errors.Is(err, ErrEmptyScenario) {
		t.Fatalf("expected ErrEmptyScenario, got %v", err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.yaml"), "name: second\ntask:\n  query: q\n")
	writeFile(t, filepath.Join(dir, "a.yaml"), movedScenario)
	writeFile(t, filepath.Join(dir, "nested", "c.yml"), "name: third\ntask:\n  query: q\n")
	writeFile(t, filepath.Join(dir, "_combined.yaml"), "- not a scenario\n")
	writeFile(t, filepath.Join(dir, "broken.yaml"), "name: [unclosed\n")
	writeFile(t, filepath.Join(dir, "empty.yaml"), "# nothing yet\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	scenarios, broken, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if broken != 1 {
		t.Fatalf("expected 1 broken file, got %d", broken)
	}
	var names []string
	for _, sc := range scenarios {
		names = append(names, sc.Name)
		if sc.Path == "" {
			t.Fatalf("expected path to be recorded for %s", sc.Name)
		}
	}
	if strings.Join(names, ",") != "moved_city,second,third" {
		t.Fatalf("unexpected load order %v", names)
	}
}

func TestClassify(t *testing.T) {
	stale := []FailureMode{{Type: ModeStaleRetrieval, Description: "Old city returned"}}
	negative := Task{ExpectedBehavior: ExpectedBehavior{ShouldRetrieve: boolPtr(false)}}
	positive := Task{Success: Success{ResponseIndicates: []string{"Lisbon"}}}
	withIgnore := Task{
		ExpectedBehavior: ExpectedBehavior{ShouldIgnore: []string{"Porto"}},
		Success:          Success{Contains: []string{"Lisbon"}},
	}
	forbidden := Task{Success: Success{Contains: []string{"Lisbon"}, NotContains: []string{"Porto"}}}
	long := "user: I spent the whole summer cataloguing rare orchids in the greenhouse"

	tests := []struct {
		name      string
		task      Task
		modes     []FailureMode
		retrieved []string
		wantPass  bool
		wantMode  string
		wantDesc  string
	}{
		{"negative empty", negative, nil, nil, true, "", ""},
		{"negative short noise", negative, nil, []string{"ok"}, true, "", ""},
		{"negative long", negative, nil, []string{long}, false, ModeFalsePositive, "Retrieved content when should not have"},
		{"negative short accented", negative, nil, []string{"ééééé ééééé ééééé ééééé ééééé"}, true, "", ""},
		{"positive empty", positive, nil, nil, false, ModeNoRetrieval, "No memories retrieved"},
		{"positive match", positive, nil, []string{"We moved to LISBON!"}, true, "", ""},
		{"positive missing", positive, nil, []string{"I like tea"}, false, ModeMissingExpected, "Expected indicators not found in retrieved"},
		{"stale attribution", withIgnore, stale, []string{"I live in Porto"}, false, ModeStaleRetrieval, "Old city returned"},
		{"stale mode without ignored text", withIgnore, stale, []string{"I like tea"}, false, ModeMissingExpected, "Expected indicators not found in retrieved"},
		{"forbidden with stale mode", forbidden, stale, []string{"Lisbon, previously Porto"}, false, ModeStaleRetrieval, "Old city returned"},
		{"forbidden", forbidden, nil, []string{"Lisbon, previously Porto"}, false, ModeUnexpectedContent, "Found 'Porto' which should not appear"},
		{"no indicators", Task{}, nil, []string{"anything"}, true, "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := Classify(tc.task, tc.modes, tc.retrieved, Thresholds{})
			if v.Passed != tc.wantPass || v.Mode != tc.wantMode || v.Description != tc.wantDesc {
				t.Fatalf("got %+v", v)
			}
		})
	}
}

func TestClassifyNegativeThresholdIsConfigurable(t *testing.T) {
	negative := Task{ExpectedBehavior: ExpectedBehavior{ShouldRetrieve: boolPtr(false)}}
	retrieved := []string{"a short reply here"}
	if v := Classify(negative, nil, retrieved, Thresholds{}); !v.Passed {
		t.Fatalf("expected pass under default threshold, got %+v", v)
	}
	if v := Classify(negative, nil, retrieved, Thresholds{NegativeMaxChars: 5}); v.Passed || v.Mode != ModeFalsePositive {
		t.Fatalf("expected false positive under tight threshold, got %+v", v)
	}
}

type failingProvider struct {
	*memory.Provider
}

func (failingProvider) Recall(ctx context.Context, query string, limit int) ([]providers.Memory, error) {
	return nil, errors.New("recall down")
}

func TestEvaluate(t *testing.T) {
	sc, err := Parse([]byte(movedScenario))
	if err != nil {
		t.Fatal(err)
	}
	p := memory.New()
	res, err := Evaluator{Provider: p}.Evaluate(context.Background(), sc)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !res.Passed || res.FailureMode != "" {
		t.Fatalf("expected pass, got %+v", res)
	}
	if len(res.Retrieved) == 0 || !strings.Contains(res.Retrieved[0], "Lisbon") {
		t.Fatalf("unexpected retrieved sample %v", res.Retrieved)
	}
	stats, _ := p.Stats(context.Background())
	if stats["total_memories"] != 2 {
		t.Fatalf("expected 3 messages to become 2 pair chunks, got %v", stats)
	}
}

func TestEvaluateKeepsTopThree(t *testing.T) {
	p := memory.New()
	for i := 0; i < 5; i++ {
		if _, err := p.Store(context.Background(), "user: garden notes", ""); err != nil {
			t.Fatal(err)
		}
	}
	sc := &Scenario{Name: "garden", Task: Task{Query: "garden"}}
	res, err := Evaluator{Provider: p}.Evaluate(context.Background(), sc)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Retrieved) != 3 {
		t.Fatalf("expected 3 sampled items, got %d", len(res.Retrieved))
	}
}

func TestEvaluateIsolate(t *testing.T) {
	p := memory.New()
	if _, err := p.Store(context.Background(), "user: leftover opera tickets", ""); err != nil {
		t.Fatal(err)
	}
	sc := &Scenario{Name: "neg", Task: Task{
		Query:            "opera tickets",
		ExpectedBehavior: ExpectedBehavior{ShouldRetrieve: boolPtr(false)},
	}}
	res, err := Evaluator{Provider: p, Isolate: true}.Evaluate(context.Background(), sc)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Passed {
		t.Fatalf("expected cleared provider to pass negative scenario, got %+v", res)
	}
}

func TestRunSuite(t *testing.T) {
	ok, _ := Parse([]byte(movedScenario))
	neg := &Scenario{Name: "neg", Category: "negative", Task: Task{
		Query:            "favourite opera",
		ExpectedBehavior: ExpectedBehavior{ShouldRetrieve: boolPtr(false)},
	}}
	missing := &Scenario{Name: "missing", Category: "temporal", Task: Task{
		Query:   "where do I live now",
		Success: Success{Contains: []string{"Madrid"}},
	}}

	var calls int
	suite, err := Evaluator{Provider: memory.New()}.RunSuite(context.Background(), []*Scenario{ok, neg, missing}, func(done, total int) {
		calls++
	})
	if err != nil {
		t.Fatalf("RunSuite: %v", err)
	}
	if suite.Suite != SuiteName || suite.Total != 3 || suite.Passed != 2 || calls != 3 {
		t.Fatalf("unexpected summary %+v (progress calls %d)", suite, calls)
	}
	temporal := suite.ByCategory["temporal"]
	if temporal.Total != 2 || temporal.Passed != 1 || temporal.PassRate != 0.5 {
		t.Fatalf("unexpected temporal summary %+v", temporal)
	}
	if f := suite.Failures(); len(f) != 1 || f[0].FailureMode != ModeMissingExpected {
		t.Fatalf("unexpected failures %+v", f)
	}
	if suite.Provider != "memory" {
		t.Fatalf("expected provider name, got %q", suite.Provider)
	}
}

func TestRunSuiteAbortsOnProviderError(t *testing.T) {
	sc := &Scenario{Name: "x", Task: Task{Query: "q"}}
	suite, err := Evaluator{Provider: failingProvider{memory.New()}}.RunSuite(context.Background(), []*Scenario{sc}, nil)
	if err == nil || suite != nil {
		t.Fatalf("expected abort, got %v %v", suite, err)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || s.PassRate != 0 || s.AvgLatencyMs != 0 {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}

func TestSaveWritesArtifacts(t *testing.T) {
	s := Summarize([]Result{
		{Name: "a", Category: "x", Passed: true, LatencyMs: 2},
		{Name: "b", Category: "x", FailureMode: ModeNoRetrieval, FailureDescription: "No memories retrieved", LatencyMs: 4},
	})
	s.Provider = "memory"
	jsonPath, mdPath, err := Save(t.TempDir(), s)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ := os.ReadFile(jsonPath)
	for _, key := range []string{`"suite": "scenarios"`, `"pass_rate"`, `"by_category"`, `"avg_latency_ms"`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("json missing %s:\n%s", key, data)
		}
	}
	md, _ := os.ReadFile(mdPath)
	if !strings.Contains(string(md), "**Passed:** 1/2 (50.0%)") || !strings.Contains(string(md), "- **b** (no_retrieval)") {
		t.Fatalf("unexpected markdown:\n%s", md)
	}
}
