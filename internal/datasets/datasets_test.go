// internal/datasets/datasets_test.go
package datasets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwiater/recallbench/internal/checkers"
)

const longMemEvalJSON = `[
  {
    "question_id": "q1",
    "question": "Where did I move?",
    "answer": "Lisbon",
    "question_type": "knowledge-update",
    "haystack_session_ids": ["s1", "s2"],
    "answer_session_ids": ["s2"],
    "haystack_sessions": [
      [{"role": "user", "content": "I live in Porto"}, {"role": "assistant", "content": "Nice"}],
      [["I moved to Lisbon", "Congrats"]]
    ]
  },
  {
    "question_id": "q2",
    "question": "How many cats?",
    "answer": 3,
    "question_type": "multi-session",
    "haystack_session_ids": ["s2"],
    "haystack_sessions": [
      [["I moved to Lisbon", "Congrats"]],
      [{"content": "I have three cats"}]
    ]
  }
]`

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadLongMemEval(t *testing.T) {
	ds, err := Load(LongMemEval, writeTemp(t, "lme.json", longMemEvalJSON), Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Checker != checkers.MethodPhrase || ds.Sampled {
		t.Fatalf("unexpected dataset settings %+v", ds)
	}
	if len(ds.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(ds.Questions))
	}
	if ds.Questions[1].Expected.String() != "3" {
		t.Fatalf("expected numeric answer as text, got %q", ds.Questions[1].Expected)
	}
	if ds.Questions[0].Metadata["answer_session_ids"] != "s2" {
		t.Fatalf("unexpected metadata %v", ds.Questions[0].Metadata)
	}

	var ids []string
	for _, c := range ds.Conversations {
		ids = append(ids, c.ID)
	}
	if strings.Join(ids, ",") != "s1,s2,q2_session_1" {
		t.Fatalf("expected deduplicated sessions with a synthetic id, got %v", ids)
	}
	if ds.Warnings != 1 {
		t.Fatalf("expected 1 missing-id warning, got %d", ds.Warnings)
	}

	legacy := ds.Conversations[1]
	if len(legacy.Messages) != 2 || legacy.Messages[0].Role != "user" || legacy.Messages[1].Role != "assistant" {
		t.Fatalf("expected legacy pair to become two messages, got %+v", legacy.Messages)
	}
	if ds.Conversations[2].Messages[0].Role != "user" {
		t.Fatalf("expected missing role to default to user, got %+v", ds.Conversations[2].Messages)
	}
	if legacy.Context != "q1" {
		t.Fatalf("expected question id as context, got %q", legacy.Context)
	}
}

func TestParseLongMemEvalKeepsOnlyNeededSessions(t *testing.T) {
	records, err := readRecords[LongMemEvalRecord](writeTemp(t, "lme.json", longMemEvalJSON))
	if err != nil {
		t.Fatal(err)
	}
	ds := ParseLongMemEval(records, map[string]struct{}{"s2": {}})
	if len(ds.Conversations) != 2 || ds.Conversations[0].ID != "s2" || ds.Conversations[1].ID != "q2_session_1" {
		t.Fatalf("expected s2 and the record's unnamed session, got %+v", ds.Conversations)
	}
	if len(ds.Questions) != 2 {
		t.Fatalf("expected questions to be kept, got %d", len(ds.Questions))
	}
}

func TestParseLongMemEvalScopesSyntheticSessionIDs(t *testing.T) {
	records := []LongMemEvalRecord{
		{QuestionID: "q1", Question: "a?", HaystackSessions: [][]turn{{{{Role: "user", Content: "first"}}}}},
		{QuestionID: "q2", Question: "b?", HaystackSessions: [][]turn{{{{Role: "user", Content: "second"}}}}},
	}
	ds := ParseLongMemEval(records, nil)
	if len(ds.Conversations) != 2 {
		t.Fatalf("expected both unnamed sessions to be kept, got %+v", ds.Conversations)
	}
	if ds.Conversations[0].ID != "q1_session_0" || ds.Conversations[1].ID != "q2_session_0" {
		t.Fatalf("unexpected synthetic ids %q, %q", ds.Conversations[0].ID, ds.Conversations[1].ID)
	}
	if ds.Warnings != 2 {
		t.Fatalf("expected 2 missing-id warnings, got %d", ds.Warnings)
	}
}

func TestLoadLongMemEvalSamplesRecordsFirst(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		cat := "a"
		if i >= 7 {
			cat = "b"
		}
		id := string(rune('a' + i))
		b.WriteString(`{"question_id":"` + id + `","question":"q","answer":"x","question_type":"` + cat +
			`","haystack_session_ids":["` + id + `"],"haystack_sessions":[[{"role":"user","content":"hi"}]]}` + "\n")
	}
	path := writeTemp(t, "lme.jsonl", b.String())

	ds, err := LoadLongMemEval(path, Options{Sample: 4, Seed: 42})
	if err != nil {
		t.Fatalf("LoadLongMemEval: %v", err)
	}
	if !ds.Sampled || len(ds.Questions) != 4 {
		t.Fatalf("expected 4 sampled questions, got %d", len(ds.Questions))
	}
	if len(ds.Conversations) != 4 {
		t.Fatalf("expected only the sampled questions' sessions, got %d", len(ds.Conversations))
	}
	again, _ := LoadLongMemEval(path, Options{Sample: 4, Seed: 42})
	for i := range ds.Questions {
		if ds.Questions[i].ID != again.Questions[i].ID {
			t.Fatal("expected sampling to be reproducible for a fixed seed")
		}
	}
}

func TestLoadConvoMem(t *testing.T) {
	body := `{"conversation_id":"c1","id":"1","question":"Favourite color?","answer":"blue","category":"preferences","conversation":[{"role":"user","content":"I love blue"},{"role":"assistant","content":"Noted"}]}
{"conversation_id":"c1","question_id":7,"question":"Pet?","answer":"I don't know","category":"abstention","conversation":[{"role":"user","content":"I love blue"}]}
{"question":"Job?","answer":"nurse","messages":[{"role":"user","content":"I work as a nurse"}]}
`
	ds, err := Load(ConvoMem, writeTemp(t, "convomem.jsonl", body), Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Checker != checkers.MethodAbstention {
		t.Fatalf("expected abstention checker, got %s", ds.Checker)
	}
	if len(ds.Conversations) != 2 || len(ds.Questions) != 3 {
		t.Fatalf("unexpected counts %d conversations %d questions", len(ds.Conversations), len(ds.Questions))
	}
	if ds.Questions[1].ID != "7" || ds.Questions[2].Category != "unknown" {
		t.Fatalf("unexpected questions %+v", ds.Questions)
	}
	synthetic := ds.Conversations[1].ID
	if !strings.HasPrefix(synthetic, "conv-") || ds.Warnings != 1 {
		t.Fatalf("expected synthetic id and warning, got %q %d", synthetic, ds.Warnings)
	}
	if ds.Questions[2].Metadata["conversation_id"] != synthetic {
		t.Fatalf("expected question to reference synthetic conversation id")
	}

	again, _ := Load(ConvoMem, writeTemp(t, "again.jsonl", body), Options{})
	if again.Conversations[1].ID != synthetic {
		t.Fatal("expected synthetic ids to be stable across loads")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("locomo", "x.json", Options{}); !errors.Is(err, ErrUnknownDataset) {
		t.Fatalf("expected ErrUnknownDataset, got %v", err)
	}
	if _, err := Load(LongMemEval, filepath.Join(t.TempDir(), "missing.json"), Options{}); err == nil {
		t.Fatal("expected read error")
	}
	if _, err := Load(ConvoMem, writeTemp(t, "bad.json", "[{"), Options{}); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := Load(LongMemEval, writeTemp(t, "empty.json", "[]"), Options{}); err == nil {
		t.Fatal("expected error for empty dataset")
	}
}

func TestNames(t *testing.T) {
	if got := strings.Join(Names(), ","); got != "convomem,longmemeval" {
		t.Fatalf("unexpected names %q", got)
	}
}
