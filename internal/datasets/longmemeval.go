// internal/datasets/longmemeval.go
package datasets

import (
	"fmt"
	"strings"

	"github.com/mwiater/recallbench/internal/bench"
	"github.com/mwiater/recallbench/internal/checkers"
	"github.com/mwiater/recallbench/internal/sampling"
)

// LongMemEval is the registered name of the LongMemEval dataset.
const LongMemEval = "longmemeval"

// LongMemEvalRecord is one question with its haystack of chat sessions.
type LongMemEvalRecord struct {
	QuestionID         string       `json:"question_id"`
	Question           string       `json:"question"`
	Answer             bench.Answer `json:"answer"`
	QuestionType       string       `json:"question_type"`
	HaystackSessions   [][]turn     `json:"haystack_sessions"`
	HaystackSessionIDs []string     `json:"haystack_session_ids"`
	AnswerSessionIDs   []string     `json:"answer_session_ids"`
}

// LoadLongMemEval reads a LongMemEval JSON file. When opts.Sample selects a
// subset, records are sampled before parsing and only the sessions those
// records reference are kept.
func LoadLongMemEval(path string, opts Options) (*Dataset, error) {
	records, err := readRecords[LongMemEvalRecord](path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no records", path)
	}

	sampled := false
	var needed map[string]struct{}
	if opts.Sample > 0 && opts.Sample < len(records) {
		records = sampling.StratifiedSeed(records, opts.Sample, func(r LongMemEvalRecord) string {
			return bench.CategoryOrUnknown(r.QuestionType)
		}, opts.Seed)
		sampled = true
		needed = map[string]struct{}{}
		for _, r := range records {
			for _, id := range r.HaystackSessionIDs {
				needed[id] = struct{}{}
			}
		}
	}

	ds := ParseLongMemEval(records, needed)
	ds.Sampled = sampled
	return ds, nil
}

// ParseLongMemEval converts records into deduplicated conversations and one
// question per record. A nil needed set keeps every session. Sessions without
// an id get a positional id scoped to their record, are always kept and are
// counted as warnings.
func ParseLongMemEval(records []LongMemEvalRecord, needed map[string]struct{}) *Dataset {
	ds := &Dataset{Name: LongMemEval, Checker: checkers.MethodPhrase}
	seen := map[string]struct{}{}

	for _, rec := range records {
		for i, session := range rec.HaystackSessions {
			var id string
			if i < len(rec.HaystackSessionIDs) {
				id = rec.HaystackSessionIDs[i]
				if needed != nil {
					if _, ok := needed[id]; !ok {
						continue
					}
				}
			} else {
				id = fmt.Sprintf("%s_session_%d", rec.QuestionID, i)
				ds.Warnings++
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			msgs := flatten(session)
			if len(msgs) == 0 {
				continue
			}
			ds.Conversations = append(ds.Conversations, bench.Conversation{
				ID:       id,
				Messages: msgs,
				Context:  rec.QuestionID,
			})
		}

		q := bench.Question{
			ID:       rec.QuestionID,
			Text:     rec.Question,
			Expected: rec.Answer,
			Category: bench.CategoryOrUnknown(rec.QuestionType),
		}
		if len(rec.AnswerSessionIDs) > 0 {
			q.Metadata = map[string]string{"answer_session_ids": strings.Join(rec.AnswerSessionIDs, ",")}
		}
		ds.Questions = append(ds.Questions, q)
	}
	return ds
}
