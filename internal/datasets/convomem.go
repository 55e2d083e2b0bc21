// internal/datasets/convomem.go
package datasets

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mwiater/recallbench/internal/bench"
	"github.com/mwiater/recallbench/internal/checkers"
)

// ConvoMem is the registered name of the ConvoMem dataset.
const ConvoMem = "convomem"

// conversationIDPrefix bounds how much of a conversation feeds its synthetic id.
const conversationIDPrefix = 100

// ConvoMemRecord is one question paired with the conversation it is about.
type ConvoMemRecord struct {
	Conversation   json.RawMessage `json:"conversation"`
	Messages       json.RawMessage `json:"messages"`
	ConversationID string          `json:"conversation_id"`
	ID             bench.Answer    `json:"id"`
	QuestionID     bench.Answer    `json:"question_id"`
	Question       string          `json:"question"`
	Answer         bench.Answer    `json:"answer"`
	Category       string          `json:"category"`
}

func (r ConvoMemRecord) rawConversation() json.RawMessage {
	if len(r.Conversation) > 0 {
		return r.Conversation
	}
	return r.Messages
}

func (r ConvoMemRecord) questionID() string {
	if r.ID != "" {
		return r.ID.String()
	}
	return r.QuestionID.String()
}

// LoadConvoMem reads a ConvoMem JSON or JSON Lines file. Sampling is left to
// the runner because every record carries its own conversation.
func LoadConvoMem(path string, _ Options) (*Dataset, error) {
	records, err := readRecords[ConvoMemRecord](path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no records", path)
	}
	return ParseConvoMem(records)
}

// ParseConvoMem converts records into deduplicated conversations and one
// question per record. A record without a conversation id gets one derived
// from its messages, counted as a warning.
func ParseConvoMem(records []ConvoMemRecord) (*Dataset, error) {
	ds := &Dataset{Name: ConvoMem, Checker: checkers.MethodAbstention}
	seen := map[string]struct{}{}

	for i, rec := range records {
		raw := rec.rawConversation()
		convID := rec.ConversationID
		if convID == "" {
			convID = syntheticConversationID(raw)
			ds.Warnings++
		}

		if _, dup := seen[convID]; !dup {
			seen[convID] = struct{}{}
			var turns []turn
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &turns); err != nil {
					return nil, fmt.Errorf("record %d: decode conversation: %w", i, err)
				}
			}
			if msgs := flatten(turns); len(msgs) > 0 {
				ds.Conversations = append(ds.Conversations, bench.Conversation{ID: convID, Messages: msgs})
			}
		}

		ds.Questions = append(ds.Questions, bench.Question{
			ID:       rec.questionID(),
			Text:     rec.Question,
			Expected: rec.Answer,
			Category: bench.CategoryOrUnknown(rec.Category),
			Metadata: map[string]string{"conversation_id": convID},
		})
	}
	return ds, nil
}

func syntheticConversationID(raw json.RawMessage) string {
	prefix := raw
	if len(prefix) > conversationIDPrefix {
		prefix = prefix[:conversationIDPrefix]
	}
	return "conv-" + uuid.NewSHA1(uuid.NameSpaceOID, prefix).String()[:13]
}
