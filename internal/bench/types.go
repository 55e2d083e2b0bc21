// internal/bench/types.go
// Package bench defines the data model shared by ingestion, querying and reporting.
package bench

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Message is a single conversational turn.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Conversation is an ordered run of messages belonging to one session.
type Conversation struct {
	ID       string    `json:"id"`
	Session  string    `json:"session,omitempty"`
	Messages []Message `json:"messages"`
	Context  string    `json:"context,omitempty"`
}

// Chunk is the unit stored in the memory service.
type Chunk struct {
	Content string `json:"content"`
	Context string `json:"context,omitempty"`
}

// Answer holds an expected answer that datasets encode either as a string or a number.
type Answer string

// UnmarshalJSON accepts JSON strings, numbers and null.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Answer(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = Answer(n.String())
	return nil
}

// String renders the answer as text.
func (a Answer) String() string { return string(a) }

// Question is a probe issued against the memory service after ingestion.
type Question struct {
	ID       string            `json:"id"`
	Text     string            `json:"question"`
	Expected Answer            `json:"expected_answer"`
	Category string            `json:"category"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// QuestionResult is the scored outcome of one question.
type QuestionResult struct {
	QuestionID     string       `json:"question_id"`
	Category       string       `json:"category"`
	Question       string       `json:"question"`
	Expected       string       `json:"expected_answer"`
	Retrieved      []string     `json:"retrieved"`
	Correct        bool         `json:"correct"`
	LatencyMs      float64      `json:"latency_ms"`
	HitAtK         map[int]bool `json:"hit_at_k"`
	ReciprocalRank float64      `json:"reciprocal_rank"`
	Error          string       `json:"error,omitempty"`
}

// CategoryResult aggregates the questions of one category.
type CategoryResult struct {
	Category     string  `json:"category"`
	Total        int     `json:"total"`
	Correct      int     `json:"correct"`
	Accuracy     float64 `json:"accuracy"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	HitAt1       float64 `json:"hit_at_1"`
	HitAt5       float64 `json:"hit_at_5"`
	HitAt10      float64 `json:"hit_at_10"`
	MRR          float64 `json:"mrr"`
}

// BenchmarkResult is the artifact of one dataset run.
type BenchmarkResult struct {
	Benchmark          string           `json:"benchmark"`
	Provider           string           `json:"provider"`
	Timestamp          time.Time        `json:"timestamp"`
	TotalQuestions     int              `json:"total_questions"`
	TotalCorrect       int              `json:"total_correct"`
	OverallAccuracy    float64          `json:"overall_accuracy"`
	AvgLatencyMs       float64          `json:"avg_latency_ms"`
	MRR                float64          `json:"mrr"`
	ConfidenceInterval [2]float64       `json:"confidence_interval"`
	Categories         []CategoryResult `json:"categories"`
	Questions          []QuestionResult `json:"questions,omitempty"`
	Metadata           map[string]any   `json:"metadata"`
}

// HitKs lists the cutoffs recorded in QuestionResult.HitAtK.
var HitKs = []int{1, 5, 10}

// CategoryOrUnknown returns category, or "unknown" when it is blank.
func CategoryOrUnknown(category string) string {
	if strings.TrimSpace(category) == "" {
		return "unknown"
	}
	return category
}

// FormatMs renders a millisecond value with one decimal.
func FormatMs(ms float64) string {
	return strconv.FormatFloat(ms, 'f', 1, 64) + "ms"
}
