// internal/datasets/datasets.go

// Package datasets turns locally stored benchmark datasets into conversations
// and questions.
package datasets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mwiater/recallbench/internal/bench"
	"github.com/mwiater/recallbench/internal/checkers"
	"github.com/mwiater/recallbench/internal/logging"
	"go.uber.org/zap"
)

// Dataset is a parsed benchmark ready for ingestion and querying.
type Dataset struct {
	Name          string
	Conversations []bench.Conversation
	Questions     []bench.Question
	// Warnings counts tolerated data problems such as missing session ids.
	Warnings int
	// Checker is the answer checker the dataset is scored with by default.
	Checker checkers.Method
	// Sampled is true when Questions is already a stratified subset.
	Sampled bool
}

// Options controls how a dataset file is read.
type Options struct {
	Sample int
	Seed   int64
}

type loader func(path string, opts Options) (*Dataset, error)

var loaders = map[string]loader{
	LongMemEval: LoadLongMemEval,
	ConvoMem:    LoadConvoMem,
}

// ErrUnknownDataset is returned by Load for an unregistered name.
var ErrUnknownDataset = errors.New("unknown dataset")

// Names lists the supported datasets.
func Names() []string {
	names := make([]string, 0, len(loaders))
	for n := range loaders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load reads the named dataset from path.
func Load(name, path string, opts Options) (*Dataset, error) {
	l, ok := loaders[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (want one of %v)", ErrUnknownDataset, name, Names())
	}
	ds, err := l(path, opts)
	if err != nil {
		return nil, err
	}
	if ds.Warnings > 0 {
		logging.L().Warn("dataset records needed fallbacks",
			zap.String("dataset", name),
			zap.Int("warnings", ds.Warnings),
		)
	}
	return ds, nil
}

// readRecords decodes either a JSON array or a stream of JSON objects (JSON Lines).
func readRecords[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var out []T
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return out, nil
	}

	var out []T
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var rec T
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s record %d: %w", path, len(out)+1, err)
		}
		out = append(out, rec)
	}
}

// turn decodes a message given either as {role, content} or as a legacy
// [user, assistant] pair.
type turn []bench.Message

func (t *turn) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '{':
		var m struct {
			Role    string       `json:"role"`
			Content bench.Answer `json:"content"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		if m.Role == "" {
			m.Role = "user"
		}
		*t = turn{{Role: m.Role, Content: m.Content.String()}}
	case '[':
		var pair []bench.Answer
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) >= 2 {
			*t = turn{
				{Role: "user", Content: pair[0].String()},
				{Role: "assistant", Content: pair[1].String()},
			}
		}
	}
	return nil
}

func flatten(turns []turn) []bench.Message {
	var msgs []bench.Message
	for _, t := range turns {
		msgs = append(msgs, t...)
	}
	return msgs
}
