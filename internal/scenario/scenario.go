// internal/scenario/scenario.go

// Package scenario loads hand-authored recall scenarios and evaluates a
// provider against them, tagging failures with a failure mode.
package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mwiater/recallbench/internal/bench"
	"github.com/mwiater/recallbench/internal/logging"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed scenario.schema.json
var schemaJSON string

// Scenario is one declarative test case.
type Scenario struct {
	Name          string         `yaml:"name" json:"name"`
	Description   string         `yaml:"description" json:"description,omitempty"`
	Category      string         `yaml:"category" json:"category"`
	Source        string         `yaml:"source" json:"source,omitempty"`
	Conversations []Conversation `yaml:"conversations" json:"conversations"`
	Task          Task           `yaml:"task" json:"task"`
	FailureModes  []FailureMode  `yaml:"failure_modes" json:"failure_modes,omitempty"`
	// Path is the file the scenario was read from.
	Path string `yaml:"-" json:"-"`
}

// Conversation is a session replayed into the provider before the query.
type Conversation struct {
	Session  string          `yaml:"session" json:"session"`
	Messages []bench.Message `yaml:"messages" json:"messages"`
}

// Task is the query issued after ingestion and what it should produce.
type Task struct {
	Query            string           `yaml:"query" json:"query"`
	ExpectedBehavior ExpectedBehavior `yaml:"expected_behavior" json:"expected_behavior"`
	Success          Success          `yaml:"success" json:"success"`
}

// ExpectedBehavior describes whether anything should come back at all.
type ExpectedBehavior struct {
	// ShouldRetrieve defaults to true when absent.
	ShouldRetrieve *bool    `yaml:"should_retrieve" json:"should_retrieve,omitempty"`
	ShouldIgnore   []string `yaml:"should_ignore" json:"should_ignore,omitempty"`
	Reasoning      string   `yaml:"reasoning" json:"reasoning,omitempty"`
}

// Retrieves reports the effective should_retrieve value.
func (e ExpectedBehavior) Retrieves() bool {
	return e.ShouldRetrieve == nil || *e.ShouldRetrieve
}

// Success lists phrases that must or must not appear in retrieved content.
// contains and not_contains are accepted as older spellings.
type Success struct {
	ResponseIndicates       []string `yaml:"response_indicates" json:"response_indicates,omitempty"`
	ResponseDoesNotIndicate []string `yaml:"response_does_not_indicate" json:"response_does_not_indicate,omitempty"`
	Contains                []string `yaml:"contains" json:"contains,omitempty"`
	NotContains             []string `yaml:"not_contains" json:"not_contains,omitempty"`
}

// Indicators returns the phrases of which at least one must be retrieved.
func (s Success) Indicators() []string {
	if s.ResponseIndicates != nil {
		return s.ResponseIndicates
	}
	return s.Contains
}

// Forbidden returns the phrases that must not be retrieved.
func (s Success) Forbidden() []string {
	if s.ResponseDoesNotIndicate != nil {
		return s.ResponseDoesNotIndicate
	}
	return s.NotContains
}

// FailureMode is a declared way the scenario is expected to go wrong.
type FailureMode struct {
	Type        string   `yaml:"type" json:"type"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Indicators  []string `yaml:"indicators" json:"indicators,omitempty"`
}

// ErrEmptyScenario is returned for a file with no YAML content.
var ErrEmptyScenario = errors.New("empty scenario document")

var schema = mustSchema()

func mustSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("scenario schema: %v", err))
	}
	return s
}

// Parse validates data against the scenario schema and decodes it.
func Parse(data []byte) (*Scenario, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if doc == nil {
		return nil, ErrEmptyScenario
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate scenario: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("invalid scenario: %s", strings.Join(msgs, "; "))
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if sc.Name == "" {
		sc.Name = "unnamed"
	}
	if sc.Category == "" {
		sc.Category = "unknown"
	}
	return &sc, nil
}

// Load reads one scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc.Path = path
	return sc, nil
}

// LoadDir loads every *.yaml and *.yml file under dir in lexical path order.
// Files whose name starts with an underscore hold combined documents and are
// skipped. Broken files are logged and counted rather than aborting the load.
func LoadDir(dir string) ([]*Scenario, int, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if strings.HasPrefix(d.Name(), "_") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(paths)

	var (
		scenarios []*Scenario
		broken    int
	)
	for _, path := range paths {
		sc, err := Load(path)
		if errors.Is(err, ErrEmptyScenario) {
			continue
		}
		if err != nil {
			broken++
			logging.L().Warn("skipping scenario", zap.String("path", path), zap.Error(err))
			continue
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, broken, nil
}
