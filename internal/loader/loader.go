// Package loader reads test configurations from YAML or JSON suite files.
//
// A file holds one configuration per YAML document, so several
// configurations can share a file separated by "---". Every document is
// checked against an embedded JSON schema before it is converted, then
// defaults are applied and the result is validated as a
// [model.TestConfiguration].
package loader

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/suitepilot/suitepilot/internal/errors"
	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/resource"
)

//go:embed suite.schema.json
var schemaJSON string

const schemaURL = "suite.schema.json"

// Defaults fill in fields a suite file leaves out.
type Defaults struct {
	Environment       string
	ConcurrencyLevel  int
	EstimatedDuration time.Duration
	Resources         resource.Requirements
}

// DefaultDefaults returns the built-in defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Environment:       model.EnvDevelopment,
		ConcurrencyLevel:  1,
		EstimatedDuration: time.Minute,
		Resources: resource.Requirements{
			MemoryMB:        128,
			CPUPercent:      10,
			NetworkMbps:     10,
			StorageMB:       100,
			ConcurrentUsers: 1,
		},
	}
}

// Loader parses and validates suite files.
type Loader struct {
	schema   *jsonschema.Schema
	defaults Defaults
}

// Option configures a Loader.
type Option func(*Loader)

// WithDefaults replaces the built-in defaults.
func WithDefaults(d Defaults) Option {
	return func(l *Loader) {
		l.defaults = d
	}
}

// New compiles the embedded schema and returns a Loader.
func New(opts ...Option) (*Loader, error) {
	schema, err := jsonschema.CompileString(schemaURL, schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to compile suite schema: %w", err)
	}
	l := &Loader{schema: schema, defaults: DefaultDefaults()}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// LoadFiles loads every configuration from every path, in order.
func (l *Loader) LoadFiles(paths ...string) ([]model.TestConfiguration, error) {
	var out []model.TestConfiguration
	for _, path := range paths {
		cfgs, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, cfgs...)
	}
	return out, nil
}

// LoadFile loads every configuration in path.
func (l *Loader) LoadFile(path string) ([]model.TestConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	return l.Parse(data, path)
}

// Parse decodes every document in data. source names the input in errors.
func (l *Loader) Parse(data []byte, source string) ([]model.TestConfiguration, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out []model.TestConfiguration
	for doc := 1; ; doc++ {
		var raw any
		err := dec.Decode(&raw)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", source, err)
		}
		if raw == nil {
			continue
		}

		cfg, err := l.convert(raw)
		if err != nil {
			return nil, fmt.Errorf("%s (document %d): %w", source, doc, err)
		}
		out = append(out, cfg)
	}
	if len(out) == 0 {
		return nil, errors.NewValidationError(fmt.Sprintf("%s contains no configurations", source))
	}
	return out, nil
}

// convert validates one decoded document against the schema and builds the
// configuration from it.
func (l *Loader) convert(raw any) (model.TestConfiguration, error) {
	// Round-trip through JSON so the schema sees JSON types.
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return model.TestConfiguration{}, fmt.Errorf("failed to marshal document: %w", err)
	}
	var doc any
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return model.TestConfiguration{}, fmt.Errorf("failed to normalize document: %w", err)
	}
	if err := l.schema.Validate(doc); err != nil {
		return model.TestConfiguration{}, errors.NewValidationError("suite file does not match schema").WithCause(err)
	}

	var f fileConfig
	if err := json.Unmarshal(jsonData, &f); err != nil {
		return model.TestConfiguration{}, fmt.Errorf("failed to decode configuration: %w", err)
	}

	cfg := f.toModel(l.defaults)
	if err := cfg.Validate(); err != nil {
		return model.TestConfiguration{}, err
	}
	return cfg, nil
}

// fileConfig mirrors the suite file layout.
type fileConfig struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Environment      string      `json:"environment"`
	ConcurrencyLevel int         `json:"concurrency_level"`
	RetryAttempts    int         `json:"retry_attempts"`
	TestSuites       []fileSuite `json:"test_suites"`
}

type fileSuite struct {
	ID                string                 `json:"id"`
	Name              string                 `json:"name"`
	Dependencies      []string               `json:"dependencies"`
	EstimatedDuration *duration              `json:"estimated_duration"`
	Resources         *resource.Requirements `json:"resources"`
	Parameters        map[string]any         `json:"parameters"`
}

func (f fileConfig) toModel(d Defaults) model.TestConfiguration {
	cfg := model.TestConfiguration{
		ID:               f.ID,
		Name:             f.Name,
		Environment:      f.Environment,
		ConcurrencyLevel: f.ConcurrencyLevel,
		RetryAttempts:    f.RetryAttempts,
		TestSuites:       make([]model.SuiteDescriptor, len(f.TestSuites)),
	}
	if cfg.Name == "" {
		cfg.Name = cfg.ID
	}
	if cfg.Environment == "" {
		cfg.Environment = d.Environment
	}
	if cfg.ConcurrencyLevel == 0 {
		cfg.ConcurrencyLevel = d.ConcurrencyLevel
	}

	for i, s := range f.TestSuites {
		desc := model.SuiteDescriptor{
			ID:                s.ID,
			Name:              s.Name,
			Dependencies:      s.Dependencies,
			EstimatedDuration: d.EstimatedDuration,
			Resources:         d.Resources,
			Parameters:        s.Parameters,
		}
		if s.EstimatedDuration != nil {
			desc.EstimatedDuration = time.Duration(*s.EstimatedDuration)
		}
		if s.Resources != nil {
			desc.Resources = *s.Resources
		}
		cfg.TestSuites[i] = desc
	}
	return cfg
}

// duration accepts Go duration strings ("90s", "1m30s") or a number of
// seconds.
type duration time.Duration

func (d *duration) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = duration(parsed)
		return nil
	}

	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return fmt.Errorf("invalid duration %s: %w", text, err)
	}
	*d = duration(time.Duration(seconds * float64(time.Second)))
	return nil
}
