// Package ruleset loads the declarative rule table: composites, answer
// scales, question definitions and flag rules. The default table is embedded
// in the binary; RULES_PATH points at a replacement.
package ruleset

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nyashahama/vitality-blueprint-backend/internal/flags"
	"github.com/nyashahama/vitality-blueprint-backend/internal/personalize"
	"github.com/nyashahama/vitality-blueprint-backend/internal/scoring"
)

//go:embed rules.yaml
var defaultRules []byte

// FactImmediateConcern is the output flag carrying Facts.HasImmediateConcern.
const FactImmediateConcern = "has_immediate_concern"

// Ruleset is the parsed, validated rule table. Treat it as read-only once
// loaded; it is shared by every request.
type Ruleset struct {
	Version    string                       `yaml:"version" json:"version"`
	Composites []string                     `yaml:"composites" json:"composites"`
	Scales     map[string][]string          `yaml:"scales" json:"scales"`
	Questions  []scoring.QuestionDefinition `yaml:"questions" json:"questions"`
	Flags      []flags.Rule                 `yaml:"flags" json:"flags"`
}

// Default returns the embedded rule table.
func Default() (*Ruleset, error) {
	return Load(bytes.NewReader(defaultRules))
}

// Open loads the table at path, or the embedded default when path is empty.
func Open(path string) (*Ruleset, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ruleset: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML rule table, resolves every question's scale into its
// label list and validates the result. Unknown fields are rejected.
func Load(r io.Reader) (*Ruleset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var rs Ruleset
	if err := dec.Decode(&rs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("ruleset: decode: empty document")
		}
		return nil, fmt.Errorf("ruleset: decode: %w", err)
	}
	if err := rs.resolveScales(); err != nil {
		return nil, err
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (rs *Ruleset) resolveScales() error {
	var errs []error
	for i := range rs.Questions {
		q := &rs.Questions[i]
		if q.Scale == "" {
			continue
		}
		labels, ok := rs.Scales[q.Scale]
		if !ok {
			errs = append(errs, fmt.Errorf("question %q: unknown scale %q", q.ID, q.Scale))
			continue
		}
		q.Labels = append([]string(nil), labels...)
	}
	if len(errs) > 0 {
		return fmt.Errorf("ruleset: %w", errors.Join(errs...))
	}
	return nil
}

// Validate checks the table for internal consistency and returns every
// problem found, joined.
func (rs *Ruleset) Validate() error {
	var errs []error

	if len(rs.Composites) == 0 {
		errs = append(errs, errors.New("composites: at least one is required"))
	}
	composites := make(map[string]struct{}, len(rs.Composites))
	for _, c := range rs.Composites {
		if strings.TrimSpace(c) == "" {
			errs = append(errs, errors.New("composites: empty name"))
			continue
		}
		if _, dup := composites[c]; dup {
			errs = append(errs, fmt.Errorf("composites: duplicate %q", c))
		}
		composites[c] = struct{}{}
	}
	for _, c := range personalize.RequiredComposites {
		if _, ok := composites[c]; !ok {
			errs = append(errs, fmt.Errorf("composites: %q is required by the personalization selector", c))
		}
	}

	for name, labels := range rs.Scales {
		if len(labels) < 2 {
			errs = append(errs, fmt.Errorf("scale %q: needs at least 2 labels", name))
		}
	}

	ids := make(map[string]struct{}, len(rs.Questions))
	facts := map[string]struct{}{FactImmediateConcern: {}}
	for _, q := range rs.Questions {
		if _, dup := ids[q.ID]; dup {
			errs = append(errs, fmt.Errorf("question %q: duplicate id", q.ID))
		}
		ids[q.ID] = struct{}{}
		if err := q.Validate(composites); err != nil {
			errs = append(errs, err)
		}
		if q.SetsFlag != "" {
			facts[q.SetsFlag] = struct{}{}
		}
	}

	names := make(map[string]struct{}, len(rs.Flags))
	for _, f := range rs.Flags {
		if err := f.Validate(composites); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := names[f.Name]; dup {
			errs = append(errs, fmt.Errorf("flag %q: duplicate name", f.Name))
		}
		if _, clash := facts[f.Name]; clash {
			errs = append(errs, fmt.Errorf("flag %q: collides with an answer fact", f.Name))
		}
		names[f.Name] = struct{}{}
	}

	if len(errs) > 0 {
		return fmt.Errorf("ruleset: invalid:\n%w", errors.Join(errs...))
	}
	return nil
}

// CompositeSet returns the declared composites as a set.
func (rs *Ruleset) CompositeSet() map[string]struct{} {
	out := make(map[string]struct{}, len(rs.Composites))
	for _, c := range rs.Composites {
		out[c] = struct{}{}
	}
	return out
}

// Question looks up a definition by id.
func (rs *Ruleset) Question(id string) (scoring.QuestionDefinition, bool) {
	for _, q := range rs.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return scoring.QuestionDefinition{}, false
}

// Fingerprint is a stable hash of the table's content. Two tables with the
// same fingerprint score every submission identically.
func (rs *Ruleset) Fingerprint() string {
	b, err := json.Marshal(rs)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// Summary identifies a loaded table to clients.
type Summary struct {
	Version     string   `json:"version"`
	Fingerprint string   `json:"fingerprint"`
	Composites  []string `json:"composites"`
	Questions   int      `json:"questions"`
	Flags       []string `json:"flags"`
}

// Summary returns the table's identity and shape.
func (rs *Ruleset) Summary() Summary {
	names := make([]string, len(rs.Flags))
	for i, f := range rs.Flags {
		names[i] = f.Name
	}
	return Summary{
		Version:     rs.Version,
		Fingerprint: rs.Fingerprint(),
		Composites:  slices.Clone(rs.Composites),
		Questions:   len(rs.Questions),
		Flags:       names,
	}
}

// WriteYAML encodes the table back to YAML.
func (rs *Ruleset) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rs); err != nil {
		return fmt.Errorf("ruleset: encode: %w", err)
	}
	return enc.Close()
}
