// Package config loads type manifests. A manifest is a TOML document that
// declares types, their fields, imports and methods, and the code each
// contributor adds to a type's initializer.
//
//	[limits]
//	max_stack = 64
//
//	[[type]]
//	name = "counter"
//
//	  [[type.field]]
//	  name = "count"
//	  type = "i32"
//	  mutable = true
//	  export = true
//
//	  [[type.import]]
//	  name = "log"
//	  module = "env"
//	  params = ["i32"]
//
//	  [[type.contribution]]
//	  contributor = "metrics"
//	  steps = [
//	    { op = "set", field = "count", value = 1 },
//	    { op = "call", method = "log", args = [{ field = "count" }] },
//	  ]
//
// Steps are compiled into code blocks: "set" assigns a field, "call" calls
// a method and drops its results, and the push steps "const" and "get"
// produce a method's results and therefore must come last.
package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/wasm-typegen/errors"
	"github.com/wippyai/wasm-typegen/output"
)

// Manifest is a decoded manifest.
type Manifest struct {
	Limits LimitsConfig `toml:"limits"`
	Types  []TypeConfig `toml:"type"`
}

// LimitsConfig overrides output limits. Zero fields keep the defaults.
type LimitsConfig struct {
	MaxStack    int `toml:"max_stack"`
	MaxLocals   int `toml:"max_locals"`
	MaxCodeSize int `toml:"max_code_size"`
}

type TypeConfig struct {
	Initializer   *InitializerConfig   `toml:"initializer"`
	Name          string               `toml:"name"`
	Fields        []FieldConfig        `toml:"field"`
	Imports       []ImportConfig       `toml:"import"`
	Methods       []MethodConfig       `toml:"method"`
	Contributions []ContributionConfig `toml:"contribution"`
}

type FieldConfig struct {
	Init    any    `toml:"init"`
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	Mutable bool   `toml:"mutable"`
	Export  bool   `toml:"export"`
}

// ImportConfig binds a method to a host function. Func defaults to Name.
type ImportConfig struct {
	Name    string   `toml:"name"`
	Module  string   `toml:"module"`
	Func    string   `toml:"func"`
	Params  []string `toml:"params"`
	Results []string `toml:"results"`
}

type MethodConfig struct {
	Name    string       `toml:"name"`
	Params  []string     `toml:"params"`
	Results []string     `toml:"results"`
	Locals  []string     `toml:"locals"`
	Steps   []StepConfig `toml:"steps"`
	Export  bool         `toml:"export"`
}

// InitializerConfig is a type's own initializer body.
type InitializerConfig struct {
	Locals []string     `toml:"locals"`
	Steps  []StepConfig `toml:"steps"`
}

type ContributionConfig struct {
	Contributor string       `toml:"contributor"`
	Steps       []StepConfig `toml:"steps"`
}

// StepConfig is one step of a body. Which keys apply depends on Op.
type StepConfig struct {
	Value  any             `toml:"value"`
	Op     string          `toml:"op"`
	Field  string          `toml:"field"`
	Method string          `toml:"method"`
	Type   string          `toml:"type"`
	Args   []OperandConfig `toml:"args"`
}

// OperandConfig is a call argument: either a field read or a constant.
type OperandConfig struct {
	Value any    `toml:"value"`
	Field string `toml:"field"`
	Type  string `toml:"type"`
}

// Step ops.
const (
	OpSet   = "set"
	OpCall  = "call"
	OpConst = "const"
	OpGet   = "get"
)

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read manifest "+path)
	}
	return Parse(data)
}

// Parse decodes and validates a manifest. Unknown keys are rejected.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "decode manifest")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(keys).Detail("unknown keys: %s", strings.Join(keys, ", ")).Build()
	}
	if _, err := m.Builders(); err != nil {
		return nil, err
	}
	return &m, nil
}

// OutputLimits returns the configured limits over the defaults.
func (l LimitsConfig) OutputLimits() output.Limits {
	limits := output.DefaultLimits()
	if l.MaxStack > 0 {
		limits.MaxStack = l.MaxStack
	}
	if l.MaxLocals > 0 {
		limits.MaxLocals = l.MaxLocals
	}
	if l.MaxCodeSize > 0 {
		limits.MaxCodeSize = l.MaxCodeSize
	}
	return limits
}

// Type returns the type named name.
func (m *Manifest) Type(name string) (*TypeConfig, bool) {
	for i := range m.Types {
		if m.Types[i].Name == name {
			return &m.Types[i], true
		}
	}
	return nil, false
}
