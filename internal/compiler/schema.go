// Package compiler checks node configurations against the embedded CUE
// schema and decodes them into typed config structs.
package compiler

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

// Schema holds compiled CUE definitions.
//
// Thread-safety: a cue.Context must not be used concurrently, so every
// Compile call is serialised.
type Schema struct {
	mu   sync.Mutex
	ctx  *cue.Context
	root cue.Value
}

// NewSchema compiles the embedded node config schema.
func NewSchema() (*Schema, error) {
	return CompileSchema("schema.cue", schemaSource)
}

// CompileSchema compiles CUE source holding config definitions.
func CompileSchema(filename, src string) (*Schema, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(src, cue.Filename(filename))
	if err := root.Err(); err != nil {
		return nil, formatCUEError(filename, err)
	}
	return &Schema{ctx: ctx, root: root}, nil
}

// Has reports whether the schema declares definition def (e.g. "#NCI").
func (s *Schema) Has(def string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root.LookupPath(cue.ParsePath(def)).Exists()
}

// Compile unifies cfg with definition def, requires the result to be
// concrete and decodes it into out. Defaults declared in the schema are
// filled in; keys the definition does not declare are rejected.
func (s *Schema) Compile(def string, cfg map[string]any, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema := s.root.LookupPath(cue.ParsePath(def))
	if !schema.Exists() {
		return &ConfigError{Definition: def, Message: "unknown config definition"}
	}
	if cfg == nil {
		cfg = map[string]any{}
	}
	v := s.ctx.Encode(cfg)
	if err := v.Err(); err != nil {
		return formatCUEError(def, err)
	}
	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(def, err)
	}
	data, err := unified.MarshalJSON()
	if err != nil {
		return formatCUEError(def, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", def, err)
	}
	return nil
}
