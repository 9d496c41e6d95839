package compiler

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// ConfigError reports a node configuration that does not satisfy its schema.
type ConfigError struct {
	Definition string
	Field      string
	Message    string
	Pos        token.Pos
}

func (e *ConfigError) Error() string {
	field := e.Definition
	if e.Field != "" {
		field = e.Definition + "." + e.Field
	}
	if e.Pos.IsValid() && e.Pos.Filename() != "" {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), field, e.Message)
	}
	return fmt.Sprintf("%s: %s", field, e.Message)
}

// IsConfigError returns true if err is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// formatCUEError turns the first CUE error into a ConfigError carrying its
// path and position.
func formatCUEError(def string, err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ConfigError{Definition: def, Message: err.Error()}
	}
	first := errs[0]
	ce := &ConfigError{Definition: def, Message: first.Error()}
	if path := first.Path(); len(path) > 0 {
		ce.Field = path[len(path)-1]
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
