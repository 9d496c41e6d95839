package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fxConfig struct {
	Method      string   `json:"method"`
	CTALocation string   `json:"cta_location"`
	CTAAccount  string   `json:"cta_account"`
	Entities    []string `json:"entities"`
}

func TestCompileAppliesDefaults(t *testing.T) {
	s, err := NewSchema()
	require.NoError(t, err)

	var cfg fxConfig
	require.NoError(t, s.Compile("#FXTranslation", nil, &cfg))
	assert.Equal(t, "current_rate", cfg.Method)
	assert.Equal(t, "oci", cfg.CTALocation)
	assert.Equal(t, "CTA", cfg.CTAAccount)
	assert.Nil(t, cfg.Entities)
}

func TestCompileKeepsExplicitValues(t *testing.T) {
	s, err := NewSchema()
	require.NoError(t, err)

	var cfg fxConfig
	require.NoError(t, s.Compile("#FXTranslation", map[string]any{
		"method":   "temporal",
		"entities": []any{"C"},
	}, &cfg))
	assert.Equal(t, "temporal", cfg.Method)
	assert.Equal(t, []string{"C"}, cfg.Entities)
}

func TestCompileRejectsInvalidConfig(t *testing.T) {
	s, err := NewSchema()
	require.NoError(t, err)

	tests := []struct {
		name string
		def  string
		cfg  map[string]any
	}{
		{"unknown key", "#ProfitLoss", map[string]any{"colour": "red"}},
		{"bad enum", "#FXTranslation", map[string]any{"method": "spot"}},
		{"tax rate above one", "#DeferredTax", map[string]any{"tax_rate": 1.5}},
		{"missing required", "#DeferredTax", map[string]any{}},
		{"bad period", "#OpeningBalance", map[string]any{"source_period": "2024-13"}},
		{"negative dividend", "#RetainedEarnings", map[string]any{"dividends": map[string]any{"A": -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Compile(tt.def, tt.cfg, nil)
			require.Error(t, err)
			assert.True(t, IsConfigError(err), "got %T: %v", err, err)
		})
	}
}

func TestCompileUnknownDefinition(t *testing.T) {
	s, err := NewSchema()
	require.NoError(t, err)

	assert.False(t, s.Has("#Nope"))
	assert.True(t, s.Has("#NCI"))
	err = s.Compile("#Nope", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config definition")
}

func TestCompileSchemaSyntaxError(t *testing.T) {
	_, err := CompileSchema("broken.cue", "#A: {")
	require.Error(t, err)
}
