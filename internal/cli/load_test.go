package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
)

const yamlEntities = `
entities:
  - { code: p, name: Parent, ownership_percentage: 100, functional_currency: usd, reporting_currency: USD, consolidation_method: full }
fx_rates:
  - { from: EUR, to: USD, rate_type: closing, date: "2024-12-31", rate: 1.10 }
`

const cueEntities = `
_usd: {
	functional_currency:  "USD"
	reporting_currency:   "USD"
	consolidation_method: "full"
}
entities: [
	_usd & {code: "P", name: "Parent", ownership_percentage: 100},
	_usd & {code: "S", name: "Sub", parent_code: "P", ownership_percentage: 80},
]
fx_rates: [{from_currency: "EUR", to_currency: "USD", rate_type: "average", date: "2024-12-31", rate_value: 1.08}]
`

func TestLoadJSONBundle(t *testing.T) {
	dir := t.TempDir()
	bundle := fixtureBundle(t)
	path := writeJSONBundle(t, dir, "group.json", bundle)
	db := filepath.Join(dir, "consol.db")

	out, err := execute(t, NewLoadCommand(&RootOptions{Format: "json"}), path, "--db", db)
	require.NoError(t, err)

	var summary LoadSummary
	resp := decode(t, out, &summary)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{path}, summary.Files)
	assert.Equal(t, 1, summary.Imported.Processes)
	assert.Equal(t, len(bundle.Entities), summary.Imported.Entities)
	assert.Equal(t, len(bundle.Accounts), summary.Imported.Accounts)
	assert.Equal(t, len(bundle.Balances), summary.Imported.Balances)
	assert.Equal(t, len(bundle.Transactions), summary.Imported.Transactions)

	withStore(t, db, func(ctx context.Context, st *store.Store) {
		proc, err := st.LoadProcess(ctx, procID)
		require.NoError(t, err)
		assert.Len(t, proc.Nodes, 10)
		assert.Len(t, proc.Connections, 9)
	})
}

func TestLoadYAMLNormalizesCodes(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "refdata.yaml", yamlEntities)
	db := filepath.Join(dir, "consol.db")

	out, err := execute(t, NewLoadCommand(&RootOptions{Format: "text"}), path, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 1 file(s)")
	assert.Contains(t, out, "entities:     1")

	withStore(t, db, func(ctx context.Context, st *store.Store) {
		entities, err := st.ListEntities(ctx)
		require.NoError(t, err)
		require.Len(t, entities, 1)
		assert.Equal(t, "P", entities[0].Code)
		assert.Equal(t, "USD", entities[0].FunctionalCurrency)
	})
}

func TestLoadCUEBundle(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "group.cue", cueEntities)

	loaded, err := LoadBundles(path)
	require.NoError(t, err)
	require.Len(t, loaded.Bundle.Entities, 2)
	s := loaded.Bundle.Entities[1]
	assert.Equal(t, "S", s.Code)
	assert.Equal(t, "P", s.ParentCode)
	assert.Equal(t, "USD", s.FunctionalCurrency)
	assert.Equal(t, model.ConsolidationMethod("full"), s.Method)
	assert.Equal(t, "80", s.OwnershipPercentage.String())
	require.Len(t, loaded.Bundle.FXRates, 1)
	assert.Equal(t, "1.08", loaded.Bundle.FXRates[0].Rate.String())
}

func TestLoadDirectoryMergesFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b/entities.cue", cueEntities)
	writeFile(t, dir, "a/refdata.yml", yamlEntities)
	writeFile(t, dir, "notes.txt", "ignored")

	loaded, err := LoadBundles(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.FileCount)
	assert.Equal(t, filepath.Join(dir, "a", "refdata.yml"), loaded.Files[0])
	assert.Len(t, loaded.Bundle.Entities, 3)
	assert.Len(t, loaded.Bundle.FXRates, 2)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing path", filepath.Join(dir, "nope.yaml"), ErrCodeNotFound},
		{"empty directory", t.TempDir(), ErrCodeNoFiles},
		{"unknown yaml field", writeFile(t, dir, "bad.yaml", "entities:\n  - { code: P, colour: red }\n"), ErrCodeLoadFailed},
		{"malformed json", writeFile(t, dir, "bad.json", `{"entities": [`), ErrCodeLoadFailed},
		{"cue conflict", writeFile(t, dir, "bad.cue", `entities: [{code: "P"} & {code: "Q"}]`), ErrCodeBuildFailed},
		{"cue not concrete", writeFile(t, dir, "open.cue", `entities: [{code: string}]`), ErrCodeBuildFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadBundles(tc.path)
			require.Error(t, err)
			assert.Equal(t, tc.code, loadErrorCode(err))
		})
	}
}

func TestLoadCommandMissingFile(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, NewLoadCommand(&RootOptions{Format: "json"}),
		filepath.Join(dir, "missing.yaml"), "--db", filepath.Join(dir, "consol.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decode(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestLoadCommandInvalidBundle(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", `
entities:
  - { code: P, name: Parent, ownership_percentage: 100, functional_currency: XX, reporting_currency: USD, consolidation_method: full }
`)
	db := filepath.Join(dir, "consol.db")

	out, err := execute(t, NewLoadCommand(&RootOptions{Format: "text"}), path, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E101]")

	withStore(t, db, func(ctx context.Context, st *store.Store) {
		entities, err := st.ListEntities(ctx)
		require.NoError(t, err)
		assert.Empty(t, entities, "nothing is written when validation fails")
	})
}
