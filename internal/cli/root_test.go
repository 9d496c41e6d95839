package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/config"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "consol", cmd.Use)
	assert.Contains(t, cmd.Long, "consolidation")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"load", "validate", "order", "run", "report", "audit", "catalog", "replay", "serve", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	envFlag := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFlag)
	assert.Equal(t, ".env", envFlag.DefValue)
}

func TestDatabaseFlagDefaultsToConfig(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"load", "validate", "order", "run", "report", "audit", "replay", "serve"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		dbFlag := sub.Flags().Lookup("db")
		require.NotNil(t, dbFlag, name)
		assert.Equal(t, "", dbFlag.DefValue, name)
	}
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	typeFlag := runCmd.Flags().Lookup("type")
	require.NotNil(t, typeFlag)
	assert.Equal(t, "simulation", typeFlag.DefValue)
	require.NotNil(t, runCmd.Flags().Lookup("period"))
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	for _, name := range []string{"update", "filter", "golden-dir"} {
		assert.NotNil(t, testCmd.Flags().Lookup(name), name)
	}
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	_, err := execute(t, cmd, "catalog", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestConfigReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, "test.env", "CONSOL_DB="+filepath.Join(dir, "from-env.db")+"\n")
	// godotenv never overrides variables already set.
	t.Setenv(config.EnvDB, "")
	require.NoError(t, os.Unsetenv(config.EnvDB))

	opts := &RootOptions{EnvFile: env}
	cfg, err := opts.Config()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "from-env.db"), cfg.DBPath)

	again, err := opts.Config()
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestConfigInvalidIsCommandError(t *testing.T) {
	t.Setenv(config.EnvParallelism, "lots")
	opts := &RootOptions{EnvFile: filepath.Join(t.TempDir(), "missing.env")}
	_, err := opts.Config()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDBPath(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "consol.db", dbPath("", cfg))
	assert.Equal(t, "x.db", dbPath("x.db", cfg))
}
