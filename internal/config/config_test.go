package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)

	assert.Equal(t, Default().DBPath, cfg.DBPath)
	assert.Equal(t, 4, cfg.Parallelism)
	assert.Equal(t, 30*time.Second, cfg.NodeTimeout)
	assert.Equal(t, "GROUP", cfg.GroupEntity)
	assert.Equal(t, "0.01", cfg.Tolerance.String())
	assert.Equal(t, 5*time.Minute, cfg.LockTTL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.RedisAddr)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		EnvDB:          "/tmp/x.db",
		EnvParallelism: "8",
		EnvNodeTimeout: "2s",
		EnvGroupEntity: " hold ",
		EnvTolerance:   "0.5",
		EnvRedisAddr:   "localhost:6379",
		EnvLockTTL:     "1m",
		EnvHTTPAddr:    ":9090",
		EnvLogFormat:   "json",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, 8, cfg.Parallelism)
	assert.Equal(t, 2*time.Second, cfg.NodeTimeout)
	assert.Equal(t, "HOLD", cfg.GroupEntity)
	assert.Equal(t, "0.5", cfg.Tolerance.String())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, time.Minute, cfg.LockTTL)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	tests := map[string]map[string]string{
		"parallelism not a number": {EnvParallelism: "many"},
		"parallelism zero":         {EnvParallelism: "0"},
		"bad timeout":              {EnvNodeTimeout: "soon"},
		"bad tolerance":            {EnvTolerance: "a lot"},
		"negative tolerance":       {EnvTolerance: "-1"},
		"bad log format":           {EnvLogFormat: "xml"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(env(vars))
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CONSOL_PARALLELISM=6\nCONSOL_HTTP_ADDR=:7070\n"), 0o600))

	t.Setenv(EnvHTTPAddr, ":6060")
	t.Setenv(EnvParallelism, "")
	require.NoError(t, os.Unsetenv(EnvParallelism))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Parallelism)
	assert.Equal(t, ":6060", cfg.HTTPAddr, "process env wins over .env")
}

func TestLoadIgnoresMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
