package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GRAPH_DRIVER", DriverMemory)
	t.Setenv("AUTH_ENABLED", "false")
}

func TestLoad_Defaults(t *testing.T) {
	localEnv(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.False(t, cfg.HTTP.AllowCredentials)
	assert.Equal(t, DriverMemory, cfg.Graph.Driver)
	assert.Equal(t, 5, cfg.Graph.WarmUpAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Graph.WarmUpInitialDelay)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Chains.MaxLength)
	assert.False(t, cfg.Auth.Enabled)
	assert.Empty(t, cfg.Auth.AdminIDs)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SERVER_ALLOW_CREDENTIALS", "true")
	t.Setenv("GRAPH_URI", "neo4j://db:7687")
	t.Setenv("GRAPH_WARMUP_MAX_DELAY", "2s")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("AUTH_ADMIN_IDS", "u1, u2,,")
	t.Setenv("CHAINS_MAX_LENGTH", "6")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.True(t, cfg.HTTP.AllowCredentials)
	assert.Equal(t, DriverNeo4j, cfg.Graph.Driver)
	assert.Equal(t, "neo4j://db:7687", cfg.Graph.URI)
	assert.Equal(t, 2*time.Second, cfg.Graph.WarmUpMaxDelay)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, []string{"u1", "u2"}, cfg.Auth.AdminIDs)
	assert.Equal(t, 6, cfg.Chains.MaxLength)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FileEnvAndFlagPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[http]
port = 7000
host = "127.0.0.1"

[graph]
driver = "memory"

[log]
level = "debug"

[auth]
enabled = false
`), 0o644))
	t.Setenv(FileEnv, path)
	t.Setenv("LOG_LEVEL", "warn")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--http.port=7100"}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host, "file beats defaults")
	assert.Equal(t, "warn", cfg.Logging.Level, "env beats file")
	assert.Equal(t, 7100, cfg.HTTP.Port, "flag beats file")
	assert.Equal(t, DriverMemory, cfg.Graph.Driver, "unchanged flags keep the file value")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	localEnv(t)
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "absent.toml"))

	_, err := Load(nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("GRAPH_DRIVER", "sqlite")
	t.Setenv("SERVER_PORT", "70000")
	t.Setenv("CHAINS_MAX_LENGTH", "11")

	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
	assert.Contains(t, err.Error(), `unknown graph driver "sqlite"`)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
	assert.Contains(t, err.Error(), "CHAINS_MAX_LENGTH")
}

func TestValidate_Neo4jNeedsURI(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "false")

	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GRAPH_URI")
}
