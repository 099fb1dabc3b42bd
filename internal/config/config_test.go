package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100, cfg.HistoryCapacity)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, 30*time.Second, cfg.Store.LockTTL)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	missing, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, cfg, missing)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "nodegraph.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
log_level: debug
history_capacity: 20
store:
  backend: redis
  redis:
    addr: cache:6379
    ttl: 1h
`), 0o644))

	t.Setenv("NODEGRAPH_STORE_REDIS_DB", "3")
	t.Setenv("NODEGRAPH_COMPRESS", "true")

	cfg, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 20, cfg.HistoryCapacity)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, 3, cfg.Store.Redis.DB)
	assert.True(t, cfg.Compress)
	assert.Equal(t, "nodegraph:document:", cfg.Store.Redis.Prefix, "unset nested keys keep defaults")

	jsonPath := filepath.Join(dir, "nodegraph.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"format": "msgpack", "server": {"addr": "127.0.0.1:9000"}}`), 0o644))
	t.Setenv("NODEGRAPH_FORMAT", "json")
	cfg, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format, "environment wins over the file")
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown format", "format: xml\n", "Format"},
		{"capacity", "history_capacity: 0\n", "HistoryCapacity"},
		{"backend", "store:\n  backend: s3\n", "Backend"},
		{"redis without addr", "store:\n  backend: redis\n  redis:\n    addr: \"\"\n", "redis.addr"},
		{"unknown key", "colour: red\n", "colour"},
		{"bad duration", "store:\n  lock_ttl: soon\n", "lock_ttl"},
		{"syntax", "log_level: [\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
