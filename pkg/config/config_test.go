package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verkkograph/verkko/pkg/store"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Traversal.MaxDepth)
	assert.Equal(t, 10000, cfg.Traversal.MaxVisited)
	assert.Equal(t, 0.3, cfg.Match.Threshold)
	assert.Equal(t, 10, cfg.Match.MaxResults)
	assert.True(t, cfg.CircuitBreaker.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.Alert.Enabled)
	assert.Equal(t, 587, cfg.Alert.SMTPPort)
}

func TestLoadEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("VERKKO_STORE_BACKEND", "badger")
	t.Setenv("VERKKO_STORE_PATH", "/tmp/graph")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("VERKKO_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "badger", cfg.Store.Backend)
	assert.Equal(t, "/tmp/graph", cfg.Store.Path)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestStoreConfigTranslation(t *testing.T) {
	cfg := &Config{Store: StoreConfig{
		Backend: "neo4j",
		URI:     "bolt://graph:7687",
	}}

	sc := cfg.StoreConfig()
	assert.Equal(t, store.BackendNeo4j, sc.Backend)
	assert.Equal(t, "bolt://graph:7687", sc.URI)
}
