package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 50, cfg.Server.RateLimit)
	assert.Equal(t, 100, cfg.Server.BurstLimit)

	assert.Equal(t, "https://api.coingecko.com", cfg.CoinGecko.BaseURL)
	assert.Equal(t, int64(10000), cfg.CoinGecko.RequestTimeoutMillis)

	assert.Equal(t, 60, cfg.PriceCache.FreshnessWindowSeconds)
	assert.Equal(t, 200, cfg.PriceCache.RequestSpacingMillis)
	assert.Equal(t, 10000, cfg.PriceCache.RequestTimeoutMillis)
	assert.Equal(t, 64, cfg.PriceCache.QueueSize)
	assert.Equal(t, 10, cfg.PriceCache.ReferenceTTLMinutes)
	assert.Equal(t, 20, cfg.PriceCache.TopAssetsLimit)

	assert.Equal(t, "data/ledger.json", cfg.Ledger.DataFile)
	assert.Equal(t, 60, cfg.Refresh.IntervalSeconds)
	assert.Equal(t, "usd", cfg.Refresh.DefaultCurrency)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_ExplicitValuesWin(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
server:
  port: ":9090"
  rateLimit: 5
coinGecko:
  baseURL: "https://example.test"
  apiKey: "demo-key"
priceCache:
  freshnessWindowSeconds: 30
  requestSpacingMillis: 500
ledger:
  dataFile: "/tmp/custom.json"
refresh:
  defaultCurrency: "eur"
`))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Server.RateLimit)
	assert.Equal(t, "https://example.test", cfg.CoinGecko.BaseURL)
	assert.Equal(t, "demo-key", cfg.CoinGecko.APIKey)
	assert.Equal(t, 30, cfg.PriceCache.FreshnessWindowSeconds)
	assert.Equal(t, 500, cfg.PriceCache.RequestSpacingMillis)
	assert.Equal(t, "/tmp/custom.json", cfg.Ledger.DataFile)
	assert.Equal(t, "eur", cfg.Refresh.DefaultCurrency)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "server: [not a mapping"))
	assert.Error(t, err)
}
