package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the overall configuration for the application.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	CoinGecko  CoinGeckoConfig  `yaml:"coinGecko"`
	PriceCache PriceCacheConfig `yaml:"priceCache"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
	RateLimit    int    `yaml:"rateLimit"`
	BurstLimit   int    `yaml:"burstLimit"`
}

// CoinGeckoConfig holds the configuration for the CoinGecko client.
type CoinGeckoConfig struct {
	BaseURL              string `yaml:"baseURL"`
	APIKey               string `yaml:"apiKey"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// PriceCacheConfig holds configuration for the price cache and the
// request scheduler in front of the market data provider.
type PriceCacheConfig struct {
	FreshnessWindowSeconds int `yaml:"freshnessWindowSeconds"`
	RequestSpacingMillis   int `yaml:"requestSpacingMillis"`
	RequestTimeoutMillis   int `yaml:"requestTimeoutMillis"`
	QueueSize              int `yaml:"queueSize"`
	ReferenceTTLMinutes    int `yaml:"referenceTTLMinutes"`
	TopAssetsLimit         int `yaml:"topAssetsLimit"`
}

// LedgerConfig holds the configuration for the persistent ledger store.
type LedgerConfig struct {
	DataFile string `yaml:"dataFile"`
}

// RefreshConfig drives the periodic background recomputation of wallet
// holdings, which keeps prices warm and is the de facto retry for
// transient upstream failures.
type RefreshConfig struct {
	IntervalSeconds int    `yaml:"intervalSeconds"`
	DefaultCurrency string `yaml:"defaultCurrency"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
	File  string `yaml:"file"`
}

// LoadConfig loads configuration from a YAML file and applies defaults
// for everything left unset.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	cfg.applyDefaults()

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 50
	}
	if cfg.Server.BurstLimit == 0 {
		cfg.Server.BurstLimit = 100
	}

	if cfg.CoinGecko.BaseURL == "" {
		cfg.CoinGecko.BaseURL = "https://api.coingecko.com"
		logrus.Infof("CoinGecko.BaseURL not set, defaulting to %s", cfg.CoinGecko.BaseURL)
	}
	if cfg.CoinGecko.RequestTimeoutMillis == 0 {
		cfg.CoinGecko.RequestTimeoutMillis = 10000
		logrus.Infof("CoinGecko.RequestTimeoutMillis not set, defaulting to %d ms", cfg.CoinGecko.RequestTimeoutMillis)
	}

	if cfg.PriceCache.FreshnessWindowSeconds == 0 {
		cfg.PriceCache.FreshnessWindowSeconds = 60
		logrus.Infof("PriceCache.FreshnessWindowSeconds not set, defaulting to %d s", cfg.PriceCache.FreshnessWindowSeconds)
	}
	if cfg.PriceCache.RequestSpacingMillis == 0 {
		cfg.PriceCache.RequestSpacingMillis = 200
		logrus.Infof("PriceCache.RequestSpacingMillis not set, defaulting to %d ms", cfg.PriceCache.RequestSpacingMillis)
	}
	if cfg.PriceCache.RequestTimeoutMillis == 0 {
		cfg.PriceCache.RequestTimeoutMillis = 10000
	}
	if cfg.PriceCache.QueueSize == 0 {
		cfg.PriceCache.QueueSize = 64
	}
	if cfg.PriceCache.ReferenceTTLMinutes == 0 {
		cfg.PriceCache.ReferenceTTLMinutes = 10
	}
	if cfg.PriceCache.TopAssetsLimit == 0 {
		cfg.PriceCache.TopAssetsLimit = 20
	}

	if cfg.Ledger.DataFile == "" {
		cfg.Ledger.DataFile = "data/ledger.json"
		logrus.Infof("Ledger.DataFile not set, defaulting to %s", cfg.Ledger.DataFile)
	}

	if cfg.Refresh.IntervalSeconds == 0 {
		cfg.Refresh.IntervalSeconds = 60
	}
	if cfg.Refresh.DefaultCurrency == "" {
		cfg.Refresh.DefaultCurrency = "usd"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
