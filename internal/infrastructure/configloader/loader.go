package configloader

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// OracleConfig holds price-oracle client configuration.
type OracleConfig struct {
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	MaxKeysPerBatch      int    `yaml:"maxKeysPerBatch"`
}

// HistoryConfig holds price-history fetch configuration. The history endpoint
// is rate-limit sensitive, so requests run sequentially with pacing.
type HistoryConfig struct {
	SpanDays           int     `yaml:"spanDays"`
	TrendPoints        int     `yaml:"trendPoints"`
	RequestDelayMillis int64   `yaml:"requestDelayMillis"`
	RequestsPerSecond  float64 `yaml:"requestsPerSecond"`
}

// RetryConfig holds background retry configuration for failed price and
// history fetches.
type RetryConfig struct {
	MaxAttempts        int     `yaml:"maxAttempts"`
	InitialDelayMillis int64   `yaml:"initialDelayMillis"`
	MaxDelayMillis     int64   `yaml:"maxDelayMillis"`
	Multiplier         float64 `yaml:"multiplier"`
}

// ExplorerConfig holds block-explorer API configuration. The API key comes
// from the EXPLORER_API_KEY environment variable when not set here.
type ExplorerConfig struct {
	BaseURL              string  `yaml:"baseURL"`
	APIKey               string  `yaml:"apiKey"`
	RequestTimeoutMillis int64   `yaml:"requestTimeoutMillis"`
	RequestsPerSecond    float64 `yaml:"requestsPerSecond"`
	GasCacheTTLMinutes   int     `yaml:"gasCacheTTLMinutes"`
}

// PerformanceConfig holds performance-related configuration.
type PerformanceConfig struct {
	MaxConcurrentRoutines int `yaml:"max_concurrent_routines"`
	RPCCallTimeoutSeconds int `yaml:"rpc_call_timeout_seconds"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server        ServerConfig      `yaml:"server"`
	Logging       LoggingConfig     `yaml:"logging"`
	Oracle        OracleConfig      `yaml:"oracle"`
	History       HistoryConfig     `yaml:"history"`
	Retry         RetryConfig       `yaml:"retry"`
	Explorer      ExplorerConfig    `yaml:"explorer"`
	Performance   PerformanceConfig `yaml:"performance"`
	EnabledChains []string          `yaml:"enabledChains"`
	TokenDir      string            `yaml:"tokenDir"`
	WalletFile    string            `yaml:"walletFile"`
}

// Load reads the YAML configuration file from the given path, unmarshals it
// and applies defaults for anything left unset.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 15
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = 60
	}

	if cfg.Performance.MaxConcurrentRoutines <= 0 {
		cfg.Performance.MaxConcurrentRoutines = 10
	}
	if cfg.Performance.RPCCallTimeoutSeconds <= 0 {
		cfg.Performance.RPCCallTimeoutSeconds = 10
	}

	if cfg.Oracle.BaseURL == "" {
		cfg.Oracle.BaseURL = "https://coins.llama.fi"
		logrus.Infof("Oracle.BaseURL not set, defaulting to %s", cfg.Oracle.BaseURL)
	}
	if cfg.Oracle.RequestTimeoutMillis <= 0 {
		cfg.Oracle.RequestTimeoutMillis = 10000
	}
	if cfg.Oracle.MaxKeysPerBatch <= 0 {
		// Keeps request URLs under the oracle's length limit.
		cfg.Oracle.MaxKeysPerBatch = 30
	}

	if cfg.History.SpanDays <= 0 {
		cfg.History.SpanDays = 7
	}
	if cfg.History.TrendPoints <= 0 {
		cfg.History.TrendPoints = 7
	}
	if cfg.History.RequestDelayMillis <= 0 {
		cfg.History.RequestDelayMillis = 250
	}
	if cfg.History.RequestsPerSecond <= 0 {
		cfg.History.RequestsPerSecond = 2
	}

	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 4
	}
	if cfg.Retry.InitialDelayMillis <= 0 {
		cfg.Retry.InitialDelayMillis = 1000
	}
	if cfg.Retry.MaxDelayMillis <= 0 {
		cfg.Retry.MaxDelayMillis = 60000
	}
	if cfg.Retry.Multiplier <= 1 {
		cfg.Retry.Multiplier = 2.0
	}

	if cfg.Explorer.BaseURL == "" {
		cfg.Explorer.BaseURL = "https://api.etherscan.io/api"
	}
	if cfg.Explorer.APIKey == "" {
		cfg.Explorer.APIKey = os.Getenv("EXPLORER_API_KEY")
	}
	if cfg.Explorer.RequestTimeoutMillis <= 0 {
		cfg.Explorer.RequestTimeoutMillis = 15000
	}
	if cfg.Explorer.RequestsPerSecond <= 0 {
		cfg.Explorer.RequestsPerSecond = 3 // free tier
	}
	if cfg.Explorer.GasCacheTTLMinutes <= 0 {
		cfg.Explorer.GasCacheTTLMinutes = 10
	}

	if cfg.TokenDir == "" {
		cfg.TokenDir = "data/tokens"
	}
	if cfg.WalletFile == "" {
		cfg.WalletFile = "data/wallets.txt"
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}
