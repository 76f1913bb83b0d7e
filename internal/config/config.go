// Package config loads static process configuration and holds the
// mutable runtime policy.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the static process configuration, loaded once at startup.
type Config struct {
	// MasterWalletAddress is the operator's own wallet, always watched.
	MasterWalletAddress string `mapstructure:"master_wallet_address"`

	// WSEndpoint is the JSON-RPC websocket endpoint of the log stream.
	WSEndpoint string `mapstructure:"ws_endpoint"`

	// StatePath is the JSON state file used by the file backend.
	StatePath string `mapstructure:"state_path"`

	// PostgresDSN switches state persistence to Postgres when set.
	PostgresDSN string `mapstructure:"postgres_dsn"`

	// ClickhouseDSN enables the event archive when set.
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`

	// TelegramToken and TelegramChatID configure the notifier. Both
	// empty disables notifications.
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID string `mapstructure:"telegram_chat_id"`

	// MetricsAddr is the listen address for /metrics and /healthz.
	MetricsAddr string `mapstructure:"metrics_addr"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// MaxReconnectAttempts bounds stream reconnects before the
	// subscription reports itself inactive.
	MaxReconnectAttempts int `mapstructure:"max_reconnect_attempts"`

	// ReconnectBaseDelay and ReconnectMaxDelay shape the backoff curve.
	ReconnectBaseDelay time.Duration `mapstructure:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `mapstructure:"reconnect_max_delay"`

	// Policy holds the initial values of the mutable runtime policy.
	Policy RuntimePolicy `mapstructure:"policy"`
}

// Load reads configuration from the given file (optional) and from
// COPYWATCH_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("master_wallet_address", "")
	v.SetDefault("ws_endpoint", "wss://api.mainnet-beta.solana.com")
	v.SetDefault("state_path", "state.json")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("clickhouse_dsn", "")
	v.SetDefault("telegram_token", "")
	v.SetDefault("telegram_chat_id", "")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("log_level", "info")
	v.SetDefault("max_reconnect_attempts", 10)
	v.SetDefault("reconnect_base_delay", time.Second)
	v.SetDefault("reconnect_max_delay", 30*time.Second)

	v.SetDefault("policy.min_sol_transfer", 1.0)
	v.SetDefault("policy.max_sol_transfer", 100.0)
	v.SetDefault("policy.trade_size", 0.1)
	v.SetDefault("policy.tp_percent", 50.0)
	v.SetDefault("policy.sl_percent", 20.0)
	v.SetDefault("policy.auto_copy", false)
	v.SetDefault("policy.discovery_enabled", true)

	v.SetEnvPrefix("COPYWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.MasterWalletAddress == "" {
		return fmt.Errorf("master_wallet_address is required")
	}
	if c.MaxReconnectAttempts <= 0 {
		return fmt.Errorf("max_reconnect_attempts must be positive")
	}
	if c.Policy.MinSolTransfer < 0 || c.Policy.MaxSolTransfer < c.Policy.MinSolTransfer {
		return fmt.Errorf("invalid sol transfer range [%v, %v]",
			c.Policy.MinSolTransfer, c.Policy.MaxSolTransfer)
	}
	return nil
}
