package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/happy0030/healthcare-blockchain-poc/pkg/ledger"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/types"
)

// Config holds all configuration for the application
type Config struct {
	// Ledger configuration
	Ledger LedgerConfig `mapstructure:"ledger"`

	// Encryption configuration
	Encryption EncryptionConfig `mapstructure:"encryption"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
}

// Supported ledger backends
const (
	BackendLevelDB  = "leveldb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// LedgerConfig holds key-value ledger configuration
type LedgerConfig struct {
	Backend  string                `mapstructure:"backend"`
	Path     string                `mapstructure:"path"`
	Postgres ledger.PostgresConfig `mapstructure:"postgres"`
}

// EncryptionConfig holds the per-level pre-shared secret catalogue. Keys are
// the literal privacy levels "1".."4"; every replica must be provisioned with
// identical values.
type EncryptionConfig struct {
	LevelSecrets map[string]string `mapstructure:"level_secrets"`
}

// Secrets resolves the configured catalogue into per-level secrets
func (c *EncryptionConfig) Secrets() (map[int]string, error) {
	secrets := make(map[int]string, len(c.LevelSecrets))
	for levelStr, secret := range c.LevelSecrets {
		level, err := strconv.Atoi(levelStr)
		if err != nil || !types.ValidPrivacyLevel(level) {
			return nil, fmt.Errorf("invalid privacy level in encryption.level_secrets: %q", levelStr)
		}
		secrets[level] = secret
	}
	return secrets, nil
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/healthcare-privacy")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Override with environment variables
	overrideWithEnv(&config)

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Ledger defaults
	viper.SetDefault("ledger.backend", BackendLevelDB)
	viper.SetDefault("ledger.path", "./data/ledger")
	viper.SetDefault("ledger.postgres.host", "localhost")
	viper.SetDefault("ledger.postgres.port", 5432)
	viper.SetDefault("ledger.postgres.name", "privacy_ledger")
	viper.SetDefault("ledger.postgres.user", "privacy")
	viper.SetDefault("ledger.postgres.ssl_mode", "require")

	// Encryption defaults: the seeded per-level secret catalogue
	viper.SetDefault("encryption.level_secrets", map[string]string{
		"1": "LEVEL1KEY128BITEMERGENCYACCESS!",
		"2": "LEVEL2KEY192BITGENERALACCESSOK!",
		"3": "LEVEL3KEY256BITSENSITIVEDATAPRO",
		"4": "LEVEL4KEY256BITHIGHLYSENSITIVE!",
	})

	// Logging defaults
	viper.SetDefault("log_level", "info")
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv(config *Config) {
	if backend := os.Getenv("LEDGER_BACKEND"); backend != "" {
		config.Ledger.Backend = backend
	}

	if path := os.Getenv("LEDGER_PATH"); path != "" {
		config.Ledger.Path = path
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Ledger.Backend {
	case BackendLevelDB:
		if config.Ledger.Path == "" {
			return fmt.Errorf("ledger path is required for the leveldb backend")
		}
	case BackendPostgres:
		if config.Ledger.Postgres.Password == "" {
			return fmt.Errorf("ledger postgres password is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown ledger backend: %s", config.Ledger.Backend)
	}

	for level := types.LevelEmergency; level <= types.LevelHighlySensitive; level++ {
		if config.Encryption.LevelSecrets[strconv.Itoa(level)] == "" {
			return fmt.Errorf("encryption secret for privacy level %d is required", level)
		}
	}

	return nil
}
