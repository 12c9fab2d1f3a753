package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for the support relay bot.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Telegram TelegramConfig `json:"telegram"`
	Store    StoreConfig    `json:"store"`
	Relay    RelayConfig    `json:"relay"`
	Cleaner  CleanerConfig  `json:"cleaner"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"` // optional log file path
}

type TelegramConfig struct {
	Token string `json:"token"`
	// SupportGroupID is the staff supergroup. Topics must be enabled
	// ("forum" mode) on it.
	SupportGroupID int64 `json:"supportGroupId"`
}

type StoreConfig struct {
	DBPath string `json:"dbPath"`
}

type RelayConfig struct {
	Workers   int  `json:"workers"`
	QueueSize int  `json:"queueSize"`
	AutoAck   bool `json:"autoAck"`
	// RepliesPath points at an optional YAML file overriding the built-in
	// reply texts (auto-ack, welcome, help, failure notice).
	RepliesPath string `json:"repliesPath,omitempty"`
}

// CleanerConfig configures the separate bulk-deletion bot.
type CleanerConfig struct {
	Token     string `json:"token"`
	MaxRange  int    `json:"maxRange"`
	BatchSize int    `json:"batchSize"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// DefaultConfigDir returns the default config directory (~/.supportbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".supportbot"
	}
	return filepath.Join(home, ".supportbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Store.DBPath = ExpandPath(cfg.Store.DBPath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Relay.RepliesPath = ExpandPath(cfg.Relay.RepliesPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.Relay.Workers < 1 || cfg.Relay.Workers > 64 {
		errs = append(errs, "relay.workers must be between 1 and 64")
	}
	if cfg.Relay.QueueSize < 1 {
		errs = append(errs, "relay.queueSize must be >= 1")
	}
	if cfg.Cleaner.MaxRange < 1 || cfg.Cleaner.MaxRange > 10000 {
		errs = append(errs, "cleaner.maxRange must be between 1 and 10000")
	}
	if cfg.Cleaner.BatchSize < 1 || cfg.Cleaner.BatchSize > 100 {
		errs = append(errs, "cleaner.batchSize must be between 1 and 100")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Sanitize returns a copy of the config with secrets masked, for display.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	out.Telegram.Token = maskToken(cfg.Telegram.Token)
	out.Cleaner.Token = maskToken(cfg.Cleaner.Token)
	return &out
}

func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
