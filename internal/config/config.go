package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server    ServerConfig
	Anthropic AnthropicConfig
	Storage   StorageConfig
	Chat      ChatConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type AnthropicConfig struct {
	APIKey          string
	Model           string
	MaxTokens       int
	Temperature     float64
	EnableWebSearch bool
	RateLimitRPM    int
}

type StorageConfig struct {
	DataDir         string
	BackupKeepCount int
}

type ChatConfig struct {
	MaxHistory int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		Anthropic: AnthropicConfig{
			Model:           "claude-sonnet-4-20250514",
			MaxTokens:       4000,
			Temperature:     0.7,
			EnableWebSearch: true,
			RateLimitRPM:    50,
		},
		Storage: StorageConfig{
			DataDir:         dataDir,
			BackupKeepCount: 10,
		},
		Chat: ChatConfig{
			MaxHistory: 50,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.makemyrecipe.app) and
// secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at
// $XDG_CONFIG_HOME/makemyrecipe/config.json and secrets must be provided
// via environment variables.
//
// Environment variables (MMR_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try platform keychain for API key if still empty.
	if cfg.Anthropic.APIKey == "" {
		if key, err := kc.Get("makemyrecipe", "anthropic_api_key"); err == nil && key != "" {
			cfg.Anthropic.APIKey = key
		}
	}

	if cfg.Anthropic.APIKey == "" {
		msg := "missing required config: Anthropic API key. " +
			"Set it via environment variable MMR_ANTHROPIC_API_KEY" +
			apiKeyHint()
		return Config{}, fmt.Errorf("%s", msg)
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
