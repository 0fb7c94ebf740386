package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported chat service providers.
const (
	ProviderHTTP   = "http"
	ProviderOpenAI = "openai"
)

// Supported storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds the application configuration
type Config struct {
	ChatService ChatServiceConfig `mapstructure:"chat_service"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Log         LogConfig         `mapstructure:"log"`
	Server      ServerConfig      `mapstructure:"server"`
}

// ChatServiceConfig describes the remote service that streams assistant replies.
type ChatServiceConfig struct {
	Provider     string        `mapstructure:"provider"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects where the session is persisted.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ServerConfig holds the fake chat service listen address.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chat_service.provider", ProviderHTTP)
	v.SetDefault("chat_service.base_url", "http://localhost:8000")
	v.SetDefault("chat_service.api_key", "")
	v.SetDefault("chat_service.model", "gpt-4o-mini")
	v.SetDefault("chat_service.system_prompt", "")
	v.SetDefault("chat_service.timeout", "0s")
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", "lifeline.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8000")
}

// Load reads config.yaml from the working directory, or the file named by
// CONFIG_PATH. A missing config.yaml is not an error; a missing CONFIG_PATH is.
// LIFELINE_* environment variables override file values.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("lifeline")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown providers and drivers.
func (c *Config) Validate() error {
	switch c.ChatService.Provider {
	case ProviderHTTP, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported chat_service.provider %q", c.ChatService.Provider)
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unsupported storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == DriverSQLite && c.Storage.Path == "" {
		return errors.New("storage.path is required for the sqlite driver")
	}
	return nil
}
