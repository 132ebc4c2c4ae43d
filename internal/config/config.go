package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Storage   StorageConfig
	Client    ClientConfig
	Gateway   GatewayConfig
	Render    RenderConfig
	Providers ProvidersConfig
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StorageConfig points at the SQLite file holding conversations and theme.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ClientConfig is how the chat UI reaches the completion endpoint.
// StoragePath is the terminal client's own database; it must not be the
// file serve uses, since each process flushes its whole collection.
type ClientConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	DefaultProvider string `mapstructure:"default_provider"`
	StoragePath     string `mapstructure:"storage_path"`
}

// GatewayConfig bounds the completion endpoint.
type GatewayConfig struct {
	RateLimit      float64 `mapstructure:"rate_limit"`
	Burst          int     `mapstructure:"burst"`
	MaxUploadBytes int64   `mapstructure:"max_upload_bytes"`
}

// RenderConfig tunes message rendering.
type RenderConfig struct {
	CopyFeedback time.Duration `mapstructure:"copy_feedback"`
	StyleDark    string        `mapstructure:"style_dark"`
	StyleLight   string        `mapstructure:"style_light"`
}

type ProvidersConfig struct {
	Gemini   ProviderConfig
	DeepSeek ProviderConfig `mapstructure:"deepseek"`
}

// ProviderConfig holds one upstream LLM provider's settings
type ProviderConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.path", "halilintar.db")
	v.SetDefault("client.endpoint", "")
	v.SetDefault("client.default_provider", "gemini")
	v.SetDefault("client.storage_path", "halilintar-chat.db")
	v.SetDefault("gateway.rate_limit", 2.0)
	v.SetDefault("gateway.burst", 10)
	v.SetDefault("gateway.max_upload_bytes", int64(10<<20))
	v.SetDefault("render.copy_feedback", 2*time.Second)
	v.SetDefault("render.style_dark", "monokai")
	v.SetDefault("render.style_light", "github")
	v.SetDefault("providers.gemini.api_key", "")
	v.SetDefault("providers.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("providers.gemini.model", "gemini-2.0-flash")
	v.SetDefault("providers.deepseek.api_key", "")
	v.SetDefault("providers.deepseek.base_url", "https://api.deepseek.com")
	v.SetDefault("providers.deepseek.model", "deepseek-chat")
	v.SetDefault("providers.deepseek.temperature", 0.7)
	v.SetDefault("providers.deepseek.max_tokens", 2000)
}

// Load loads the configuration from config.yaml, or from the file named by
// CONFIG_PATH. Every key can be overridden with HALILINTAR_<SECTION>_<KEY>.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("halilintar")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Addr is the listen address of the server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Endpoint is the completion endpoint URL the chat UI posts to. Empty
// client.endpoint means this process's own gateway.
func (c *Config) Endpoint() string {
	if c.Client.Endpoint != "" {
		return c.Client.Endpoint
	}
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return "http://" + host + ":" + c.Server.Port + "/api/chat"
}
