package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Prefetch  PrefetchConfig  `yaml:"prefetch" mapstructure:"prefetch"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds generative API settings.
type AnthropicConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	Model         string `yaml:"model" mapstructure:"model"`
	MaxTokens     int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxSearchUses int64  `yaml:"max_search_uses" mapstructure:"max_search_uses"`
}

// PrefetchConfig configures platform context prefetching.
type PrefetchConfig struct {
	BearerToken   string `yaml:"bearer_token" mapstructure:"bearer_token"`
	RelayBaseURL  string `yaml:"relay_base_url" mapstructure:"relay_base_url"`
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// SchedulerConfig configures the queue loop.
type SchedulerConfig struct {
	ChunkSize             int `yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkDelaySecs        int `yaml:"chunk_delay_secs" mapstructure:"chunk_delay_secs"`
	RateLimitCooldownSecs int `yaml:"rate_limit_cooldown_secs" mapstructure:"rate_limit_cooldown_secs"`
}

// ChunkDelay returns the inter-chunk pacing delay.
func (c SchedulerConfig) ChunkDelay() time.Duration {
	return time.Duration(c.ChunkDelaySecs) * time.Second
}

// RateLimitCooldown returns the post-rate-limit cooldown.
func (c SchedulerConfig) RateLimitCooldown() time.Duration {
	return time.Duration(c.RateLimitCooldownSecs) * time.Second
}

// NotionConfig holds workspace sync credentials.
type NotionConfig struct {
	Token       string `yaml:"token" mapstructure:"token"`
	BookmarksDB string `yaml:"bookmarks_db" mapstructure:"bookmarks_db"`
}

// ServerConfig configures the local API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LINKHOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "linkhoard.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.max_search_uses", 5)
	v.SetDefault("prefetch.max_concurrent", 4)
	v.SetDefault("scheduler.chunk_size", 5)
	v.SetDefault("scheduler.chunk_delay_secs", 15)
	v.SetDefault("scheduler.rate_limit_cooldown_secs", 60)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
