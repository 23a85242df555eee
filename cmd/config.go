package cmd

import (
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/store"
)

const (
	backendFile   = "file"
	backendRedis  = "redis"
	backendMemory = "memory"
)

type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	AI      AIConfig      `mapstructure:"ai"`
	Export  ExportConfig  `mapstructure:"export"`
	Pricing PricingConfig `mapstructure:"pricing"`
	Log     LogConfig     `mapstructure:"log"`
}

type StorageConfig struct {
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Key     string      `mapstructure:"key"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AIConfig struct {
	Provider string       `mapstructure:"provider"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key" json:"-"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

type PricingConfig struct {
	// Seed makes price predictions reproducible, 0 means random.
	Seed uint64 `mapstructure:"seed"`
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

func setDefaults() {
	viper.SetDefault("storage.backend", backendFile)
	viper.SetDefault("storage.path", defaultStoragePath())
	viper.SetDefault("storage.key", store.DefaultKey)
	viper.SetDefault("storage.redis.addr", "localhost:6379")
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.max-retries", 2)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("export.dir", "exports")
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", store.DefaultKey+".json")
	}
	return filepath.Join(dir, app, store.DefaultKey+".json")
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}
	config.Storage.Backend = strings.ToLower(strings.TrimSpace(config.Storage.Backend))
	config.AI.Provider = strings.ToLower(strings.TrimSpace(config.AI.Provider))

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Storage),
		validation.Field(&c.AI),
	)
}

func (s StorageConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Backend, validation.Required, validation.In(backendFile, backendRedis, backendMemory)),
		validation.Field(&s.Path, validation.When(s.Backend == backendFile, validation.Required)),
		validation.Field(&s.Key, validation.When(s.Backend == backendRedis, validation.Required)),
		validation.Field(&s.Redis, validation.Skip.When(s.Backend != backendRedis)),
	)
}

func (r RedisConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Addr, validation.Required),
		validation.Field(&r.DB, validation.Min(0)),
	)
}

func (a AIConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Provider, validation.Required, validation.In("gemini")),
		validation.Field(&a.Gemini),
	)
}

func (g GeminiConfig) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Model, validation.Required),
		validation.Field(&g.MaxRetries, validation.Min(0)),
		validation.Field(&g.MaxLogLength, validation.Min(0)),
	)
}
