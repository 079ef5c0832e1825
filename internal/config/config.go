package config

import (
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	PostgresURL string `mapstructure:"POSTGRES_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	ServerPort  string `mapstructure:"SERVER_PORT"`

	LogFile  string `mapstructure:"LOG_FILE"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	OpenAIKey   string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel string `mapstructure:"OPENAI_MODEL"`
	LeonardoKey string `mapstructure:"LEONARDO_API_KEY"`

	FetchRetries    int  `mapstructure:"FETCH_RETRIES"`
	FetchRetryDelay int  `mapstructure:"FETCH_RETRY_DELAY_MS"`
	FetchTimeout    int  `mapstructure:"FETCH_TIMEOUT"`
	RenderedFetch   bool `mapstructure:"RENDERED_FETCH"`

	BatchDelay       int `mapstructure:"BATCH_DELAY_MS"`
	BatchPauseEvery  int `mapstructure:"BATCH_PAUSE_EVERY"`
	PauseTimeoutMins int `mapstructure:"PAUSE_TIMEOUT_MINS"`

	DeduplicationDays int    `mapstructure:"DEDUPLICATION_DAYS"`
	TemplateDir       string `mapstructure:"TEMPLATE_DIR"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = viper.ReadInConfig()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	viper.SetDefault("FETCH_RETRIES", 3)
	viper.SetDefault("FETCH_RETRY_DELAY_MS", 2000)
	viper.SetDefault("FETCH_TIMEOUT", 30) // in seconds
	viper.SetDefault("RENDERED_FETCH", false)
	viper.SetDefault("BATCH_DELAY_MS", 2000)
	viper.SetDefault("BATCH_PAUSE_EVERY", 10)
	viper.SetDefault("PAUSE_TIMEOUT_MINS", 5)
	viper.SetDefault("DEDUPLICATION_DAYS", 2)
	viper.SetDefault("TEMPLATE_DIR", "scraped_templates")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
