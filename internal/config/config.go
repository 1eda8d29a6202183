package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`

	OpenAIAPIKey   string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL  string        `mapstructure:"OPENAI_BASE_URL"`
	StoryModel     string        `mapstructure:"STORY_MODEL"`
	StoryMaxTokens int           `mapstructure:"STORY_MAX_TOKENS"`
	StoryTimeout   time.Duration `mapstructure:"STORY_TIMEOUT"`

	MaxPlayersPerAdventure int  `mapstructure:"MAX_PLAYERS_PER_ADVENTURE"`
	AllowMultipleSessions  bool `mapstructure:"ALLOW_MULTIPLE_SESSIONS"`
	StoryRateLimit         int  `mapstructure:"STORY_RATE_LIMIT"`
}

// Load reads the configuration from a .env file and environment variables.
func Load() (*Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	viper.SetDefault("STORY_MODEL", "gpt-3.5-turbo-instruct")
	viper.SetDefault("STORY_MAX_TOKENS", 150)
	viper.SetDefault("STORY_TIMEOUT", 30*time.Second)
	viper.SetDefault("MAX_PLAYERS_PER_ADVENTURE", 8)
	viper.SetDefault("ALLOW_MULTIPLE_SESSIONS", false)
	viper.SetDefault("STORY_RATE_LIMIT", 5)

	// A missing .env file is fine; environment variables still apply.
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
