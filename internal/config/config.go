package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort  string
	Environment string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	RedisURL    string
	JWTSecret   string
	// Fixed-window rate limit applied to the auth endpoints.
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// Load reads an optional config.yaml and lets environment variables override
// every key.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	v.AutomaticEnv()

	v.SetDefault("server_port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "banter")
	v.SetDefault("db_password", "banter_dev_password")
	v.SetDefault("db_name", "banter")
	v.SetDefault("redis_url", "localhost:6379")
	v.SetDefault("jwt_secret", "dev-secret-change-me")
	v.SetDefault("auth_rate_limit", 20)
	v.SetDefault("auth_rate_window", time.Minute)

	return &Config{
		ServerPort:     v.GetString("server_port"),
		Environment:    v.GetString("environment"),
		DBHost:         v.GetString("db_host"),
		DBPort:         v.GetString("db_port"),
		DBUser:         v.GetString("db_user"),
		DBPassword:     v.GetString("db_password"),
		DBName:         v.GetString("db_name"),
		RedisURL:       v.GetString("redis_url"),
		JWTSecret:      v.GetString("jwt_secret"),
		AuthRateLimit:  v.GetInt("auth_rate_limit"),
		AuthRateWindow: v.GetDuration("auth_rate_window"),
	}, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment != "production"
}
