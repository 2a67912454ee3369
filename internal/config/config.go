// Package config содержит логику чтения конфигурации сервиса автомаркет.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса автомаркет.
type Config struct {
	RunAddress           string `env:"RUN_ADDRESS"`
	DatabaseURI          string `env:"DATABASE_URI"`
	UserDirectoryAddress string `env:"USER_DIRECTORY_ADDRESS"`
	RedisAddress         string `env:"REDIS_ADDRESS"`
	AMQPAddress          string `env:"AMQP_ADDRESS"`
	AuthSecret           string `env:"AUTH_SECRET"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envUserDirectory := cfg.UserDirectoryAddress
	envRedisAddress := cfg.RedisAddress
	envAMQPAddress := cfg.AMQPAddress
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.UserDirectoryAddress, "u", "", "user directory service address")
	flag.StringVar(&cfg.RedisAddress, "c", "", "redis address for listing cache")
	flag.StringVar(&cfg.AMQPAddress, "q", "", "AMQP broker address for domain events")
	flag.StringVar(&cfg.AuthSecret, "s", "automarket-secret", "secret key for verifying auth tokens")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envUserDirectory != "" {
		cfg.UserDirectoryAddress = envUserDirectory
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envAMQPAddress != "" {
		cfg.AMQPAddress = envAMQPAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
