package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML config file. Everything in it has an
// environment-variable override, so the file itself is optional too.
type Config struct {
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	var config Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// redisAddr resolves the Redis address, env winning over file.
func (c *Config) redisAddr() string {
	return getEnv("REDIS_ADDR", c.Redis.Addr)
}

func (c *Config) redisPassword() string {
	return getEnv("REDIS_PASSWORD", c.Redis.Password)
}

func (c *Config) redisDB() int {
	return getEnvAsInt("REDIS_DB", c.Redis.DB)
}

// natsURL resolves the NATS address; empty disables the relay and the
// gateway runs single-instance.
func (c *Config) natsURL() string {
	return getEnv("NATS_URL", c.NATS.URL)
}
