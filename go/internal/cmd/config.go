package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/scoreboard/go/internal/store/natskv"
)

const (
	backendMemory   = "memory"
	backendNATS     = "nats"
	backendPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Store struct {
		Backend string `yaml:"backend"`
		NATSURL string `yaml:"nats_url"`
		Bucket  string `yaml:"bucket"`
	} `yaml:"store"`
	Device struct {
		Path string `yaml:"path"`
	} `yaml:"device"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	SyncWriteTimeoutSeconds int `yaml:"sync_write_timeout_seconds"`
}

func defaultConfig() *Config {
	var c Config
	c.Server.Port = "8080"
	c.Server.AllowedOrigins = []string{"*"}
	c.Store.Backend = backendNATS
	c.Store.NATSURL = "nats://localhost:4222"
	c.Store.Bucket = natskv.DefaultBucket
	c.Log.Level = "info"
	c.SyncWriteTimeoutSeconds = 10
	return &c
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

// loadConfig reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	config.applyEnv()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}
	c.Store.Backend = getEnv("STORE_BACKEND", c.Store.Backend)
	c.Store.NATSURL = getEnv("NATS_URL", c.Store.NATSURL)
	c.Store.Bucket = getEnv("NATS_BUCKET", c.Store.Bucket)
	c.Device.Path = getEnv("DEVICE_FILE", c.Device.Path)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.SyncWriteTimeoutSeconds = getEnvAsInt("SYNC_WRITE_TIMEOUT_SECONDS", c.SyncWriteTimeoutSeconds)
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case backendMemory, backendNATS, backendPostgres:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	return nil
}
