// Package config loads the merge service settings from the environment.
//
// A .env file in the working directory is loaded first, then viper reads
// the process environment on top of the defaults below.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port           int
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type StorageConfig struct {
	UploadDir     string
	MaxUploadSize int64
	SessionTTL    time.Duration
	// DebugOutput, when set, receives a copy of every merged PDF.
	DebugOutput string
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 5001)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("READ_TIMEOUT", 30*time.Second)
	v.SetDefault("WRITE_TIMEOUT", 60*time.Second)
	v.SetDefault("IDLE_TIMEOUT", time.Minute)
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MAX_UPLOAD_SIZE", 100<<20)
	v.SetDefault("SESSION_TTL", 5*time.Minute)
	v.SetDefault("DEBUG_OUTPUT", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Load reads the configuration and creates the upload directory.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetInt("PORT"),
			AllowedOrigins: splitOrigins(v.GetString("CORS_ORIGINS")),
			ReadTimeout:    v.GetDuration("READ_TIMEOUT"),
			WriteTimeout:   v.GetDuration("WRITE_TIMEOUT"),
			IdleTimeout:    v.GetDuration("IDLE_TIMEOUT"),
		},
		Storage: StorageConfig{
			UploadDir:     v.GetString("UPLOAD_DIR"),
			MaxUploadSize: v.GetInt64("MAX_UPLOAD_SIZE"),
			SessionTTL:    v.GetDuration("SESSION_TTL"),
			DebugOutput:   v.GetString("DEBUG_OUTPUT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", cfg.Storage.UploadDir, err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Server.Port)
	}
	if c.Storage.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR must not be empty")
	}
	if c.Storage.MaxUploadSize <= 0 {
		return fmt.Errorf("invalid MAX_UPLOAD_SIZE %d", c.Storage.MaxUploadSize)
	}
	if c.Storage.SessionTTL <= 0 {
		return fmt.Errorf("invalid SESSION_TTL %s", c.Storage.SessionTTL)
	}
	// A session must outlive the longest request that can own it.
	if limit := c.Server.ReadTimeout + c.Server.WriteTimeout; c.Storage.SessionTTL <= limit {
		return fmt.Errorf("SESSION_TTL %s must exceed READ_TIMEOUT + WRITE_TIMEOUT (%s)", c.Storage.SessionTTL, limit)
	}
	return nil
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
