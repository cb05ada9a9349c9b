// Package config loads the server configuration from a YAML file with
// RAUMPLAN_* environment overrides.
package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Collaborator CollaboratorConfig `mapstructure:"collaborator"`
	Canvas       CanvasConfig       `mapstructure:"canvas"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// SigningSecret is the base64-encoded JWT signing key.
	SigningSecret string `mapstructure:"signing_secret"`
	SigningKey    []byte `mapstructure:"-"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type CollaboratorConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	QueueSize int           `mapstructure:"queue_size"`
}

type CanvasConfig struct {
	Width         float64 `mapstructure:"width"`
	Height        float64 `mapstructure:"height"`
	MinRoomSize   float64 `mapstructure:"min_room_size"`
	EdgeMargin    float64 `mapstructure:"edge_margin"`
	DrawThreshold float64 `mapstructure:"draw_threshold"`
}

// Load reads config from the given YAML file path. Environment variables
// prefixed with RAUMPLAN_ override file values, e.g.
// RAUMPLAN_SERVER_SIGNING_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("RAUMPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("collaborator.timeout", "10s")
	v.SetDefault("collaborator.queue_size", 256)
	v.SetDefault("canvas.width", 1200)
	v.SetDefault("canvas.height", 800)
	v.SetDefault("canvas.min_room_size", 20)
	v.SetDefault("canvas.edge_margin", 8)
	v.SetDefault("canvas.draw_threshold", 5)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if cfg.Collaborator.BaseURL == "" {
		return nil, fmt.Errorf("collaborator base URL cannot be empty")
	}
	if cfg.Server.SigningSecret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := base64.StdEncoding.DecodeString(cfg.Server.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}
	cfg.Server.SigningKey = signingKey

	return cfg, nil
}
