// Package config loads the server configuration from YAML with environment
// variable overrides for the handful of settings worth flipping per
// deployment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full roomd configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Rooms  RoomsConfig  `yaml:"rooms"`
	Bus    BusConfig    `yaml:"bus"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	DesignMode bool   `yaml:"design_mode"`
}

// RoomsConfig locates room documents and assets on disk.
type RoomsConfig struct {
	Dir      string `yaml:"dir"`
	AssetDir string `yaml:"asset_dir"`
	AuditDir string `yaml:"audit_dir"`
}

// BusConfig controls the optional event bus bridge.
type BusConfig struct {
	// BridgeListen is a mangos URL such as "tcp://127.0.0.1:7780". Empty
	// disables the bridge.
	BridgeListen string `yaml:"bridge_listen"`
}

// AuthConfig enables editor token checks. An empty secret disables auth.
type AuthConfig struct {
	Secret       string `yaml:"secret"`
	TokenMinutes int    `yaml:"token_minutes"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       "127.0.0.1",
			Port:       8080,
			DesignMode: false,
		},
		Rooms: RoomsConfig{
			Dir:      "data/rooms",
			AssetDir: "data/assets",
			AuditDir: "data/audit",
		},
		Auth: AuthConfig{
			TokenMinutes: 60,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML config at path, applies environment overrides and
// validates the result. A missing file is not an error; defaults plus
// environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NETROOM_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("NETROOM_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("NETROOM_DESIGN_MODE"); v != "" {
		c.Server.DesignMode = v == "1" || v == "true"
	}
	if v := os.Getenv("NETROOM_ROOMS_DIR"); v != "" {
		c.Rooms.Dir = v
	}
	if v := os.Getenv("NETROOM_ASSET_DIR"); v != "" {
		c.Rooms.AssetDir = v
	}
	if v := os.Getenv("NETROOM_AUTH_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("NETROOM_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	return NewValidator("Config").
		Required("server.host", c.Server.Host).
		RangeInt("server.port", c.Server.Port, 1, 65535).
		Required("rooms.dir", c.Rooms.Dir).
		Required("rooms.asset_dir", c.Rooms.AssetDir).
		OneOf("log.level", c.Log.Level, []string{"debug", "info", "warn", "error"}).
		When(c.Auth.Secret != "", func(v *Validator) {
			v.MinLen("auth.secret", c.Auth.Secret, 32)
			v.Positive("auth.token_minutes", c.Auth.TokenMinutes)
		}).
		Validate()
}
