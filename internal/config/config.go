// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"twig/internal/errors"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server struct {
		Host string `json:"host" toml:"host"`
		Port int    `json:"port" toml:"port"`
	} `json:"server" toml:"server"`

	Repository struct {
		Path string `json:"path" toml:"path"` // worktree root holding .twig
	} `json:"repository" toml:"repository"`

	Cache struct {
		Size int `json:"size" toml:"size"` // blobs kept in memory
	} `json:"cache" toml:"cache"`

	Environment string `json:"environment" toml:"environment"` // development, production
	LogLevel    string `json:"log_level" toml:"log_level"`     // debug, info, warn, error
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.Server.Host = "127.0.0.1"
	c.Server.Port = 8080
	c.Repository.Path = "."
	c.Cache.Size = 1000
	c.Environment = "development"
	c.LogLevel = "info"
	return &c
}

// Path returns the config file for the environment named by TWIG_ENV.
func Path() string {
	env := os.Getenv("TWIG_ENV")
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("config/config.%s.json", env)
}

// Load reads path over the defaults. Files ending in .toml are TOML,
// anything else is JSON.
func Load(path string) (*Config, error) {
	config := Default()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	default:
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	problems := map[string]string{}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems["server.port"] = "must be between 0 and 65535"
	}
	if c.Repository.Path == "" {
		problems["repository.path"] = "is required"
	}
	if c.Cache.Size < 0 {
		problems["cache.size"] = "must not be negative"
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems["log_level"] = "must be one of debug, info, warn, error"
	}
	if len(problems) > 0 {
		return errors.ValidationError("invalid configuration", problems)
	}
	return nil
}

// Addr is the server's listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Development() bool {
	return c.Environment == "" || c.Environment == "development"
}
