package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models collab.yml.
type Config struct {
	API struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"api"`
	Auth struct {
		Token string `yaml:"token"`
	} `yaml:"auth"`
	Actor struct {
		ID   string `yaml:"id"`
		Role string `yaml:"role"`
	} `yaml:"actor"`
	Log struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"log"`
}

var validRoles = map[string]bool{"": true, "admin": true, "staff": true, "client": true}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("config.api.base_url is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("config.api.base_url must be an http(s) URL")
	}
	if c.API.TimeoutSeconds < 0 {
		return fmt.Errorf("config.api.timeout_seconds must not be negative")
	}
	if !validRoles[c.Actor.Role] {
		return fmt.Errorf("config.actor.role must be one of admin, staff, client")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "collab.yml")
}

// Load reads and validates config from a workspace.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with collab config init", Path(workspace))
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the default Config for a backend URL.
func Default(baseURL string) *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(GenerateDefault(baseURL)), &cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return fmt.Sprintf(defaultTemplate, baseURL)
}

const defaultTemplate = `api:
  base_url: %s
  timeout_seconds: 10

auth:
  token: ""

actor:
  id: ""
  role: staff

log:
  level: info
  encoding: console
`
