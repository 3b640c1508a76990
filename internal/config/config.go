package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config models taskflow.yml.
type Config struct {
	Workspace struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"workspace"`
	Roles    map[string]RoleConfig `yaml:"roles"`
	Webhooks []WebhookConfig       `yaml:"webhooks"`
}

// RoleConfig seeds a role and its granted permissions when a workspace is initialized.
type RoleConfig struct {
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// Active reports whether the hook should receive deliveries.
func (w WebhookConfig) Active() bool {
	return (w.Enabled == nil || *w.Enabled) && strings.TrimSpace(w.URL) != ""
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with tf init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate returns the first structural error.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Workspace.ID) == "" {
		return fmt.Errorf("config.workspace.id is required")
	}
	for key, role := range c.Roles {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("config.roles contains empty role id")
		}
		if strings.TrimSpace(role.Name) == "" {
			return fmt.Errorf("role %s has empty name", key)
		}
		for _, perm := range role.Permissions {
			if strings.TrimSpace(perm) == "" {
				return fmt.Errorf("role %s has empty permission id", key)
			}
		}
	}
	for i, hook := range c.Webhooks {
		u, err := url.Parse(hook.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("webhooks[%d].url must be an absolute http(s) url", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "taskflow.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(workspaceID string) string {
	return fmt.Sprintf(defaultTemplate, workspaceID, workspaceID)
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

// Default returns the default Config for a workspace.
func Default(workspaceID string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(workspaceID))).Decode(&cfg)
	return &cfg
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

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// ServerEnv holds the process settings of tf serve.
type ServerEnv struct {
	Addr      string `env:"TASKFLOW_ADDR" envDefault:"127.0.0.1:8080"`
	BasePath  string `env:"TASKFLOW_BASE_PATH" envDefault:"/v0"`
	JWTSecret string `env:"TASKFLOW_JWT_SECRET"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

const defaultTemplate = `workspace:
  id: %s
  name: %s

roles:
  manager:
    name: Manager
    permissions:
      - task.write
      - qc.decide
      - acceptance.decide
      - issue.write
      - member.manage
      - role.manage
      - template.write
      - log.write
      - settings.write
      - events.read
  inspector:
    name: Inspector
    permissions:
      - qc.decide
      - issue.write
      - events.read
  developer:
    name: Developer
    permissions:
      - task.write
      - issue.write
      - log.write
      - events.read
`
