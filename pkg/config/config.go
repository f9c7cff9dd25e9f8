package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig                `json:"app" yaml:"app" toml:"app"`
	Auth       AuthConfig               `json:"auth" yaml:"auth" toml:"auth"`
	Database   DatabaseConfig           `json:"database" yaml:"database" toml:"database"`
	Gateways   map[string]GatewayConfig `json:"gateways" yaml:"gateways" toml:"gateways"`
	Governance GovernanceConfig         `json:"governance" yaml:"governance" toml:"governance"`
	Logging    LoggingConfig            `json:"logging" yaml:"logging" toml:"logging"`
}

type AppConfig struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	// PollInterval is how often live lists are refreshed, e.g. "2s".
	PollInterval string `json:"poll_interval" yaml:"poll_interval" toml:"poll_interval"`
}

type AuthConfig struct {
	UserID      string `json:"user_id" yaml:"user_id" toml:"user_id"`
	DisplayName string `json:"display_name" yaml:"display_name" toml:"display_name"`
}

type DatabaseConfig struct {
	Path string `json:"path" yaml:"path" toml:"path"`
}

type GatewayConfig struct {
	Token   string `json:"token" yaml:"token" toml:"token"`
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
}

type GovernanceConfig struct {
	DeniedCommands  []string `json:"denied_commands" yaml:"denied_commands" toml:"denied_commands"`
	DeniedArguments []string `json:"denied_arguments" yaml:"denied_arguments" toml:"denied_arguments"`
	AllowedChats    []string `json:"allowed_chats" yaml:"allowed_chats" toml:"allowed_chats"`
}

type LoggingConfig struct {
	Dir string `json:"dir" yaml:"dir" toml:"dir"`
}

const (
	defaultPollInterval = 2 * time.Second
	defaultDatabasePath = "data/stepdeck.db"
	defaultLogDir       = "logs"
)

// Load reads a config file. The format follows the extension: .yaml/.yml
// for YAML, .toml for TOML, anything else as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadConfig is Load for callers that cannot continue without a config.
func LoadConfig(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "stepdeck"
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDatabasePath
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = defaultLogDir
	}
	if c.Gateways == nil {
		c.Gateways = make(map[string]GatewayConfig)
	}
}

// GetPollInterval parses app.poll_interval, falling back to two seconds.
func (c *Config) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.App.PollInterval)
	if err != nil || d <= 0 {
		return defaultPollInterval
	}
	return d
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	return c.getGatewayConfig("telegram")
}

// GetDiscordConfig returns discord config if enabled
func (c *Config) GetDiscordConfig() (GatewayConfig, bool) {
	return c.getGatewayConfig("discord")
}

func (c *Config) getGatewayConfig(name string) (GatewayConfig, bool) {
	g, ok := c.Gateways[name]
	if ok && g.Enabled && g.Token != "" {
		return g, true
	}
	return GatewayConfig{}, false
}
