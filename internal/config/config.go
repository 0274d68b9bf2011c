// Package config loads gamedns settings from a YAML file. The core
// pipeline never touches this file: it receives an already validated
// Config value.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPingCount   = 10
	defaultTimeout     = 1 * time.Second
	defaultMaxWorkers  = 10
	defaultHistoryPath = "gamedns-history.db"
	defaultHistoryKeep = 50
	defaultWebAddr     = "127.0.0.1"
	defaultWebPort     = 8053
	maxPingCount       = 100
	maxWorkersLimit    = 64
)

type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}
	switch value.Tag {
	case "!!int", "!!float":
		var secs float64
		if err := value.Decode(&secs); err != nil {
			return err
		}
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	default:
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		if raw == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

type Config struct {
	PingCount      int            `yaml:"ping_count"`
	Timeout        Duration       `yaml:"timeout"`
	MaxWorkers     int            `yaml:"max_workers"`
	ShowAllServers *bool          `yaml:"show_all_servers"`
	CustomServers  []CustomServer `yaml:"custom_servers"`
	History        HistoryConfig  `yaml:"history"`
	Web            WebConfig      `yaml:"web"`
	GeoIP          GeoIPConfig    `yaml:"geoip"`
}

type CustomServer struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
	Keep    int    `yaml:"keep"`
}

func (h HistoryConfig) IsEnabled() bool {
	if h.Enabled == nil {
		return true
	}
	return *h.Enabled
}

type WebConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BindAddr string `yaml:"bind_addr"`
	BindPort int    `yaml:"bind_port"`
}

type GeoIPConfig struct {
	Database string `yaml:"database"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	var cfg Config
	cfg.setDefaults()
	return cfg
}

// Load reads settings from path. A missing file is not an error: the
// defaults apply, matching first-run behavior.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the settings back to path.
func (c Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func (c *Config) setDefaults() {
	if c.PingCount == 0 {
		c.PingCount = defaultPingCount
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(defaultTimeout)
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = defaultMaxWorkers
	}
	if c.ShowAllServers == nil {
		showAll := true
		c.ShowAllServers = &showAll
	}
	if c.History.Path == "" {
		c.History.Path = defaultHistoryPath
	}
	if c.History.Keep == 0 {
		c.History.Keep = defaultHistoryKeep
	}
	if c.Web.BindAddr == "" {
		c.Web.BindAddr = defaultWebAddr
	}
	if c.Web.BindPort == 0 {
		c.Web.BindPort = defaultWebPort
	}
}

// Validate rejects configuration faults before any probing starts.
func (c *Config) Validate() error {
	if c.PingCount <= 0 {
		return errors.New("ping_count must be > 0")
	}
	if c.PingCount > maxPingCount {
		return fmt.Errorf("ping_count cannot exceed %d", maxPingCount)
	}
	if c.Timeout.Duration() <= 0 {
		return errors.New("timeout must be > 0")
	}
	if c.MaxWorkers <= 0 {
		return errors.New("max_workers must be > 0")
	}
	if c.MaxWorkers > maxWorkersLimit {
		return fmt.Errorf("max_workers cannot exceed %d", maxWorkersLimit)
	}
	for i := range c.CustomServers {
		srv := &c.CustomServers[i]
		srv.Name = strings.TrimSpace(srv.Name)
		srv.Address = strings.TrimSpace(srv.Address)
		if srv.Name == "" || srv.Address == "" {
			return errors.New("custom servers require both name and address")
		}
	}
	if c.History.Keep < 0 {
		return errors.New("history.keep must be >= 0")
	}
	if c.Web.BindPort <= 0 || c.Web.BindPort > 65535 {
		return errors.New("web.bind_port must be in 1..65535")
	}
	return nil
}
