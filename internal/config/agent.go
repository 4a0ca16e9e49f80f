// Package config handles agent and CLI configuration files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAgentPath is where the agent looks for its config unless
// DOCKYARD_CONFIG points elsewhere.
const DefaultAgentPath = "/etc/dockyard/config.yaml"

// Agent is the agent daemon's configuration.
type Agent struct {
	Server struct {
		Host       string `yaml:"host"`
		Port       int    `yaml:"port"`
		MaxWorkers int    `yaml:"max_workers"`
	} `yaml:"server"`
	Docker struct {
		Socket  string `yaml:"socket"`
		Timeout int    `yaml:"timeout"` // seconds
	} `yaml:"docker"`
	Auth struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"auth"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// defaultAgent returns the built-in defaults, used when no config file
// exists and as the base that a file partially overrides.
func defaultAgent() Agent {
	var c Agent
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 50051
	c.Server.MaxWorkers = 10
	c.Docker.Socket = "unix:///var/run/docker.sock"
	c.Docker.Timeout = 30
	c.Auth.Enabled = true
	c.Logging.Level = "info"
	return c
}

// LoadAgent reads the agent config from path (empty = DOCKYARD_CONFIG,
// then the default path). A missing file yields the defaults; a present
// but malformed file is an error. DOCKYARD_HOST, DOCKYARD_PORT and
// DOCKYARD_LOG_LEVEL override the file.
func LoadAgent(path string) (Agent, error) {
	if path == "" {
		path = os.Getenv("DOCKYARD_CONFIG")
	}
	if path == "" {
		path = DefaultAgentPath
	}

	cfg := defaultAgent()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults
	case err != nil:
		return Agent{}, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Agent{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if host := os.Getenv("DOCKYARD_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("DOCKYARD_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return Agent{}, fmt.Errorf("invalid DOCKYARD_PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}
	if level := os.Getenv("DOCKYARD_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c Agent) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DockerTimeout returns the Docker connection timeout.
func (c Agent) DockerTimeout() time.Duration {
	return time.Duration(c.Docker.Timeout) * time.Second
}

// AuthToken returns the configured bearer secret. The token is only
// ever read from the environment, never from the config file, and an
// empty token disables authentication.
func (c Agent) AuthToken() string {
	if !c.Auth.Enabled {
		return ""
	}
	return os.Getenv("DOCKYARD_AUTH_TOKEN")
}
