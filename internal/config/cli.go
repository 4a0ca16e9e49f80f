package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// CLI is the command-line client's configuration, stored at
// ~/.dockyard/config.yaml.
type CLI struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Timeout int    `yaml:"timeout"` // seconds
	Auth    struct {
		Token string `yaml:"token,omitempty"`
	} `yaml:"auth,omitempty"`

	path string
}

// CLIPath returns the default CLI config path.
func CLIPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".dockyard", "config.yaml")
}

// LoadCLI reads the CLI config from path (empty = default path). A
// missing file yields defaults. DOCKYARD_HOST and DOCKYARD_PORT
// override the file.
func LoadCLI(path string) (CLI, error) {
	if path == "" {
		path = CLIPath()
	}

	cfg := CLI{Host: "localhost", Port: 50051, Timeout: 60, path: path}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults
		case err != nil:
			return CLI{}, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return CLI{}, fmt.Errorf("parsing config %s: %w", path, err)
			}
			cfg.path = path
		}
	}

	if host := os.Getenv("DOCKYARD_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DOCKYARD_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return CLI{}, fmt.Errorf("invalid DOCKYARD_PORT %q: %w", port, err)
		}
		cfg.Port = p
	}
	return cfg, nil
}

// Addr returns the agent address.
func (c CLI) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RequestTimeout returns the unary request timeout.
func (c CLI) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Token returns the bearer token: DOCKYARD_AUTH_TOKEN first, then the
// config file. Empty means the caller sends no credential.
func (c CLI) Token() string {
	if token := os.Getenv("DOCKYARD_AUTH_TOKEN"); token != "" {
		return token
	}
	return c.Auth.Token
}

// SaveToken persists the token to the config file with restrictive
// permissions, preserving the other settings.
func (c *CLI) SaveToken(token string) error {
	if c.path == "" {
		return fmt.Errorf("no config path available")
	}
	c.Auth.Token = token

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
