package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Launch is a container launch manifest, passed to `dockyard launch -f`.
type Launch struct {
	Image       string            `yaml:"image"`
	Name        string            `yaml:"name,omitempty"`
	Command     []string          `yaml:"command,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Ports       []string          `yaml:"ports,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty"`
}

// LoadLaunch reads a launch manifest from path.
func LoadLaunch(path string) (Launch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Launch{}, fmt.Errorf("reading launch manifest %s: %w", path, err)
	}
	var l Launch
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Launch{}, fmt.Errorf("parsing launch manifest %s: %w", path, err)
	}
	if l.Image == "" {
		return Launch{}, fmt.Errorf("launch manifest %s: image is required", path)
	}
	return l, nil
}

// EnvList flattens the environment map to KEY=VALUE form.
func (l Launch) EnvList() []string {
	env := make([]string, 0, len(l.Environment))
	for k, v := range l.Environment {
		env = append(env, k+"="+v)
	}
	return env
}
