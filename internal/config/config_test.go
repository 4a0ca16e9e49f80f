package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DOCKYARD_CONFIG", "DOCKYARD_HOST", "DOCKYARD_PORT", "DOCKYARD_LOG_LEVEL", "DOCKYARD_AUTH_TOKEN"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadAgentDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadAgent(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:50051", cfg.Addr())
	assert.Equal(t, 10, cfg.Server.MaxWorkers)
	assert.Equal(t, "unix:///var/run/docker.sock", cfg.Docker.Socket)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Auth.Enabled)
}

func TestLoadAgentFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  host: 127.0.0.1
  port: 6000
docker:
  socket: tcp://docker:2375
logging:
  level: debug
`), 0o600))

	cfg, err := LoadAgent(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6000", cfg.Addr())
	assert.Equal(t, "tcp://docker:2375", cfg.Docker.Socket)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// unset fields keep defaults
	assert.Equal(t, 10, cfg.Server.MaxWorkers)
}

func TestLoadAgentMalformed(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := LoadAgent(path)
	assert.Error(t, err)
}

func TestLoadAgentEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOCKYARD_HOST", "10.0.0.5")
	t.Setenv("DOCKYARD_PORT", "7000")
	t.Setenv("DOCKYARD_LOG_LEVEL", "warn")

	cfg, err := LoadAgent(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:7000", cfg.Addr())
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadAgentBadPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOCKYARD_PORT", "not-a-port")

	_, err := LoadAgent(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAgentAuthToken(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadAgent(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Empty(t, cfg.AuthToken())

	t.Setenv("DOCKYARD_AUTH_TOKEN", "secret")
	assert.Equal(t, "secret", cfg.AuthToken())

	cfg.Auth.Enabled = false
	assert.Empty(t, cfg.AuthToken())
}

func TestLoadCLIDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadCLI(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "localhost:50051", cfg.Addr())
	assert.Equal(t, 60, cfg.Timeout)
	assert.Empty(t, cfg.Token())
}

func TestLoadCLIFileAndEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host: agent.internal
port: 50052
auth:
  token: file-token
`), 0o600))

	cfg, err := LoadCLI(path)
	require.NoError(t, err)
	assert.Equal(t, "agent.internal:50052", cfg.Addr())
	assert.Equal(t, "file-token", cfg.Token())

	t.Setenv("DOCKYARD_AUTH_TOKEN", "env-token")
	assert.Equal(t, "env-token", cfg.Token())

	t.Setenv("DOCKYARD_HOST", "other")
	cfg, err = LoadCLI(path)
	require.NoError(t, err)
	assert.Equal(t, "other:50052", cfg.Addr())
}

func TestSaveToken(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg, err := LoadCLI(path)
	require.NoError(t, err)

	require.NoError(t, cfg.SaveToken("new-token"))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	reloaded, err := LoadCLI(path)
	require.NoError(t, err)
	assert.Equal(t, "new-token", reloaded.Token())
}

func TestLoadLaunch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
image: nginx:alpine
name: web
environment:
  PORT: "8080"
ports:
  - "8080:80"
volumes:
  - /srv/www:/usr/share/nginx/html:ro
`), 0o600))

	l, err := LoadLaunch(path)
	require.NoError(t, err)
	assert.Equal(t, "nginx:alpine", l.Image)
	assert.Equal(t, "web", l.Name)
	assert.Equal(t, []string{"PORT=8080"}, l.EnvList())
	assert.Equal(t, []string{"8080:80"}, l.Ports)
}

func TestLoadLaunchMissingImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: web\n"), 0o600))

	_, err := LoadLaunch(path)
	assert.Error(t, err)
}
