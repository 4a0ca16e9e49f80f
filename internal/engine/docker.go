package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/poridhioss/dockyard/internal/log"
	"github.com/poridhioss/dockyard/internal/name"
)

// Docker implements Engine against the Docker Engine API.
type Docker struct {
	cli *client.Client
}

// NewDocker connects to the Docker daemon at the given host (for example
// "unix:///var/run/docker.sock"). An empty host falls back to the
// environment (DOCKER_HOST et al). The connection is verified with a ping.
func NewDocker(ctx context.Context, host string, timeout time.Duration) (*Docker, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	} else {
		opts = append(opts, client.FromEnv)
	}
	if timeout > 0 {
		opts = append(opts, client.WithTimeout(timeout))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	d := &Docker{cli: cli}
	if err := d.Ping(ctx); err != nil {
		cli.Close()
		return nil, err
	}
	log.Info("connected to docker daemon", "host", cli.DaemonHost())
	return d, nil
}

// Ping verifies the Docker daemon is accessible.
func (d *Docker) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon not accessible: %w", err)
	}
	return nil
}

// Close releases Docker client resources.
func (d *Docker) Close() error {
	return d.cli.Close()
}

// Resolve looks up a container by name or ID.
func (d *Docker) Resolve(ctx context.Context, target string) (ContainerRef, error) {
	inspect, err := d.cli.ContainerInspect(ctx, target)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return ContainerRef{}, fmt.Errorf("%w: %s", ErrNotFound, target)
		}
		return ContainerRef{}, fmt.Errorf("inspecting container: %w", err)
	}
	return ContainerRef{
		ID:      inspect.ID,
		Name:    strings.TrimPrefix(inspect.Name, "/"),
		Running: inspect.State != nil && inspect.State.Running,
		TTY:     inspect.Config != nil && inspect.Config.Tty,
	}, nil
}

// Launch pulls the image if missing, then creates and starts a container.
func (d *Docker) Launch(ctx context.Context, spec LaunchSpec) (string, string, error) {
	if err := d.ensureImage(ctx, spec.Image); err != nil {
		return "", "", err
	}
	if spec.Name == "" {
		spec.Name = name.Generate()
	}

	var exposed nat.PortSet
	var bindings nat.PortMap
	if len(spec.Ports) > 0 {
		var err error
		exposed, bindings, err = nat.ParsePortSpecs(spec.Ports)
		if err != nil {
			return "", "", fmt.Errorf("parsing port specs: %w", err)
		}
	}

	resp, err := d.cli.ContainerCreate(ctx,
		&container.Config{
			Image:        spec.Image,
			Cmd:          spec.Command,
			Env:          spec.Env,
			ExposedPorts: exposed,
		},
		&container.HostConfig{
			Binds:        spec.Volumes,
			PortBindings: bindings,
		},
		nil, // network config
		nil, // platform
		spec.Name,
	)
	if err != nil {
		return "", "", fmt.Errorf("creating container: %w", err)
	}

	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Don't leave a created-but-never-started container behind.
		_ = d.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", "", fmt.Errorf("starting container: %w", err)
	}

	log.Info("container launched", "id", shortID(resp.ID), "name", spec.Name, "image", spec.Image)
	return shortID(resp.ID), spec.Name, nil
}

// Stop stops a running container, killing it when force is set.
func (d *Docker) Stop(ctx context.Context, target string, force bool, timeout time.Duration) error {
	ref, err := d.Resolve(ctx, target)
	if err != nil {
		return err
	}
	if force {
		if err := d.cli.ContainerKill(ctx, ref.ID, "KILL"); err != nil {
			return fmt.Errorf("killing container: %w", err)
		}
		return nil
	}
	secs := int(timeout.Seconds())
	if err := d.cli.ContainerStop(ctx, ref.ID, container.StopOptions{Timeout: &secs}); err != nil {
		return fmt.Errorf("stopping container: %w", err)
	}
	return nil
}

// List returns containers, including stopped ones when all is set.
func (d *Docker) List(ctx context.Context, all bool) ([]ContainerSummary, error) {
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}

	summaries := make([]ContainerSummary, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		summaries = append(summaries, ContainerSummary{
			ID:      shortID(c.ID),
			Image:   c.Image,
			Command: c.Command,
			Created: time.Unix(c.Created, 0),
			Status:  c.Status,
			Ports:   formatPorts(c.Ports),
			Name:    name,
		})
	}
	return summaries, nil
}

// InspectRaw returns the daemon's inspect document as raw JSON.
func (d *Docker) InspectRaw(ctx context.Context, target string) ([]byte, error) {
	inspect, err := d.cli.ContainerInspect(ctx, target)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
		}
		return nil, fmt.Errorf("inspecting container: %w", err)
	}
	data, err := json.Marshal(inspect)
	if err != nil {
		return nil, fmt.Errorf("encoding inspect data: %w", err)
	}
	return data, nil
}

// Remove deletes a container; running containers require force.
func (d *Docker) Remove(ctx context.Context, target string, force, volumes bool) (string, error) {
	ref, err := d.Resolve(ctx, target)
	if err != nil {
		return "", err
	}
	if ref.Running && !force {
		return "", fmt.Errorf("container %q is running; stop it or use force", target)
	}
	if err := d.cli.ContainerRemove(ctx, ref.ID, container.RemoveOptions{
		Force:         force,
		RemoveVolumes: volumes,
	}); err != nil {
		if errdefs.IsNotFound(err) {
			return shortID(ref.ID), nil
		}
		return "", fmt.Errorf("removing container: %w", err)
	}
	return shortID(ref.ID), nil
}

// ExecCreate allocates an exec instance inside a running container.
func (d *Docker) ExecCreate(ctx context.Context, containerID string, spec ExecSpec) (string, error) {
	env := make([]string, 0, len(spec.Environment))
	for k, v := range spec.Environment {
		env = append(env, k+"="+v)
	}
	resp, err := d.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          spec.Command,
		Tty:          spec.TTY,
		AttachStdin:  spec.Stdin,
		AttachStdout: true,
		AttachStderr: true,
		User:         spec.User,
		WorkingDir:   spec.WorkingDir,
		Env:          env,
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, containerID)
		}
		return "", fmt.Errorf("creating exec: %w", err)
	}
	return resp.ID, nil
}

// ExecAttach starts the exec instance and returns its duplex channel.
func (d *Docker) ExecAttach(ctx context.Context, execID string, tty bool) (ExecConn, error) {
	resp, err := d.cli.ContainerExecAttach(ctx, execID, container.ExecAttachOptions{Tty: tty})
	if err != nil {
		return nil, fmt.Errorf("attaching to exec: %w", err)
	}
	return &hijackConn{resp: resp}, nil
}

// ExecInspect reports the exec instance's termination state.
func (d *Docker) ExecInspect(ctx context.Context, execID string) (ExecStatus, error) {
	inspect, err := d.cli.ContainerExecInspect(ctx, execID)
	if err != nil {
		return ExecStatus{}, fmt.Errorf("inspecting exec: %w", err)
	}
	return ExecStatus{Running: inspect.Running, ExitCode: inspect.ExitCode}, nil
}

// OpenLogs returns the container's log stream.
func (d *Docker) OpenLogs(ctx context.Context, containerID string, opts LogOptions) (io.ReadCloser, error) {
	tail := "all"
	if opts.Tail > 0 {
		tail = strconv.FormatUint(uint64(opts.Tail), 10)
	}
	reader, err := d.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: opts.Stdout,
		ShowStderr: opts.Stderr,
		Follow:     opts.Follow,
		Timestamps: opts.Timestamps,
		Since:      opts.Since,
		Tail:       tail,
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, containerID)
		}
		return nil, fmt.Errorf("getting container logs: %w", err)
	}
	return reader, nil
}

// Stats takes one resource-usage reading for a container.
func (d *Docker) Stats(ctx context.Context, target string) (StatsSample, error) {
	ref, err := d.Resolve(ctx, target)
	if err != nil {
		return StatsSample{}, err
	}

	resp, err := d.cli.ContainerStats(ctx, ref.ID, false)
	if err != nil {
		return StatsSample{}, fmt.Errorf("reading container stats: %w", err)
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return StatsSample{}, fmt.Errorf("decoding stats: %w", err)
	}

	sample := deriveSample(&raw)
	sample.ID = shortID(ref.ID)
	sample.Name = ref.Name
	return sample, nil
}

// ensureImage pulls an image if it doesn't exist locally.
func (d *Docker) ensureImage(ctx context.Context, ref string) error {
	_, err := d.cli.ImageInspect(ctx, ref)
	if err == nil {
		return nil
	}
	if !errdefs.IsNotFound(err) {
		return fmt.Errorf("inspecting image %s: %w", ref, err)
	}

	log.Info("pulling image", "image", ref)
	reader, err := d.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pulling image %s: %w", ref, err)
	}
	defer reader.Close()

	// Drain the reader to complete the pull (discard JSON progress output)
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

// hijackConn adapts the SDK's hijacked connection to ExecConn.
type hijackConn struct {
	resp types.HijackedResponse
}

func (h *hijackConn) Read(p []byte) (int, error)  { return h.resp.Reader.Read(p) }
func (h *hijackConn) Write(p []byte) (int, error) { return h.resp.Conn.Write(p) }
func (h *hijackConn) CloseWrite() error           { return h.resp.CloseWrite() }

func (h *hijackConn) Close() error {
	h.resp.Close()
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// formatPorts renders a container's port bindings the way the engine's
// own CLI does: "0.0.0.0:8080->80/tcp", or "80/tcp" for unpublished ports.
func formatPorts(ports []container.Port) string {
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		private := fmt.Sprintf("%d/%s", p.PrivatePort, p.Type)
		if p.PublicPort == 0 {
			parts = append(parts, private)
			continue
		}
		ip := p.IP
		if ip == "" {
			ip = "0.0.0.0"
		}
		parts = append(parts, fmt.Sprintf("%s:%d->%s", ip, p.PublicPort, private))
	}
	return strings.Join(parts, ", ")
}
