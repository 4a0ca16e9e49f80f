// Package client is the CLI's view of the agent API: unary lifecycle
// calls, NDJSON stream consumption for logs and stats, and the
// upgraded duplex exec stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/poridhioss/dockyard/internal/agent"
)

// Client talks to one agent.
type Client struct {
	addr    string
	token   string
	timeout time.Duration
	http    *http.Client
}

// New creates a client for the agent at addr ("host:port"). token may
// be empty when the agent runs without authentication. timeout bounds
// unary calls only; streams run until done or canceled.
func New(addr, token string, timeout time.Duration) *Client {
	return &Client{
		addr:    addr,
		token:   token,
		timeout: timeout,
		http:    &http.Client{},
	}
}

func (c *Client) url(path string) string {
	return "http://" + c.addr + path
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do performs a unary call, decoding a JSON body into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("agent at %s unreachable: %w", c.addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// apiError turns a non-2xx response into an error carrying the agent's
// message.
func apiError(resp *http.Response) error {
	var body agent.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("%s", body.Error)
	}
	return fmt.Errorf("agent returned %s", resp.Status)
}

// Health checks the agent and its engine connection.
func (c *Client) Health(ctx context.Context) (agent.HealthResponse, error) {
	var out agent.HealthResponse
	err := c.do(ctx, http.MethodGet, "/v1/health", nil, &out)
	return out, err
}

// Launch creates and starts a container.
func (c *Client) Launch(ctx context.Context, req agent.LaunchRequest) (agent.LaunchResponse, error) {
	var out agent.LaunchResponse
	err := c.do(ctx, http.MethodPost, "/v1/containers", req, &out)
	return out, err
}

// List returns containers, including stopped ones when all is set.
func (c *Client) List(ctx context.Context, all bool) ([]agent.ContainerInfo, error) {
	path := "/v1/containers"
	if all {
		path += "?all=true"
	}
	var out []agent.ContainerInfo
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Inspect returns the engine's raw inspect JSON for a container.
func (c *Client) Inspect(ctx context.Context, name string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodGet, "/v1/containers/"+name+"/json", nil, &out)
	return out, err
}

// Stop stops a container.
func (c *Client) Stop(ctx context.Context, name string, force bool, timeout int) error {
	return c.do(ctx, http.MethodPost, "/v1/containers/"+name+"/stop",
		agent.StopRequest{Force: force, Timeout: timeout}, nil)
}

// Remove deletes a container.
func (c *Client) Remove(ctx context.Context, name string, force, volumes bool) (string, error) {
	path := fmt.Sprintf("/v1/containers/%s?force=%t&volumes=%t", name, force, volumes)
	var out agent.RemoveResponse
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return "", err
	}
	return out.Removed, nil
}

// Logs streams a container's log records, invoking handle per message
// until the stream ends or handle returns an error.
func (c *Client) Logs(ctx context.Context, name string, filter agent.LogsRequest, handle func(agent.LogMessage) error) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/containers/"+name+"/logs", filter)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("agent at %s unreachable: %w", c.addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	dec := json.NewDecoder(resp.Body)
	for {
		var msg agent.LogMessage
		if err := dec.Decode(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading log stream: %w", err)
		}
		if err := handle(msg); err != nil {
			return err
		}
		if msg.Status != nil && msg.Status.Finished {
			return nil
		}
	}
}

// Stats streams resource samples for a container.
func (c *Client) Stats(ctx context.Context, container string, stream bool, handle func(agent.StatsMessage) error) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/stats",
		agent.StatsRequest{Container: container, Stream: stream})
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("agent at %s unreachable: %w", c.addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	dec := json.NewDecoder(resp.Body)
	for {
		var msg agent.StatsMessage
		if err := dec.Decode(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading stats stream: %w", err)
		}
		if err := handle(msg); err != nil {
			return err
		}
		if msg.Status != nil && msg.Status.Finished {
			return nil
		}
	}
}
