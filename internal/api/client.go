// Package api calls the server's REST endpoints for the authoritative
// state behind push notifications.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beamline-remote/hwr-client/internal/state"
)

// Client makes REST calls relative to the server's API prefix.
type Client struct {
	baseURL   string
	token     string
	sessionID string
	client    *http.Client
}

// NewClient targets baseURL (e.g. "http://localhost:8081") joined with
// prefix (e.g. "/mxcube/api/v0.1").
func NewClient(baseURL, prefix, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/" + strings.Trim(prefix, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// WithSession returns a copy that sends id in the session header.
func (c *Client) WithSession(id string) *Client {
	cp := *c
	cp.sessionID = id
	return &cp
}

// LoginInfo fetches the current user and its control flags.
func (c *Client) LoginInfo(ctx context.Context) (state.LoginInfo, error) {
	var info state.LoginInfo
	if err := c.get(ctx, "login/login_info", &info); err != nil {
		return state.LoginInfo{}, err
	}
	return info, nil
}

// RemoteAccess fetches the observer list.
func (c *Client) RemoteAccess(ctx context.Context) (state.RemoteAccess, error) {
	var out struct {
		Data state.RemoteAccess `json:"data"`
	}
	if err := c.get(ctx, "ra/", &out); err != nil {
		return state.RemoteAccess{}, err
	}
	return out.Data, nil
}

// Queue fetches the whole queue document.
func (c *Client) Queue(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.get(ctx, "queue/queue_state", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SampleChangerContents(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.get(ctx, "sample_changer/contents", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) HarvesterContents(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.get(ctx, "harvester/contents", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StopQueue aborts the running queue entry.
func (c *Client) StopQueue(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "queue/stop", nil, nil)
}

// SignOut ends the server-side login.
func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "login/signout", nil, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.sessionID != "" {
		req.Header.Set("X-Client-Session", c.sessionID)
	}
}

// StatusError is a non-2xx answer.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Body)
}
