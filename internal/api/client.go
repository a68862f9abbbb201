package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dyluth/huddle/pkg/activity"
)

// Client calls a huddle server on behalf of one actor. Failed requests
// come back as *activity.Error so callers handle remote and local errors
// the same way.
type Client struct {
	baseURL string
	actor   activity.Actor
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, actor activity.Actor) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		actor:   actor,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateSession starts a session on a host message.
func (c *Client) CreateSession(ctx context.Context, hostMessageID string, kind activity.Type, setup json.RawMessage) (*activity.Session, error) {
	return c.do(ctx, http.MethodPost, "/v1/sessions", createRequest{
		HostMessageID: hostMessageID,
		Type:          kind,
		Setup:         setup,
	})
}

// Dispatch performs one action.
func (c *Client) Dispatch(ctx context.Context, sessionID string, kind activity.Type, action string, input json.RawMessage) (*activity.Session, error) {
	path := fmt.Sprintf("/v1/sessions/%s/actions/%s", url.PathEscape(sessionID), url.PathEscape(action))
	return c.do(ctx, http.MethodPost, path, actionRequest{Type: kind, Input: input})
}

// CloseSession closes a session.
func (c *Client) CloseSession(ctx context.Context, sessionID string) (*activity.Session, error) {
	return c.do(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(sessionID)+"/close", nil)
}

// GetSession reads a session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*activity.Session, error) {
	return c.do(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(sessionID), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*activity.Session, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderActorID, c.actor.ID)
	req.Header.Set(HeaderActorName, c.actor.Name)
	if c.actor.Role != "" {
		req.Header.Set(HeaderActorRole, string(c.actor.Role))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Code == "" {
			return nil, fmt.Errorf("server returned %s", resp.Status)
		}
		if e.Code == "Internal" {
			return nil, fmt.Errorf("server error: %s", e.Reason)
		}
		return nil, &activity.Error{Code: e.Code, Reason: e.Reason, Field: e.Field}
	}

	var session activity.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}
