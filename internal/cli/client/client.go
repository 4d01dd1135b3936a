// Package client is the CLI's view of the API: a session.Manager whose
// cookies are restored from and persisted to the keychain around each call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/branchd-dev/authsession/internal/cli/auth"
	"github.com/branchd-dev/authsession/internal/session"
)

// Client talks to one server through an authenticated session
type Client struct {
	manager *session.Manager
	cookies auth.CookieStore
	logger  zerolog.Logger
}

// New creates a client for cfg and loads any stored cookies into its jar
func New(cfg session.Config, cookies auth.CookieStore, logger zerolog.Logger, opts ...session.Option) (*Client, error) {
	opts = append([]session.Option{session.WithLogger(logger)}, opts...)
	manager, err := session.New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	c := &Client{manager: manager, cookies: cookies, logger: logger}
	if err := auth.Restore(cookies, manager.Jar(), manager.BaseURL()); err != nil {
		manager.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	return c, nil
}

// Manager returns the underlying session manager
func (c *Client) Manager() *session.Manager {
	return c.manager
}

// Close persists the current cookies and tears the session down
func (c *Client) Close() error {
	defer c.manager.Close()
	return c.persist()
}

func (c *Client) persist() error {
	if err := auth.Persist(c.cookies, c.manager.Jar(), c.manager.BaseURL()); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist session cookies")
		return err
	}
	return nil
}

// Start resolves the current user from the stored cookies
func (c *Client) Start(ctx context.Context) *session.User {
	user := c.manager.Start(ctx)
	_ = c.persist()
	return user
}

// Login signs in and stores the new cookies
func (c *Client) Login(ctx context.Context, username, password string) (*session.User, error) {
	user, err := c.manager.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := c.persist(); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return user, nil
}

// Logout signs out and forgets the stored cookies
func (c *Client) Logout(ctx context.Context) error {
	err := c.manager.Logout(ctx)
	if delErr := c.cookies.DeleteCookies(c.manager.BaseURL().String()); delErr != nil {
		c.logger.Warn().Err(delErr).Msg("Failed to delete stored cookies")
	}
	return err
}

// Response is a fully read API response
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Err describes a failed response. A 401 means the session is gone.
func (r *Response) Err() error {
	if r.Status == http.StatusUnauthorized {
		return fmt.Errorf("%w (status %d)", auth.ErrNotAuthenticated, r.Status)
	}
	return fmt.Errorf("API error (status %d): %s", r.Status, strings.TrimSpace(string(r.Body)))
}

// Request sends an authenticated request to path relative to the server URL
func (c *Client) Request(ctx context.Context, method, path string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), c.manager.URL(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.manager.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	_ = c.persist()

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Post represents a post returned by the API
type Post struct {
	ID        string `json:"id"`
	Owner     string `json:"owner"`
	IsOwner   bool   `json:"is_owner"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Image     string `json:"image"`
	CreatedAt string `json:"created_at"`
}

// CreatePostRequest represents the post creation request
type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}

// ListPosts returns all posts
func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	resp, err := c.Request(ctx, http.MethodGet, "posts/", nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, resp.Err()
	}

	var posts []Post
	if err := json.Unmarshal(resp.Body, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return posts, nil
}

// CreatePost creates a post owned by the current user
func (c *Client) CreatePost(ctx context.Context, title, content string) (*Post, error) {
	payload, err := json.Marshal(CreatePostRequest{Title: title, Content: content})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.Request(ctx, http.MethodPost, "posts/", payload)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusCreated {
		return nil, resp.Err()
	}

	var post Post
	if err := json.Unmarshal(resp.Body, &post); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &post, nil
}
