// Package feed is the client-side state provider: it holds the session
// credential, the signed-in profile and the blog collection, and derives
// category views from them.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
)

const DefaultTimeout = 10 * time.Second

var (
	// ErrTransient covers network failures, timeouts and 5xx responses.
	ErrTransient = errors.New("transient failure")
	// ErrUnauthenticated means no credential is held or the server rejected it.
	ErrUnauthenticated = errors.New("not authenticated")
)

// API is the subset of the HTTP API the provider consumes.
type API interface {
	Profile(ctx context.Context) (*models.User, error)
	Blogs(ctx context.Context) ([]models.Blog, error)
	ClearCredential()
}

// StatusError is a non-2xx response that is neither 401 nor 5xx.
type StatusError struct {
	Status int
	Body   models.ErrorResponse
}

func (e *StatusError) Error() string {
	if e.Body.Error != "" {
		return fmt.Sprintf("api returned %d: %s", e.Status, e.Body.Error)
	}
	return fmt.Sprintf("api returned %d", e.Status)
}

// Client talks to the Inkwell HTTP API. The credential is sent as a bearer
// header when held, and the cookie jar carries the authToken cookie the
// server sets on login.
type Client struct {
	base *url.URL
	http *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient returns a client for the API rooted at baseURL.
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		base: u,
		http: &http.Client{Jar: jar},
	}, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// SetToken replaces the held credential.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the held credential, falling back to the authToken cookie.
func (c *Client) Token() string {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		return token
	}
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == middleware.AuthCookieName {
			return ck.Value
		}
	}
	return ""
}

// ClearCredential forgets the token and expires the authToken cookie.
func (c *Client) ClearCredential() {
	c.SetToken("")
	c.http.Jar.SetCookies(c.base, []*http.Cookie{{
		Name:   middleware.AuthCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	}})
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login exchanges an email or phone and password for a session.
func (c *Client) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	var out sessionResponse
	err := c.do(ctx, http.MethodPost, "/api/users/login", map[string]string{
		"identifier": identifier,
		"password":   password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out.User, nil
}

// Logout ends the session on the server and locally. It never fails locally.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/users/logout", nil, nil)
	c.ClearCredential()
	return err
}

// Profile fetches the signed-in user. Without a credential no request is made.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	if c.Token() == "" {
		return nil, ErrUnauthenticated
	}
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/api/users/my-profile", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Blogs fetches the full blog collection, newest first.
func (c *Client) Blogs(ctx context.Context) ([]models.Blog, error) {
	var out struct {
		Blogs []models.Blog `json:"blogs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/blogs/all-blogs", nil, &out); err != nil {
		return nil, err
	}
	if out.Blogs == nil {
		out.Blogs = []models.Blog{}
	}
	return out.Blogs, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthenticated
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: api returned %d", ErrTransient, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		se := &StatusError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(&se.Body)
		return se
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrTransient, err)
	}
	return nil
}
