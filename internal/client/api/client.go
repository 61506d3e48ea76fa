// Package api is a typed client for the voucher-auth REST API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/voucher-auth/internal/netx"
)

var ErrUnavailable = errors.New("server unavailable")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// User is the client view of a user record.
type User struct {
	UserID      string     `json:"userID"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	Verified    bool       `json:"verified"`
	Preferences []string   `json:"preferences"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// Page is one page of a list endpoint.
type Page struct {
	Users []User
	Total int64
}

// NewUser carries the fields accepted by Register.
type NewUser struct {
	Email       string   `json:"email"`
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	Role        string   `json:"role,omitempty"`
	Preferences []string `json:"preferences,omitempty"`
}

type envelope[T any] struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Data        T      `json:"data"`
	TotalRecord *int64 `json:"totalRecord"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// call performs one request and unwraps the envelope. The server message is
// returned on success so the CLI can echo it.
func call[T any](ctx context.Context, c *Client, method, path string, in any) (envelope[T], error) {
	var env envelope[T]

	status, err := netx.DoJSON(ctx, c.httpClient, method, c.baseURL+path, in, &env)
	if err != nil {
		if status == 0 {
			return env, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return env, &APIError{Status: status, Message: err.Error()}
	}
	if status < 200 || status > 299 || !env.Success {
		return env, &APIError{Status: status, Message: env.Message}
	}
	return env, nil
}

func (c *Client) Register(ctx context.Context, u NewUser) (*User, string, error) {
	env, err := call[*User](ctx, c, http.MethodPost, "/api/users", u)
	return env.Data, env.Message, err
}

func (c *Client) Login(ctx context.Context, email, password string) (*User, string, error) {
	in := map[string]string{"email": email, "password": password}
	env, err := call[*User](ctx, c, http.MethodPost, "/api/users/login", in)
	return env.Data, env.Message, err
}

func (c *Client) Verify(ctx context.Context, token string) (*User, string, error) {
	env, err := call[*User](ctx, c, http.MethodPatch, "/api/users/verify/"+url.PathEscape(token), nil)
	return env.Data, env.Message, err
}

func (c *Client) ResetPassword(ctx context.Context, userID, password string) (*User, string, error) {
	in := map[string]string{"password": password}
	env, err := call[*User](ctx, c, http.MethodPatch, "/api/users/"+url.PathEscape(userID)+"/resetPassword", in)
	return env.Data, env.Message, err
}

func (c *Client) CheckActive(ctx context.Context, userID string) (*User, string, error) {
	env, err := call[*User](ctx, c, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/active", nil)
	return env.Data, env.Message, err
}

func (c *Client) ListActive(ctx context.Context, page, size int) (*Page, error) {
	return c.list(ctx, "/api/users", page, size)
}

func (c *Client) ListByPreference(ctx context.Context, tag string, page, size int) (*Page, error) {
	return c.list(ctx, "/api/users/preferences/"+url.PathEscape(tag), page, size)
}

// list passes page and size through only when set, so the server defaults
// apply otherwise.
func (c *Client) list(ctx context.Context, path string, page, size int) (*Page, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	env, err := call[[]User](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	p := &Page{Users: env.Data}
	if env.TotalRecord != nil {
		p.Total = *env.TotalRecord
	}
	return p, nil
}

func (c *Client) AddPreferences(ctx context.Context, userID string, tags []string) (*User, string, error) {
	in := map[string][]string{"preferences": tags}
	env, err := call[*User](ctx, c, http.MethodPatch, "/api/users/"+url.PathEscape(userID)+"/preferences", in)
	return env.Data, env.Message, err
}

func (c *Client) DeletePreferences(ctx context.Context, userID string, tags []string) (*User, string, error) {
	in := map[string][]string{"preferences": tags}
	env, err := call[*User](ctx, c, http.MethodDelete, "/api/users/"+url.PathEscape(userID)+"/preferences", in)
	return env.Data, env.Message, err
}

// Ping reports whether the server and its database answer.
func (c *Client) Ping(ctx context.Context) error {
	_, err := call[any](ctx, c, http.MethodGet, "/healthz", nil)
	return err
}
