package client

import (
	"net/http"
	"strings"
	"time"
)

// Client talks to the ssh-ecs server API.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

type Option func(*Client)

// WithAuthToken sets the bearer credential sent on every request.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type urlBuilder struct {
	base  string
	path  string
	query []string
}

func (c *Client) url() *urlBuilder {
	return &urlBuilder{base: c.baseURL}
}

func (u *urlBuilder) setPath(path string) *urlBuilder {
	u.path = path
	return u
}

// setPathParam substitutes a "{name}" placeholder in the route pattern.
func (u *urlBuilder) setPathParam(name, value string) *urlBuilder {
	u.path = strings.ReplaceAll(u.path, "{"+name+"}", urlEscape(value))
	return u
}

func (u *urlBuilder) addQueryParam(name string, value any) *urlBuilder {
	u.query = append(u.query, name+"="+urlEscape(toString(value)))
	return u
}

func (u *urlBuilder) build() string {
	s := u.base + u.path
	if len(u.query) > 0 {
		s += "?" + strings.Join(u.query, "&")
	}
	return s
}
