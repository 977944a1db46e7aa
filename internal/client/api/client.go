// Package api is a thin HTTP client for the auth server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/NordCoder/studybuddy/internal/domain/auth"
)

// Error is a non-2xx answer from the server.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func IsUnauthorized(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusUnauthorized
}

type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type SignUpRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type Client struct {
	base string
	c    *http.Client
}

// New returns a client for the API rooted at baseURL, e.g. http://localhost:8080/api.
func New(baseURL string, timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		c:    &http.Client{Timeout: timeout, Transport: transport},
	}
}

func (cl *Client) SignUp(ctx context.Context, req SignUpRequest) error {
	return cl.do(ctx, http.MethodPost, "/signup", "", req, nil)
}

func (cl *Client) Login(ctx context.Context, email, password string) (domainauth.TokenPair, error) {
	var out domainauth.TokenPair
	err := cl.do(ctx, http.MethodPost, "/login", "", map[string]string{"email": email, "password": password}, &out)
	return out, err
}

func (cl *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := cl.do(ctx, http.MethodPost, "/refresh", "", map[string]string{"refreshToken": refreshToken}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("refresh response has no token")
	}
	return out.Token, nil
}

func (cl *Client) Me(ctx context.Context, accessToken string) (*Profile, error) {
	var out Profile
	if err := cl.do(ctx, http.MethodGet, "/me", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (cl *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	return cl.do(ctx, http.MethodPost, "/logout", accessToken, map[string]string{"refreshToken": refreshToken}, nil)
}

func (cl *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, cl.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := cl.c.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &Error{Status: resp.StatusCode, Message: e.Error}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
