// Package authprovider is a client for the hosted auth provider's REST API.
// Only the calls made by the session holder and the extension are covered.
package authprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prperemyshlev/postoptima-api/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrUnauthorized       = errors.New("access token rejected")
)

const defaultTimeout = 10 * time.Second

// Client talks to the provider's auth endpoints using the public anon key.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
}

func NewClient(baseURL, anonKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

type userPayload struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
}

func (u userPayload) toDomain() *domain.User {
	return &domain.User{
		ID:              u.ID,
		Email:           u.Email,
		IsEmailVerified: u.EmailConfirmedAt != nil,
	}
}

type sessionPayload struct {
	domain.TokenPair
	User userPayload `json:"user"`
}

// Session is a signed-in user with its tokens
type Session struct {
	Tokens domain.TokenPair
	User   domain.User
}

type errorPayload struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"msg"`
}

func (e errorPayload) String() string {
	for _, s := range []string{e.ErrorDescription, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return "unknown error"
}

// SignInWithPassword exchanges email and password for a session
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	return c.token(ctx, "password", body)
}

// Refresh exchanges a refresh token for a new session
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return c.token(ctx, "refresh_token", body)
}

func (c *Client) token(ctx context.Context, grantType string, body map[string]string) (*Session, error) {
	var payload sessionPayload
	status, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type="+grantType, "", body, &payload)
	if err != nil {
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return nil, err
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token in response", ErrInvalidCredentials)
	}

	return &Session{Tokens: payload.TokenPair, User: *payload.User.toDomain()}, nil
}

// GetUser resolves the user owning an access token
func (c *Client) GetUser(ctx context.Context, accessToken string) (*domain.User, error) {
	var payload userPayload
	status, err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &payload)
	if err != nil {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, err
	}
	return payload.toDomain(), nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) (int, error) {
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("auth provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr errorPayload
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr)
		return resp.StatusCode, fmt.Errorf("auth provider returned %d: %s", resp.StatusCode, apiErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode auth provider response: %w", err)
	}
	return resp.StatusCode, nil
}
