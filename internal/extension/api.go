package extension

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prperemyshlev/postoptima-api/internal/dto"
)

// ErrUnauthorized is wrapped by APIError for 401 responses.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx reply from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Backend is the subset of the HTTP API the extension calls.
type Backend interface {
	Analyze(ctx context.Context, token, platform, content string) (*dto.AnalyzeResponse, error)
	Profile(ctx context.Context, token string) (*dto.ProfileResponse, error)
	StartLogin(ctx context.Context) (*dto.LoginAttemptResponse, error)
	PollLogin(ctx context.Context, attemptID string) (*dto.LoginAttemptResponse, error)
}

// APIClient calls the PostOptima backend over HTTP.
type APIClient struct {
	baseURL string
	http    *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *APIClient) Analyze(ctx context.Context, token, platform, content string) (*dto.AnalyzeResponse, error) {
	var out dto.AnalyzeResponse
	req := dto.AnalyzeRequest{Platform: platform, PostContent: content}
	if err := c.do(ctx, http.MethodPost, "/api/analyze", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Profile(ctx context.Context, token string) (*dto.ProfileResponse, error) {
	var out dto.ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/api/profile", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) StartLogin(ctx context.Context) (*dto.LoginAttemptResponse, error) {
	var out dto.LoginAttemptResponse
	if err := c.do(ctx, http.MethodPost, "/api/extension/login-attempts", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) PollLogin(ctx context.Context, attemptID string) (*dto.LoginAttemptResponse, error) {
	var out dto.LoginAttemptResponse
	path := "/api/extension/login-attempts/" + url.PathEscape(attemptID)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr dto.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr)
		message := apiErr.Error
		if apiErr.Message != "" {
			message += ": " + apiErr.Message
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
