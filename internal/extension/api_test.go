package extension

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClientAnalyze(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/analyze", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req dto.AnalyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, dto.AnalyzeRequest{Platform: "twitter", PostContent: "hello world"}, req)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dto.AnalyzeResponse{
			Original:             "hello world",
			OptimizedContent:     "Hello, world! 👋",
			AlgorithmScore:       72,
			EngagementPrediction: 40,
			Suggestions:          []string{"Add a hashtag"},
		})
	}))
	defer server.Close()

	result, err := NewAPIClient(server.URL+"/").Analyze(context.Background(), "tok", "twitter", "hello world")
	require.NoError(t, err)
	assert.Equal(t, 72, result.AlgorithmScore)
	assert.Equal(t, 40, result.EngagementPrediction)
}

func TestAPIClientErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	defer server.Close()

	_, err := NewAPIClient(server.URL).Profile(context.Background(), "expired")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Unauthorized", apiErr.Message)
}

func TestAPIClientLoginAttempts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/extension/login-attempts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(dto.LoginAttemptResponse{
			AttemptID: "a1",
			State:     "logging-in",
			LoginURL:  "https://postoptima.com/login?attempt=a1",
			ExpiresIn: 600,
		})
	})
	mux.HandleFunc("/api/extension/login-attempts/a1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_ = json.NewEncoder(w).Encode(dto.LoginAttemptResponse{AttemptID: "a1", State: "logged-in", Token: "tok"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewAPIClient(server.URL)

	started, err := client.StartLogin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://postoptima.com/login?attempt=a1", started.LoginURL)

	polled, err := client.PollLogin(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "logged-in", polled.State)
	assert.Equal(t, "tok", polled.Token)
}

func TestAPIClientPollLoginEscapesAttemptID(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "Not found"})
	}))
	defer server.Close()

	_, err := NewAPIClient(server.URL).PollLogin(context.Background(), "../profile?x=1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "/api/extension/login-attempts/..%2Fprofile%3Fx=1", gotPath)
}
