package gateways

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGitHubGateway(url string) *HTTPGitHubGateway {
	g := NewHTTPGitHubGateway(url, "test-token", nil)
	g.sleep = func(context.Context, time.Duration) error { return nil }
	return g
}

func TestNewHTTPGitHubGateway(t *testing.T) {
	gateway := NewHTTPGitHubGateway("", "test-token", nil)

	assert.Equal(t, "test-token", gateway.token)
	assert.Equal(t, "https://api.github.com", gateway.baseURL)
}

func TestGitHubGateway_FindMilestone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/example/core/milestones", r.URL.Path)
		assert.Equal(t, "token test-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]githubMilestone{
			{Number: 1, Title: "1.0.0-RC1", State: "closed"},
			{Number: 2, Title: "1.0.0", State: "open"},
		})
	}))
	defer server.Close()

	gateway := newTestGitHubGateway(server.URL)

	m, err := gateway.FindMilestone(context.Background(), "example", "core", "1.0.0")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Number)

	missing, err := gateway.FindMilestone(context.Background(), "example", "core", "9.9.9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGitHubGateway_CloseMilestone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/repos/example/core/milestones/7", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"state":"closed"}`, string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, newTestGitHubGateway(server.URL).CloseMilestone(context.Background(), "example", "core", 7))
}

func TestGitHubGateway_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"state":"closed"}`, string(body))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, newTestGitHubGateway(server.URL).CloseMilestone(context.Background(), "example", "core", 7))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGitHubGateway_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "Validation Failed"}`))
	}))
	defer server.Close()

	err := newTestGitHubGateway(server.URL).CloseMilestone(context.Background(), "example", "core", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestGitHubGateway_RateLimitExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "1700000000")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestGitHubGateway(server.URL).FindMilestone(context.Background(), "example", "core", "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestGitHubGateway_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPGitHubGateway(server.URL, "t", nil).FindMilestone(ctx, "example", "core", "1.0.0")
	assert.Error(t, err)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 1*time.Second, calculateBackoff(0))
	assert.Equal(t, 4*time.Second, calculateBackoff(2))
	assert.Equal(t, maxBackoff, calculateBackoff(10))
}
