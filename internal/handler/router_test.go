package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/survey-chat/backend/internal/config"
	sessionModel "github.com/zhouzirui/survey-chat/backend/internal/model/session"
	chatService "github.com/zhouzirui/survey-chat/backend/internal/service/chat"
	sessionService "github.com/zhouzirui/survey-chat/backend/internal/service/session"
)

func newTestRouter(t *testing.T, serverCfg config.ServerConfig) http.Handler {
	t.Helper()
	sessions, err := sessionService.NewManager(sessionModel.NewMemoryStore(), sessionService.Options{
		Secret: []byte("router-secret"),
		TTL:    time.Hour,
	})
	require.NoError(t, err)

	processor := chatService.NewService(nil, chatService.DefaultOptions())
	return NewRouter(serverCfg, sessions, nil, processor)
}

func TestRouterRoutes(t *testing.T) {
	r := newTestRouter(t, config.ServerConfig{Environment: config.EnvDevelopment, ClientURL: "http://localhost:3000"})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/auth/status", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.JSONEq(t, `{"isAuthenticated":false,"user":null}`, resp.Body.String())

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"who are you?"}`))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"response":"I'm an AI assistant. You can call me Bot."}`, resp.Body.String())
}

func TestRouterProductionRedirectsToHTTPS(t *testing.T) {
	r := newTestRouter(t, config.ServerConfig{
		Environment: config.EnvProduction,
		Domain:      "api.example.com",
		ClientURL:   "https://app.example.com",
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/auth/status", nil))
	assert.Equal(t, http.StatusMovedPermanently, resp.Code)
	assert.Equal(t, "https://api.example.com/auth/status", resp.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	// health checks stay on plain HTTP
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRouterProductionPreflightSkipsRedirect(t *testing.T) {
	r := newTestRouter(t, config.ServerConfig{
		Environment: config.EnvProduction,
		Domain:      "api.example.com",
		ClientURL:   "https://app.example.com",
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.NotEqual(t, http.StatusMovedPermanently, resp.Code)
	assert.Empty(t, resp.Header().Get("Location"))
	assert.Equal(t, "https://app.example.com", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header().Get("Access-Control-Allow-Credentials"))
}
