package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/zhouzirui/survey-chat/backend/internal/config"
)

func newProviderServer(t *testing.T, userInfoStatus int, userInfo string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userInfoStatus)
		fmt.Fprint(w, userInfo)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestService(server *httptest.Server) *Service {
	return New(&oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:5000/auth/google/callback",
		Scopes:       []string{"profile", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   server.URL + "/auth",
			TokenURL:  server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, server.URL+"/userinfo")
}

func TestCompleteBuildsProfile(t *testing.T) {
	server := newProviderServer(t, http.StatusOK, `{
		"sub": "1234",
		"name": "Ada Lovelace",
		"given_name": "Ada",
		"family_name": "Lovelace",
		"picture": "https://example.com/ada.png",
		"email": "ada@example.com",
		"email_verified": true
	}`)

	profile, err := newTestService(server).Complete(context.Background(), "good-code")
	require.NoError(t, err)

	assert.Equal(t, "1234", profile.ID)
	assert.Equal(t, ProviderGoogle, profile.Provider)
	assert.Equal(t, "Ada Lovelace", profile.DisplayName)
	assert.Equal(t, "Lovelace", profile.Name.FamilyName)
	assert.Equal(t, "ada@example.com", profile.PrimaryEmail())
	require.Len(t, profile.Photos, 1)
}

func TestCompleteDisplayNameFallsBackToEmail(t *testing.T) {
	server := newProviderServer(t, http.StatusOK, `{"sub":"1","email":"x@example.com"}`)

	profile, err := newTestService(server).Complete(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "x@example.com", profile.DisplayName)
}

func TestCompleteFailures(t *testing.T) {
	t.Run("missing code", func(t *testing.T) {
		server := newProviderServer(t, http.StatusOK, `{}`)
		_, err := newTestService(server).Complete(context.Background(), " ")
		assert.True(t, errors.Is(err, ErrMissingCode))
	})

	t.Run("bad code", func(t *testing.T) {
		server := newProviderServer(t, http.StatusOK, `{}`)
		_, err := newTestService(server).Complete(context.Background(), "bad-code")
		assert.Error(t, err)
	})

	t.Run("profile status", func(t *testing.T) {
		server := newProviderServer(t, http.StatusForbidden, `{}`)
		_, err := newTestService(server).Complete(context.Background(), "good-code")
		assert.True(t, errors.Is(err, ErrProfileRequest))
	})

	t.Run("missing subject", func(t *testing.T) {
		server := newProviderServer(t, http.StatusOK, `{"name":"nobody"}`)
		_, err := newTestService(server).Complete(context.Background(), "good-code")
		assert.True(t, errors.Is(err, ErrProfileRequest))
	})
}

func TestGoogleAuthCodeURL(t *testing.T) {
	svc := NewGoogleService(config.AuthConfig{
		GoogleClientID:     "cid",
		GoogleClientSecret: "csecret",
		CallbackURL:        "https://api.example.com/auth/google/callback",
	})

	raw := svc.AuthCodeURL("state-1")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "profile email", q.Get("scope"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "https://api.example.com/auth/google/callback", q.Get("redirect_uri"))
}

func TestNewStateIsRandom(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 32)
}
