package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/zhouzirui/survey-chat/backend/internal/config"
	"github.com/zhouzirui/survey-chat/backend/internal/model/user"
)

const (
	ProviderGoogle = "google"

	// GoogleUserInfoURL is the OpenID Connect userinfo endpoint.
	GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

var (
	ErrMissingCode    = errors.New("authorization code is required")
	ErrProfileRequest = errors.New("profile request failed")
)

// Service 封装 Google OAuth 授权码流程。
type Service struct {
	oauth       *oauth2.Config
	userInfoURL string
}

// NewGoogleService builds a Service from the Google client credentials.
func NewGoogleService(cfg config.AuthConfig) *Service {
	return New(&oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.CallbackURL,
		Scopes:       []string{"profile", "email"},
		Endpoint:     google.Endpoint,
	}, GoogleUserInfoURL)
}

// New wraps an explicit OAuth2 config; tests point it at local servers.
func New(oauthCfg *oauth2.Config, userInfoURL string) *Service {
	return &Service{oauth: oauthCfg, userInfoURL: userInfoURL}
}

// AuthCodeURL returns the provider consent URL carrying state.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// Complete exchanges code for a token and fetches the user's profile.
func (s *Service) Complete(ctx context.Context, code string) (user.Profile, error) {
	if strings.TrimSpace(code) == "" {
		return user.Profile{}, ErrMissingCode
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return user.Profile{}, fmt.Errorf("exchange code: %w", err)
	}

	return s.fetchProfile(ctx, s.oauth.Client(ctx, token))
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func (s *Service) fetchProfile(ctx context.Context, client *http.Client) (user.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return user.Profile{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return user.Profile{}, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return user.Profile{}, fmt.Errorf("%w: status %d", ErrProfileRequest, resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return user.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if info.Sub == "" {
		return user.Profile{}, fmt.Errorf("%w: missing subject", ErrProfileRequest)
	}

	return toProfile(info), nil
}

func toProfile(info googleUserInfo) user.Profile {
	profile := user.Profile{
		ID:          info.Sub,
		Provider:    ProviderGoogle,
		DisplayName: firstNonEmpty(info.Name, strings.TrimSpace(info.GivenName+" "+info.FamilyName), info.Email),
		Name: user.Name{
			FamilyName: info.FamilyName,
			GivenName:  info.GivenName,
		},
	}
	if info.Email != "" {
		profile.Emails = []user.Email{{Value: info.Email, Verified: info.EmailVerified}}
	}
	if info.Picture != "" {
		profile.Photos = []user.Photo{{Value: info.Picture}}
	}
	return profile
}

// NewState returns a random value for the OAuth state parameter.
func NewState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
