package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	sessionModel "github.com/zhouzirui/survey-chat/backend/internal/model/session"
	"github.com/zhouzirui/survey-chat/backend/internal/model/user"
)

// ErrNoSession means the request carries no usable session cookie.
var ErrNoSession = errors.New("no session")

// Options configures the session cookie.
type Options struct {
	Secret     []byte
	CookieName string
	Domain     string
	Secure     bool
	TTL        time.Duration
}

// Manager 负责签发、校验与销毁会话 cookie。
type Manager struct {
	store sessionModel.Store
	opts  Options
	now   func() time.Time
}

type cookieClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// NewManager builds a Manager on top of the given store.
func NewManager(store sessionModel.Store, opts Options) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if len(opts.Secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	if opts.CookieName == "" {
		opts.CookieName = "survey.sid"
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &Manager{store: store, opts: opts, now: time.Now}, nil
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string {
	return m.opts.CookieName
}

// Start replaces any existing session with a fresh one carrying profile and sets the cookie.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, r *http.Request, profile user.Profile) (sessionModel.Session, error) {
	if previous, err := m.Load(r); err == nil {
		if err := m.store.Destroy(ctx, previous.ID); err != nil {
			log.Printf("[session] failed to drop previous session: %v", err)
		}
	}

	now := m.now().UTC()
	item := sessionModel.Session{
		ID:        uuid.NewString(),
		User:      &profile,
		CreatedAt: now,
		ExpiresAt: now.Add(m.opts.TTL),
	}
	if err := m.store.Set(ctx, item); err != nil {
		return sessionModel.Session{}, fmt.Errorf("save session: %w", err)
	}

	token, err := m.sign(item)
	if err != nil {
		return sessionModel.Session{}, err
	}
	http.SetCookie(w, m.cookie(token, int(m.opts.TTL/time.Second)))
	return item, nil
}

// Load resolves the session referenced by the request cookie.
// ErrNoSession is returned for a missing, forged, expired or unknown session.
func (m *Manager) Load(r *http.Request) (sessionModel.Session, error) {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil || c.Value == "" {
		return sessionModel.Session{}, ErrNoSession
	}

	id, err := m.verify(c.Value)
	if err != nil {
		return sessionModel.Session{}, ErrNoSession
	}

	item, err := m.store.Get(r.Context(), id)
	if errors.Is(err, sessionModel.ErrNotFound) {
		return sessionModel.Session{}, ErrNoSession
	}
	if err != nil {
		return sessionModel.Session{}, fmt.Errorf("load session: %w", err)
	}
	return item, nil
}

// Destroy removes the session from the store. The cookie is left untouched.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Destroy(ctx, id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// ClearCookie expires the session cookie on the client.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1))
}

// RunSweeper periodically drops expired sessions until ctx is done.
// Stores without bulk expiry support are left alone.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	sweeper, ok := m.store.(sessionModel.Sweeper)
	if !ok || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			removed, err := sweeper.Sweep(ctx, t)
			if err != nil {
				log.Printf("[session] sweep failed: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("[session] swept %d expired sessions", removed)
			}
		}
	}
}

func (m *Manager) sign(item sessionModel.Session) (string, error) {
	claims := cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(item.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(item.ExpiresAt),
		},
		SessionID: item.ID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.opts.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

func (m *Manager) verify(value string) (string, error) {
	token, err := jwt.ParseWithClaims(value, &cookieClaims{}, func(t *jwt.Token) (any, error) {
		return m.opts.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", fmt.Errorf("parse session cookie: %w", err)
	}

	claims, ok := token.Claims.(*cookieClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", errors.New("invalid session cookie")
	}
	return claims.SessionID, nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if m.opts.Secure {
		// 前后端跨站部署时需要 SameSite=None。
		c.SameSite = http.SameSiteNoneMode
		c.Domain = m.opts.Domain
	}
	return c
}
