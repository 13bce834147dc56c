package session

import (
	"time"

	"github.com/zhouzirui/survey-chat/backend/internal/model/user"
)

// Session holds the authenticated profile for the lifetime of the cookie.
type Session struct {
	ID        string        `json:"id"`
	User      *user.Profile `json:"user"`
	CreatedAt time.Time     `json:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Authenticated 表示会话中是否带有用户身份。
func (s Session) Authenticated() bool {
	return s.User != nil && s.User.Valid()
}
