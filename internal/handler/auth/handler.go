package auth

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/survey-chat/backend/internal/model/user"
	authService "github.com/zhouzirui/survey-chat/backend/internal/service/auth"
	sessionService "github.com/zhouzirui/survey-chat/backend/internal/service/session"
	"github.com/zhouzirui/survey-chat/backend/pkg/utils"
)

const (
	stateCookieName = "oauth_state"
	stateCookiePath = "/auth"
	stateMaxAge     = 600
)

// Authenticator runs the provider side of the login.
type Authenticator interface {
	AuthCodeURL(state string) string
	Complete(ctx context.Context, code string) (user.Profile, error)
}

// Handler 认证相关的HTTP处理器
type Handler struct {
	auth      Authenticator
	sessions  *sessionService.Manager
	clientURL string
	secure    bool
}

// New 创建认证处理器。auth 为 nil 时登录入口返回 503。
func New(auth Authenticator, sessions *sessionService.Manager, clientURL string, secure bool) *Handler {
	return &Handler{
		auth:      auth,
		sessions:  sessions,
		clientURL: clientURL,
		secure:    secure,
	}
}

// RegisterRoutes 注册认证相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/google", h.handleGoogleLogin)
	r.Get("/google/callback", h.handleGoogleCallback)
	r.Get("/logout", h.handleLogout)
	r.Get("/status", h.handleStatus)
}

type statusResponse struct {
	IsAuthenticated bool          `json:"isAuthenticated"`
	User            *user.Profile `json:"user"`
}

// handleGoogleLogin 跳转到 Google 授权页
func (h *Handler) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "google login unavailable")
		return
	}

	state, err := authService.NewState()
	if err != nil {
		log.Printf("[auth] %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "could not start login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     stateCookiePath,
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
}

// handleGoogleCallback 完成授权码交换并建立会话
func (h *Handler) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "google login unavailable")
		return
	}

	if !h.consumeState(w, r) {
		log.Printf("[auth] callback rejected: state mismatch")
		h.redirectToClient(w, r, "/login")
		return
	}

	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		log.Printf("[auth] provider returned error: %s", providerErr)
		h.redirectToClient(w, r, "/login")
		return
	}

	profile, err := h.auth.Complete(r.Context(), query.Get("code"))
	if err != nil {
		log.Printf("[auth] google callback failed: %v", err)
		h.redirectToClient(w, r, "/login")
		return
	}
	log.Printf("[auth] google login id=%s name=%q email=%q", profile.ID, profile.DisplayName, profile.PrimaryEmail())

	if _, err := h.sessions.Start(r.Context(), w, r, profile); err != nil {
		log.Printf("[auth] could not start session: %v", err)
		h.redirectToClient(w, r, "/login")
		return
	}

	h.redirectToClient(w, r, "/survey-designer")
}

// handleLogout 销毁会话并清除 cookie
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	current, err := h.sessions.Load(r)
	switch {
	case errors.Is(err, sessionService.ErrNoSession):
		// nothing stored, only the cookie needs clearing
	case err != nil:
		log.Printf("[auth] logout: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Could not log out")
		return
	default:
		if err := h.sessions.Destroy(r.Context(), current.ID); err != nil {
			log.Printf("[auth] logout: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Could not destroy session")
			return
		}
	}

	h.sessions.ClearCookie(w)
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleStatus 返回当前登录状态
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	current, ok := sessionService.FromContext(r.Context())
	if !ok || !current.Authenticated() {
		utils.RespondJSON(w, http.StatusUnauthorized, statusResponse{})
		return
	}

	utils.RespondJSON(w, http.StatusOK, statusResponse{
		IsAuthenticated: true,
		User:            current.User,
	})
}

// consumeState compares the state cookie with the callback parameter and expires the cookie.
func (h *Handler) consumeState(w http.ResponseWriter, r *http.Request) bool {
	c, err := r.Cookie(stateCookieName)
	if err != nil {
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Path:   stateCookiePath,
		MaxAge: -1,
	})
	state := r.URL.Query().Get("state")
	return c.Value != "" && c.Value == state
}

func (h *Handler) redirectToClient(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, h.clientURL+path, http.StatusFound)
}
