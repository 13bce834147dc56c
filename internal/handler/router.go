package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/survey-chat/backend/internal/config"
	authHandler "github.com/zhouzirui/survey-chat/backend/internal/handler/auth"
	chatHandler "github.com/zhouzirui/survey-chat/backend/internal/handler/chat"
	middlewarePkg "github.com/zhouzirui/survey-chat/backend/internal/middleware"
	sessionService "github.com/zhouzirui/survey-chat/backend/internal/service/session"
	"github.com/zhouzirui/survey-chat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
// authn may be nil when Google credentials are not configured.
func NewRouter(serverCfg config.ServerConfig, sessions *sessionService.Manager, authn authHandler.Authenticator, processor chatHandler.Processor) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// 健康检查不走 HTTPS 跳转，方便负载均衡探活。
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(app chi.Router) {
		// CORS 在前，预检请求不会被 HTTPS 跳转拦下。
		app.Use(middlewarePkg.CORS(serverCfg.ClientURL))
		if serverCfg.Production() {
			app.Use(middlewarePkg.HTTPSRedirect(serverCfg.Domain))
		}
		app.Use(sessions.Middleware)

		app.Route("/auth", func(auth chi.Router) {
			authHandler.New(authn, sessions, serverCfg.ClientURL, serverCfg.Production()).RegisterRoutes(auth)
		})

		app.Route("/api", func(api chi.Router) {
			chatHandler.New(processor, serverCfg.ClientURL).RegisterRoutes(api)
		})
	})

	return r
}
