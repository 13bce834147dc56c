package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/survey-chat/backend/internal/config"
	"github.com/zhouzirui/survey-chat/backend/internal/handler"
	authHandler "github.com/zhouzirui/survey-chat/backend/internal/handler/auth"
	sessionModel "github.com/zhouzirui/survey-chat/backend/internal/model/session"
	"github.com/zhouzirui/survey-chat/backend/internal/service/ai"
	authService "github.com/zhouzirui/survey-chat/backend/internal/service/auth"
	"github.com/zhouzirui/survey-chat/backend/internal/service/chat"
	sessionService "github.com/zhouzirui/survey-chat/backend/internal/service/session"
	"github.com/zhouzirui/survey-chat/backend/internal/storage/sqlite"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

// run 返回错误而不是直接退出，确保 defer 的存储关闭得以执行。
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, closeStore, err := newSessionStore(cfg.Session)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer func() {
		if err := closeStore.Close(); err != nil {
			log.Printf("warning: failed to close session store: %v", err)
		}
	}()

	if cfg.Session.GeneratedSecret {
		log.Println("warning: SESSION_SECRET not set, using a random secret; sessions end on restart")
	}
	sessions, err := sessionService.NewManager(store, sessionService.Options{
		Secret:     cfg.Session.Secret,
		CookieName: cfg.Session.CookieName,
		Domain:     cfg.Session.CookieDomain,
		Secure:     cfg.Session.Secure,
		TTL:        cfg.Session.TTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}
	go sessions.RunSweeper(ctx, cfg.Session.SweepInterval)

	// nil keeps the login routes answering 503 instead of redirecting to a broken consent page.
	var authn authHandler.Authenticator
	if cfg.Auth.Enabled() {
		authn = authService.NewGoogleService(cfg.Auth)
		log.Printf("Google OAuth enabled, callback=%s", cfg.Auth.CallbackURL)
	} else {
		log.Println("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not configured, skipping Google login")
	}

	generator, err := newGenerator(ctx, cfg.Inference)
	if err != nil {
		// chat keeps working: canned replies still match, everything else gets the error fallback
		log.Printf("warning: failed to initialize text generator: %v", err)
	}

	chatOpts := chat.DefaultOptions()
	chatOpts.Timeout = cfg.Inference.Timeout
	processor := chat.NewService(generator, chatOpts)

	router := handler.NewRouter(cfg.Server, sessions, authn, processor)

	log.Printf("environment=%s client=%s", cfg.Server.Environment, cfg.Server.ClientURL)
	return startServer(ctx, cfg.Server, router)
}

func newSessionStore(cfg config.SessionConfig) (sessionModel.Store, io.Closer, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("session store: sqlite (%s)", cfg.DBPath)
		return store, store, nil
	default:
		log.Println("session store: memory")
		return sessionModel.NewMemoryStore(), closerFunc(func() error { return nil }), nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newGenerator(ctx context.Context, cfg config.InferenceConfig) (ai.Generator, error) {
	switch cfg.Provider {
	case config.ProviderArk:
		gen, err := ai.NewArkGenerator(ctx, cfg.Ark)
		if err != nil {
			return nil, err
		}
		log.Printf("text generation: ark model=%s", cfg.Ark.Model)
		return gen, nil
	case config.ProviderHuggingFace:
		if cfg.HuggingFace.APIKey == "" {
			log.Println("warning: HUGGINGFACE_API_KEY not set, anonymous requests are heavily rate limited")
		}
		log.Printf("text generation: huggingface model=%s", cfg.HuggingFace.Model)
		return ai.NewHuggingFaceClient(cfg.HuggingFace, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown inference provider %q", cfg.Provider)
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("survey-chat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
