package config

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

const (
	// EnvProduction 打开安全 cookie 与 HTTPS 跳转。
	EnvProduction  = "production"
	EnvDevelopment = "development"

	ProviderHuggingFace = "huggingface"
	ProviderArk         = "ark"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// ErrSessionSecretRequired is returned when production runs without SESSION_SECRET.
var ErrSessionSecretRequired = errors.New("SESSION_SECRET is required in production")

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Session   SessionConfig
	Inference InferenceConfig
}

// rawEnv mirrors the process environment before defaults are derived.
type rawEnv struct {
	Port        string `env:"PORT" envDefault:"80"`
	AppEnv      string `env:"APP_ENV"`
	NodeEnv     string `env:"NODE_ENV"`
	Domain      string `env:"DOMAIN"`
	ClientURL   string `env:"CLIENT_URL" envDefault:"http://localhost:3000"`
	CallbackURL string `env:"GOOGLE_CALLBACK_URL"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	SessionSecret        string        `env:"SESSION_SECRET"`
	SessionCookieName    string        `env:"SESSION_COOKIE_NAME" envDefault:"survey.sid"`
	CookieDomain         string        `env:"COOKIE_DOMAIN"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionStore         string        `env:"SESSION_STORE" envDefault:"memory"`
	SessionDBPath        string        `env:"SESSION_DB_PATH" envDefault:"sessions.db"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"10m"`

	InferenceProvider string        `env:"INFERENCE_PROVIDER" envDefault:"huggingface"`
	InferenceTimeout  time.Duration `env:"INFERENCE_TIMEOUT" envDefault:"0s"`
	HFAPIKey          string        `env:"HUGGINGFACE_API_KEY"`
	HFModel           string        `env:"HF_MODEL" envDefault:"distilgpt2"`
	HFBaseURL         string        `env:"HF_BASE_URL" envDefault:"https://api-inference.huggingface.co/models"`

	ArkAPIKey    string `env:"ARK_API_KEY"`
	ArkAccessKey string `env:"ARK_ACCESS_KEY"`
	ArkSecretKey string `env:"ARK_SECRET_KEY"`
	ArkModel     string `env:"ARK_MODEL"`
	ArkBaseURL   string `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	ArkRegion    string `env:"ARK_REGION" envDefault:"cn-beijing"`
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	server, err := loadServerConfig(raw)
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig(raw, server)
	if err != nil {
		return nil, err
	}

	inference, err := loadInferenceConfig(raw)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Auth:      loadAuthConfig(raw, server),
		Session:   session,
		Inference: inference,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr        string
	Environment string
	Domain      string
	ClientURL   string
}

// Production reports whether the service runs behind the public domain.
func (c ServerConfig) Production() bool {
	return c.Environment == EnvProduction
}

// loadServerConfig 解析服务器监听地址与运行环境。
func loadServerConfig(raw rawEnv) (ServerConfig, error) {
	addr, err := parseAddr(raw.Port)
	if err != nil {
		return ServerConfig{}, err
	}

	environment := strings.ToLower(strings.TrimSpace(firstNonEmpty(raw.AppEnv, raw.NodeEnv)))
	if environment == "" {
		environment = EnvDevelopment
	}

	clientURL := strings.TrimRight(strings.TrimSpace(raw.ClientURL), "/")
	if _, err := url.Parse(clientURL); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid CLIENT_URL value %q: %w", raw.ClientURL, err)
	}

	return ServerConfig{
		Addr:        addr,
		Environment: environment,
		Domain:      strings.TrimSpace(raw.Domain),
		ClientURL:   clientURL,
	}, nil
}

func parseAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "80"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// AuthConfig 描述 Google OAuth 客户端配置。
type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	CallbackURL        string
}

// Enabled 表示是否提供了 OAuth 客户端凭证。
func (c AuthConfig) Enabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func loadAuthConfig(raw rawEnv, server ServerConfig) AuthConfig {
	callback := strings.TrimSpace(raw.CallbackURL)
	if callback == "" {
		if server.Production() && server.Domain != "" {
			callback = "https://" + server.Domain + "/auth/google/callback"
		} else {
			callback = "http://localhost:5000/auth/google/callback"
		}
	}

	return AuthConfig{
		GoogleClientID:     strings.TrimSpace(raw.GoogleClientID),
		GoogleClientSecret: strings.TrimSpace(raw.GoogleClientSecret),
		CallbackURL:        callback,
	}
}

// SessionConfig 描述会话 cookie 与存储配置。
type SessionConfig struct {
	Secret        []byte
	CookieName    string
	CookieDomain  string
	Secure        bool
	TTL           time.Duration
	Store         string
	DBPath        string
	SweepInterval time.Duration
	// GeneratedSecret is true when no SESSION_SECRET was configured.
	GeneratedSecret bool
}

func loadSessionConfig(raw rawEnv, server ServerConfig) (SessionConfig, error) {
	cfg := SessionConfig{
		CookieName:    strings.TrimSpace(raw.SessionCookieName),
		Secure:        server.Production(),
		TTL:           raw.SessionTTL,
		Store:         strings.ToLower(strings.TrimSpace(raw.SessionStore)),
		DBPath:        strings.TrimSpace(raw.SessionDBPath),
		SweepInterval: raw.SessionSweepInterval,
	}

	if cfg.TTL <= 0 {
		return SessionConfig{}, fmt.Errorf("invalid SESSION_TTL value %q", raw.SessionTTL)
	}

	switch cfg.Store {
	case StoreMemory, StoreSQLite:
	default:
		return SessionConfig{}, fmt.Errorf("invalid SESSION_STORE value %q", raw.SessionStore)
	}

	if server.Production() {
		cfg.CookieDomain = strings.TrimSpace(raw.CookieDomain)
		if cfg.CookieDomain == "" && server.Domain != "" {
			cfg.CookieDomain = "." + server.Domain
		}
	}

	secret := strings.TrimSpace(raw.SessionSecret)
	switch {
	case secret != "":
		cfg.Secret = []byte(secret)
	case server.Production():
		return SessionConfig{}, ErrSessionSecretRequired
	default:
		// 开发环境下每次启动生成随机密钥，重启后旧 cookie 失效。
		generated := make([]byte, 32)
		if _, err := rand.Read(generated); err != nil {
			return SessionConfig{}, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.Secret = generated
		cfg.GeneratedSecret = true
	}

	return cfg, nil
}

// InferenceConfig 描述文本生成后端配置。
type InferenceConfig struct {
	Provider    string
	Timeout     time.Duration
	HuggingFace HuggingFaceConfig
	Ark         ArkConfig
}

// HuggingFaceConfig 描述 Hugging Face Inference API。
type HuggingFaceConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ArkConfig 描述大模型相关配置。
type ArkConfig struct {
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
}

// Enabled 表示是否提供了必需的密钥。
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c ArkConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.Model,
	})
}

func loadInferenceConfig(raw rawEnv) (InferenceConfig, error) {
	provider := strings.ToLower(strings.TrimSpace(raw.InferenceProvider))
	switch provider {
	case ProviderHuggingFace, ProviderArk:
	default:
		return InferenceConfig{}, fmt.Errorf("invalid INFERENCE_PROVIDER value %q", raw.InferenceProvider)
	}

	if raw.InferenceTimeout < 0 {
		return InferenceConfig{}, fmt.Errorf("invalid INFERENCE_TIMEOUT value %q", raw.InferenceTimeout)
	}

	return InferenceConfig{
		Provider: provider,
		Timeout:  raw.InferenceTimeout,
		HuggingFace: HuggingFaceConfig{
			APIKey:  strings.TrimSpace(raw.HFAPIKey),
			Model:   strings.TrimSpace(raw.HFModel),
			BaseURL: strings.TrimRight(strings.TrimSpace(raw.HFBaseURL), "/"),
		},
		Ark: ArkConfig{
			APIKey:    strings.TrimSpace(raw.ArkAPIKey),
			AccessKey: strings.TrimSpace(raw.ArkAccessKey),
			SecretKey: strings.TrimSpace(raw.ArkSecretKey),
			Model:     strings.TrimSpace(raw.ArkModel),
			BaseURL:   raw.ArkBaseURL,
			Region:    raw.ArkRegion,
		},
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
