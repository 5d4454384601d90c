// Package config loads the server configuration from the environment.
//
// Values come from, in order of precedence:
//  1. Process environment variables
//  2. A .env file in the working directory (optional)
//  3. Defaults
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration, grouped by concern.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Google    GoogleConfig
	Gemini    GeminiConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Path         string
	MaxOpenConns int
}

// AuthConfig configures the tokens this server issues.
type AuthConfig struct {
	JWTSecret            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
}

// GoogleConfig holds the OAuth client registered with Google. ClientID is
// also the audience every ID token must carry.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// GeminiConfig configures the embedding API. An empty APIKey disables
// embeddings.
type GeminiConfig struct {
	APIKey string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig bounds how often one user may create bookmarks, since
// each creation fetches a remote page.
type RateLimitConfig struct {
	BookmarkCreateRPS   float64
	BookmarkCreateBurst int
}

type LogConfig struct {
	Level slog.Level
}

// Load reads the optional .env file and then builds a Config from the
// process environment.
func Load() (*Config, error) {
	// A missing .env file is normal in production.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config using lookup to resolve each key.
// All problems are reported together.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	p := parser{lookup: lookup}

	cfg := &Config{
		Server: ServerConfig{
			Port: p.integer("PORT", 8080),
		},
		Database: DatabaseConfig{
			Path:         p.str("DB_PATH", "data/tobimarks.db"),
			MaxOpenConns: p.integer("DB_MAX_OPEN_CONNS", 20),
		},
		Auth: AuthConfig{
			JWTSecret:            p.str("JWT_SECRET", ""),
			AccessTokenDuration:  p.duration("JWT_EXPIRES_IN", 15*time.Minute),
			RefreshTokenDuration: p.duration("REFRESH_TOKEN_EXPIRES_IN", 30*24*time.Hour),
		},
		Google: GoogleConfig{
			ClientID:     p.str("GOOGLE_CLIENT_ID", ""),
			ClientSecret: p.str("GOOGLE_CLIENT_SECRET", ""),
			CallbackURL:  p.str("GOOGLE_CALLBACK_URL", ""),
		},
		Gemini: GeminiConfig{
			APIKey: p.str("GEMINI_API_KEY", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: p.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		RateLimit: RateLimitConfig{
			BookmarkCreateRPS:   p.number("BOOKMARK_CREATE_RPS", 1),
			BookmarkCreateBurst: p.integer("BOOKMARK_CREATE_BURST", 10),
		},
		Log: LogConfig{
			Level: p.level("LOG_LEVEL", slog.LevelInfo),
		},
	}

	if cfg.Google.CallbackURL == "" {
		cfg.Google.CallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/google/callback", cfg.Server.Port)
	}

	p.check(len(cfg.Auth.JWTSecret) >= 16, "JWT_SECRET must be at least 16 characters")
	p.check(cfg.Google.ClientID != "", "GOOGLE_CLIENT_ID is required")
	p.check(cfg.Server.Port > 0 && cfg.Server.Port < 65536, "PORT must be between 1 and 65535")
	p.check(cfg.Database.MaxOpenConns > 0, "DB_MAX_OPEN_CONNS must be positive")
	p.check(cfg.Auth.AccessTokenDuration > 0, "JWT_EXPIRES_IN must be positive")
	p.check(cfg.RateLimit.BookmarkCreateRPS > 0, "BOOKMARK_CREATE_RPS must be positive")
	p.check(cfg.RateLimit.BookmarkCreateBurst > 0, "BOOKMARK_CREATE_BURST must be positive")

	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// OAuthEnabled reports whether the browser sign-in flow can be offered.
func (c *Config) OAuthEnabled() bool {
	return c.Google.ClientSecret != ""
}

// parser collects errors instead of stopping at the first bad value.
type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) str(key, def string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (p *parser) number(key string, def float64) float64 {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid number %q", key, v))
		return def
	}
	return f
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

func (p *parser) list(key string, def []string) []string {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid log level %q", key, v))
		return def
	}
	return l
}

func (p *parser) check(ok bool, msg string) {
	if !ok {
		p.errs = append(p.errs, errors.New(msg))
	}
}
