// Package server is the composition root: it builds every dependency from
// the configuration, wires handlers to routes and runs the HTTP server
// until it is told to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tobimarks/tobimarks-api/internal/auth"
	"github.com/tobimarks/tobimarks-api/internal/config"
	"github.com/tobimarks/tobimarks-api/internal/embedding"
	"github.com/tobimarks/tobimarks-api/internal/handler"
	"github.com/tobimarks/tobimarks-api/internal/metadata"
	"github.com/tobimarks/tobimarks-api/internal/middleware"
	"github.com/tobimarks/tobimarks-api/internal/ratelimit"
	sqliteRepo "github.com/tobimarks/tobimarks-api/internal/repository/sqlite"
	"github.com/tobimarks/tobimarks-api/internal/service"
	"github.com/tobimarks/tobimarks-api/internal/validation"
)

// Server owns the database pool and the rate limiter; both are released
// when Start returns or Close is called.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *ratelimit.KeyedRateLimiter
}

// New opens the database and wires every route. Optional integrations are
// enabled by configuration: the browser sign-in flow needs
// GOOGLE_CLIENT_SECRET, tag embeddings need GEMINI_API_KEY.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(ctx, sqliteRepo.Options{
		Path:         cfg.Database.Path,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		limiter: ratelimit.New(cfg.RateLimit.BookmarkCreateRPS, cfg.RateLimit.BookmarkCreateBurst),
	}

	if err := s.setupRoutes(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the rate limiter and the database pool.
func (s *Server) Close() error {
	s.limiter.Stop()
	return s.db.Close()
}

func (s *Server) setupRoutes(ctx context.Context) error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenDuration)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// Both stay nil interfaces when the browser flow is off.
	var (
		exchanger service.CodeExchanger
		authURLer handler.AuthURLer
	)
	if cfg.OAuthEnabled() {
		google := auth.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL)
		exchanger, authURLer = google, google
	} else {
		s.logger.Warn("GOOGLE_CLIENT_SECRET not set, browser sign-in is disabled")
	}

	var embedder embedding.Embedder
	if cfg.Gemini.APIKey != "" {
		gemini, err := embedding.NewGeminiEmbedder(ctx, cfg.Gemini.APIKey)
		if err != nil {
			return err
		}
		embedder = gemini
	} else {
		s.logger.Warn("GEMINI_API_KEY not set, tags are stored without embeddings")
	}

	validator := validation.New()

	authService := service.NewAuthService(s.db, auth.NewIDTokenVerifier(cfg.Google.ClientID), exchanger, tokens, cfg.Auth.RefreshTokenDuration, s.logger)
	userService := service.NewUserService(s.db.Users())
	bookmarkService := service.NewBookmarkService(s.db, metadata.NewExtractor(metadata.Options{}), s.logger)
	tagService := service.NewTagService(s.db, embedder, s.logger)

	authHandler := handler.NewAuthHandler(authService, authURLer, validator, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	bookmarkHandler := handler.NewBookmarkHandler(bookmarkService, validator, s.logger)
	tagHandler := handler.NewTagHandler(tagService, validator, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	// RequestID runs before Logger so each log line carries the id.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	s.router.Get("/healthz", healthHandler.HandleHealth)

	requireAuth := auth.RequireAuth(tokens, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/google", authHandler.HandleGoogle)
			r.Post("/refresh", authHandler.HandleRefresh)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(requireAuth).Post("/logout-all", authHandler.HandleLogoutAll)
			if authURLer != nil {
				r.Get("/google/login", authHandler.HandleGoogleLogin)
				r.Get("/google/callback", authHandler.HandleGoogleCallback)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/users/me", userHandler.HandleMe)

			r.Route("/bookmarks", func(r chi.Router) {
				r.Get("/", bookmarkHandler.HandleList)
				r.With(ratelimit.Middleware(s.limiter, s.logger)).Post("/", bookmarkHandler.HandleCreate)
				r.Patch("/{id}", bookmarkHandler.HandleUpdate)
				r.Delete("/{id}", bookmarkHandler.HandleDelete)
				r.Patch("/{id}/favorite", bookmarkHandler.HandleFavorite)
				r.Delete("/{id}/favorite", bookmarkHandler.HandleUnfavorite)
			})

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", tagHandler.HandleList)
				r.Post("/", tagHandler.HandleCreate)
				r.Patch("/{id}", tagHandler.HandleUpdate)
				r.Delete("/{id}", tagHandler.HandleDelete)
			})
		})
	})

	return nil
}

// Start serves until SIGINT or SIGTERM, then gives in-flight requests 30
// seconds to finish before closing the database.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing database", slog.String("error", err.Error()))
		}
	}()

	// WriteTimeout leaves room for the metadata fetch on bookmark creation.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
