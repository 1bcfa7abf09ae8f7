// Package server is the composition root: it builds every dependency from
// the config, mounts the routes and runs the HTTP server until shutdown.
//
// DEPENDENCY GRAPH:
//
//	sqlite.DB ──→ session.Session ──→ Profile/Connection/Message/EventHandler
//	          └─→ service.AuthService ─→ AuthHandler, ProfileHandler
//	auth.TokenService ─→ AuthService, RequireAuth
//
// Each layer receives interfaces or the narrow type it needs; nothing below
// the handlers knows about HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/common-ground/internal/auth"
	"github.com/sakif/common-ground/internal/config"
	"github.com/sakif/common-ground/internal/handler"
	"github.com/sakif/common-ground/internal/middleware"
	sqliteRepo "github.com/sakif/common-ground/internal/repository/sqlite"
	"github.com/sakif/common-ground/internal/service"
	"github.com/sakif/common-ground/internal/session"
)

// Server owns the router, the database connection and the in-memory
// session loaded from it.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	session *session.Session
	limiter *middleware.RateLimiter
}

// New opens the database, loads the social state into a session and wires
// the routes. The caller must call Close (Start does it on return).
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sess := session.New(db, logger)
	if err := sess.Load(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading social state: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		session: sess,
		limiter: middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, logger),
	}
	s.setupRoutes(tokens, auth.NewPasswordService())
	return s, nil
}

// setupRoutes mounts every route.
//
// ROUTES:
//
//	GET  /health
//	POST /auth/register | /auth/login | /auth/logout
//	GET  /auth/github/login | /auth/github/callback   (when configured)
//	/api (token required):
//	  GET/PUT /me, GET /users/{id}, GET /matches, GET /notifications
//	  GET/POST /connections, POST /connections/{id}/accept|reject
//	  GET /threads, GET /threads/{userId}, POST /threads/{userId}/messages|read
//	  POST /messages/read
//	  GET/POST /events, GET /events/{id}, POST /events/{id}/join
//
// MIDDLEWARE ORDER MATTERS:
// RequestID first so every log line has it, RealIP before the rate limiter
// so the limiter keys on the client rather than the proxy, Recoverer inside
// the logger so a panic is logged as a 500.
func (s *Server) setupRoutes(tokens *auth.TokenService, passwords *auth.PasswordService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(s.limiter.Middleware)

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}

	accounts := service.NewAuthService(s.db, tokens, passwords, s.logger)
	authHandler := handler.NewAuthHandler(accounts, tokens, github, s.config.SecureCookies, s.logger)
	profiles := handler.NewProfileHandler(s.session, accounts, s.logger)
	connections := handler.NewConnectionHandler(s.session, s.logger)
	messages := handler.NewMessageHandler(s.session, s.logger)
	events := handler.NewEventHandler(s.session, s.logger)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/me", profiles.HandleMe)
		r.Put("/me", profiles.HandleSaveProfile)
		r.Get("/users/{id}", profiles.HandleGetUser)
		r.Get("/matches", profiles.HandleMatches)
		r.Get("/notifications", profiles.HandleNotifications)

		r.Get("/connections", connections.HandleList)
		r.Post("/connections", connections.HandleRequest)
		r.Post("/connections/{id}/accept", connections.HandleAccept)
		r.Post("/connections/{id}/reject", connections.HandleReject)

		r.Get("/threads", messages.HandleThreads)
		r.Get("/threads/{userId}", messages.HandleConversation)
		r.Post("/threads/{userId}/messages", messages.HandleSend)
		r.Post("/threads/{userId}/read", messages.HandleReadConversation)
		r.Post("/messages/read", messages.HandleMarkRead)

		r.Get("/events", events.HandleList)
		r.Post("/events", events.HandleCreate)
		r.Get("/events/{id}", events.HandleGet)
		r.Post("/events/{id}/join", events.HandleJoin)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until ctx is cancelled, then shuts down gracefully:
//  1. stop accepting new connections
//  2. wait up to ShutdownTimeout for in-flight requests
//  3. close the database (flushes the WAL and releases the file lock)
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go s.limiter.Run(cleanupCtx, 10*time.Minute)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("github", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}
