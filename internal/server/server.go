package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/homesphere/homesphere/internal/auth"
	"github.com/homesphere/homesphere/internal/email"
	"github.com/homesphere/homesphere/internal/handler"
	"github.com/homesphere/homesphere/internal/middleware"
	"github.com/homesphere/homesphere/internal/store"
)

const (
	// Credential endpoints share one fixed-window budget per client IP.
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Config carries the runtime knobs the server needs beyond its collaborators.
type Config struct {
	JWTSecret            string
	TokenTTL             time.Duration
	UnlimitedTokenEmails []string
}

// Server wires stores, handlers, and middleware into a single http.Handler.
type Server struct {
	logger *slog.Logger

	tokens   *auth.TokenService
	users    *store.UserStore
	families *store.FamilyStore

	authHandler     *handler.AuthHandler
	familyHandler   *handler.FamilyHandler
	todoHandler     *handler.TodoHandler
	shoppingHandler *handler.ShoppingHandler

	limiter *middleware.RateLimiter
}

func New(db *sql.DB, emailClient *email.Client, cfg Config, logger *slog.Logger) *Server {
	users := store.NewUserStore(db)
	families := store.NewFamilyStore(db)
	todos := store.NewTodoStore(db)
	shopping := store.NewShoppingStore(db)

	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL, cfg.UnlimitedTokenEmails)

	return &Server{
		logger:          logger,
		tokens:          tokens,
		users:           users,
		families:        families,
		authHandler:     handler.NewAuthHandler(users, families, tokens, emailClient, logger),
		familyHandler:   handler.NewFamilyHandler(families, emailClient, logger),
		todoHandler:     handler.NewTodoHandler(todos, logger),
		shoppingHandler: handler.NewShoppingHandler(shopping, logger),
		limiter:         middleware.NewRateLimiter(),
	}
}

// RateLimiter exposes the limiter for periodic cleanup.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.limiter
}

// Tokens exposes the token service, mainly for tests.
func (s *Server) Tokens() *auth.TokenService {
	return s.tokens
}

// Router builds the full route table. Credential endpoints are public and
// rate limited; everything else under /api requires a bearer token.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	limited := middleware.RateLimit(s.limiter, middleware.RealIP, authRateLimit, authRateWindow)
	protected := middleware.RequireAuth(s.tokens, s.users, s.families)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public auth endpoints.
	mux.Handle("POST /api/auth/register", limited(http.HandlerFunc(s.authHandler.Register)))
	mux.Handle("POST /api/auth/login", limited(http.HandlerFunc(s.authHandler.Login)))
	mux.Handle("GET /api/auth/verify-email/{token}", http.HandlerFunc(s.authHandler.VerifyEmail))
	mux.Handle("POST /api/auth/request-password-reset", limited(http.HandlerFunc(s.authHandler.RequestPasswordReset)))
	mux.Handle("POST /api/auth/reset-password/{token}", limited(http.HandlerFunc(s.authHandler.ResetPassword)))

	// Session and profile.
	mux.Handle("POST /api/auth/logout", protected(http.HandlerFunc(s.authHandler.Logout)))
	mux.Handle("GET /api/auth/me", protected(http.HandlerFunc(s.authHandler.Me)))
	mux.Handle("PUT /api/auth/profile", protected(http.HandlerFunc(s.authHandler.UpdateProfile)))

	// Family.
	mux.Handle("POST /api/family", protected(http.HandlerFunc(s.familyHandler.Create)))
	mux.Handle("GET /api/family", protected(http.HandlerFunc(s.familyHandler.Get)))
	mux.Handle("POST /api/family/join", protected(http.HandlerFunc(s.familyHandler.Join)))
	mux.Handle("GET /api/family/{id}/members", protected(http.HandlerFunc(s.familyHandler.Members)))
	mux.Handle("POST /api/family/invite", protected(http.HandlerFunc(s.familyHandler.Invite)))
	mux.Handle("POST /api/family/invitations/accept", protected(http.HandlerFunc(s.familyHandler.AcceptInvitation)))
	mux.Handle("POST /api/family/promote", protected(http.HandlerFunc(s.familyHandler.Promote)))
	mux.Handle("POST /api/family/demote", protected(http.HandlerFunc(s.familyHandler.Demote)))
	mux.Handle("DELETE /api/family/member/{userID}", protected(http.HandlerFunc(s.familyHandler.RemoveMember)))

	// Todos.
	mux.Handle("POST /api/todos", protected(http.HandlerFunc(s.todoHandler.Create)))
	mux.Handle("GET /api/todos", protected(http.HandlerFunc(s.todoHandler.List)))
	mux.Handle("GET /api/todos/{id}", protected(http.HandlerFunc(s.todoHandler.Get)))
	mux.Handle("PUT /api/todos/{id}", protected(http.HandlerFunc(s.todoHandler.Update)))
	mux.Handle("DELETE /api/todos/{id}", protected(http.HandlerFunc(s.todoHandler.Delete)))

	// Shopping list.
	mux.Handle("POST /api/shopping", protected(http.HandlerFunc(s.shoppingHandler.Create)))
	mux.Handle("GET /api/shopping", protected(http.HandlerFunc(s.shoppingHandler.List)))
	mux.Handle("PUT /api/shopping/{id}", protected(http.HandlerFunc(s.shoppingHandler.Update)))
	mux.Handle("DELETE /api/shopping/{id}", protected(http.HandlerFunc(s.shoppingHandler.Delete)))
	mux.Handle("POST /api/shopping/{id}/check", protected(http.HandlerFunc(s.shoppingHandler.ToggleChecked)))
	mux.Handle("POST /api/shopping/clear-checked", protected(http.HandlerFunc(s.shoppingHandler.ClearChecked)))

	return middleware.RequestLogger(s.logger)(mux)
}
