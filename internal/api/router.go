package api

import (
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"

	"github.com/mcoot/shellgame/internal/api/handler"
	"github.com/mcoot/shellgame/internal/api/middleware"
	sharedmw "github.com/mcoot/shellgame/internal/middleware"
	"github.com/mcoot/shellgame/internal/services/identity"
	"github.com/mcoot/shellgame/internal/services/ledger"
	"github.com/mcoot/shellgame/internal/services/matchmaking"
	"github.com/mcoot/shellgame/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger             *slog.Logger
	IdentityService    *identity.Service
	LedgerService      *ledger.Service
	MatchmakingManager *matchmaking.Manager
	Repository         *storage.Repository
	// CORSOrigin is the allowed browser origin; empty disables CORS
	CORSOrigin string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = middleware.NotFound()

	// Create handlers
	accountHandler := handler.NewAccountHandler(cfg.IdentityService)
	matchmakingHandler := handler.NewMatchmakingHandler(cfg.MatchmakingManager)
	resultsHandler := handler.NewResultsHandler(cfg.LedgerService)
	healthHandler := handler.NewHealthHandler(cfg.Repository)

	// Create middleware
	optionalAuthMiddleware := middleware.OptionalAuth(cfg.IdentityService)
	loggingMiddleware := sharedmw.Logging(cfg.Logger, "/api/session", "/api/health")
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = middleware.NotFound()
	api.Use(chimw.RequestID)
	api.Use(chimw.RealIP)
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Account routes
	api.HandleFunc("/register", accountHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/login", accountHandler.Login).Methods(http.MethodPost)

	// Read-only routes
	api.HandleFunc("/session", matchmakingHandler.Session).Methods(http.MethodGet)
	api.HandleFunc("/results", resultsHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", resultsHandler.Leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	// Routes acting for a username; a bearer token, if sent, must match it
	acting := api.NewRoute().Subrouter()
	acting.Use(optionalAuthMiddleware)
	acting.HandleFunc("/join-waiting-list", matchmakingHandler.Join).Methods(http.MethodPost)
	acting.HandleFunc("/leave-waiting-list", matchmakingHandler.Leave).Methods(http.MethodPost)
	acting.HandleFunc("/guess", matchmakingHandler.Guess).Methods(http.MethodPost)
	acting.HandleFunc("/results", resultsHandler.Report).Methods(http.MethodPost)

	return sharedmw.CORS(cfg.CORSOrigin)(r)
}
