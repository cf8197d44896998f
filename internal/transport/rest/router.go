package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"edubattle/internal/service"
	"edubattle/internal/transport/rest/handler"
	"edubattle/internal/transport/rest/middleware"
	"edubattle/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService   *service.AuthService
	BattleService *service.BattleService
	Notifier      *service.Notifier
	WSHandler     *ws.Handler
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	battleHandler := handler.NewBattleHandler(c.BattleService)
	streamHandler := handler.NewStreamHandler(c.Notifier)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// Stream routes are read-only and tolerate missing identity.
	v1.HandleFunc("/battles/{code}/stream", streamHandler.Stream).Methods("GET")
	v1.HandleFunc("/battles/{code}/ws", c.WSHandler.BattleWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Authenticated routes
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/battles", battleHandler.Create).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/battles/join", battleHandler.Join).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/battles/{code}", battleHandler.Get).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/battles/{code}", battleHandler.Update).Methods("PATCH", "OPTIONS")
	userRoutes.HandleFunc("/battles/{code}/submit", battleHandler.Submit).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/battles/{code}/results", battleHandler.Results).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PATCH, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
