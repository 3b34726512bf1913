// File: internal/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"github.com/iyunix/go-chatreveal/internal/logger"
	"github.com/iyunix/go-chatreveal/internal/metrics"
	"github.com/iyunix/go-chatreveal/internal/middleware"
	"github.com/iyunix/go-chatreveal/internal/ratelimit"
)

type RouterConfig struct {
	Chat           *ChatHandler
	Logger         logger.Logger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	SendLimiter    *ratelimit.MemoryRateLimiter
	DefaultUserID  string
	AllowedOrigins []string
}

// NewRouter builds the HTTP surface. CORS wraps the router so preflight
// requests are answered before route matching.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	r := mux.NewRouter()
	r.Use(middleware.RecoverPanic(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log, cfg.Metrics))
	r.Use(middleware.Owner(cfg.DefaultUserID))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/log", NewLogHandler(log)).Methods("POST")
	api.HandleFunc("/chats", cfg.Chat.GetUserChats).Methods("GET")
	api.HandleFunc("/chats", cfg.Chat.CreateChat).Methods("POST")
	api.HandleFunc("/chats/{id:[0-9]+}", cfg.Chat.RenameChat).Methods("PATCH")
	api.HandleFunc("/chats/{id:[0-9]+}", cfg.Chat.DeleteChat).Methods("DELETE")
	api.HandleFunc("/chats/{id:[0-9]+}/messages", cfg.Chat.GetChatMessages).Methods("GET")

	var send http.Handler = http.HandlerFunc(cfg.Chat.HandleChatMessage)
	if cfg.SendLimiter != nil {
		send = middleware.RateLimitMiddleware(cfg.SendLimiter, "send", log)(send)
	}
	api.Handle("/chat", send).Methods("POST")

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.HeaderUserID, middleware.HeaderRequestID},
		ExposedHeaders: []string{middleware.HeaderRequestID, "Retry-After"},
		MaxAge:         86400,
	})(r)
}
