package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iyunix/go-chatreveal/internal/logger"
	"github.com/iyunix/go-chatreveal/internal/middleware"
)

// FrontendLogPayload defines the structure for logs coming from the browser.
type FrontendLogPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Context any    `json:"context,omitempty"`
}

const maxClientLogBytes = 16 << 10

// NewLogHandler returns a handler that forwards browser log events to log.
func NewLogHandler(log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload FrontendLogPayload
		body := http.MaxBytesReader(w, r.Body, maxClientLogBytes)
		if err := json.NewDecoder(body).Decode(&payload); err != nil || strings.TrimSpace(payload.Message) == "" {
			writeError(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		kv := []interface{}{
			"source", "client",
			"message", payload.Message,
			"user_id", middleware.UserIDFrom(r.Context()),
			"context", payload.Context,
		}
		switch strings.ToLower(payload.Level) {
		case "error":
			log.Error("CLIENT_LOG", kv...)
		case "warn", "warning":
			log.Warn("CLIENT_LOG", kv...)
		case "debug":
			log.Debug("CLIENT_LOG", kv...)
		default:
			log.Info("CLIENT_LOG", kv...)
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
