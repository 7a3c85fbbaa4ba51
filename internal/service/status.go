package service

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// BotInfo is what the status endpoints report about the running bot.
type BotInfo struct {
	Name        string
	Description string
	Version     string
	Token       string
	SuperAdmins []int64
	Database    string
}

// RegisterStatusRoutes mounts "/", "/health" and "/bot/info" on mux.
// The bot token is never echoed in full.
func RegisterStatusRoutes(mux *http.ServeMux, info BotInfo) {
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":        info.Name,
			"description": info.Description,
			"version":     info.Version,
			"status":      "running",
		})
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	mux.HandleFunc("GET /bot/info", func(w http.ResponseWriter, r *http.Request) {
		admins := info.SuperAdmins
		if admins == nil {
			admins = []int64{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":        MaskToken(info.Token),
			"super_admins": admins,
			"database":     info.Database,
		})
	})
}

// MaskToken keeps the first ten characters of a token.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 10 {
		return token[:len(token)/2] + "..."
	}
	return token[:10] + "..."
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}
