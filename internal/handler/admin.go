package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
)

// requireAdmin guards the admin surface with HTTP basic auth against the
// configured bcrypt hash.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte("admin")) == 1
		passOK := bcrypt.CompareHashAndPassword(h.adminHash, []byte(pass)) == nil
		if !userOK || !passOK {
			slog.Warn("rejected admin login", "user", user)
			w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleAdminAttempts returns every recorded attempt from the database
// backend. Unavailable when the server runs fallback-only.
func (h *Handler) handleAdminAttempts(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		http.Error(w, "no database backend configured", http.StatusServiceUnavailable)
		return
	}

	attempts, err := h.reader.ListAttempts(r.Context())
	if err != nil {
		slog.Error("list attempts", "error", err)
		http.Error(w, "failed to read attempts", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, model.Export{
		ExportedAt: time.Now().UTC(),
		Store:      h.config.StoreName,
		Count:      len(attempts),
		Attempts:   attempts,
	})
}
