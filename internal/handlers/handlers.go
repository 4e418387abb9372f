package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poster/internal/services"
)

// SessionCookieName identifies the browser session that owns a poster state.
const SessionCookieName = "poster_session"

// maxFormBytes caps form and JSON request bodies.
const maxFormBytes = 64 << 10

// Handler contains all HTTP handlers
type Handler struct {
	sessions         *services.SessionStore
	geminiConfigured bool
	cookieSecure     bool
	sessionTTL       time.Duration
}

// NewHandler creates a new handler
func NewHandler(sessions *services.SessionStore, geminiConfigured, cookieSecure bool, sessionTTL time.Duration) *Handler {
	return &Handler{
		sessions:         sessions,
		geminiConfigured: geminiConfigured,
		cookieSecure:     cookieSecure,
		sessionTTL:       sessionTTL,
	}
}

// controller returns the session's controller, issuing a new session cookie when needed.
func (h *Handler) controller(w http.ResponseWriter, r *http.Request) *services.PosterController {
	var id uuid.UUID
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if parsed, err := uuid.Parse(c.Value); err == nil {
			id = parsed
		}
	}
	ctrl, sessionID, created := h.sessions.GetOrCreate(id)
	if created {
		cookie := &http.Cookie{
			Name:     SessionCookieName,
			Value:    sessionID.String(),
			Path:     "/",
			HttpOnly: true,
			Secure:   h.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		}
		if h.sessionTTL > 0 {
			cookie.MaxAge = int(h.sessionTTL.Seconds())
		}
		http.SetCookie(w, cookie)
	}
	return ctrl
}

// existingController returns the controller of the request's session without creating one.
func (h *Handler) existingController(r *http.Request) (*services.PosterController, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return nil, false
	}
	return h.sessions.Get(id)
}

// Healthz handles GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"gemini_configured": h.geminiConfigured,
		"sessions":          h.sessions.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
