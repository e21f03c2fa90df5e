package httpapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	sessionCookieName = "granada_session"
	sessionHeaderName = "X-Session-ID"
)

// resolveSessionID prefers the explicit header over the cookie.
func resolveSessionID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(sessionHeaderName)); v != "" {
		return v
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// ensureSessionID issues a new session cookie when the request carries no identity.
func (h *Handler) ensureSessionID(w http.ResponseWriter, r *http.Request) string {
	if id := resolveSessionID(r); id != "" {
		return id
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.progressCookie.MaxAge().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(sessionHeaderName, id)
	return id
}
