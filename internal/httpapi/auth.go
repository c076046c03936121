package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/souzalb/tv-senai/internal/models"
	"github.com/souzalb/tv-senai/internal/store"
)

type authContextKey struct{}

type authInfo struct {
	Session store.Session
}

// AuthMiddleware resolves the viewer identity for admin endpoints. Players and
// probes stay public: displays run unattended and cannot hold a session.
func AuthMiddleware(sessions store.SessionStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		sessionID := SessionIDFromRequest(r)
		if sessionID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		session, err := sessions.GetSession(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, authInfo{Session: session})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isPublicEndpoint(r *http.Request) bool {
	path := r.URL.Path
	if path == "/healthz" || path == "/metrics" {
		return true
	}
	if strings.HasPrefix(path, "/api/player/") {
		return true
	}
	if strings.HasPrefix(path, "/realtime") {
		return true
	}
	return false
}

func sessionFromContext(ctx context.Context) (store.Session, bool) {
	value := ctx.Value(authContextKey{})
	if value == nil {
		return store.Session{}, false
	}
	info, ok := value.(authInfo)
	if !ok {
		return store.Session{}, false
	}
	return info.Session, true
}

func requireSession(w http.ResponseWriter, r *http.Request) (store.Session, bool) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return store.Session{}, false
	}
	return session, true
}

func requireSuperAdmin(w http.ResponseWriter, r *http.Request) (store.Session, bool) {
	session, ok := requireSession(w, r)
	if !ok {
		return store.Session{}, false
	}
	if session.Role != models.RoleSuperAdmin {
		writeError(w, http.StatusForbidden, "forbidden", "super admin role required")
		return store.Session{}, false
	}
	return session, true
}

// SessionIDFromRequest reads the session token from the Authorization header
// or, for socket transports that cannot set headers, the query string.
func SessionIDFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get("session_id"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
