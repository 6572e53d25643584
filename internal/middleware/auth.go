package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mira-pos/api/internal/auth"
	"github.com/mira-pos/api/internal/database"
)

type contextKey string

const claimsKey contextKey = "claims"

// SessionStore looks up the server-side half of a login session.
// Satisfied by *database.Queries.
type SessionStore interface {
	GetActiveSession(ctx context.Context, id uuid.UUID) (database.Session, error)
}

// Authenticate accepts a session token from the session cookie or an
// Authorization bearer header, and requires its session row to still
// exist and be unexpired.
func Authenticate(jwtSecret string, sessions SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := TokenFromRequest(r)
			if tokenStr == "" {
				unauthorized(w, r, "not authenticated")
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, tokenStr)
			if err != nil {
				unauthorized(w, r, "invalid session")
				return
			}

			sessionID, _ := claims.SessionID()
			session, err := sessions.GetActiveSession(r.Context(), sessionID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					unauthorized(w, r, "session expired")
					return
				}
				log.Printf("ERROR: get session: %v", err)
				writeJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
				return
			}
			if session.UserID != claims.UserID {
				unauthorized(w, r, "invalid session")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole admits only principals holding one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				unauthorized(w, r, "not authenticated")
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeJSON(w, http.StatusForbidden, errorBody("insufficient permissions"))
		})
	}
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// TokenFromRequest returns the session cookie value, falling back to an
// Authorization bearer token.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(auth.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// unauthorized sends browser navigations to the login page and API
// callers a 401.
func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusUnauthorized, errorBody(msg))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"message": msg, "type": "error"}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
