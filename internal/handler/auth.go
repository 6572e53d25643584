package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mira-pos/api/internal/auth"
	"github.com/mira-pos/api/internal/database"
	"github.com/mira-pos/api/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "invalid username or password"

// dummyHash is compared against when the username is unknown so both
// login failures take the same time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("mira-pos-no-such-user"), bcrypt.DefaultCost)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByUsername(ctx context.Context, username string) (database.User, error)
	CreateSession(ctx context.Context, arg database.CreateSessionParams) (database.Session, error)
	GetActiveSession(ctx context.Context, id uuid.UUID) (database.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// AuthHandler handles login and logout.
type AuthHandler struct {
	store        AuthStore
	secret       string
	sessionTTL   time.Duration
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, secret string, sessionTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{store: store, secret: secret, sessionTTL: sessionTTL, cookieSecure: cookieSecure}
}

// RegisterRoutes registers the public auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)
}

// --- Request / Response types ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type principalResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

type loginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Redirect  string            `json:"redirect"`
	User      principalResponse `json:"user"`
}

type loginPageResponse struct {
	User     *principalResponse `json:"user"`
	Redirect string             `json:"redirect,omitempty"`
}

// --- Handlers ---

// LoginPage reports who is signed in, or {user: null}.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	claims := h.currentClaims(r)
	if claims == nil {
		writeJSON(w, http.StatusOK, loginPageResponse{})
		return
	}
	writeJSON(w, http.StatusOK, loginPageResponse{
		User:     &principalResponse{ID: claims.UserID, Username: claims.Username, Role: claims.Role},
		Redirect: auth.HomeFor(claims.Role),
	})
}

// Login verifies credentials, opens a session and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password)) //nolint:errcheck
			writeError(w, http.StatusUnauthorized, invalidCredentials)
			return
		}
		log.Printf("ERROR: get user by username: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, invalidCredentials)
		return
	}

	expiresAt := time.Now().Add(h.sessionTTL)
	session, err := h.store.CreateSession(r.Context(), database.CreateSessionParams{
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		log.Printf("ERROR: create session: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := auth.GenerateToken(h.secret, session.ID, user.ID, user.Username, user.Role, session.ExpiresAt)
	if err != nil {
		log.Printf("ERROR: generate session token: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	auth.SetSessionCookie(w, token, session.ExpiresAt, h.cookieSecure)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Redirect:  auth.HomeFor(user.Role),
		User:      principalResponse{ID: user.ID, Username: user.Username, Role: user.Role},
	})
}

// Logout ends the session named by the cookie and returns to /login.
// It succeeds even when the token is missing or already expired.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if tokenStr := middleware.TokenFromRequest(r); tokenStr != "" {
		if claims, err := auth.ValidateToken(h.secret, tokenStr); err == nil {
			sessionID, _ := claims.SessionID()
			if err := h.store.DeleteSession(r.Context(), sessionID); err != nil {
				log.Printf("ERROR: delete session: %v", err)
			}
		}
	}
	auth.ClearSessionCookie(w, h.cookieSecure)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// --- Helpers ---

// currentClaims returns the principal of a valid, unexpired session, or nil.
func (h *AuthHandler) currentClaims(r *http.Request) *auth.Claims {
	tokenStr := middleware.TokenFromRequest(r)
	if tokenStr == "" {
		return nil
	}
	claims, err := auth.ValidateToken(h.secret, tokenStr)
	if err != nil {
		return nil
	}
	sessionID, _ := claims.SessionID()
	session, err := h.store.GetActiveSession(r.Context(), sessionID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("ERROR: get session: %v", err)
		}
		return nil
	}
	if session.UserID != claims.UserID {
		return nil
	}
	return claims
}

type errorResponse struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg, Type: "error"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}
