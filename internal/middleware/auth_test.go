package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mira-pos/api/internal/auth"
	"github.com/mira-pos/api/internal/database"
	"github.com/mira-pos/api/internal/enum"
	"github.com/mira-pos/api/internal/middleware"
)

const testSecret = "test-secret"

// mockSessionStore implements middleware.SessionStore.
type mockSessionStore struct {
	sessions map[uuid.UUID]database.Session
	err      error
}

func (m *mockSessionStore) GetActiveSession(ctx context.Context, id uuid.UUID) (database.Session, error) {
	if m.err != nil {
		return database.Session{}, m.err
	}
	s, ok := m.sessions[id]
	if !ok {
		return database.Session{}, pgx.ErrNoRows
	}
	return s, nil
}

// login creates a session row and a token for it.
func login(t *testing.T, store *mockSessionStore, role string) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	session := database.Session{ID: uuid.New(), UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}
	store.sessions[session.ID] = session
	token, err := auth.GenerateToken(testSecret, session.ID, userID, "user", role, session.ExpiresAt)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token, userID
}

func newSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: map[uuid.UUID]database.Session{}}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func mustNotRun(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
}

func TestAuthMiddleware_BearerToken(t *testing.T) {
	store := newSessionStore()
	token, userID := login(t, store, enum.UserRoleCook)

	handler := middleware.Authenticate(testSecret, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("expected claims in context")
		}
		if claims.UserID != userID {
			t.Errorf("user ID: got %v, want %v", claims.UserID, userID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_Cookie(t *testing.T) {
	store := newSessionStore()
	token, _ := login(t, store, enum.UserRoleAdmin)

	handler := middleware.Authenticate(testSecret, store)(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret, newSessionStore())(mustNotRun(t))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["type"] != "error" || body["message"] == "" {
		t.Errorf("body: %v", body)
	}
}

func TestAuthMiddleware_BrowserRedirectsToLogin(t *testing.T) {
	handler := middleware.Authenticate(testSecret, newSessionStore())(mustNotRun(t))

	req := httptest.NewRequest("GET", "/cook/dashboard", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusSeeOther)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Errorf("location: got %q", loc)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret, newSessionStore())(mustNotRun(t))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_SessionRevoked(t *testing.T) {
	store := newSessionStore()
	token, _ := login(t, store, enum.UserRoleCook)
	for id := range store.sessions {
		delete(store.sessions, id)
	}

	handler := middleware.Authenticate(testSecret, store)(mustNotRun(t))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_SessionOwnerMismatch(t *testing.T) {
	store := newSessionStore()
	token, _ := login(t, store, enum.UserRoleCook)
	for id, s := range store.sessions {
		s.UserID = uuid.New()
		store.sessions[id] = s
	}

	handler := middleware.Authenticate(testSecret, store)(mustNotRun(t))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_StoreError(t *testing.T) {
	store := newSessionStore()
	token, _ := login(t, store, enum.UserRoleCook)
	store.err = errors.New("db down")

	handler := middleware.Authenticate(testSecret, store)(mustNotRun(t))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestRequireRole(t *testing.T) {
	store := newSessionStore()

	tests := []struct {
		role string
		want int
	}{
		{enum.UserRoleAdmin, http.StatusOK},
		{enum.UserRoleCook, http.StatusForbidden},
		{enum.UserRoleFrontLiner, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			token, _ := login(t, store, tt.role)
			handler := middleware.Authenticate(testSecret, store)(middleware.RequireRole(enum.UserRoleAdmin)(okHandler()))

			req := httptest.NewRequest("GET", "/admin/dashboard", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRequireRole_NoClaims(t *testing.T) {
	handler := middleware.RequireRole(enum.UserRoleAdmin)(mustNotRun(t))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
