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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mira-pos/api/internal/database"
	"github.com/mira-pos/api/internal/enum"
	"github.com/mira-pos/api/internal/middleware"
	"github.com/mira-pos/api/internal/service"
	"golang.org/x/crypto/bcrypt"
)

var userRoles = []string{enum.UserRoleAdmin, enum.UserRoleCook, enum.UserRoleFrontLiner}

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsers(ctx context.Context) ([]database.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	UpdateUser(ctx context.Context, arg database.UpdateUserParams) (database.User, error)
	UpdateUserPassword(ctx context.Context, arg database.UpdateUserPasswordParams) error
	DeleteUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	DeleteSessionsByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// NewUserStore creates a UserStore from a DBTX (pool or tx).
type NewUserStore func(db database.DBTX) UserStore

// UserHandler handles the admin user screens.
type UserHandler struct {
	pool     service.TxBeginner
	store    UserStore
	newStore NewUserStore
}

// NewUserHandler creates a new UserHandler. store serves single-statement
// calls; edits that touch several rows run on newStore(tx).
func NewUserHandler(pool service.TxBeginner, store UserStore, newStore NewUserStore) *UserHandler {
	return &UserHandler{pool: pool, store: store, newStore: newStore}
}

// RegisterRoutes registers user endpoints on the given Chi router.
// Expected to be mounted at /admin/users.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/add", h.AddForm)
	r.Get("/edit/{id}", h.EditForm)
	r.Post("/add", h.Create)
	r.Post("/edit/{id}", h.Update)
	r.Post("/delete/{id}", h.Delete)
}

// --- Request / Response types ---

type createUserRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
}

// updateUserRequest leaves the password unchanged when Password is empty.
type updateUserRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
}

type userDetailResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type userFormResponse struct {
	User  *userDetailResponse `json:"user"`
	Roles []string            `json:"roles"`
}

func toUserDetailResponse(u database.User) userDetailResponse {
	return userDetailResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// --- Handlers ---

// List returns all users ordered by username.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("ERROR: list users: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]userDetailResponse, len(users))
	for i, u := range users {
		resp[i] = toUserDetailResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddForm returns the role choices for a new user.
func (h *UserHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFormResponse{Roles: userRoles})
}

// EditForm returns the user being edited with the role choices.
func (h *UserHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("ERROR: get user: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := toUserDetailResponse(user)
	writeJSON(w, http.StatusOK, userFormResponse{User: &resp, Roles: userRoles})
}

// Create adds a new user with a bcrypt-hashed password.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	if req.Username == "" || req.Password == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "username, password, and role are required")
		return
	}
	if !isValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: hash password: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Username:       req.Username,
		HashedPassword: string(hash),
		Role:           req.Role,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "username already exists")
			return
		}
		log.Printf("ERROR: create user: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toUserDetailResponse(user))
}

// Update edits username and role, and the password when one is given.
// A role or password change signs the user out everywhere.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	if req.Username == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "username and role are required")
		return
	}
	if !isValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}

	current, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("ERROR: get user: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var hash []byte
	if req.Password != "" {
		if hash, err = bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost); err != nil {
			log.Printf("ERROR: hash password: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	store := h.newStore(tx)

	user, err := store.UpdateUser(r.Context(), database.UpdateUserParams{
		ID:       id,
		Username: req.Username,
		Role:     req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			writeError(w, http.StatusNotFound, "user not found")
		case isUniqueViolation(err):
			writeError(w, http.StatusBadRequest, "username already exists")
		default:
			log.Printf("ERROR: update user: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	if hash != nil {
		if err := store.UpdateUserPassword(r.Context(), database.UpdateUserPasswordParams{
			ID:             id,
			HashedPassword: string(hash),
		}); err != nil {
			log.Printf("ERROR: update user password: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	if hash != nil || current.Role != user.Role {
		if _, err := store.DeleteSessionsByUser(r.Context(), id); err != nil {
			log.Printf("ERROR: revoke user sessions: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit user update: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toUserDetailResponse(user))
}

// Delete removes a user; their sessions cascade. Admins cannot delete
// their own account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil && claims.UserID == id {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if _, err := h.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("ERROR: delete user: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func isValidRole(role string) bool {
	for _, r := range userRoles {
		if r == role {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
