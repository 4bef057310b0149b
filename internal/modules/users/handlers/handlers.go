// Package handlers provides HTTP handlers for user accounts, authentication
// and profile management.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tickerdesk/tickerdesk/internal/auth"
	"github.com/tickerdesk/tickerdesk/internal/modules/users"
)

// resetTokenLifetime bounds how long a password reset token stays valid.
const resetTokenLifetime = time.Hour

// UserStore is the persistence surface the handlers need.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (*users.User, error)
	GetByEmail(ctx context.Context, email string) (*users.User, error)
	GetByID(ctx context.Context, id int64) (*users.User, error)
	List(ctx context.Context) ([]users.User, error)
	UpdateProfile(ctx context.Context, id int64, name, email *string) (*users.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	CreatePasswordReset(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	ConsumePasswordReset(ctx context.Context, token string) (int64, error)
}

// Handler handles user HTTP requests.
type Handler struct {
	store  UserStore
	tokens *auth.Manager
	log    zerolog.Logger
}

// NewHandler creates a new users handler.
func NewHandler(store UserStore, tokens *auth.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		tokens: tokens,
		log:    log.With().Str("handler", "users").Logger(),
	}
}

// RegisterPublicRoutes registers the routes that do not require a token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/users", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Post("/forgot-password", h.HandleForgotPassword)
	r.Post("/reset-password", h.HandleResetPassword)
}

// RegisterProtectedRoutes registers the token-guarded routes.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/users", h.HandleListUsers)
	r.Get("/users/{id}", h.HandleGetUser)
	r.Put("/users/{id}", h.HandleUpdateUser)
	r.Delete("/users/{id}", h.HandleDeleteUser)

	r.Route("/profile", func(r chi.Router) {
		r.Get("/", h.HandleProfile)
		r.Put("/update", h.HandleUpdateProfile)
		r.Put("/change-password", h.HandleChangePassword)
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validateRegistration(req registerRequest) []fieldError {
	var errs []fieldError
	if req.Name == "" {
		errs = append(errs, fieldError{Field: "name", Message: "Name is required"})
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		errs = append(errs, fieldError{Field: "email", Message: "Valid email is required"})
	}
	if len(req.Password) < 6 {
		errs = append(errs, fieldError{Field: "password", Message: "Password must be at least 6 characters"})
	}
	return errs
}

// HandleRegister handles POST /users
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if errs := validateRegistration(req); len(errs) > 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to hash password")
		h.writeError(w, http.StatusInternalServerError, "Failed to insert user", err.Error())
		return
	}

	user, err := h.store.Create(r.Context(), req.Name, req.Email, hash)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to insert user")
		h.writeError(w, http.StatusInternalServerError, "Failed to insert user", err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	user, err := h.store.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, users.ErrNotFound) {
		h.writeError(w, http.StatusBadRequest, "User not found", "")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Login lookup failed")
		h.writeError(w, http.StatusInternalServerError, "Login failed", err.Error())
		return
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		h.writeError(w, http.StatusBadRequest, "Invalid password", "")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Name, user.Email)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to issue token")
		h.writeError(w, http.StatusInternalServerError, "Login failed", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"token":   token,
		"user": map[string]interface{}{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

// HandleProfile handles GET /profile
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Missing authentication", "")
		return
	}

	user, err := h.store.GetByID(r.Context(), claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch profile")
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch profile", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile data fetched successfully",
		"user":    user,
	})
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// HandleUpdateProfile handles PUT /profile/update
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Missing authentication", "")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if (req.Name == nil || *req.Name == "") && (req.Email == nil || *req.Email == "") {
		h.writeError(w, http.StatusBadRequest, "Name or email must be provided", "")
		return
	}
	if req.Email != nil && *req.Email != "" {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			h.writeError(w, http.StatusBadRequest, "Valid email is required", "")
			return
		}
	}

	user, err := h.store.UpdateProfile(r.Context(), claims.UserID, req.Name, req.Email)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to update profile")
		h.writeError(w, http.StatusInternalServerError, "Failed to update profile", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// HandleChangePassword handles PUT /profile/change-password
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Missing authentication", "")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		h.writeError(w, http.StatusBadRequest, "Old and new passwords are required", "")
		return
	}

	user, err := h.store.GetByID(r.Context(), claims.UserID)
	if errors.Is(err, users.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "User not found", "")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load user for password change")
		h.writeError(w, http.StatusInternalServerError, "Failed to change password", err.Error())
		return
	}

	if !auth.CheckPassword(user.Password, req.OldPassword) {
		h.writeError(w, http.StatusUnauthorized, "Old password is incorrect", "")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to hash new password")
		h.writeError(w, http.StatusInternalServerError, "Failed to change password", err.Error())
		return
	}

	if err := h.store.UpdatePassword(r.Context(), claims.UserID, hash); err != nil {
		h.log.Error().Err(err).Msg("Failed to store new password")
		h.writeError(w, http.StatusInternalServerError, "Failed to change password", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// HandleForgotPassword handles POST /forgot-password.
// The response is the same whether or not the account exists so the endpoint
// cannot be used to enumerate emails; the token rides along when issued.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "Email is required", "")
		return
	}

	response := map[string]interface{}{
		"message": "If the account exists, a reset token has been issued",
	}

	user, err := h.store.GetByEmail(r.Context(), req.Email)
	if err == nil {
		token := uuid.NewString()
		expiresAt := time.Now().Add(resetTokenLifetime)
		if err := h.store.CreatePasswordReset(r.Context(), token, user.ID, expiresAt); err != nil {
			h.log.Error().Err(err).Msg("Failed to store reset token")
			h.writeError(w, http.StatusInternalServerError, "Failed to issue reset token", err.Error())
			return
		}
		response["reset_token"] = token
	} else if !errors.Is(err, users.ErrNotFound) {
		h.log.Error().Err(err).Msg("Forgot password lookup failed")
		h.writeError(w, http.StatusInternalServerError, "Failed to issue reset token", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, response)
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// HandleResetPassword handles POST /reset-password
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		h.writeError(w, http.StatusBadRequest, "Reset token is required", "")
		return
	}
	if len(req.NewPassword) < 6 {
		h.writeError(w, http.StatusBadRequest, "Password must be at least 6 characters", "")
		return
	}

	userID, err := h.store.ConsumePasswordReset(r.Context(), req.Token)
	if errors.Is(err, users.ErrNotFound) {
		h.writeError(w, http.StatusBadRequest, "Invalid or expired reset token", "")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to consume reset token")
		h.writeError(w, http.StatusInternalServerError, "Failed to reset password", err.Error())
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to reset password", err.Error())
		return
	}
	if err := h.store.UpdatePassword(r.Context(), userID, hash); err != nil {
		h.log.Error().Err(err).Msg("Failed to store reset password")
		h.writeError(w, http.StatusInternalServerError, "Failed to reset password", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

// HandleListUsers handles GET /users
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list users")
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch users", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "All users fetched successfully",
		"users":   list,
	})
}

// HandleGetUser handles GET /users/{id}
func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user id", "")
		return
	}

	user, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, users.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "User not found", "")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch user")
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch user", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User fetched successfully",
		"user":    user,
	})
}

// HandleUpdateUser handles PUT /users/{id}. Unlike /profile/update this
// edits an arbitrary account, not the caller's own.
func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user id", "")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if (req.Name == nil || *req.Name == "") && (req.Email == nil || *req.Email == "") {
		h.writeError(w, http.StatusBadRequest, "Name or email must be provided", "")
		return
	}
	if req.Email != nil && *req.Email != "" {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			h.writeError(w, http.StatusBadRequest, "Valid email is required", "")
			return
		}
	}

	user, err := h.store.UpdateProfile(r.Context(), id, req.Name, req.Email)
	if errors.Is(err, users.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "User not found", "")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to update user")
		h.writeError(w, http.StatusInternalServerError, "Failed to update user", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User updated successfully",
		"user":    user,
	})
}

// HandleDeleteUser handles DELETE /users/{id}
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user id", "")
		return
	}

	err = h.store.Delete(r.Context(), id)
	if errors.Is(err, users.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "User not found", "")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to delete user")
		h.writeError(w, http.StatusInternalServerError, "Failed to delete user", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg, details string) {
	body := map[string]string{"error": msg}
	if details != "" {
		body["details"] = details
	}
	h.writeJSON(w, status, body)
}
