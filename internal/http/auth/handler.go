package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dpereira/expensely/internal/auth"
	"github.com/dpereira/expensely/internal/user"
)

type Handler struct {
	users  *user.Service
	tokens *auth.TokenService
}

func NewHandler(users *user.Service, tokens *auth.TokenService) *Handler {
	return &Handler{users: users, tokens: tokens}
}

// PublicRoutes are reachable without a token.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

// ProtectedRoutes require the bearer token middleware.
func (h *Handler) ProtectedRoutes(r chi.Router) {
	r.Get("/current-user", h.currentUser)
	r.Post("/logout", h.logout)
}

type registerRequest struct {
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Password        string    `json:"password"`
	ConfirmPassword string    `json:"confirmPassword"`
	Role            user.Role `json:"role,omitempty"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, err := h.users.Register(r.Context(), user.RegisterParams{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            req.Role,
	})
	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) ||
			errors.Is(err, user.ErrEmailTaken) ||
			errors.Is(err, user.ErrPasswordMismatch) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, "registration failed", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("User registered successfully")); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string    `json:"token"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     user.Role `json:"role"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}

		http.Error(w, "login failed", http.StatusInternalServerError)

		return
	}

	token, err := h.tokens.Generate(u.Email)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		http.Error(w, "login failed", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(loginResponse{
		Token:    token,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type currentUserResponse struct {
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     user.Role `json:"role"`
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(currentUserResponse{
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	// Tokens are stateless; logout is acknowledged and the client
	// discards its credential.
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("Logged out successfully")); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
