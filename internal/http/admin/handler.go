package admin

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dpereira/expensely/internal/expense"
	"github.com/dpereira/expensely/internal/user"
)

// Handler serves the admin-only surface: the account roster, any
// user's expenses read-only, and role changes.
type Handler struct {
	users    *user.Service
	expenses *expense.Service
}

func NewHandler(users *user.Service, expenses *expense.Service) *Handler {
	return &Handler{users: users, expenses: expenses}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/users", h.listUsers)
	r.Put("/users/{userID}/role", h.updateRole)
	r.Get("/expenses", h.userExpenses)
}

type userPayload struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     user.Role `json:"role"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		slog.Error("failed to list users", "error", err)
		http.Error(w, "failed to list users", http.StatusInternalServerError)

		return
	}

	payloads := make([]userPayload, 0, len(users))
	for _, u := range users {
		payloads = append(payloads, userPayload{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			Role:     u.Role,
		})
	}

	writeJSON(w, http.StatusOK, payloads)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	role := user.Role(r.URL.Query().Get("role"))

	if err := h.users.UpdateRole(r.Context(), id, role); err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			http.Error(w, "User not found", http.StatusNotFound)
		case errors.Is(err, user.ErrInvalidRole):
			http.Error(w, "invalid role", http.StatusBadRequest)
		default:
			slog.Error("failed to update role", "error", err)
			http.Error(w, "failed to update role", http.StatusInternalServerError)
		}

		return
	}

	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("User role updated successfully")); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func (h *Handler) userExpenses(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		http.Error(w, "invalid userId", http.StatusBadRequest)
		return
	}

	items, err := h.expenses.ListForUser(r.Context(), id)
	if err != nil {
		slog.Error("failed to list expenses", "error", err)
		http.Error(w, "failed to list expenses", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, toPayloads(items))
}
