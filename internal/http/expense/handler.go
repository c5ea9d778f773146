package expense

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dpereira/expensely/internal/auth"
	"github.com/dpereira/expensely/internal/expense"
	"github.com/dpereira/expensely/internal/user"
)

// maxUploadBytes bounds the multipart form held in memory per create.
const maxUploadBytes = 10 << 20

type Handler struct {
	svc        *expense.Service
	uploadsDir string
}

func NewHandler(svc *expense.Service, uploadsDir string) *Handler {
	return &Handler{svc: svc, uploadsDir: uploadsDir}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/summary", h.summary)
	r.Get("/by-date", h.byDate)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

type payload struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Amount      decimal.Decimal  `json:"amount"`
	Date        string           `json:"date"`
	Category    expense.Category `json:"category"`
	Description string           `json:"description,omitempty"`
	ImagePath   string           `json:"imagePath,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
}

func toPayload(e *expense.Expense) payload {
	return payload{
		ID:          e.ID,
		Title:       e.Title,
		Amount:      e.Amount,
		Date:        e.Date.Format(time.DateOnly),
		Category:    e.Category,
		Description: e.Description,
		ImagePath:   e.ImagePath,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toPayloads(items []*expense.Expense) []payload {
	out := make([]payload, 0, len(items))
	for _, e := range items {
		out = append(out, toPayload(e))
	}

	return out
}

type draft struct {
	Title       string           `json:"title"`
	Amount      decimal.Decimal  `json:"amount"`
	Date        string           `json:"date"`
	Category    expense.Category `json:"category"`
	Description string           `json:"description"`
}

func (d draft) createParams() (expense.CreateParams, error) {
	date, err := time.Parse(time.DateOnly, d.Date)
	if err != nil {
		return expense.CreateParams{}, fmt.Errorf("parsing date %q: %w", d.Date, err)
	}

	return expense.CreateParams{
		Title:       d.Title,
		Amount:      d.Amount,
		Date:        date,
		Category:    d.Category,
		Description: d.Description,
	}, nil
}

func currentUser(w http.ResponseWriter, r *http.Request) (*user.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return nil, false
	}

	return u, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.svc.ListForUser(r.Context(), u.ID)
	if err != nil {
		slog.Error("failed to list expenses", "error", err)
		http.Error(w, "failed to list expenses", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, toPayloads(items))
}

// create accepts a multipart form: an "expense" JSON part with the
// record fields, and an optional "image" file part stored under the
// uploads directory.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	var d draft
	if err := json.Unmarshal([]byte(r.FormValue("expense")), &d); err != nil {
		http.Error(w, "invalid expense payload", http.StatusBadRequest)
		return
	}

	params, err := d.createParams()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	imagePath, err := h.saveImage(r)
	if err != nil {
		slog.Error("failed to store image", "error", err)
		http.Error(w, "failed to store image", http.StatusInternalServerError)

		return
	}

	created, err := h.svc.Create(r.Context(), u.ID, params, imagePath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, toPayload(created))
}

// saveImage stores the optional "image" part and returns its relative
// path, or "" when the part is absent.
func (h *Handler) saveImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}

		return "", fmt.Errorf("reading image part: %w", err)
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating uploads dir: %w", err)
	}

	name := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), filepath.Base(header.Filename))

	dst, err := os.Create(filepath.Join(h.uploadsDir, name))
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("writing image file: %w", err)
	}

	return name, nil
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid expense id", http.StatusBadRequest)
		return
	}

	var d draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, "invalid expense payload", http.StatusBadRequest)
		return
	}

	params, err := d.createParams()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.svc.Update(r.Context(), u.ID, id, expense.UpdateParams(params))
	if err != nil {
		h.writeDomainError(w, err, "failed to update expense")
		return
	}

	writeJSON(w, http.StatusOK, toPayload(updated))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid expense id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), u.ID, id); err != nil {
		h.writeDomainError(w, err, "failed to delete expense")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeDomainError maps domain errors to statuses. Another user's
// record reads as absent, so ownership violations also yield 404.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, expense.ErrNotFound), errors.Is(err, expense.ErrNotOwner):
		http.Error(w, "Expense not found", http.StatusNotFound)
	default:
		slog.Error(fallback, "error", err)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	totals, err := h.svc.CategorySummaryForUser(r.Context(), u.ID)
	if err != nil {
		slog.Error("failed to summarize expenses", "error", err)
		http.Error(w, "failed to summarize expenses", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, totals)
}

func (h *Handler) byDate(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	totals, err := h.svc.DailyTotalsForUser(r.Context(), u.ID)
	if err != nil {
		slog.Error("failed to summarize expenses", "error", err)
		http.Error(w, "failed to summarize expenses", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, totals)
}
