package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dpereira/expensely/internal/expense"
)

type expensePayload struct {
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

func toPayloads(items []*expense.Expense) []expensePayload {
	out := make([]expensePayload, 0, len(items))
	for _, e := range items {
		out = append(out, expensePayload{
			ID:          e.ID,
			Title:       e.Title,
			Amount:      e.Amount,
			Date:        e.Date.Format(time.DateOnly),
			Category:    e.Category,
			Description: e.Description,
			ImagePath:   e.ImagePath,
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.UpdatedAt,
		})
	}

	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
