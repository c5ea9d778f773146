package expense

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("expense not found")
	ErrNotOwner = errors.New("expense belongs to another user")
)

// Category is the fixed set of spending categories.
type Category string

const (
	CategoryFood          Category = "FOOD"
	CategoryTransport     Category = "TRANSPORT"
	CategoryHousing       Category = "HOUSING"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryUtilities     Category = "UTILITIES"
	CategoryOthers        Category = "OTHERS"
)

// Categories lists all categories in display order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransport,
		CategoryHousing,
		CategoryEntertainment,
		CategoryUtilities,
		CategoryOthers,
	}
}

// ParseCategory converts s into a Category, case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}

	return "", errors.New("unknown category: " + s)
}

// Expense represents a single server-acknowledged expense record.
type Expense struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Amount      decimal.Decimal
	Date        time.Time
	Category    Category
	Description string
	ImagePath   string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// CreateParams carries the client-supplied fields of a new expense.
// The server assigns the identity; a record without an ID never exists
// locally.
type CreateParams struct {
	Title       string
	Amount      decimal.Decimal
	Date        time.Time
	Category    Category
	Description string
}

// Validate applies the client-side rules that hold before any network
// call: title present, amount finite and expressible in cents, known
// category.
func (p CreateParams) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("title must not be empty")
	}

	if p.Amount.Exponent() < -2 {
		return errors.New("amount must have at most two decimal places")
	}

	if !p.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}

	if _, err := ParseCategory(string(p.Category)); err != nil {
		return err
	}

	if p.Date.IsZero() {
		return errors.New("date must be set")
	}

	return nil
}

// Attachment is an optional receipt image uploaded with a new expense.
type Attachment struct {
	Filename string
	Reader   io.Reader
}

// UpdateParams carries the mutable fields of an expense. The ID is
// immutable and addressed separately.
type UpdateParams struct {
	Title       string
	Amount      decimal.Decimal
	Date        time.Time
	Category    Category
	Description string
}

// Validate applies the same field rules as CreateParams.
func (p UpdateParams) Validate() error {
	return CreateParams{
		Title:       p.Title,
		Amount:      p.Amount,
		Date:        p.Date,
		Category:    p.Category,
		Description: p.Description,
	}.Validate()
}
