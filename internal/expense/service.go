package expense

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=expense
type Repository interface {
	CreateExpense(ctx context.Context, e *Expense) error
	GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Expense, error)
	UpdateExpense(ctx context.Context, e *Expense) error
	DeleteExpense(ctx context.Context, id uuid.UUID) error
}

// Service is the server-side expense domain logic. Every operation is
// scoped to the owning user; records never mix across accounts.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, p CreateParams, imagePath string) (*Expense, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid expense: %w", err)
	}

	e := &Expense{
		UserID:      userID,
		Title:       p.Title,
		Amount:      p.Amount,
		Date:        p.Date,
		Category:    p.Category,
		Description: p.Description,
		ImagePath:   imagePath,
	}
	if err := s.repo.CreateExpense(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Expense, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Update rewrites the titled fields of an owned expense. The id and
// the owner are immutable.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, p UpdateParams) (*Expense, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid expense: %w", err)
	}

	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}

	if e.UserID != userID {
		return nil, ErrNotOwner
	}

	e.Title = p.Title
	e.Amount = p.Amount
	e.Date = p.Date
	e.Category = p.Category
	e.Description = p.Description
	now := time.Now()
	e.UpdatedAt = &now

	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return err
	}

	if e.UserID != userID {
		return ErrNotOwner
	}

	return s.repo.DeleteExpense(ctx, id)
}

// CategorySummaryForUser aggregates a user's records by category.
func (s *Service) CategorySummaryForUser(ctx context.Context, userID uuid.UUID) (map[Category]decimal.Decimal, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return SummaryByCategory(items), nil
}

// DailyTotalsForUser aggregates a user's records by calendar date.
func (s *Service) DailyTotalsForUser(ctx context.Context, userID uuid.UUID) (map[string]decimal.Decimal, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return SummaryByDate(items), nil
}
