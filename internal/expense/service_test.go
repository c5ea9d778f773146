package expense_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dpereira/expensely/internal/expense"
)

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		params    expense.CreateParams
		setupMock func(m *expense.MockRepository)
		wantErr   bool
	}

	tests := []testCase{
		{
			name:   "Success",
			params: validParams("Groceries"),
			setupMock: func(m *expense.MockRepository) {
				m.EXPECT().
					CreateExpense(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, e *expense.Expense) error {
						e.ID = uuid.New()
						e.CreatedAt = time.Now()
						return nil
					})
			},
		},
		{
			name:    "EmptyTitle",
			params:  expense.CreateParams{Amount: decimal.RequireFromString("1.00")},
			wantErr: true,
		},
		{
			name: "NegativeAmount",
			params: expense.CreateParams{
				Title:    "Refund",
				Amount:   decimal.RequireFromString("-5.00"),
				Date:     time.Now(),
				Category: expense.CategoryOthers,
			},
			wantErr: true,
		},
		{
			name: "TooManyDecimalPlaces",
			params: expense.CreateParams{
				Title:    "Fuel",
				Amount:   decimal.RequireFromString("1.999"),
				Date:     time.Now(),
				Category: expense.CategoryTransport,
			},
			wantErr: true,
		},
		{
			name: "UnknownCategory",
			params: expense.CreateParams{
				Title:    "Thing",
				Amount:   decimal.RequireFromString("1.00"),
				Date:     time.Now(),
				Category: "GADGETS",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := expense.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := expense.NewService(repo)
			got, err := svc.Create(context.Background(), uuid.New(), tt.params, "")

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				return
			}

			assert.NoError(t, err)
			require.NotNil(t, got)
			assert.NotEmpty(t, got.ID)
		})
	}
}

func TestService_Update_OwnershipEnforced(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := expense.NewMockRepository(ctrl)
	svc := expense.NewService(repo)

	owner := uuid.New()
	other := uuid.New()
	id := uuid.New()

	repo.EXPECT().
		GetExpense(gomock.Any(), id).
		Return(&expense.Expense{ID: id, UserID: owner}, nil)

	_, err := svc.Update(context.Background(), other, id, expense.UpdateParams(validParams("x")))
	assert.ErrorIs(t, err, expense.ErrNotOwner)
}

func TestService_Update_SetsUpdatedAt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := expense.NewMockRepository(ctrl)
	svc := expense.NewService(repo)

	owner := uuid.New()
	id := uuid.New()

	repo.EXPECT().
		GetExpense(gomock.Any(), id).
		Return(&expense.Expense{ID: id, UserID: owner, Title: "Old"}, nil)
	repo.EXPECT().UpdateExpense(gomock.Any(), gomock.Any()).Return(nil)

	got, err := svc.Update(context.Background(), owner, id, expense.UpdateParams(validParams("New")))
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	require.NotNil(t, got.UpdatedAt)
	assert.WithinDuration(t, time.Now(), *got.UpdatedAt, time.Minute)
}

func TestService_Delete_OwnershipEnforced(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := expense.NewMockRepository(ctrl)
	svc := expense.NewService(repo)

	owner := uuid.New()
	id := uuid.New()

	repo.EXPECT().
		GetExpense(gomock.Any(), id).
		Return(&expense.Expense{ID: id, UserID: owner}, nil)

	err := svc.Delete(context.Background(), uuid.New(), id)
	assert.ErrorIs(t, err, expense.ErrNotOwner)
}

func TestService_CategorySummaryForUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := expense.NewMockRepository(ctrl)
	svc := expense.NewService(repo)

	owner := uuid.New()

	repo.EXPECT().
		ListByUser(gomock.Any(), owner).
		Return([]*expense.Expense{
			{Category: expense.CategoryFood, Amount: decimal.RequireFromString("1.10")},
			{Category: expense.CategoryFood, Amount: decimal.RequireFromString("2.20")},
			{Category: expense.CategoryHousing, Amount: decimal.RequireFromString("900.00")},
		}, nil)

	totals, err := svc.CategorySummaryForUser(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, totals[expense.CategoryFood].Equal(decimal.RequireFromString("3.30")))
	assert.True(t, totals[expense.CategoryHousing].Equal(decimal.RequireFromString("900.00")))
}
