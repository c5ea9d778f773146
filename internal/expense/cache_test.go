package expense_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dpereira/expensely/internal/expense"
)

type fakeEpoch struct {
	v atomic.Uint64
}

func (f *fakeEpoch) Epoch() uint64 { return f.v.Load() }

func record(title string, amount string) *expense.Expense {
	return &expense.Expense{
		ID:        uuid.New(),
		Title:     title,
		Amount:    decimal.RequireFromString(amount),
		Date:      time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Category:  expense.CategoryFood,
		CreatedAt: time.Now(),
	}
}

func validParams(title string) expense.CreateParams {
	return expense.CreateParams{
		Title:    title,
		Amount:   decimal.RequireFromString("10.00"),
		Date:     time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Category: expense.CategoryFood,
	}
}

func newCache(t *testing.T) (*expense.Cache, *expense.MockAPI, *fakeEpoch) {
	t.Helper()

	ctrl := gomock.NewController(t)
	api := expense.NewMockAPI(ctrl)
	sess := &fakeEpoch{}

	return expense.NewCache(api, sess), api, sess
}

func TestCache_Load(t *testing.T) {
	cache, api, _ := newCache(t)

	items := []*expense.Expense{record("Coffee", "3.50"), record("Lunch", "12.00")}

	api.EXPECT().ListExpenses(gomock.Any()).Return(items, nil)

	require.NoError(t, cache.Load(context.Background()))
	assert.Equal(t, expense.CacheReady, cache.Status())
	assert.Len(t, cache.Items(), 2)
}

func TestCache_Load_Error(t *testing.T) {
	cache, api, _ := newCache(t)

	api.EXPECT().ListExpenses(gomock.Any()).Return(nil, assert.AnError)

	require.Error(t, cache.Load(context.Background()))
	assert.Equal(t, expense.CacheError, cache.Status())
	assert.Empty(t, cache.Items())
}

func TestCache_Load_CoalescesConcurrentCalls(t *testing.T) {
	cache, api, _ := newCache(t)

	started := make(chan struct{})
	release := make(chan struct{})

	api.EXPECT().
		ListExpenses(gomock.Any()).
		DoAndReturn(func(context.Context) ([]*expense.Expense, error) {
			close(started)
			<-release

			return []*expense.Expense{record("Coffee", "3.50")}, nil
		}).
		Times(1)

	var wg sync.WaitGroup

	errs := make([]error, 2)

	wg.Add(1)

	go func() {
		defer wg.Done()

		errs[0] = cache.Load(context.Background())
	}()

	<-started

	wg.Add(1)

	go func() {
		defer wg.Done()

		errs[1] = cache.Load(context.Background())
	}()

	// Give the second Load a moment to park on the in-flight request.
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Len(t, cache.Items(), 1)
}

func TestCache_Create_AppendsServerRecord(t *testing.T) {
	cache, api, _ := newCache(t)

	api.EXPECT().ListExpenses(gomock.Any()).Return([]*expense.Expense{record("Coffee", "3.50")}, nil)
	require.NoError(t, cache.Load(context.Background()))

	created := record("Groceries", "42.50")

	api.EXPECT().
		CreateExpense(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(created, nil)

	got, err := cache.Create(context.Background(), validParams("Groceries"), nil)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	items := cache.Items()
	require.Len(t, items, 2)
	assert.Equal(t, created.ID, items[1].ID)
}

func TestCache_Create_ValidationFailsBeforeNetwork(t *testing.T) {
	// No expectations: invalid input must not reach the API.
	cache, _, _ := newCache(t)

	_, err := cache.Create(context.Background(), expense.CreateParams{}, nil)
	assert.Error(t, err)
	assert.Empty(t, cache.Items())
}

func TestCache_Create_FailureLeavesSetUnchanged(t *testing.T) {
	cache, api, _ := newCache(t)

	api.EXPECT().ListExpenses(gomock.Any()).Return([]*expense.Expense{record("Coffee", "3.50")}, nil)
	require.NoError(t, cache.Load(context.Background()))

	api.EXPECT().
		CreateExpense(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(nil, assert.AnError)

	_, err := cache.Create(context.Background(), validParams("Groceries"), nil)
	assert.Error(t, err)
	assert.Len(t, cache.Items(), 1)
}

func TestCache_Update_UnknownIDFailsLocally(t *testing.T) {
	cache, api, _ := newCache(t)

	api.EXPECT().ListExpenses(gomock.Any()).Return(nil, nil)
	require.NoError(t, cache.Load(context.Background()))

	_, err := cache.Update(context.Background(), uuid.New(), expense.UpdateParams(validParams("x")))
	assert.ErrorIs(t, err, expense.ErrNotFound)
}

func TestCache_Remove_FailureKeepsRecord(t *testing.T) {
	cache, api, _ := newCache(t)

	e := record("Coffee", "3.50")

	api.EXPECT().ListExpenses(gomock.Any()).Return([]*expense.Expense{e}, nil)
	require.NoError(t, cache.Load(context.Background()))

	api.EXPECT().DeleteExpense(gomock.Any(), e.ID).Return(assert.AnError)

	assert.Error(t, cache.Remove(context.Background(), e.ID))
	assert.Len(t, cache.Items(), 1)
}

func TestCache_StaleUpdateAfterRemoveIsDropped(t *testing.T) {
	cache, api, _ := newCache(t)

	e := record("Coffee", "3.50")

	api.EXPECT().ListExpenses(gomock.Any()).Return([]*expense.Expense{e}, nil)
	require.NoError(t, cache.Load(context.Background()))

	updateStarted := make(chan struct{})
	releaseUpdate := make(chan struct{})

	updated := *e
	updated.Title = "Espresso"

	api.EXPECT().
		UpdateExpense(gomock.Any(), e.ID, gomock.Any()).
		DoAndReturn(func(context.Context, uuid.UUID, expense.UpdateParams) (*expense.Expense, error) {
			close(updateStarted)
			<-releaseUpdate

			return &updated, nil
		})
	api.EXPECT().DeleteExpense(gomock.Any(), e.ID).Return(nil)

	done := make(chan error, 1)

	go func() {
		_, err := cache.Update(context.Background(), e.ID, expense.UpdateParams(validParams("Espresso")))
		done <- err
	}()

	<-updateStarted

	// The delete is issued after the update and completes first.
	require.NoError(t, cache.Remove(context.Background(), e.ID))

	close(releaseUpdate)

	assert.ErrorIs(t, <-done, expense.ErrStaleResult)
	assert.Empty(t, cache.Items())
}

func TestCache_SessionChangeDiscardsCompletion(t *testing.T) {
	cache, api, sess := newCache(t)

	api.EXPECT().ListExpenses(gomock.Any()).Return(nil, nil)
	require.NoError(t, cache.Load(context.Background()))

	created := record("Groceries", "42.50")

	api.EXPECT().
		CreateExpense(gomock.Any(), gomock.Any(), gomock.Nil()).
		DoAndReturn(func(context.Context, expense.CreateParams, *expense.Attachment) (*expense.Expense, error) {
			// The session ends while the request is in flight.
			sess.v.Add(1)
			return created, nil
		})

	_, err := cache.Create(context.Background(), validParams("Groceries"), nil)
	assert.ErrorIs(t, err, expense.ErrSessionChanged)
	assert.Empty(t, cache.Items())
}

func TestCache_MutationDuringLoadWinsOverSnapshot(t *testing.T) {
	cache, api, _ := newCache(t)

	stale := record("Coffee", "3.50")

	api.EXPECT().ListExpenses(gomock.Any()).Return([]*expense.Expense{stale}, nil)
	require.NoError(t, cache.Load(context.Background()))

	loadStarted := make(chan struct{})
	releaseLoad := make(chan struct{})

	// The refresh snapshot predates the delete below.
	api.EXPECT().
		ListExpenses(gomock.Any()).
		DoAndReturn(func(context.Context) ([]*expense.Expense, error) {
			close(loadStarted)
			<-releaseLoad

			return []*expense.Expense{stale}, nil
		})
	api.EXPECT().DeleteExpense(gomock.Any(), stale.ID).Return(nil)

	done := make(chan error, 1)

	go func() {
		done <- cache.Load(context.Background())
	}()

	<-loadStarted
	require.NoError(t, cache.Remove(context.Background(), stale.ID))
	close(releaseLoad)

	require.NoError(t, <-done)
	assert.Empty(t, cache.Items())
}

func TestCache_Reset(t *testing.T) {
	cache, api, _ := newCache(t)

	api.EXPECT().ListExpenses(gomock.Any()).Return([]*expense.Expense{record("Coffee", "3.50")}, nil)
	require.NoError(t, cache.Load(context.Background()))

	cache.Reset()

	assert.Empty(t, cache.Items())
	assert.Equal(t, expense.CacheIdle, cache.Status())
}
