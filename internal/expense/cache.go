package expense

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=cache.go -destination=api_mock.go -package=expense
type API interface {
	ListExpenses(ctx context.Context) ([]*Expense, error)
	CreateExpense(ctx context.Context, p CreateParams, att *Attachment) (*Expense, error)
	UpdateExpense(ctx context.Context, id uuid.UUID, p UpdateParams) (*Expense, error)
	DeleteExpense(ctx context.Context, id uuid.UUID) error
	CategorySummary(ctx context.Context) (map[Category]decimal.Decimal, error)
}

// SessionEpoch identifies the session generation a request was issued
// under. Completions whose epoch no longer matches are discarded, so a
// request belonging to a prior session never mutates the cache.
type SessionEpoch interface {
	Epoch() uint64
}

// CacheStatus is the lifecycle state of the cache.
type CacheStatus string

const (
	CacheIdle    CacheStatus = "idle"
	CacheLoading CacheStatus = "loading"
	CacheReady   CacheStatus = "ready"
	CacheError   CacheStatus = "error"
)

var (
	// ErrSessionChanged marks a completion that arrived after the
	// session it was issued under ended. Nothing was applied.
	ErrSessionChanged = errors.New("session changed, result discarded")

	// ErrStaleResult marks a mutation completion that lost to a later
	// mutation on the same record. Nothing was applied.
	ErrStaleResult = errors.New("stale result superseded by a later mutation")
)

// overlayOp records a mutation that completed while a full refresh was
// in flight, so the mutation's result wins over the stale load.
type overlayOp struct {
	deleted bool
	item    *Expense
}

// Cache mirrors the authenticated user's expense records. All
// mutations are server-confirmed: nothing is inserted, patched, or
// removed locally until the server acknowledged it, so there is never
// a rollback path.
type Cache struct {
	api  API
	sess SessionEpoch

	mu      sync.Mutex
	items   []*Expense
	status  CacheStatus
	seq     uint64
	applied map[uuid.UUID]uint64
	overlay map[uuid.UUID]overlayOp
	load    chan struct{}
	loadErr error
}

func NewCache(api API, sess SessionEpoch) *Cache {
	return &Cache{
		api:     api,
		sess:    sess,
		status:  CacheIdle,
		applied: make(map[uuid.UUID]uint64),
	}
}

// Status returns the cache lifecycle state.
func (c *Cache) Status() CacheStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

// Items returns a copy of the cached records in server return order.
func (c *Cache) Items() []*Expense {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]*Expense, len(c.items))
	copy(items, c.items)

	return items
}

// Get returns the cached record with the given id.
func (c *Cache) Get(id uuid.UUID) (*Expense, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, e := c.find(id)

	return e, e != nil
}

// Load fully replaces the cached set from the server. Concurrent calls
// are coalesced: a second Load while one is in flight waits for and
// observes the first call's result instead of issuing a duplicate
// request.
func (c *Cache) Load(ctx context.Context) error {
	c.mu.Lock()

	if c.load != nil {
		done := c.load
		c.mu.Unlock()
		<-done

		c.mu.Lock()
		defer c.mu.Unlock()

		return c.loadErr
	}

	epoch := c.sess.Epoch()
	done := make(chan struct{})
	c.load = done
	c.status = CacheLoading
	c.overlay = make(map[uuid.UUID]overlayOp)
	c.mu.Unlock()

	items, err := c.api.ListExpenses(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(done)

	c.load = nil

	if epoch != c.sess.Epoch() {
		c.loadErr = ErrSessionChanged
		c.overlay = nil

		return c.loadErr
	}

	if err != nil {
		c.status = CacheError
		c.loadErr = err
		c.overlay = nil

		return err
	}

	// Mutations that completed while this load was in flight win over
	// the load's snapshot for their records.
	for id, op := range c.overlay {
		if op.deleted {
			items = removeByID(items, id)
			continue
		}

		items = upsert(items, op.item)
	}

	c.items = items
	c.status = CacheReady
	c.loadErr = nil
	c.overlay = nil

	return nil
}

// Create sends the draft to the server and appends the acknowledged
// record, with its server-assigned id, to the end of the cached set.
// On failure the set is unchanged.
func (c *Cache) Create(ctx context.Context, p CreateParams, att *Attachment) (*Expense, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid expense: %w", err)
	}

	epoch, seq := c.issue()

	created, err := c.api.CreateExpense(ctx, p, att)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.sess.Epoch() {
		return nil, ErrSessionChanged
	}

	if c.applied[created.ID] > seq {
		return nil, ErrStaleResult
	}

	c.items = append(c.items, created)
	c.applied[created.ID] = seq
	c.noteOverlay(created.ID, overlayOp{item: created})

	return created, nil
}

// Update replaces the record with the server's returned representation
// so server-derived fields stay authoritative. An unknown id fails
// locally with ErrNotFound before any network call; a failed request
// leaves the record untouched.
func (c *Cache) Update(ctx context.Context, id uuid.UUID, p UpdateParams) (*Expense, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid expense: %w", err)
	}

	c.mu.Lock()
	if _, e := c.find(id); e == nil {
		c.mu.Unlock()
		return nil, ErrNotFound
	}
	c.mu.Unlock()

	epoch, seq := c.issue()

	updated, err := c.api.UpdateExpense(ctx, id, p)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.sess.Epoch() {
		return nil, ErrSessionChanged
	}

	// A later mutation on this id already completed; applying this
	// result would resurrect or overwrite newer state.
	if c.applied[id] > seq {
		return nil, ErrStaleResult
	}

	if idx, _ := c.find(id); idx >= 0 {
		c.items[idx] = updated
	}

	c.applied[id] = seq
	c.noteOverlay(id, overlayOp{item: updated})

	return updated, nil
}

// Remove deletes the record only after server acknowledgment, so the
// user is never shown a false deletion.
func (c *Cache) Remove(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	if _, e := c.find(id); e == nil {
		c.mu.Unlock()
		return ErrNotFound
	}
	c.mu.Unlock()

	epoch, seq := c.issue()

	if err := c.api.DeleteExpense(ctx, id); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.sess.Epoch() {
		return ErrSessionChanged
	}

	if c.applied[id] > seq {
		return ErrStaleResult
	}

	c.items = removeByID(c.items, id)
	c.applied[id] = seq
	c.noteOverlay(id, overlayOp{deleted: true})

	return nil
}

// SummaryByCategory recomputes per-category totals from the cached
// records. The locally recomputed view is the UI source of truth; the
// server summary fetched via ServerSummary is only a cross-check.
func (c *Cache) SummaryByCategory() map[Category]decimal.Decimal {
	return SummaryByCategory(c.Items())
}

// SummaryByMonth recomputes per-month totals from the cached records.
func (c *Cache) SummaryByMonth() map[Month]decimal.Decimal {
	return SummaryByMonth(c.Items())
}

// Total recomputes the overall total from the cached records.
func (c *Cache) Total() decimal.Decimal {
	return Total(c.Items())
}

// ServerSummary requests the server-side category aggregation. When it
// diverges from the local recomputation the local value wins, since it
// reflects the latest acknowledged mutations.
func (c *Cache) ServerSummary(ctx context.Context) (map[Category]decimal.Decimal, error) {
	return c.api.CategorySummary(ctx)
}

// Reset drops all cached state. Called when the session ends; the
// epoch check makes completions of still-in-flight requests no-ops
// either way.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.status = CacheIdle
	c.applied = make(map[uuid.UUID]uint64)
	c.overlay = nil
	c.loadErr = nil
}

// issue stamps a mutation with the session epoch and a monotonically
// increasing sequence number used to detect stale completions.
func (c *Cache) issue() (epoch, seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++

	return c.sess.Epoch(), c.seq
}

// noteOverlay records a mutation outcome while a load is in flight.
func (c *Cache) noteOverlay(id uuid.UUID, op overlayOp) {
	if c.load == nil || c.overlay == nil {
		return
	}

	c.overlay[id] = op
}

func (c *Cache) find(id uuid.UUID) (int, *Expense) {
	for i, e := range c.items {
		if e.ID == id {
			return i, e
		}
	}

	return -1, nil
}

func removeByID(items []*Expense, id uuid.UUID) []*Expense {
	out := items[:0]
	for _, e := range items {
		if e.ID != id {
			out = append(out, e)
		}
	}

	return out
}

func upsert(items []*Expense, item *Expense) []*Expense {
	for i, e := range items {
		if e.ID == item.ID {
			items[i] = item
			return items
		}
	}

	return append(items, item)
}
