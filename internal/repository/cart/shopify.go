package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aurum-storefront/internal/domain"
)

// MetafieldStore reads and writes the cart metafield on a customer record.
type MetafieldStore interface {
	GetCartMetafield(ctx context.Context, customerID string) (*domain.RemoteCart, error)
	SetCartMetafield(ctx context.Context, customerID string, cart domain.RemoteCart) error
}

type shopifyRepo struct {
	store MetafieldStore
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewShopify returns a Repository keeping the cart in the customer's metafield.
// The platform has no compare-and-swap, so the version check is read-then-write,
// serialised per customer within this process only.
func NewShopify(store MetafieldStore) Repository {
	return &shopifyRepo{store: store, now: time.Now, locks: make(map[string]*sync.Mutex)}
}

func (r *shopifyRepo) Get(ctx context.Context, customerID string) (*domain.RemoteCart, error) {
	return r.store.GetCartMetafield(ctx, customerID)
}

func (r *shopifyRepo) Save(ctx context.Context, customerID string, items []domain.LineItem, expectedVersion *int64) (*domain.RemoteCart, error) {
	lock := r.lockFor(customerID)
	lock.Lock()
	defer lock.Unlock()

	current, err := r.store.GetCartMetafield(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != current.Version {
		return nil, fmt.Errorf("cart for %s at version %d, expected %d: %w", customerID, current.Version, *expectedVersion, domain.ErrConflict)
	}

	next := domain.RemoteCart{
		Items:     domain.CloneItems(items),
		Version:   current.Version + 1,
		UpdatedAt: r.now().UTC().Truncate(time.Millisecond),
	}
	if err := r.store.SetCartMetafield(ctx, customerID, next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (r *shopifyRepo) lockFor(customerID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[customerID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[customerID] = l
	}
	return l
}
