package cart

import (
	"context"

	"aurum-storefront/internal/domain"
)

// Repository stores one remote cart per customer with a monotonic version.
type Repository interface {
	// Get returns the stored cart, or an empty cart at version 0 when none exists.
	Get(ctx context.Context, customerID string) (*domain.RemoteCart, error)
	// Save replaces the items. A non-nil expectedVersion must equal the stored
	// version or Save fails with domain.ErrConflict. The saved cart carries the new version.
	Save(ctx context.Context, customerID string, items []domain.LineItem, expectedVersion *int64) (*domain.RemoteCart, error)
}
