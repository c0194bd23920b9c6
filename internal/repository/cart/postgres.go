package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"aurum-storefront/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Repository backed by the customer_carts table.
func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Get(ctx context.Context, customerID string) (*domain.RemoteCart, error) {
	const q = `
SELECT items, version, updated_at
FROM customer_carts
WHERE customer_id = $1
`
	var (
		raw  []byte
		cart domain.RemoteCart
	)
	err := r.pool.QueryRow(ctx, q, customerID).Scan(&raw, &cart.Version, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.RemoteCart{Items: []domain.LineItem{}}, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &cart.Items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	cart.Items = domain.CloneItems(cart.Items)
	return &cart, nil
}

func (r *postgresRepo) Save(ctx context.Context, customerID string, items []domain.LineItem, expectedVersion *int64) (*domain.RemoteCart, error) {
	items = domain.CloneItems(items)
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode cart items: %w", err)
	}

	var (
		q    string
		args []any
	)
	switch {
	case expectedVersion == nil:
		q = `
INSERT INTO customer_carts (customer_id, items, version, updated_at)
VALUES ($1, $2, 1, now())
ON CONFLICT (customer_id) DO UPDATE
SET items = EXCLUDED.items,
    version = customer_carts.version + 1,
    updated_at = now()
RETURNING version, updated_at
`
		args = []any{customerID, raw}
	case *expectedVersion == 0:
		q = `
INSERT INTO customer_carts (customer_id, items, version, updated_at)
VALUES ($1, $2, 1, now())
ON CONFLICT (customer_id) DO NOTHING
RETURNING version, updated_at
`
		args = []any{customerID, raw}
	default:
		q = `
UPDATE customer_carts
SET items = $2,
    version = version + 1,
    updated_at = now()
WHERE customer_id = $1 AND version = $3
RETURNING version, updated_at
`
		args = []any{customerID, raw, *expectedVersion}
	}

	cart := domain.RemoteCart{Items: items}
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&cart.Version, &cart.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cart for %s moved past version %d: %w", customerID, *expectedVersion, domain.ErrConflict)
		}
		return nil, err
	}
	return &cart, nil
}
