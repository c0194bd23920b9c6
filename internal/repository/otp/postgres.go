package otp

import (
	"context"
	"errors"

	"aurum-storefront/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Repository backed by the otp_codes table.
func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Put(ctx context.Context, rec domain.OTPRecord) error {
	const q = `
INSERT INTO otp_codes (email, code_hash, customer_id, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (email) DO UPDATE
SET code_hash = EXCLUDED.code_hash,
    customer_id = EXCLUDED.customer_id,
    expires_at = EXCLUDED.expires_at,
    created_at = now()
`
	_, err := r.pool.Exec(ctx, q, rec.Email, rec.CodeHash, rec.CustomerID, rec.ExpiresAt)
	return err
}

func (r *postgresRepo) Get(ctx context.Context, email string) (*domain.OTPRecord, error) {
	const q = `
SELECT email, code_hash, customer_id, expires_at
FROM otp_codes
WHERE email = $1
`
	var rec domain.OTPRecord
	err := r.pool.QueryRow(ctx, q, email).Scan(&rec.Email, &rec.CodeHash, &rec.CustomerID, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *postgresRepo) Consume(ctx context.Context, rec domain.OTPRecord) error {
	const q = `
DELETE FROM otp_codes
WHERE email = $1 AND code_hash = $2
RETURNING email
`
	var email string
	if err := r.pool.QueryRow(ctx, q, rec.Email, rec.CodeHash).Scan(&email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *postgresRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
