package otp

import (
	"context"

	"aurum-storefront/internal/domain"
)

// Repository persists the live one-time code per email.
type Repository interface {
	// Put stores rec, replacing any record for the same email.
	Put(ctx context.Context, rec domain.OTPRecord) error
	// Get returns the record for email or domain.ErrNotFound.
	Get(ctx context.Context, email string) (*domain.OTPRecord, error)
	// Consume deletes the record for rec.Email only while it still holds rec.CodeHash.
	// It returns domain.ErrNotFound when the record is gone or was replaced.
	Consume(ctx context.Context, rec domain.OTPRecord) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
