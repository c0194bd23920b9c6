package domain

import "time"

// OTPRecord is the single live one-time code for an email address.
type OTPRecord struct {
	Email      string    `json:"email"`
	CodeHash   string    `json:"code"`
	CustomerID string    `json:"customerId"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Expired reports whether the record is past its expiry at now.
func (r OTPRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
