package domain

import "time"

// Claims is the identity carried by a session token.
type Claims struct {
	CustomerID string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName,omitempty"`
	LastName   string    `json:"lastName,omitempty"`
	IssuedAt   time.Time `json:"-"`
	ExpiresAt  time.Time `json:"-"`
}
