package domain

import "time"

// Identity is what a verified session token says about its bearer.
type Identity struct {
	PrincipalID string
	Email       string
	AccountType AccountType
	TokenID     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// IssuedToken is a signed session token and its expiry.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}
