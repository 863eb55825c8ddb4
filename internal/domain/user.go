package domain

import "time"

// User represents an account that can authenticate with email and password.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
}

// Identity is the caller resolved from a verified bearer token.
type Identity struct {
	UserID    int64
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
