package domain

import "time"

// User is the domain model for account holders who own tickets.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
