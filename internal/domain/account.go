package domain

import "time"

// Account is a user's coin wallet. Coins is never negative; it only
// changes through a conditional write against the previously read value.
type Account struct {
	UserID       string
	Email        string
	Name         string
	PasswordHash string
	Coins        int64
	CreatedAt    time.Time
}
