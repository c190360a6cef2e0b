// Package models defines server-side data models persisted in the database.
package models

import "time"

// DefaultBio is stored for accounts that never set one.
const DefaultBio = "This user doesnt have a bio yet."

// Identity is a registered user account.
type Identity struct {
	ID           int64
	UserName     string
	Email        string
	PasswordHash string
	Bio          string
	// APIKey is the user's single long-lived key; empty when never issued.
	APIKey string
	// CalcKey is the calculator shared secret embedded in the keyfile.
	CalcKey    string
	DateJoined time.Time
	LastLogin  *time.Time
}
