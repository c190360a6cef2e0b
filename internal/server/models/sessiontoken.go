package models

import "time"

// SessionToken is an ephemeral calculator credential issued on calc-key login.
type SessionToken struct {
	ID         int64
	UserID     *int64
	Token      string
	ExpiryDate time.Time
	Expired    bool
}

// IsValid reports whether the token can still authenticate at now: it must
// not have reached its expiry date and must not have been revoked.
func (t *SessionToken) IsValid(now time.Time) bool {
	return now.Before(t.ExpiryDate) && !t.Expired
}
