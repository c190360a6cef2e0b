package models

import "time"

// NeverExpires is the Expires value of an app key without a rolling window.
const NeverExpires = -1

// AppAPIKey identifies a third-party application.
type AppAPIKey struct {
	ID          int64
	UserID      *int64
	Name        string
	Description string
	Key         string
	// Expires is the rolling validity window in hours, or NeverExpires.
	Expires  int
	LastUsed time.Time
	Expired  bool
}

// IsValid reports whether the key may authenticate at now. Keys with a
// window stay valid while now - LastUsed is shorter than Expires hours.
func (k *AppAPIKey) IsValid(now time.Time) bool {
	if k.Expired {
		return false
	}
	if k.Expires == NeverExpires {
		return true
	}
	return now.Sub(k.LastUsed) < time.Duration(k.Expires)*time.Hour
}

// OwnedBy reports whether userID created the key.
func (k *AppAPIKey) OwnedBy(userID int64) bool {
	return k.UserID != nil && *k.UserID == userID
}
