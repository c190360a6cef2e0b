package models

import "time"

// AllowedApp records that a user authorised an app to act on their behalf.
// (UserID, AppID) is unique.
type AllowedApp struct {
	ID          int64
	UserID      int64
	AppID       int64
	GrantedDate time.Time

	// Populated by listing queries.
	AppName        string
	AppDescription string
}
