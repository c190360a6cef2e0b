package models

import "time"

// WebSession is a server-side browser session. The signed cookie only
// carries SessionKey; expiry is authoritative here.
type WebSession struct {
	SessionKey string
	UserID     int64
	ExpireDate time.Time
	CreatedAt  time.Time
}

func (s *WebSession) IsActive(now time.Time) bool {
	return now.Before(s.ExpireDate)
}
