package models

import (
	"fmt"
	"time"
)

// AuditEntry is an append-only account event.
type AuditEntry struct {
	ID        int64
	Action    string
	IP        string
	UserName  string
	CreatedAt time.Time
}

func (e AuditEntry) String() string {
	return fmt.Sprintf("%s - %s - %s", e.Action, e.UserName, e.IP)
}

// AppAuditEntry is an append-only event scoped to an app grant.
type AppAuditEntry struct {
	ID           int64
	Action       string
	IP           string
	UserName     string
	AllowedAppID *int64
	AppID        *int64
	CreatedAt    time.Time
}
