package models

import "time"

type AuditEventType string

const (
	AuditUpload   AuditEventType = "upload"
	AuditDownload AuditEventType = "download"
)

// AuditEntry is an append-only access log row.
type AuditEntry struct {
	ID      string
	FileID  string
	Type    AuditEventType
	Actor   string
	Details string
	Time    time.Time
}
