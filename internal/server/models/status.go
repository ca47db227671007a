package models

import "time"

// State is the lifecycle state of a file record.
type State string

const (
	StateActive    State = "active"
	StateExhausted State = "exhausted"
	StateExpired   State = "expired"
	StateDeleted   State = "deleted"
)

// State derives the record's lifecycle state at now. Deleted wins over
// expired, which wins over exhausted.
func (f *FileRecord) State(now time.Time) State {
	switch {
	case f.DeletedAt != nil:
		return StateDeleted
	case f.ExpiredAt(now):
		return StateExpired
	case f.DownloadCount >= f.MaxDownloads:
		return StateExhausted
	default:
		return StateActive
	}
}

// Status is the public, read-only view of a record.
type Status struct {
	DownloadsRemaining int64
	ExpiresAt          *time.Time
	CreatedAt          time.Time
	State              State
}
