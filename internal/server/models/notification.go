package models

import "time"

// Notification is the optional download notification target of a file.
// NotifiedAt moves from nil to set exactly once.
type Notification struct {
	ID         string
	FileID     string
	Email      string
	NotifiedAt *time.Time
	CreatedAt  time.Time
}
