package domain

import "time"

// TrashEntry wraps a soft-deleted request snapshot until it expires.
type TrashEntry struct {
	ID            string    `json:"id"`
	Request       Request   `json:"request_doc"`
	DeletedAt     time.Time `json:"deleted_at"`
	DeletedByID   string    `json:"deleted_by_id"`
	DeletedByName string    `json:"deleted_by_name"`
	ExpiresAt     time.Time `json:"expires_at"`
}
