package project

import "time"

// Status values a project can be in.
const (
	StatusInProgress = "in_progress"
	StatusPaused     = "paused"
	StatusCompleted  = "completed"
)

// ValidStatus reports whether s is one of the known project statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusInProgress, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// Project is a tracked piece of work owned by a single user.
type Project struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	StartDate   time.Time `json:"start_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StatusCount is one row of the per-status project breakdown.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}
