package models

import (
	"time"
)

type SearchStatus string

const (
	SearchRunning   SearchStatus = "RUNNING"
	SearchCompleted SearchStatus = "COMPLETED"
	SearchFailed    SearchStatus = "FAILED"
)

// SearchRun is the persisted record of one session.
type SearchRun struct {
	ID         string       `json:"id"`
	Keywords   string       `json:"keywords"`
	Location   string       `json:"location"`
	Strategy   string       `json:"strategy"`
	Status     SearchStatus `json:"status"`
	TotalFound int          `json:"total_found"`
	Message    *string      `json:"message,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// StoredJob is a Job as saved by the database sink.
type StoredJob struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	ExternalID  string    `json:"external_id"`
	SearchRunID string    `json:"search_run_id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	URL         string    `json:"url"`
	Description string    `json:"description_raw"`
	PostedText  *string   `json:"posted_text,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
