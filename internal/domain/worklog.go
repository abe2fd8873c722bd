package domain

import "time"

// Worklog records hours a technician spent on a request.
type Worklog struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Hours     float64   `json:"hours"`
	Note      *string   `json:"note,omitempty"`
	LoggedAt  time.Time `json:"logged_at"`
	CreatedAt time.Time `json:"created_at"`
}
