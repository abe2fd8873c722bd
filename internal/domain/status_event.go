package domain

import "time"

// StatusEvent is one record of the independent audit stream. It mirrors the
// request's state history but lives in its own collection so metrics keep
// working after a request is trashed.
type StatusEvent struct {
	ID        string        `json:"id"`
	TicketID  string        `json:"ticket_id"`
	Status    RequestStatus `json:"status"`
	ChangedBy string        `json:"changed_by"`
	ChangedAt time.Time     `json:"changed_at"`
}
