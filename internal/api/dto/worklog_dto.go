package dto

import "time"

// AddWorklogPayload records hours against a request.
type AddWorklogPayload struct {
	Hours    float64    `json:"hours"`
	Note     *string    `json:"note"`
	LoggedAt *time.Time `json:"logged_at"`
}
