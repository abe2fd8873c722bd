package dto

import "github.com/spec-kit/helpdesk-service/internal/domain"

// ReplaceConfigPayload swaps the whole configuration document.
type ReplaceConfigPayload struct {
	Departments    []domain.Department   `json:"departments"`
	RequestOptions domain.RequestOptions `json:"request_options"`
}

// ReplaceDepartmentsPayload swaps the department list.
type ReplaceDepartmentsPayload struct {
	Departments []domain.Department `json:"departments"`
}
