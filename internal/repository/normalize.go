package repository

import (
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// statusSynonyms maps legacy status spellings from earlier schema revisions to
// the canonical values. Applied only at the scan boundary, never inside the
// lifecycle engine.
var statusSynonyms = map[string]domain.RequestStatus{
	"pending":     domain.StatusPending,
	"open":        domain.StatusPending,
	"in_progress": domain.StatusInProgress,
	"in progress": domain.StatusInProgress,
	"in_review":   domain.StatusInReview,
	"in review":   domain.StatusInReview,
	"finalized":   domain.StatusFinalized,
	"completed":   domain.StatusFinalized,
	"complete":    domain.StatusFinalized,
	"rejected":    domain.StatusRejected,
	"cancelled":   domain.StatusRejected,
	"canceled":    domain.StatusRejected,
}

var validStatuses = map[domain.RequestStatus]struct{}{
	domain.StatusPending:    {},
	domain.StatusInProgress: {},
	domain.StatusInReview:   {},
	domain.StatusFinalized:  {},
	domain.StatusRejected:   {},
}

// NormalizeStatus maps a raw stored status to a canonical one, defaulting to
// PENDING when the value is unknown.
func NormalizeStatus(raw string) domain.RequestStatus {
	if _, ok := validStatuses[domain.RequestStatus(raw)]; ok {
		return domain.RequestStatus(raw)
	}
	if mapped, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return mapped
	}
	return domain.StatusPending
}

// normalizeRequest fills safe defaults for documents written by older schema
// revisions that lack newer fields.
func normalizeRequest(req *domain.Request) {
	req.Status = NormalizeStatus(string(req.Status))
	if req.Type == "" {
		req.Type = domain.TypeSupport
	}
	if req.Channel == "" {
		req.Channel = domain.ChannelSystem
	}
	if req.Priority == "" {
		req.Priority = domain.PriorityMedium
	}
	if req.Department == nil {
		req.Department = []string{}
	}
	if req.StateHistory == nil {
		req.StateHistory = []domain.StateEvent{}
	}
}
