package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

func newTestRequestService(store *fakeStore) *RequestService {
	return NewRequestService(RequestDependencies{
		RequestRepo: store,
		UserRepo:    userAdapter{store},
		AuditRepo:   store,
		MaxPageSize: 50,
	})
}

func testAdmin(store *fakeStore) *domain.User {
	return store.addUser(&domain.User{ID: "admin-1", Username: "admin", FullName: "Ada Admin", Role: domain.RoleAdmin})
}

func testSupport(store *fakeStore) *domain.User {
	return store.addUser(&domain.User{ID: "tech-1", Username: "tech", FullName: "Toni Tech", Role: domain.RoleSupport})
}

func testEmployee(store *fakeStore) *domain.User {
	return store.addUser(&domain.User{ID: "emp-1", Username: "emp", FullName: "Eve Employee", Role: domain.RoleEmployee, Department: []string{"IT"}})
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *util.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code
}

func TestCreateYieldsInitialHistory(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	employee := testEmployee(store)

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "printer broken"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Equal(t, 0, req.ReopenCount)
	require.Len(t, req.StateHistory, 1)
	assert.Nil(t, req.StateHistory[0].FromStatus)
	assert.Equal(t, domain.StatusPending, req.StateHistory[0].ToStatus)
	assert.Equal(t, employee.ID, req.RequesterID)
	assert.Equal(t, []string{"IT"}, req.Department)

	require.Len(t, store.audits, 1)
	assert.Equal(t, req.ID, store.audits[0].TicketID)
	assert.Equal(t, domain.StatusPending, store.audits[0].Status)
}

func TestCreateRequiresTitle(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	employee := testEmployee(store)

	_, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "   "})
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestCreatePrivilegedFieldsAdminOnly(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	admin := testAdmin(store)
	tech := testSupport(store)
	employee := testEmployee(store)

	level := 2
	hours := 5.0
	input := RequestCreateInput{Title: "db migration", Level: &level, AssignedTo: &tech.ID, EstimatedHours: &hours}

	byAdmin, err := svc.Create(context.Background(), admin, input)
	require.NoError(t, err)
	require.NotNil(t, byAdmin.Level)
	assert.Equal(t, 2, *byAdmin.Level)
	require.NotNil(t, byAdmin.AssignedTo)
	assert.Equal(t, tech.ID, *byAdmin.AssignedTo)
	assert.Equal(t, tech.FullName, *byAdmin.AssignedToName)

	byEmployee, err := svc.Create(context.Background(), employee, input)
	require.NoError(t, err)
	assert.Nil(t, byEmployee.Level)
	assert.Nil(t, byEmployee.AssignedTo)
	assert.Nil(t, byEmployee.EstimatedHours)
}

func TestTransitionInvalid(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	admin := testAdmin(store)
	employee := testEmployee(store)

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "x"})
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), admin, req.ID, TransitionInput{ToStatus: domain.StatusFinalized})
	assert.Equal(t, "INVALID_TRANSITION", errCode(t, err))
}

func TestTransitionUnknownRequest(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	admin := testAdmin(store)

	_, err := svc.Transition(context.Background(), admin, "missing", TransitionInput{ToStatus: domain.StatusInProgress})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", util.ToDomainError(err).Code)
}

func TestTransitionForbiddenForEmployees(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	employee := testEmployee(store)
	other := store.addUser(&domain.User{ID: "emp-2", Username: "other", FullName: "Omar Other", Role: domain.RoleEmployee})

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "x"})
	require.NoError(t, err)

	// neither a bystander nor the requester may drive the workflow
	_, err = svc.Transition(context.Background(), other, req.ID, TransitionInput{ToStatus: domain.StatusInProgress})
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
	_, err = svc.Transition(context.Background(), employee, req.ID, TransitionInput{ToStatus: domain.StatusInProgress})
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	fetched, err := svc.Get(context.Background(), employee, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, fetched.Status)
}

func TestRejectionRequiresComment(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	admin := testAdmin(store)
	employee := testEmployee(store)

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "x"})
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), admin, req.ID, TransitionInput{ToStatus: domain.StatusRejected, Comment: "   "})
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	rejected, err := svc.Transition(context.Background(), admin, req.ID, TransitionInput{ToStatus: domain.StatusRejected, Comment: "duplicate of another request"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "duplicate of another request", *rejected.RejectionReason)
	assert.NotNil(t, rejected.CompletionDate)
}

func TestReviewRequiresEvidenceAndActor(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	admin := testAdmin(store)
	tech := testSupport(store)
	employee := testEmployee(store)
	otherTech := store.addUser(&domain.User{ID: "tech-9", Username: "unrelated", FullName: "Uma Unrelated", Role: domain.RoleSupport})

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "x"})
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), admin, req.ID, tech.ID, nil, nil)
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), tech, req.ID, TransitionInput{ToStatus: domain.StatusInProgress})
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), tech, req.ID, TransitionInput{ToStatus: domain.StatusInReview})
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	// support staff who neither hold nor requested the ticket may not
	// send it to review
	_, err = svc.Transition(context.Background(), otherTech, req.ID, TransitionInput{ToStatus: domain.StatusInReview, EvidenceLink: "http://proof"})
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	reviewed, err := svc.Transition(context.Background(), tech, req.ID, TransitionInput{ToStatus: domain.StatusInReview, EvidenceLink: "http://proof"})
	require.NoError(t, err)
	require.NotNil(t, reviewed.ReviewEvidence)
	assert.Equal(t, "http://proof", reviewed.ReviewEvidence.URL)
	assert.Equal(t, tech.ID, reviewed.ReviewEvidence.ByUserID)
}

func TestAssignOverwritesRequesterAttribution(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	admin := testAdmin(store)
	tech := testSupport(store)
	employee := testEmployee(store)

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, employee.ID, req.RequesterID)

	assigned, err := svc.Assign(context.Background(), admin, req.ID, tech.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, tech.ID, *assigned.AssignedTo)
	// legacy behavior: the assigner becomes the recorded requester
	assert.Equal(t, admin.ID, assigned.RequesterID)
	assert.Equal(t, admin.FullName, assigned.RequesterName)
}

func TestAssignDefaultsToActingAdmin(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	admin := testAdmin(store)
	employee := testEmployee(store)

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "x"})
	require.NoError(t, err)

	assigned, err := svc.Assign(context.Background(), admin, req.ID, "", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, admin.ID, *assigned.AssignedTo)
	assert.Equal(t, admin.FullName, *assigned.AssignedToName)
}

func TestAssignRejectsNonStaffTarget(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	admin := testAdmin(store)
	employee := testEmployee(store)

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "x"})
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), admin, req.ID, employee.ID, nil, nil)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestHappyPathLifecycle(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	admin := testAdmin(store)
	employee := testEmployee(store)

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "laptop replacement"})
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), admin, req.ID, TransitionInput{ToStatus: domain.StatusInProgress})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), admin, req.ID, TransitionInput{ToStatus: domain.StatusInReview, EvidenceLink: "http://x"})
	require.NoError(t, err)
	final, err := svc.Transition(context.Background(), admin, req.ID, TransitionInput{ToStatus: domain.StatusFinalized})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFinalized, final.Status)
	assert.Len(t, final.StateHistory, 4)
	assert.Equal(t, 0, final.ReopenCount)
	assert.NotNil(t, final.CompletionDate)

	withFeedback, err := svc.SubmitFeedback(context.Background(), employee, req.ID, domain.RatingUp, nil)
	require.NoError(t, err)
	require.NotNil(t, withFeedback.Feedback)
	assert.Equal(t, domain.RatingUp, withFeedback.Feedback.Rating)

	audits, err := store.ListByTicket(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Len(t, audits, 4)
}

func TestReworkIncrementsReopenCount(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	admin := testAdmin(store)
	employee := testEmployee(store)

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "x"})
	require.NoError(t, err)
	for _, step := range []TransitionInput{
		{ToStatus: domain.StatusInProgress},
		{ToStatus: domain.StatusInReview, EvidenceLink: "http://x"},
		{ToStatus: domain.StatusFinalized},
	} {
		_, err = svc.Transition(context.Background(), admin, req.ID, step)
		require.NoError(t, err)
	}

	_, err = svc.SubmitFeedback(context.Background(), employee, req.ID, domain.RatingDown, nil)
	require.NoError(t, err)

	reopened, err := svc.Transition(context.Background(), admin, req.ID, TransitionInput{ToStatus: domain.StatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.ReopenCount)
	assert.Len(t, reopened.StateHistory, 5)

	_, err = svc.Transition(context.Background(), admin, req.ID, TransitionInput{ToStatus: domain.StatusInReview, EvidenceLink: "http://y"})
	require.NoError(t, err)
	again, err := svc.Transition(context.Background(), admin, req.ID, TransitionInput{ToStatus: domain.StatusFinalized})
	require.NoError(t, err)
	assert.Len(t, again.StateHistory, 7)
	assert.Equal(t, 1, again.ReopenCount)

	// feedback was consumed before the rework; a second attempt conflicts
	_, err = svc.SubmitFeedback(context.Background(), employee, req.ID, domain.RatingUp, nil)
	assert.Equal(t, "ALREADY_EXISTS", errCode(t, err))
}

func TestOpenStateTransitionsNeverTouchReopenCount(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	admin := testAdmin(store)
	employee := testEmployee(store)

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "x"})
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), admin, req.ID, TransitionInput{ToStatus: domain.StatusInProgress})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), admin, req.ID, TransitionInput{ToStatus: domain.StatusInReview, EvidenceLink: "http://x"})
	require.NoError(t, err)
	back, err := svc.Transition(context.Background(), admin, req.ID, TransitionInput{ToStatus: domain.StatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, 0, back.ReopenCount)
}

func TestFeedbackGating(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	employee := testEmployee(store)
	stranger := store.addUser(&domain.User{ID: "emp-2", Username: "other", FullName: "Omar Other", Role: domain.RoleEmployee})

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "x"})
	require.NoError(t, err)

	_, err = svc.SubmitFeedback(context.Background(), employee, req.ID, domain.RatingUp, nil)
	assert.Equal(t, "INVALID_STATE", errCode(t, err))

	_, err = svc.SubmitFeedback(context.Background(), stranger, req.ID, domain.RatingUp, nil)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = svc.SubmitFeedback(context.Background(), employee, req.ID, "sideways", nil)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

type staleRepo struct {
	repository.RequestRepository
}

func (r staleRepo) ApplyTransition(context.Context, repository.TransitionMutation) error {
	return repository.ErrStaleStatus
}

func TestLostConditionalUpdateSurfacesConflict(t *testing.T) {
	store := newFakeStore()
	tech := testSupport(store)
	employee := testEmployee(store)
	svc := NewRequestService(RequestDependencies{
		RequestRepo: staleRepo{store},
		UserRepo:    userAdapter{store},
		AuditRepo:   store,
	})

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "x"})
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), tech, req.ID, TransitionInput{ToStatus: domain.StatusInProgress})
	assert.Equal(t, "CONFLICT", errCode(t, err))
	assert.False(t, errors.Is(err, repository.ErrStaleStatus), "repository sentinel must not leak")
}

func TestListScopesEmployeesToOwnRequests(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	admin := testAdmin(store)
	employee := testEmployee(store)
	other := store.addUser(&domain.User{ID: "emp-2", Username: "other", FullName: "Omar Other", Role: domain.RoleEmployee})

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: fmt.Sprintf("mine %d", i)})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), other, RequestCreateInput{Title: "theirs"})
	require.NoError(t, err)

	mine, meta, err := svc.List(context.Background(), employee, RequestListInput{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, mine, 3)
	assert.Equal(t, 3, meta.Total)

	all, meta, err := svc.List(context.Background(), admin, RequestListInput{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, 4, meta.Total)
}

func TestListClampsPageBeyondEnd(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	admin := testAdmin(store)

	for i := 0; i < 25; i++ {
		_, err := svc.Create(context.Background(), admin, RequestCreateInput{Title: fmt.Sprintf("req %02d", i)})
		require.NoError(t, err)
	}

	items, meta, err := svc.List(context.Background(), admin, RequestListInput{Page: 99, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 3, meta.Page)
	assert.Len(t, items, 5)
}

func TestClassifyValidatesLevel(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	admin := testAdmin(store)
	tech := testSupport(store)
	employee := testEmployee(store)

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "x"})
	require.NoError(t, err)

	_, err = svc.Classify(context.Background(), tech, req.ID, 2, domain.PriorityHigh)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = svc.Classify(context.Background(), admin, req.ID, 4, domain.PriorityHigh)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	classified, err := svc.Classify(context.Background(), admin, req.ID, 2, domain.PriorityHigh)
	require.NoError(t, err)
	require.NotNil(t, classified.Level)
	assert.Equal(t, 2, *classified.Level)
	assert.Equal(t, domain.PriorityHigh, classified.Priority)
	// classification does not touch status or history
	assert.Equal(t, domain.StatusPending, classified.Status)
	assert.Len(t, classified.StateHistory, 1)
}

func TestGetForbiddenForOtherEmployee(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	employee := testEmployee(store)
	other := store.addUser(&domain.User{ID: "emp-2", Username: "other", FullName: "Omar Other", Role: domain.RoleEmployee})

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "x"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), other, req.ID)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
}

func TestTransitionTimestampsAreUTC(t *testing.T) {
	store := newFakeStore()
	svc := newTestRequestService(store)
	employee := testEmployee(store)

	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	req, err := svc.Create(context.Background(), employee, RequestCreateInput{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, fixed, req.CreatedAt)
	assert.Equal(t, fixed, req.StateHistory[0].At)
	assert.Equal(t, time.UTC, req.CreatedAt.Location())
}
