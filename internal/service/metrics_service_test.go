package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// 2026-03-10 is a Tuesday.
var metricsNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func newTestMetricsService(repo *fakeMetricsRepo) *MetricsService {
	svc := NewMetricsService(repo, staticConfig{cfg: domain.DefaultAppConfig()})
	svc.now = func() time.Time { return metricsNow }
	return svc
}

func strPtr(s string) *string { return &s }

func ratingPtr(r domain.FeedbackRating) *domain.FeedbackRating { return &r }

func timePtr(t time.Time) *time.Time { return &t }

func TestResolvePeriodDaily(t *testing.T) {
	p := ResolvePeriod("daily", metricsNow)
	assert.Equal(t, "daily", p.Name)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), p.End)
}

func TestResolvePeriodWeeklyStartsMonday(t *testing.T) {
	for _, keyword := range []string{"weekly", "week", "WEEKLY"} {
		p := ResolvePeriod(keyword, metricsNow)
		assert.Equal(t, "weekly", p.Name)
		assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), p.Start, keyword)
		assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), p.End, keyword)
	}

	// a Monday is its own week start
	monday := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	p := ResolvePeriod("weekly", monday)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), p.Start)

	// Sunday backs up six days
	sunday := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	p = ResolvePeriod("weekly", sunday)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), p.Start)
}

func TestResolvePeriodMonthly(t *testing.T) {
	p := ResolvePeriod("monthly", metricsNow)
	assert.Equal(t, "monthly", p.Name)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), p.End)
}

func TestResolvePeriodUnknownFallsBackToDaily(t *testing.T) {
	p := ResolvePeriod("quarterly", metricsNow)
	assert.Equal(t, "daily", p.Name)
}

func TestSummaryEmpty(t *testing.T) {
	svc := newTestMetricsService(&fakeMetricsRepo{})

	report, err := svc.Summary(context.Background(), "daily", false)
	require.NoError(t, err)

	assert.Equal(t, 0, report.New)
	assert.Equal(t, 0, report.Finished)
	assert.Equal(t, 0.0, report.AvgCycleHours)
	assert.Equal(t, 0, report.Totals.Total)
	assert.Empty(t, report.ProductivityByTech)
	assert.Nil(t, report.Extended)
}

func finalizedSnap(id, techID, techName string, completed time.Time) repository.RequestSnapshot {
	return repository.RequestSnapshot{
		ID:             id,
		Status:         domain.StatusFinalized,
		Priority:       domain.PriorityMedium,
		AssignedTo:     strPtr(techID),
		AssignedToName: strPtr(techName),
		CreatedAt:      completed.Add(-4 * time.Hour),
		RequestedAt:    completed.Add(-4 * time.Hour),
		CompletionDate: timePtr(completed),
	}
}

func TestSummaryCoreCounters(t *testing.T) {
	inPeriod := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	repo := &fakeMetricsRepo{snapshots: []repository.RequestSnapshot{
		finalizedSnap("r1", "tech-1", "Toni", inPeriod),
		finalizedSnap("r2", "tech-1", "Toni", inPeriod.Add(time.Hour)),
		{
			ID:          "r3",
			Status:      domain.StatusPending,
			CreatedAt:   inPeriod,
			RequestedAt: inPeriod,
		},
		{
			ID:          "r4",
			Status:      domain.StatusInReview,
			AssignedTo:  strPtr("tech-2"),
			CreatedAt:   inPeriod.AddDate(0, 0, -3),
			RequestedAt: inPeriod.AddDate(0, 0, -3),
		},
	}}
	svc := newTestMetricsService(repo)

	report, err := svc.Summary(context.Background(), "daily", false)
	require.NoError(t, err)

	assert.Equal(t, 3, report.New)
	assert.Equal(t, 2, report.Finished)
	assert.Equal(t, 2, report.PendingNow)
	assert.Equal(t, 1, report.InReviewNow)
	assert.Equal(t, 4.0, report.AvgCycleHours)
	assert.Equal(t, 4, report.Totals.Total)
	assert.Equal(t, 3, report.Totals.Assigned)
	assert.Equal(t, 1, report.Totals.Unassigned)
	assert.Equal(t, 3, report.Totals.NewLast24h)
}

func TestPendingNowCountsEveryOpenStatus(t *testing.T) {
	repo := &fakeMetricsRepo{snapshots: []repository.RequestSnapshot{
		{ID: "r1", Status: domain.StatusPending, CreatedAt: metricsNow, RequestedAt: metricsNow},
		{ID: "r2", Status: domain.StatusInProgress, CreatedAt: metricsNow, RequestedAt: metricsNow},
		{ID: "r3", Status: domain.StatusInReview, CreatedAt: metricsNow, RequestedAt: metricsNow},
		finalizedSnap("r4", "tech-1", "Toni", metricsNow),
		{ID: "r5", Status: domain.StatusRejected, CreatedAt: metricsNow, RequestedAt: metricsNow},
	}}
	svc := newTestMetricsService(repo)

	report, err := svc.Summary(context.Background(), "daily", false)
	require.NoError(t, err)

	assert.Equal(t, 3, report.PendingNow)
	assert.Equal(t, 1, report.InReviewNow)
}

func TestProductivityInReviewPassOverwritesAttended(t *testing.T) {
	inPeriod := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	snapshots := []repository.RequestSnapshot{
		finalizedSnap("r1", "tech-1", "Toni", inPeriod),
		finalizedSnap("r2", "tech-1", "Toni", inPeriod),
		finalizedSnap("r3", "tech-1", "Toni", inPeriod),
		// an in-review ticket with a completion stamp inside the window
		// replaces the finalized tally for tech-1
		{
			ID:             "r4",
			Status:         domain.StatusInReview,
			AssignedTo:     strPtr("tech-1"),
			AssignedToName: strPtr("Toni"),
			CreatedAt:      inPeriod.Add(-2 * time.Hour),
			RequestedAt:    inPeriod.Add(-2 * time.Hour),
			CompletionDate: timePtr(inPeriod),
		},
		finalizedSnap("r5", "tech-2", "Zara", inPeriod),
		finalizedSnap("r6", "tech-2", "Zara", inPeriod),
	}
	svc := newTestMetricsService(&fakeMetricsRepo{snapshots: snapshots})

	report, err := svc.Summary(context.Background(), "daily", false)
	require.NoError(t, err)

	require.Len(t, report.ProductivityByTech, 2)
	// tech-2 keeps 2; tech-1 had 3 but the overwrite drops it to 1
	assert.Equal(t, "tech-2", report.ProductivityByTech[0].TechID)
	assert.Equal(t, 2, report.ProductivityByTech[0].AttendedPeriod)
	assert.Equal(t, "tech-1", report.ProductivityByTech[1].TechID)
	assert.Equal(t, 1, report.ProductivityByTech[1].AttendedPeriod)
	assert.Equal(t, 4, report.ProductivityByTech[1].AssignedTotal)
	assert.Equal(t, 1, report.ProductivityByTech[1].PendingNow)
}

func TestProductivityTieBreaksOnName(t *testing.T) {
	inPeriod := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	snapshots := []repository.RequestSnapshot{
		finalizedSnap("r1", "tech-b", "Bruno", inPeriod),
		finalizedSnap("r2", "tech-a", "Alba", inPeriod),
	}
	svc := newTestMetricsService(&fakeMetricsRepo{snapshots: snapshots})

	report, err := svc.Summary(context.Background(), "daily", false)
	require.NoError(t, err)
	require.Len(t, report.ProductivityByTech, 2)
	assert.Equal(t, "Alba", report.ProductivityByTech[0].TechName)
	assert.Equal(t, "Bruno", report.ProductivityByTech[1].TechName)
}

func TestAvgTimeByStatusClipsToWindow(t *testing.T) {
	dayStart := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	pending := domain.StatusPending
	progress := domain.StatusInProgress
	snap := repository.RequestSnapshot{
		ID:             "r1",
		Status:         domain.StatusFinalized,
		CreatedAt:      dayStart.Add(-2 * time.Hour),
		RequestedAt:    dayStart.Add(-2 * time.Hour),
		CompletionDate: timePtr(dayStart.Add(8 * time.Hour)),
		History: []domain.StateEvent{
			// pending segment starts before the window; only 2h count
			{ToStatus: pending, At: dayStart.Add(-2 * time.Hour)},
			{FromStatus: &pending, ToStatus: progress, At: dayStart.Add(2 * time.Hour)},
			{FromStatus: &progress, ToStatus: domain.StatusFinalized, At: dayStart.Add(8 * time.Hour)},
		},
	}
	svc := newTestMetricsService(&fakeMetricsRepo{snapshots: []repository.RequestSnapshot{snap}})

	report, err := svc.Summary(context.Background(), "daily", true)
	require.NoError(t, err)
	require.NotNil(t, report.Extended)

	byStatus := map[domain.RequestStatus]StatusHours{}
	for _, entry := range report.Extended.AvgTimeByStatus {
		byStatus[entry.Status] = entry
	}
	assert.InDelta(t, 2.0, byStatus[domain.StatusPending].AvgHours, 0.001)
	assert.Equal(t, 1, byStatus[domain.StatusPending].Segments)
	assert.InDelta(t, 6.0, byStatus[domain.StatusInProgress].AvgHours, 0.001)
	assert.Equal(t, 0, byStatus[domain.StatusInReview].Segments)
	assert.Equal(t, 0.0, byStatus[domain.StatusInReview].AvgHours)
}

func TestReturnsFromReviewAdjacency(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	events := []domain.StatusEvent{
		{ID: "e1", TicketID: "t1", Status: domain.StatusInProgress, ChangedBy: "tech-1", ChangedAt: base},
		{ID: "e2", TicketID: "t1", Status: domain.StatusInReview, ChangedBy: "tech-1", ChangedAt: base.Add(time.Hour)},
		{ID: "e3", TicketID: "t1", Status: domain.StatusInProgress, ChangedBy: "tech-2", ChangedAt: base.Add(2 * time.Hour)},
		{ID: "e4", TicketID: "t1", Status: domain.StatusInReview, ChangedBy: "tech-2", ChangedAt: base.Add(3 * time.Hour)},
		{ID: "e5", TicketID: "t1", Status: domain.StatusFinalized, ChangedBy: "admin-1", ChangedAt: base.Add(4 * time.Hour)},
		// review on another ticket that never bounced
		{ID: "e6", TicketID: "t2", Status: domain.StatusInReview, ChangedBy: "tech-1", ChangedAt: base},
		{ID: "e7", TicketID: "t2", Status: domain.StatusFinalized, ChangedBy: "admin-1", ChangedAt: base.Add(time.Hour)},
	}
	repo := &fakeMetricsRepo{events: events, names: map[string]string{"tech-2": "Zara"}}
	svc := newTestMetricsService(repo)

	report, err := svc.Summary(context.Background(), "daily", true)
	require.NoError(t, err)

	returns := report.Extended.ReturnsFromReview
	require.Len(t, returns, 1)
	// the bounce is attributed to whoever moved it back to in-progress
	assert.Equal(t, "tech-2", returns[0].TechID)
	assert.Equal(t, "Zara", returns[0].TechName)
	assert.Equal(t, 1, returns[0].Returns)
}

func TestFeedbackRankings(t *testing.T) {
	inPeriod := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	snapshots := []repository.RequestSnapshot{
		{
			ID:             "r1",
			Status:         domain.StatusFinalized,
			AssignedTo:     strPtr("tech-1"),
			AssignedToName: strPtr("Toni"),
			Department:     []string{"IT"},
			CreatedAt:      inPeriod,
			RequestedAt:    inPeriod,
			FeedbackRating: ratingPtr(domain.RatingUp),
		},
		{
			ID:             "r2",
			Status:         domain.StatusFinalized,
			AssignedTo:     strPtr("tech-1"),
			AssignedToName: strPtr("Toni"),
			Department:     []string{"IT"},
			CreatedAt:      inPeriod,
			RequestedAt:    inPeriod,
			FeedbackRating: ratingPtr(domain.RatingDown),
		},
		{
			ID:             "r3",
			Status:         domain.StatusFinalized,
			AssignedTo:     strPtr("tech-2"),
			AssignedToName: strPtr("Zara"),
			Department:     []string{"HR"},
			CreatedAt:      inPeriod,
			RequestedAt:    inPeriod,
			FeedbackRating: ratingPtr(domain.RatingUp),
		},
	}
	svc := newTestMetricsService(&fakeMetricsRepo{snapshots: snapshots})

	report, err := svc.Summary(context.Background(), "daily", true)
	require.NoError(t, err)

	byTech := report.Extended.FeedbackByTech
	require.Len(t, byTech, 2)
	assert.Equal(t, "tech-2", byTech[0].Key)
	assert.Equal(t, 1, byTech[0].Score)
	assert.Equal(t, "tech-1", byTech[1].Key)
	assert.Equal(t, 0, byTech[1].Score)
	assert.Equal(t, 1, byTech[1].Up)
	assert.Equal(t, 1, byTech[1].Down)

	byDept := map[string]FeedbackCount{}
	for _, entry := range report.Extended.FeedbackByDepartment {
		byDept[entry.Key] = entry
	}
	assert.Equal(t, 0, byDept["IT"].Score)
	assert.Equal(t, 1, byDept["HR"].Score)
}

func TestSLAByPriority(t *testing.T) {
	snapshots := []repository.RequestSnapshot{
		// high priority, 24h threshold: completed in 4h
		{
			ID:             "r1",
			Status:         domain.StatusFinalized,
			Priority:       domain.PriorityHigh,
			CreatedAt:      metricsNow.Add(-30 * time.Hour),
			RequestedAt:    metricsNow.Add(-30 * time.Hour),
			CompletionDate: timePtr(metricsNow.Add(-26 * time.Hour)),
		},
		// high priority, still open past 24h
		{
			ID:          "r2",
			Status:      domain.StatusInProgress,
			Priority:    domain.PriorityHigh,
			CreatedAt:   metricsNow.Add(-30 * time.Hour),
			RequestedAt: metricsNow.Add(-30 * time.Hour),
		},
		// unclassified priority counts against the medium threshold
		{
			ID:          "r3",
			Status:      domain.StatusPending,
			CreatedAt:   metricsNow.Add(-2 * time.Hour),
			RequestedAt: metricsNow.Add(-2 * time.Hour),
		},
	}
	svc := newTestMetricsService(&fakeMetricsRepo{snapshots: snapshots})

	report, err := svc.Summary(context.Background(), "daily", true)
	require.NoError(t, err)

	buckets := report.Extended.SLAByPriority
	require.Len(t, buckets, 3)
	assert.Equal(t, domain.PriorityHigh, buckets[0].Priority)
	assert.Equal(t, 24, buckets[0].SLAHours)
	assert.Equal(t, 1, buckets[0].InSLA)
	assert.Equal(t, 1, buckets[0].Overdue)
	assert.Equal(t, domain.PriorityMedium, buckets[1].Priority)
	assert.Equal(t, 1, buckets[1].InSLA)
	assert.Equal(t, domain.PriorityLow, buckets[2].Priority)
	assert.Equal(t, 0, buckets[2].InSLA+buckets[2].Overdue)
}

func TestTrendSeriesDailyBucketsByHour(t *testing.T) {
	dayStart := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	snapshots := []repository.RequestSnapshot{
		{ID: "r1", Status: domain.StatusPending, CreatedAt: dayStart.Add(9*time.Hour + 15*time.Minute), RequestedAt: dayStart},
		{ID: "r2", Status: domain.StatusPending, CreatedAt: dayStart.Add(9*time.Hour + 45*time.Minute), RequestedAt: dayStart},
		{
			ID:             "r3",
			Status:         domain.StatusFinalized,
			CreatedAt:      dayStart.Add(-20 * time.Hour),
			RequestedAt:    dayStart,
			CompletionDate: timePtr(dayStart.Add(14 * time.Hour)),
		},
	}
	svc := newTestMetricsService(&fakeMetricsRepo{snapshots: snapshots})

	report, err := svc.Summary(context.Background(), "daily", true)
	require.NoError(t, err)

	points := report.Extended.TrendReceivedResolved
	require.Len(t, points, 24)
	assert.Equal(t, "00:00", points[0].Label)
	assert.Equal(t, "09:00", points[9].Label)
	assert.Equal(t, 2, points[9].Received)
	assert.Equal(t, 0, points[9].Resolved)
	assert.Equal(t, 1, points[14].Resolved)
}

func TestTrendSeriesWeeklyBucketsByDay(t *testing.T) {
	svc := newTestMetricsService(&fakeMetricsRepo{})

	report, err := svc.Summary(context.Background(), "weekly", true)
	require.NoError(t, err)

	points := report.Extended.TrendReceivedResolved
	require.Len(t, points, 7)
	assert.Equal(t, "2026-03-09", points[0].Label)
	assert.Equal(t, "2026-03-15", points[6].Label)
}

func TestDistributionDefaults(t *testing.T) {
	level := 2
	snapshots := []repository.RequestSnapshot{
		{ID: "r1", Status: domain.StatusPending, Type: domain.TypeTraining, Level: &level, Department: []string{"IT"}, CreatedAt: metricsNow, RequestedAt: metricsNow},
		{ID: "r2", Status: domain.StatusPending, CreatedAt: metricsNow, RequestedAt: metricsNow},
	}
	svc := newTestMetricsService(&fakeMetricsRepo{snapshots: snapshots})

	report, err := svc.Summary(context.Background(), "daily", true)
	require.NoError(t, err)

	dist := report.Extended.Distribution
	assert.Equal(t, 1, dist.ByType[string(domain.TypeTraining)])
	assert.Equal(t, 1, dist.ByType[string(domain.TypeSupport)])
	assert.Equal(t, 1, dist.ByLevel["2"])
	assert.Equal(t, 1, dist.ByLevel["unclassified"])
	assert.Equal(t, 1, dist.ByDepartment["IT"])
}

func TestReopenRate(t *testing.T) {
	finalized := domain.StatusFinalized
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	snapshots := []repository.RequestSnapshot{
		{
			ID:          "r1",
			Status:      domain.StatusFinalized,
			CreatedAt:   created,
			RequestedAt: created,
			History: []domain.StateEvent{
				{ToStatus: domain.StatusPending, At: created},
				{FromStatus: &finalized, ToStatus: domain.StatusInProgress, At: created.Add(48 * time.Hour)},
			},
		},
		{ID: "r2", Status: domain.StatusPending, CreatedAt: created, RequestedAt: created},
		// created outside the range, ignored even though reopened
		{
			ID:          "r3",
			Status:      domain.StatusFinalized,
			CreatedAt:   created.AddDate(0, -2, 0),
			RequestedAt: created.AddDate(0, -2, 0),
			History: []domain.StateEvent{
				{FromStatus: &finalized, ToStatus: domain.StatusInProgress, At: created},
			},
		},
	}
	svc := newTestMetricsService(&fakeMetricsRepo{snapshots: snapshots})

	rate, err := svc.ReopenRate(context.Background(), start, end)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, rate, 0.001)
}

func TestReopenRateEmptyRange(t *testing.T) {
	svc := newTestMetricsService(&fakeMetricsRepo{})
	rate, err := svc.ReopenRate(context.Background(), metricsNow.AddDate(0, -1, 0), metricsNow)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rate)
}
