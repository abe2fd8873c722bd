package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// ConfigProvider yields the current application configuration snapshot.
type ConfigProvider interface {
	Current(ctx context.Context) (domain.AppConfig, error)
}

// MetricsService computes read-only reports from request snapshots and the
// status-event stream. It never mutates data; reports are eventually
// consistent with concurrent lifecycle writes.
type MetricsService struct {
	repo   repository.MetricsRepository
	config ConfigProvider
	now    func() time.Time
}

// NewMetricsService constructs the aggregator.
func NewMetricsService(repo repository.MetricsRepository, config ConfigProvider) *MetricsService {
	return &MetricsService{
		repo:   repo,
		config: config,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Period is a resolved half-open reporting window.
type Period struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TechProductivity aggregates per-technician counters.
type TechProductivity struct {
	TechID         string `json:"tech_id"`
	TechName       string `json:"tech_name"`
	AssignedTotal  int    `json:"assigned_total"`
	PendingNow     int    `json:"pending_now"`
	AttendedPeriod int    `json:"attended_period"`
}

// Totals is the global unwindowed counter block.
type Totals struct {
	Total      int `json:"total"`
	Assigned   int `json:"assigned"`
	Unassigned int `json:"unassigned"`
	NewLast24h int `json:"new_last_24h"`
}

// StatusHours is mean hours spent in one open status.
type StatusHours struct {
	Status   domain.RequestStatus `json:"status"`
	AvgHours float64              `json:"avg_hours"`
	Segments int                  `json:"segments"`
}

// ReturnCount attributes review bounce-backs to an actor.
type ReturnCount struct {
	TechID   string `json:"tech_id"`
	TechName string `json:"tech_name"`
	Returns  int    `json:"returns"`
}

// FeedbackCount is an up/down tally for one group key.
type FeedbackCount struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Up    int    `json:"up"`
	Down  int    `json:"down"`
	Score int    `json:"score"`
}

// SLABucket classifies tickets of one priority against its SLA threshold.
type SLABucket struct {
	Priority domain.RequestPriority `json:"priority"`
	SLAHours int                    `json:"sla_hours"`
	InSLA    int                    `json:"in_sla"`
	Overdue  int                    `json:"overdue"`
}

// TrendPoint is one bucket of the received-vs-resolved series.
type TrendPoint struct {
	Label    string `json:"label"`
	Received int    `json:"received"`
	Resolved int    `json:"resolved"`
}

// Distribution is the global snapshot grouped three ways.
type Distribution struct {
	ByType       map[string]int `json:"by_type"`
	ByLevel      map[string]int `json:"by_level"`
	ByDepartment map[string]int `json:"by_department"`
}

// ExtendedReport carries the on-demand expensive blocks.
type ExtendedReport struct {
	AvgTimeByStatus       []StatusHours   `json:"avg_time_by_status"`
	ReturnsFromReview     []ReturnCount   `json:"returns_from_review_by_tech"`
	FeedbackByTech        []FeedbackCount `json:"feedback_by_tech"`
	FeedbackByDepartment  []FeedbackCount `json:"feedback_by_department"`
	SLAByPriority         []SLABucket     `json:"sla_by_priority"`
	TrendReceivedResolved []TrendPoint    `json:"trend_received_vs_resolved"`
	Distribution          Distribution    `json:"distribution"`
}

// SummaryReport is the full summary payload.
type SummaryReport struct {
	Period             Period             `json:"period"`
	New                int                `json:"new"`
	Finished           int                `json:"finished"`
	PendingNow         int                `json:"pending_now"`
	InReviewNow        int                `json:"in_review_now"`
	AvgCycleHours      float64            `json:"avg_cycle_hours"`
	Totals             Totals             `json:"totals"`
	ProductivityByTech []TechProductivity `json:"productivity_by_tech"`
	Extended           *ExtendedReport    `json:"extended,omitempty"`
}

// ResolvePeriod maps a period keyword to a half-open UTC window. Unknown
// keywords fall back to daily.
func ResolvePeriod(keyword string, now time.Time) Period {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch strings.ToLower(strings.TrimSpace(keyword)) {
	case "weekly", "week":
		// back up to the most recent Monday
		offset := (int(midnight.Weekday()) + 6) % 7
		start := midnight.AddDate(0, 0, -offset)
		return Period{Name: "weekly", Start: start, End: start.AddDate(0, 0, 7)}
	case "monthly", "month":
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Period{Name: "monthly", Start: start, End: start.AddDate(0, 1, 0)}
	default:
		return Period{Name: "daily", Start: midnight, End: midnight.AddDate(0, 0, 1)}
	}
}

// Summary computes the KPI report for the given period. Extended blocks are
// computed only on demand.
func (s *MetricsService) Summary(ctx context.Context, periodKeyword string, extended bool) (*SummaryReport, error) {
	now := s.now()
	period := ResolvePeriod(periodKeyword, now)

	snapshots, err := s.repo.SnapshotRequests(ctx)
	if err != nil {
		return nil, err
	}

	report := &SummaryReport{Period: period}
	s.computeCore(report, snapshots, now)

	if extended {
		ext, err := s.computeExtended(ctx, period, snapshots, now)
		if err != nil {
			return nil, err
		}
		report.Extended = ext
	}
	return report, nil
}

func (s *MetricsService) computeCore(report *SummaryReport, snapshots []repository.RequestSnapshot, now time.Time) {
	period := report.Period
	var cycleHours float64
	var cycleCount int
	dayAgo := now.Add(-24 * time.Hour)

	prod := map[string]*TechProductivity{}
	techOf := func(snap repository.RequestSnapshot) *TechProductivity {
		id := *snap.AssignedTo
		entry, ok := prod[id]
		if !ok {
			entry = &TechProductivity{TechID: id}
			if snap.AssignedToName != nil {
				entry.TechName = *snap.AssignedToName
			}
			prod[id] = entry
		}
		if entry.TechName == "" && snap.AssignedToName != nil {
			entry.TechName = *snap.AssignedToName
		}
		return entry
	}
	reviewInPeriod := map[string]int{}

	for _, snap := range snapshots {
		report.Totals.Total++
		if snap.AssignedTo != nil {
			report.Totals.Assigned++
		} else {
			report.Totals.Unassigned++
		}
		if !snap.CreatedAt.Before(dayAgo) {
			report.Totals.NewLast24h++
		}

		if inWindow(snap.RequestedAt, period) {
			report.New++
		}
		// pending_now spans the whole open set, not just PENDING; the
		// historical report always counted it this way.
		if snap.Status.IsOpen() {
			report.PendingNow++
		}
		if snap.Status == domain.StatusInReview {
			report.InReviewNow++
		}
		finishedInPeriod := snap.Status == domain.StatusFinalized &&
			snap.CompletionDate != nil && inWindow(*snap.CompletionDate, period)
		if finishedInPeriod {
			report.Finished++
			cycleHours += snap.CompletionDate.Sub(snap.CreatedAt).Hours()
			cycleCount++
		}

		if snap.AssignedTo == nil {
			continue
		}
		entry := techOf(snap)
		entry.AssignedTotal++
		if snap.Status.IsOpen() {
			entry.PendingNow++
		}
		if finishedInPeriod {
			entry.AttendedPeriod++
		}
		if snap.Status == domain.StatusInReview && snap.CompletionDate != nil && inWindow(*snap.CompletionDate, period) {
			reviewInPeriod[*snap.AssignedTo]++
		}
	}

	// The in-review pass overwrites the attended counter instead of adding
	// to it. Faithful to the historical aggregation; do not "fix" without a
	// product decision.
	for id, count := range reviewInPeriod {
		if entry, ok := prod[id]; ok {
			entry.AttendedPeriod = count
		}
	}

	if cycleCount > 0 {
		report.AvgCycleHours = cycleHours / float64(cycleCount)
	}

	techs := make([]TechProductivity, 0, len(prod))
	for _, entry := range prod {
		techs = append(techs, *entry)
	}
	sort.Slice(techs, func(i, j int) bool {
		if techs[i].AttendedPeriod != techs[j].AttendedPeriod {
			return techs[i].AttendedPeriod > techs[j].AttendedPeriod
		}
		return techs[i].TechName < techs[j].TechName
	})
	report.ProductivityByTech = techs
}

func (s *MetricsService) computeExtended(ctx context.Context, period Period, snapshots []repository.RequestSnapshot, now time.Time) (*ExtendedReport, error) {
	ext := &ExtendedReport{}

	ext.AvgTimeByStatus = avgTimeByStatus(snapshots, period, now)

	auditEvents, err := s.repo.StatusEventsBetween(ctx, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	names, err := s.repo.UserNames(ctx)
	if err != nil {
		return nil, err
	}
	ext.ReturnsFromReview = returnsFromReview(auditEvents, names)

	ext.FeedbackByTech, ext.FeedbackByDepartment = feedbackRankings(snapshots)

	cfg, err := s.config.Current(ctx)
	if err != nil {
		cfg = domain.DefaultAppConfig()
	}
	ext.SLAByPriority = slaByPriority(snapshots, cfg, now)

	ext.TrendReceivedResolved = trendSeries(snapshots, period)
	ext.Distribution = distribution(snapshots)
	return ext, nil
}

// avgTimeByStatus walks each ticket's ordered history and accumulates the
// hours spent in each open state, clipped to the window.
func avgTimeByStatus(snapshots []repository.RequestSnapshot, period Period, now time.Time) []StatusHours {
	type acc struct {
		hours    float64
		segments int
	}
	perStatus := map[domain.RequestStatus]*acc{
		domain.StatusPending:    {},
		domain.StatusInProgress: {},
		domain.StatusInReview:   {},
	}

	for _, snap := range snapshots {
		history := snap.History
		for i, event := range history {
			bucket, tracked := perStatus[event.ToStatus]
			if !tracked {
				continue
			}
			segStart := event.At
			var segEnd time.Time
			switch {
			case i+1 < len(history):
				segEnd = history[i+1].At
			case snap.CompletionDate != nil:
				segEnd = *snap.CompletionDate
			default:
				segEnd = now
			}
			start := maxTime(segStart, period.Start)
			end := minTime(segEnd, period.End)
			if !end.After(start) {
				continue
			}
			bucket.hours += end.Sub(start).Hours()
			bucket.segments++
		}
	}

	out := make([]StatusHours, 0, len(domain.OpenStates))
	for _, status := range domain.OpenStates {
		bucket := perStatus[status]
		entry := StatusHours{Status: status, Segments: bucket.segments}
		if bucket.segments > 0 {
			entry.AvgHours = bucket.hours / float64(bucket.segments)
		}
		out = append(out, entry)
	}
	return out
}

// returnsFromReview counts IN_REVIEW -> IN_PROGRESS adjacencies per ticket in
// the audit stream, attributed to the actor of the IN_PROGRESS event.
func returnsFromReview(auditEvents []domain.StatusEvent, names map[string]string) []ReturnCount {
	byTicket := map[string][]domain.StatusEvent{}
	for _, event := range auditEvents {
		byTicket[event.TicketID] = append(byTicket[event.TicketID], event)
	}

	counts := map[string]int{}
	for _, sequence := range byTicket {
		sort.Slice(sequence, func(i, j int) bool { return sequence[i].ChangedAt.Before(sequence[j].ChangedAt) })
		for i := 1; i < len(sequence); i++ {
			if sequence[i-1].Status == domain.StatusInReview && sequence[i].Status == domain.StatusInProgress {
				counts[sequence[i].ChangedBy]++
			}
		}
	}

	out := make([]ReturnCount, 0, len(counts))
	for id, count := range counts {
		out = append(out, ReturnCount{TechID: id, TechName: names[id], Returns: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Returns != out[j].Returns {
			return out[i].Returns > out[j].Returns
		}
		return out[i].TechName < out[j].TechName
	})
	return out
}

func feedbackRankings(snapshots []repository.RequestSnapshot) (byTech, byDepartment []FeedbackCount) {
	techs := map[string]*FeedbackCount{}
	departments := map[string]*FeedbackCount{}

	tally := func(store map[string]*FeedbackCount, key, name string, rating domain.FeedbackRating) {
		entry, ok := store[key]
		if !ok {
			entry = &FeedbackCount{Key: key, Name: name}
			store[key] = entry
		}
		if rating == domain.RatingUp {
			entry.Up++
		} else {
			entry.Down++
		}
		entry.Score = entry.Up - entry.Down
	}

	for _, snap := range snapshots {
		if snap.FeedbackRating == nil {
			continue
		}
		rating := *snap.FeedbackRating
		if snap.AssignedTo != nil {
			name := ""
			if snap.AssignedToName != nil {
				name = *snap.AssignedToName
			}
			tally(techs, *snap.AssignedTo, name, rating)
		}
		for _, dept := range snap.Department {
			tally(departments, dept, dept, rating)
		}
	}

	rank := func(store map[string]*FeedbackCount) []FeedbackCount {
		out := make([]FeedbackCount, 0, len(store))
		for _, entry := range store {
			out = append(out, *entry)
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Score != out[j].Score {
				return out[i].Score > out[j].Score
			}
			return out[i].Up > out[j].Up
		})
		return out
	}
	return rank(techs), rank(departments)
}

// slaByPriority classifies every ticket, regardless of window, against the
// configured threshold for its priority.
func slaByPriority(snapshots []repository.RequestSnapshot, cfg domain.AppConfig, now time.Time) []SLABucket {
	ordered := []domain.RequestPriority{domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow}
	buckets := map[domain.RequestPriority]*SLABucket{}
	out := []SLABucket{}

	for _, priority := range ordered {
		hours, ok := cfg.SLAHours(priority)
		if !ok {
			continue
		}
		bucket := &SLABucket{Priority: priority, SLAHours: hours}
		buckets[priority] = bucket
	}

	for _, snap := range snapshots {
		priority := snap.Priority
		if priority == "" {
			priority = domain.PriorityMedium
		}
		bucket, ok := buckets[priority]
		if !ok {
			continue
		}
		reference := now
		if snap.CompletionDate != nil {
			reference = *snap.CompletionDate
		}
		deadline := snap.CreatedAt.Add(time.Duration(bucket.SLAHours) * time.Hour)
		if reference.After(deadline) {
			bucket.Overdue++
		} else {
			bucket.InSLA++
		}
	}

	for _, priority := range ordered {
		if bucket, ok := buckets[priority]; ok {
			out = append(out, *bucket)
		}
	}
	return out
}

// trendSeries buckets creations and finalizations over the window, hourly
// for the daily period and daily otherwise.
func trendSeries(snapshots []repository.RequestSnapshot, period Period) []TrendPoint {
	step := 24 * time.Hour
	label := func(t time.Time) string { return t.UTC().Format("2006-01-02") }
	if period.Name == "daily" {
		step = time.Hour
		label = func(t time.Time) string { return fmt.Sprintf("%02d:00", t.UTC().Hour()) }
	}

	var points []TrendPoint
	index := map[string]int{}
	for cursor := period.Start; cursor.Before(period.End); cursor = cursor.Add(step) {
		index[label(cursor)] = len(points)
		points = append(points, TrendPoint{Label: label(cursor)})
	}

	for _, snap := range snapshots {
		if inWindow(snap.CreatedAt, period) {
			if i, ok := index[label(snap.CreatedAt)]; ok {
				points[i].Received++
			}
		}
		if snap.CompletionDate != nil && snap.Status == domain.StatusFinalized && inWindow(*snap.CompletionDate, period) {
			if i, ok := index[label(*snap.CompletionDate)]; ok {
				points[i].Resolved++
			}
		}
	}
	return points
}

func distribution(snapshots []repository.RequestSnapshot) Distribution {
	dist := Distribution{
		ByType:       map[string]int{},
		ByLevel:      map[string]int{},
		ByDepartment: map[string]int{},
	}
	for _, snap := range snapshots {
		requestType := snap.Type
		if requestType == "" {
			requestType = domain.TypeSupport
		}
		dist.ByType[string(requestType)]++
		level := "unclassified"
		if snap.Level != nil {
			level = levelLabel(*snap.Level)
		}
		dist.ByLevel[level]++
		for _, dept := range snap.Department {
			dist.ByDepartment[dept]++
		}
	}
	return dist
}

// ReopenRate reports the share of requests created in the range that were
// reopened at least once.
func (s *MetricsService) ReopenRate(ctx context.Context, start, end time.Time) (float64, error) {
	snapshots, err := s.repo.SnapshotRequests(ctx)
	if err != nil {
		return 0, err
	}
	window := Period{Start: start.UTC(), End: end.UTC()}
	var total, reopened int
	for _, snap := range snapshots {
		if !inWindow(snap.CreatedAt, window) {
			continue
		}
		total++
		if wasReopened(snap.History) {
			reopened++
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float64(reopened) / float64(total), nil
}

func wasReopened(history []domain.StateEvent) bool {
	for _, event := range history {
		if event.FromStatus != nil && *event.FromStatus == domain.StatusFinalized && event.ToStatus.IsOpen() {
			return true
		}
	}
	return false
}

func inWindow(t time.Time, p Period) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func levelLabel(level int) string {
	switch level {
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	default:
		return "unclassified"
	}
}
