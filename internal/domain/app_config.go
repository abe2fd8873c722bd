package domain

// Department is an organizational unit requests belong to.
type Department struct {
	Code        string `json:"code,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// RequestOptions holds the editable request taxonomy and SLA thresholds.
type RequestOptions struct {
	Levels             []int                   `json:"levels"`
	Classifications    []RequestType           `json:"classifications"`
	Statuses           []RequestStatus         `json:"statuses"`
	SLAHoursByPriority map[RequestPriority]int `json:"sla_hours_by_priority"`
}

// AppConfig is the single global configuration document.
type AppConfig struct {
	Departments    []Department   `json:"departments"`
	RequestOptions RequestOptions `json:"request_options"`
}

// DefaultAppConfig returns the configuration used before an admin has saved one.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Departments: []Department{},
		RequestOptions: RequestOptions{
			Levels:          []int{1, 2, 3},
			Classifications: []RequestType{TypeSupport, TypeImprovement, TypeDevelopment, TypeTraining},
			Statuses:        []RequestStatus{StatusPending, StatusInProgress, StatusInReview, StatusFinalized, StatusRejected},
			SLAHoursByPriority: map[RequestPriority]int{
				PriorityHigh:   24,
				PriorityMedium: 72,
				PriorityLow:    120,
			},
		},
	}
}

// SLAHours returns the threshold for a priority and whether one is configured.
func (c AppConfig) SLAHours(p RequestPriority) (int, bool) {
	hours, ok := c.RequestOptions.SLAHoursByPriority[p]
	return hours, ok
}
