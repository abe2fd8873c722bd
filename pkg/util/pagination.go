package util

// PageMeta describes one page of a listing result.
type PageMeta struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
}

// PaginationMeta computes page metadata, clamping page into [1, total_pages].
// total_pages is never below 1 so an empty result still yields a valid page.
func PaginationMeta(total, page, pageSize int) PageMeta {
	if pageSize < 1 {
		pageSize = 1
	}
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return PageMeta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}

// Offset returns the row offset for the (already clamped) page.
func (m PageMeta) Offset() int {
	return (m.Page - 1) * m.PageSize
}
