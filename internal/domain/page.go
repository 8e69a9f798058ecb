package domain

// Page is one server response of a paginated property query.
// HasNextPage is authoritative: callers must not infer more data from len(Data) == PageSize.
type Page struct {
	Data            []Property `json:"data"`
	Page            int        `json:"page"`
	PageSize        int        `json:"page_size"`
	Total           int        `json:"total"`
	TotalPages      int        `json:"total_pages"`
	HasNextPage     bool       `json:"has_next_page"`
	HasPreviousPage bool       `json:"has_previous_page"`
	IsLastPage      bool       `json:"is_last_page"`
}

// NewPage builds a page and its derived pagination fields.
func NewPage(items []Property, page, pageSize, total int) *Page {
	if items == nil {
		items = []Property{}
	}
	totalPages := 0
	if pageSize > 0 && total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return &Page{
		Data:            items,
		Page:            page,
		PageSize:        pageSize,
		Total:           total,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
		IsLastPage:      page >= totalPages,
	}
}

// Offset returns the number of items preceding page in a query with the given page size.
func Offset(page, pageSize int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * pageSize
}
