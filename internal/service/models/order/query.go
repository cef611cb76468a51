package order

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// Query represents filter parameters for listing orders.
type Query struct {
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
	Status   Status `json:"status,omitempty"`
	Search   string `json:"search,omitempty"`
}

// Normalize clamps pagination parameters into their valid ranges.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}

	return q
}

// Offset returns the number of rows to skip for the requested page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.PageSize
}
