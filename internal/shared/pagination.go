package shared

// Pagination is listing metadata derived from a limit/offset query and the
// total row count.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
	Pages  int `json:"pages"`
}

// NewPagination normalises limit and offset and computes the page count.
// A non-positive limit falls back to 20.
func NewPagination(limit, offset, total int) Pagination {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return Pagination{Limit: limit, Offset: offset, Total: total, Pages: pages}
}
