package models

// Page is the envelope every paginated listing endpoint returns.
type Page[T any] struct {
	TotalItems  int64 `json:"totalItems"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	Items       []T   `json:"items"`
}

// NewPage computes the page metadata for a result slice.
func NewPage[T any](items []T, totalItems int64, page, limit int) *Page[T] {
	if limit < 1 {
		limit = 1
	}
	totalPages := int((totalItems + int64(limit) - 1) / int64(limit))
	return &Page[T]{
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		CurrentPage: page,
		Items:       items,
	}
}
