// Package dto provides Data Transfer Objects for API requests/responses.
package dto

// ListResponse wraps a list result.
type ListResponse[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
}

// NewListResponse wraps items, never encoding a nil slice as null.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, TotalCount: len(items)}
}

// ErrorResponse is the body written by the error middleware.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
