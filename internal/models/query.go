package models

import (
	"fmt"
	"strings"
)

// SearchRequest is a similarity query.
type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"n_results"`
}

// Validate ensures the request has a query and a positive K.
func (q *SearchRequest) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidArgument)
	}
	if q.K <= 0 {
		return fmt.Errorf("%w: n_results must be positive, got %d", ErrInvalidArgument, q.K)
	}
	return nil
}
