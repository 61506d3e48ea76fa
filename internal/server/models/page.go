package models

import "math"

// PageRequest selects a zero-based page of Size rows.
type PageRequest struct {
	Page int
	Size int
}

// Offset is the number of rows before the page. It saturates at
// math.MaxInt instead of wrapping.
func (p PageRequest) Offset() int {
	if p.Size > 0 && p.Page > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return p.Page * p.Size
}

// InRange reports whether Offset can be computed without saturating.
func (p PageRequest) InRange() bool {
	return p.Size <= 0 || p.Page <= math.MaxInt/p.Size
}

// Page is one slice of a sorted result plus the total match count.
type Page[T any] struct {
	Total int64
	Items []T
}
