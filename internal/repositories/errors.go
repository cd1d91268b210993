package repositories

import "errors"

var (
	// ErrNotFound is wrapped by every lookup that finds no record.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientStock is returned by a guarded stock decrement that would go negative.
	ErrInsufficientStock = errors.New("insufficient stock")
)
