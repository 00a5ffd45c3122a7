package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when no catalog has been saved for an engine.
	ErrNotFound = errors.New("catalog not found")

	// ErrNoCatalog is returned when a nil catalog is saved. Stored data is
	// left untouched.
	ErrNoCatalog = errors.New("no catalog to save")
)
