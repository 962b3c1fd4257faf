package model

import "errors"

// Storage-level outcomes shared by the repositories and their callers.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate record")
	ErrInUse     = errors.New("record is still referenced")
	// ErrMissingReference is a write pointing at a row that no longer exists.
	ErrMissingReference = errors.New("referenced record does not exist")
)
