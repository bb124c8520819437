package catalog

import (
	"errors"
	"fmt"
)

var ErrCategoryNotFound = errors.New("category not found")

// StorageError reports that the catalog document could not be read, parsed or written.
type StorageError struct {
	Op   string // "load" or "replace"
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("catalog %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ValidationError reports a catalog that breaks the uniqueness or non-empty rules.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
