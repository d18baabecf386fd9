package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound  = errors.New("item not found")
	ErrForbidden = errors.New("permission denied")
)

// ConflictError is returned when an item with the same upstream id is
// already stored.
type ConflictError struct {
	UpstreamID int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("item with upstream id %d already exists", e.UpstreamID)
}

// ValidationError rejects a write and names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewParentKindError(child, parent Kind) *ValidationError {
	allowed := make([]string, 0, 2)
	for _, k := range child.ParentKinds() {
		allowed = append(allowed, string(k))
	}
	return &ValidationError{
		Field:   "parent",
		Message: fmt.Sprintf("parent must be of type %s, got %s", strings.Join(allowed, " or "), parent),
	}
}
