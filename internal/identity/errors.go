package identity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by repositories when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrPrincipalNotFound means neither the user nor the institution store matched.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrInvalidCredentials covers unknown identifiers and wrong secrets alike.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrStoreUnavailable wraps backing store failures other than not-found.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError lists field problems found in a candidate record.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, field := range sortedKeys(e.Fields) {
		parts = append(parts, e.Fields[field])
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}
