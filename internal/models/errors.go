package models

import (
	"errors"
	"sort"
	"strings"
)

// Error kinds returned by the storage, repository and service layers.
// Match them with errors.Is; wrap them with fmt.Errorf("%w: ...").
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrIO              = errors.New("storage failure")
	ErrCorruptDocument = errors.New("corrupt document")
)

// FieldErrors maps a field name to its validation message
type FieldErrors map[string]string

// Error joins the field messages in a stable order
func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match field errors
func (e FieldErrors) Is(target error) bool {
	return target == ErrValidation
}

// ValidationError represents a single line-level error of a bulk import
type ValidationError struct {
	Line    int         `json:"line"`
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}
