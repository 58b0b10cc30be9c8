package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/coachhub/coachhub-api/internal/models"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrNoActiveRelationship   = errors.New("no active coach-client relationship")
	ErrConflict               = errors.New("requested time conflicts with another booking")
	ErrDuplicateRelationship  = errors.New("relationship already exists")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNotFound               = errors.New("not found")
	ErrCoachNotFound          = errors.New("coach not found")
	ErrClientNotFound         = errors.New("client not found")
	ErrStorageUnavailable     = errors.New("storage service is not configured")
	ErrFirstPostDeletion      = errors.New("the first post cannot be deleted, delete the topic instead")
	ErrTopicLocked            = errors.New("topic is locked")
)

// ValidationError carries field-level messages. It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, e.Fields[key]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// errOrNil lets callers collect field errors and return a plain nil when there are none.
func (e *ValidationError) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func fieldError(field, message string) error {
	v := &ValidationError{}
	v.add(field, message)
	return v
}

// DuplicateRelationshipError carries the row that already exists for the pair.
type DuplicateRelationshipError struct {
	Existing *models.Relationship
}

func (e *DuplicateRelationshipError) Error() string {
	return ErrDuplicateRelationship.Error()
}

func (e *DuplicateRelationshipError) Is(target error) bool {
	return target == ErrDuplicateRelationship
}
