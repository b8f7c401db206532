package entities

import (
	"errors"
	"fmt"
)

// ErrFrozen is returned when a definition is added after the registry has
// been frozen for serving.
var ErrFrozen = errors.New("schema registry is frozen")

// UnknownEntityError reports a lookup of an entity that was never defined.
type UnknownEntityError struct {
	Entity string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown entity %q", e.Entity)
}

// DuplicateEntityError reports a second definition of the same entity name.
type DuplicateEntityError struct {
	Entity string
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("entity %q is already defined", e.Entity)
}

// ValidationError reports a field-level constraint violation.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Entity, e.Field, e.Reason)
}

// DuplicateRelationshipError reports an insert that would violate a unique
// (left, right) pair constraint on a many-to-many relationship.
type DuplicateRelationshipError struct {
	Rel     string
	LeftID  string
	RightID string
}

func (e *DuplicateRelationshipError) Error() string {
	return fmt.Sprintf("relationship %s already links %s to %s", e.Rel, e.LeftID, e.RightID)
}

// CascadeError reports a failed cascade delete. The store is left exactly
// as it was before the call.
type CascadeError struct {
	Entity string
	ID     string
	Err    error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade delete of %s %s failed: %v", e.Entity, e.ID, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }

// IrreversibleStepError reports a revert of a migration step that declares
// no reverse transformation.
type IrreversibleStepError struct {
	Step string
}

func (e *IrreversibleStepError) Error() string {
	return fmt.Sprintf("migration step %q is irreversible", e.Step)
}

// DependencyError reports a missing dependency or a dependency cycle among
// migration steps, detected before any step runs.
type DependencyError struct {
	Step    string
	Missing string
	Cycle   []string
}

func (e *DependencyError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("migration step %q depends on unknown step %q", e.Step, e.Missing)
	}
	return fmt.Sprintf("dependency cycle among migration steps: %v", e.Cycle)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUnknownEntity reports whether err is or wraps an UnknownEntityError.
func IsUnknownEntity(err error) bool {
	var ue *UnknownEntityError
	return errors.As(err, &ue)
}
