package fserrors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for matching with errors.Is. The typed errors below carry
// detail and report themselves as the matching sentinel.
var (
	// ErrNotFound is returned when a named definition does not exist in the registry.
	ErrNotFound = errors.New("definition not found")

	// ErrSchemaConflict is returned when a registration conflicts with an
	// existing definition, such as a join key type mismatch.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrCyclicDependency is returned when on-demand feature view inputs form a cycle.
	ErrCyclicDependency = errors.New("cyclic on-demand dependency")

	// ErrUnknownFeature is returned when a request references a feature that
	// does not resolve through the registry.
	ErrUnknownFeature = errors.New("unknown feature reference")

	// ErrUnknownEntity is returned when a request references an undeclared entity.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrStoreUnavailable is returned after retries against a store are
	// exhausted. It indicates a transient condition, not missing data.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrStaleWatermark is returned when the persisted materialization
	// watermark is ahead of the requested window. Requires a manual reset.
	ErrStaleWatermark = errors.New("stale materialization watermark")
)

type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found, name:%s", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type SchemaConflictError struct {
	Name   string
	Field  string
	Reason string
}

func (e *SchemaConflictError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema conflict on %s, field:%s, %s", e.Name, e.Field, e.Reason)
	}
	return fmt.Sprintf("schema conflict on %s, %s", e.Name, e.Reason)
}

func (e *SchemaConflictError) Is(target error) bool {
	return target == ErrSchemaConflict
}

type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic on-demand dependency: %s", strings.Join(e.Cycle, " -> "))
}

func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

type UnknownFeatureError struct {
	Ref string
}

func (e *UnknownFeatureError) Error() string {
	return fmt.Sprintf("unknown feature reference:%s", e.Ref)
}

func (e *UnknownFeatureError) Is(target error) bool {
	return target == ErrUnknownFeature
}

type UnknownEntityError struct {
	Name string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown entity:%s", e.Name)
}

func (e *UnknownEntityError) Is(target error) bool {
	return target == ErrUnknownEntity
}

type StoreUnavailableError struct {
	Store string
	Cause error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store %s unavailable: %v", e.Store, e.Cause)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Cause
}

func (e *StoreUnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

type StaleWatermarkError struct {
	FeatureView string
	Stored      time.Time
	Requested   time.Time
}

func (e *StaleWatermarkError) Error() string {
	return fmt.Sprintf("stale watermark on feature view %s, stored:%s requested:%s",
		e.FeatureView, e.Stored.Format(time.RFC3339), e.Requested.Format(time.RFC3339))
}

func (e *StaleWatermarkError) Is(target error) bool {
	return target == ErrStaleWatermark
}

// IsRetryable reports whether the error is a transient store failure worth
// retrying, as opposed to missing data or a definition problem.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
