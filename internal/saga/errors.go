package saga

import (
	"errors"
	"fmt"
)

// CompositionError reports a pipeline that cannot be registered.
//
// Register returns it before any handler, channel or ordering edge is
// created, so a failed Register leaves the host unchanged.
type CompositionError struct {
	// Code identifies the error category.
	Code CompositionErrorCode

	// Message is a human-readable description.
	Message string

	// Stage names the offending stage, if any.
	Stage string

	// EventType names the offending event type, if any.
	EventType string

	// Err is the underlying cause, if any.
	Err error
}

// CompositionErrorCode categorizes composition errors.
type CompositionErrorCode string

const (
	// ErrCodeInvalidEventType indicates a stage consumes or produces a type
	// that cannot be an event.
	ErrCodeInvalidEventType CompositionErrorCode = "INVALID_EVENT_TYPE"

	// ErrCodeDuplicateRoute indicates a Route lists the same variant twice.
	ErrCodeDuplicateRoute CompositionErrorCode = "DUPLICATE_ROUTE"

	// ErrCodeRouteNotVariant indicates a Route case type is not part of the
	// routed sum type.
	ErrCodeRouteNotVariant CompositionErrorCode = "ROUTE_NOT_VARIANT"

	// ErrCodeEmptyPipeline indicates a pipeline with no stages.
	ErrCodeEmptyPipeline CompositionErrorCode = "EMPTY_PIPELINE"

	// ErrCodeEmptyLabel indicates registration without a schedule label.
	ErrCodeEmptyLabel CompositionErrorCode = "EMPTY_LABEL"

	// ErrCodeAfterTerminal indicates a stage chained after a terminal stage.
	ErrCodeAfterTerminal CompositionErrorCode = "STAGE_AFTER_TERMINAL"
)

// Error implements the error interface.
func (e *CompositionError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s (stage=%s)", e.Code, e.Message, e.Stage)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CompositionError) Unwrap() error {
	return e.Err
}

// IsCompositionError returns true if err is or wraps a CompositionError.
func IsCompositionError(err error) bool {
	var ce *CompositionError
	return errors.As(err, &ce)
}

// HasCode returns true if err is or wraps a CompositionError with code.
func HasCode(err error, code CompositionErrorCode) bool {
	var ce *CompositionError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
