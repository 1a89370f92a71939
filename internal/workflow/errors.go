package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Lllllllleong/bookingworkflow/internal/gateway"
	"github.com/Lllllllleong/bookingworkflow/internal/models"
)

// Failure kinds reported in the 500 body and in metrics.
const (
	KindValidation           = "validation"
	KindInternal             = "internal"
	KindUpstream             = "upstream"
	KindUnresolvableResponse = "unresolvable-response"
	KindMissingExtraction    = "missing-extraction"
)

var (
	ErrUnresolvableResponse = errors.New("completion response text could not be resolved")
	ErrMissingExtraction    = errors.New("phase-one extraction is missing mandatory keys")
)

// ValidationFailedError carries every rejected field of an inbound event.
type ValidationFailedError struct {
	Errors []models.ValidationError
}

func (e *ValidationFailedError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for _, ve := range e.Errors {
		fields = append(fields, ve.Field)
	}
	return fmt.Sprintf("validation failed for %d field(s): %s", len(e.Errors), strings.Join(fields, ", "))
}

// InternalComputationError is a defect in a local computation on valid input.
type InternalComputationError struct {
	Operation string
	Detail    string
}

func (e *InternalComputationError) Error() string {
	return fmt.Sprintf("internal computation error in %s: %s", e.Operation, e.Detail)
}

// UpstreamCallError is a failed completion-service call in a given phase.
type UpstreamCallError struct {
	Phase int
	Err   error
}

func (e *UpstreamCallError) Error() string {
	return fmt.Sprintf("phase %d completion call failed: %v", e.Phase, e.Err)
}

func (e *UpstreamCallError) Unwrap() error { return e.Err }

// CallError returns the gateway classification when one is available.
func (e *UpstreamCallError) CallError() (*gateway.CallError, bool) {
	var callErr *gateway.CallError
	if errors.As(e.Err, &callErr) {
		return callErr, true
	}
	return nil, false
}

// UnresolvableResponseError means no known field of the response held text.
type UnresolvableResponseError struct {
	Phase      int
	Resolution Resolution
}

func (e *UnresolvableResponseError) Error() string {
	return fmt.Sprintf("phase %d: %v (checked %s; present %s)", e.Phase, ErrUnresolvableResponse,
		strings.Join(e.Resolution.Checked, ", "), strings.Join(e.Resolution.Present, ", "))
}

func (e *UnresolvableResponseError) Unwrap() error { return ErrUnresolvableResponse }

// MissingExtractionError means the phase-one block did not satisfy the extraction schema.
type MissingExtractionError struct {
	SchemaVersion string
	MissingKeys   []string
	FoundKeys     []string
	BlockFound    bool
}

func (e *MissingExtractionError) Error() string {
	return fmt.Sprintf("%v: %s (schema %s)", ErrMissingExtraction, strings.Join(e.MissingKeys, ", "), e.SchemaVersion)
}

func (e *MissingExtractionError) Unwrap() error { return ErrMissingExtraction }

// PersistenceError is never returned from Run; it is recorded in the
// persistence outcome of a successful result.
type PersistenceError struct {
	Target string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Target, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RunError is returned by Orchestrator.Run for every failed run. It records
// how far the pipeline got so an operator can judge which remote side
// effects may already have happened.
type RunError struct {
	RunID           string
	State           State
	CompletedStates []State
	Err             error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("workflow run %s failed in state %s: %v", e.RunID, e.State, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Kind classifies the cause for the HTTP layer.
func (e *RunError) Kind() string {
	var (
		validationErr   *ValidationFailedError
		internalErr     *InternalComputationError
		upstreamErr     *UpstreamCallError
		unresolvableErr *UnresolvableResponseError
		missingErr      *MissingExtractionError
	)
	switch {
	case errors.As(e.Err, &validationErr):
		return KindValidation
	case errors.As(e.Err, &upstreamErr):
		return KindUpstream
	case errors.As(e.Err, &unresolvableErr):
		return KindUnresolvableResponse
	case errors.As(e.Err, &missingErr):
		return KindMissingExtraction
	case errors.As(e.Err, &internalErr):
		return KindInternal
	default:
		return KindInternal
	}
}

// Details renders the diagnostic context included in the 500 body.
func (e *RunError) Details() map[string]interface{} {
	completed := make([]string, 0, len(e.CompletedStates))
	for _, s := range e.CompletedStates {
		completed = append(completed, string(s))
	}
	details := map[string]interface{}{
		"runId":           e.RunID,
		"state":           string(e.State),
		"completedStates": completed,
		"message":         e.Err.Error(),
	}

	var (
		upstreamErr     *UpstreamCallError
		unresolvableErr *UnresolvableResponseError
		missingErr      *MissingExtractionError
		internalErr     *InternalComputationError
	)
	switch {
	case errors.As(e.Err, &upstreamErr):
		details["phase"] = upstreamErr.Phase
		if callErr, ok := upstreamErr.CallError(); ok {
			details["upstreamKind"] = string(callErr.Kind)
			if callErr.StatusCode != 0 {
				details["upstreamStatus"] = callErr.StatusCode
			}
			if callErr.Body != "" {
				details["upstreamBody"] = callErr.Body
			}
		}
	case errors.As(e.Err, &unresolvableErr):
		details["phase"] = unresolvableErr.Phase
		details["checkedFields"] = unresolvableErr.Resolution.Checked
		details["presentFields"] = unresolvableErr.Resolution.Present
		details["availableKeys"] = unresolvableErr.Resolution.AvailableKeys
	case errors.As(e.Err, &missingErr):
		details["phase"] = 1
		details["missingKeys"] = missingErr.MissingKeys
		details["foundKeys"] = missingErr.FoundKeys
		details["blockFound"] = missingErr.BlockFound
		details["schemaVersion"] = missingErr.SchemaVersion
	case errors.As(e.Err, &internalErr):
		details["operation"] = internalErr.Operation
	}
	return details
}
