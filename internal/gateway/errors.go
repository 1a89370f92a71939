package gateway

import (
	"fmt"
)

// ErrorKind classifies a failed completion-service call.
type ErrorKind string

const (
	KindTimeout ErrorKind = "timeout"
	KindNetwork ErrorKind = "network"
	KindStatus  ErrorKind = "status"
	KindDecode  ErrorKind = "decode"
)

// CallError is returned by Complete for every failed call.
type CallError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *CallError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("completion service returned status %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("completion service %s error: %v", e.Kind, e.Err)
	}
}

func (e *CallError) Unwrap() error { return e.Err }
