package api

import (
	"fmt"

	"github.com/bnema/short5-cli/internal/domain"
)

type ErrorKind int

const (
	KindNetwork ErrorKind = iota + 1
	KindAuthExpired
	KindRejected
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuthExpired:
		return "auth_expired"
	case KindRejected:
		return "rejected"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// HTTPError is returned by the pipeline for every failed call. It matches the
// domain sentinel of its kind with errors.Is.
type HTTPError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	// Code is the machine readable error code from the body, if any.
	Code string
	Err  error
}

func (e *HTTPError) Error() string {
	switch e.Kind {
	case KindNetwork:
		if e.Err != nil {
			return fmt.Sprintf("network failure: %v", e.Err)
		}
		return "network failure"
	case KindAuthExpired:
		if e.Message != "" {
			return "authentication expired: " + e.Message
		}
		return "authentication expired"
	default:
		if e.Message != "" {
			return e.Message
		}
		return fmt.Sprintf("request failed (status %d)", e.StatusCode)
	}
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) Is(target error) bool {
	switch target {
	case domain.ErrNetwork:
		return e.Kind == KindNetwork
	case domain.ErrAuthExpired:
		return e.Kind == KindAuthExpired
	case domain.ErrVoteConflict:
		return e.Kind == KindConflict
	case domain.ErrRejected:
		return e.Kind == KindRejected || e.Kind == KindConflict
	default:
		return false
	}
}
