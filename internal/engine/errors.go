package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidThreshold rejects similarity thresholds outside (0, 1].
var ErrInvalidThreshold = errors.New("similarity threshold must be in (0, 1]")

// DecodeError means image bytes could not be decoded. It is a per-record
// failure; the run continues without the record.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FetchError means image bytes could not be retrieved from their URL. It is
// a per-record failure; the run continues without the record.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch image %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// UnknownPolicyError indicates a caller bug: a retention policy name that no
// strategy implements. It aborts a run before any fetch or grouping work.
type UnknownPolicyError struct {
	Name string
}

func (e *UnknownPolicyError) Error() string {
	return fmt.Sprintf("unknown retention policy %q", e.Name)
}
