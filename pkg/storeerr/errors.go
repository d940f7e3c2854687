// Package storeerr classifies failures returned by the hot and cold stores.
//
// Every store operation returns either nil or an *Error carrying a Kind, so that
// callers can decide per kind whether to fall back, retry or propagate.
package storeerr

import (
	"context"
	"errors"
	"fmt"
)

// Kind represents a classification of store failures.
type Kind string

const (
	// KindNotFound means the key or object does not exist (or has expired).
	KindNotFound Kind = "not_found"

	// KindExists means the object already exists. Uploads treat it as success.
	KindExists Kind = "exists"

	// KindTimeout means the operation hit its deadline.
	KindTimeout Kind = "timeout"

	// KindUnavailable means the backend could not be reached or returned an error.
	KindUnavailable Kind = "unavailable"

	// KindCorrupt means stored bytes could not be decoded.
	KindCorrupt Kind = "corrupt"

	// KindInvalid means the request itself was rejected (bad name, bad input).
	KindInvalid Kind = "invalid"
)

// Error is a store failure with the operation and kind attached.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a store error.
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap classifies err as unavailable unless it is a context deadline,
// in which case it is a timeout. A nil err returns nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(op, KindTimeout, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return New(op, KindTimeout, err)
	}
	return New(op, KindUnavailable, err)
}

// KindOf returns the kind of err, or "" when err is nil or not a store error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindUnavailable:
		return true
	default:
		return false
	}
}
