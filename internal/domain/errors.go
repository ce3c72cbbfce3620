package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSizeUnknown is returned when no size header can be resolved for a variant
	ErrSizeUnknown = errors.New("response size header unavailable")
	// ErrNoStreamingBody is returned when the transport offers no readable body
	ErrNoStreamingBody = errors.New("response body is not readable incrementally")
	// ErrBatchConsumed is returned when a transfer batch is taken twice
	ErrBatchConsumed = errors.New("transfer batch already consumed")
	// ErrBatchDelivered is returned when a second batch is delivered to a renderer
	ErrBatchDelivered = errors.New("transfer batch already delivered")
	// ErrVariantOutOfRange is returned when a switch targets a missing variant
	ErrVariantOutOfRange = errors.New("variant index out of range")
	// ErrNotArmed is returned when playback is requested before handoff
	ErrNotArmed = errors.New("playback not armed")
	// ErrNoSelection is returned when resuming before any variant was played
	ErrNoSelection = errors.New("no variant selected")
)

// StartupError halts the player before any acquisition starts
type StartupError struct {
	Reason string
	Err    error
}

func (e *StartupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("startup: %s: %v", e.Reason, e.Err)
	}
	return "startup: " + e.Reason
}

func (e *StartupError) Unwrap() error { return e.Err }

// NetworkError is fatal to the whole acquisition run
type NetworkError struct {
	Variant    string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("network: %s: status %d: %v", e.Variant, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("network: %s: %v", e.Variant, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError is returned when a variant container cannot be decoded
type DecodeError struct {
	Variant string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %s: %v", e.Variant, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsStartupError reports whether err is a StartupError
func IsStartupError(err error) bool {
	var se *StartupError
	return errors.As(err, &se)
}

// IsNetworkError reports whether err is a NetworkError
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsDecodeError reports whether err is a DecodeError
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
