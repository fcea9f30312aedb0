package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for failures detected before any external call.
var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrUnauthenticated = errors.New("not authenticated")
)

// ProcessorError reports a failed or rejected payment-processor call.
// It is never retried automatically; retry policy belongs to the caller.
type ProcessorError struct {
	Message string
	Err     error
}

func (e *ProcessorError) Error() string {
	return "processor error: " + e.Message
}

func (e *ProcessorError) Unwrap() error { return e.Err }

// UpstreamError reports a failed catalog query. The aggregation is
// all-or-nothing, so a single failed range fails the whole call.
type UpstreamError struct {
	Range string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("catalog query for %s failed: %v", e.Range, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// UpstreamTimeout reports an outbound call that exceeded its deadline.
type UpstreamTimeout struct {
	Op  string
	Err error
}

func (e *UpstreamTimeout) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *UpstreamTimeout) Unwrap() error { return e.Err }
