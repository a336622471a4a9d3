package errors

import (
	"fmt"
)

var (
	// ErrInvalidRequest covers malformed or impossible input; never retried.
	ErrInvalidRequest = fmt.Errorf("invalid request")

	// ErrOverloaded is returned when admission control refuses new work.
	// Callers should retry later with backoff.
	ErrOverloaded = fmt.Errorf("overloaded")

	// ErrBrokerUnavailable means the queue backend could not be reached.
	ErrBrokerUnavailable = fmt.Errorf("broker unavailable")

	// ErrSearchUnavailable means the index backend could not be reached.
	ErrSearchUnavailable = fmt.Errorf("search unavailable")

	// ErrCorruptArtifact means stored bytes no longer match their checksum.
	ErrCorruptArtifact = fmt.Errorf("corrupt artifact")

	// ErrExecution is a job execution failure, retried up to the job's limit.
	ErrExecution = fmt.Errorf("execution error")

	ErrNotFound     = fmt.Errorf("not found")
	ErrETagMismatch = fmt.Errorf("etag mismatch")
	ErrMaxExceeded  = fmt.Errorf("max length exceeded")
	ErrNoOp         = fmt.Errorf("no op specified")
	ErrInvalidState = fmt.Errorf("invalid state")
	ErrNotSupported = fmt.Errorf("not supported")
)
