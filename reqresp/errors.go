package reqresp

import "errors"

// Sentinel errors returned by the template.
var (
	// ErrQueueFull is returned synchronously by Send when the pending map is
	// at capacity.
	ErrQueueFull = errors.New("pending request queue is full")

	// ErrRequestTimeout completes a future whose deadline passed before a
	// response arrived.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrCancelled completes every outstanding future when the template stops.
	ErrCancelled = errors.New("request cancelled")

	// ErrAlreadyStarted is returned when Start is called on a running template.
	ErrAlreadyStarted = errors.New("template already started")

	// ErrNotStarted is returned when Send or Stop is called before Start.
	ErrNotStarted = errors.New("template not started")
)
