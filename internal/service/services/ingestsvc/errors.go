package ingestsvc

import (
	"errors"
)

var (
	// ErrInvalidPayload is returned for submissions that fail the cheap
	// structural checks at the boundary.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrPayloadTooLarge is returned when the payload exceeds the
	// configured size limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrInvalidSignature is returned when signature verification is
	// enabled and the provided signature does not match.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrQueueFull is the backpressure signal: the queue is at capacity
	// and the submission was rejected, not lost.
	ErrQueueFull = errors.New("queue is full")

	// ErrShuttingDown is returned once shutdown has begun.
	ErrShuttingDown = errors.New("service is shutting down")
)
