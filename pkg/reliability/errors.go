package reliability

import "errors"

// Errors returned by the reliability package.
var (
	// ErrSendWindowFull is returned when MaxInFlight reliable sends are
	// already awaiting acknowledgement.
	ErrSendWindowFull = errors.New("reliability: send window full")

	// ErrDuplicateSequence is returned when a sequence is already in flight.
	ErrDuplicateSequence = errors.New("reliability: sequence already in flight")

	// ErrDeliveryFailed is returned when a reliable send exhausted its
	// attempts without acknowledgement.
	ErrDeliveryFailed = errors.New("reliability: delivery failed")

	// ErrNoSender is returned when an Engine is configured without a Send function.
	ErrNoSender = errors.New("reliability: no send function configured")
)
