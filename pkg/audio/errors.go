// ABOUTME: Shared error taxonomy for the audio pipeline
// ABOUTME: Precondition violations surfaced synchronously to callers
package audio

import "errors"

var (
	// ErrInvalidArgument reports an invalid size, offset or count
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupported reports an operation the stream cannot perform, such as seeking a generator
	ErrUnsupported = errors.New("unsupported operation")

	// ErrFormatMismatch reports a stream whose format does not fit the stage or sink
	ErrFormatMismatch = errors.New("format mismatch")

	// ErrClosed reports use of a released stream, sink or player
	ErrClosed = errors.New("use of closed resource")
)
