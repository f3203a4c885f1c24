// ABOUTME: Errors returned by the playback tracker and player
// ABOUTME: Lifecycle misuse and unknown players
package playback

import "errors"

var (
	// ErrNotTracked is returned when operating on a source the tracker does not know
	ErrNotTracked = errors.New("source is not tracked")

	// ErrAlreadyRunning is returned by Start when the refill loop is active
	ErrAlreadyRunning = errors.New("tracker is already running")

	// ErrNotRunning is returned by Stop when no refill loop is active
	ErrNotRunning = errors.New("tracker is not running")
)
