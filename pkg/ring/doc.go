// ABOUTME: Circular buffer package
// ABOUTME: Generic fixed-capacity FIFO that overwrites its oldest entries
// Package ring provides a generic fixed-capacity circular buffer.
//
// The buffer never grows. Writing past capacity silently evicts the oldest
// elements, which makes it suitable for keeping the most recent window of a
// sample stream for visualization.
//
// Example:
//
//	buf, err := ring.New[float32](4096)
//	buf.EnqueueSlice(samples, 0, len(samples))
//	for s := range buf.All() {
//	    ...
//	}
package ring
