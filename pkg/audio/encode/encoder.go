// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for sinks that persist produced float32 samples
package encode

// Encoder writes interleaved float32 samples to some container
type Encoder interface {
	// Encode appends samples; len(samples) must be a whole number of frames
	Encode(samples []float32) error

	// Close flushes headers and releases encoder resources
	Close() error
}
