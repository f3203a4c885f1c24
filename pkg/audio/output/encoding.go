// ABOUTME: Byte packing helpers for device buffers
// ABOUTME: Converts float samples into little-endian device formats
package output

import (
	"encoding/binary"
	"math"
)

func putFloat32(b []byte, s float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(s))
}

// byteReader exposes a Queue as an endless little-endian float32 byte stream
type byteReader struct {
	q       *Queue
	scratch []float32
}

// Read never returns io.EOF; silence is produced when nothing is queued
func (r *byteReader) Read(p []byte) (int, error) {
	n := len(p) / 4
	if n == 0 {
		return 0, nil
	}
	if cap(r.scratch) < n {
		r.scratch = make([]float32, n)
	}
	samples := r.scratch[:n]

	r.q.Read(samples)
	writeFloat32(p, samples)
	return n * 4, nil
}
