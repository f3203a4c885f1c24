// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, the Sample constraint and sample conversion functions
// Package audio provides fundamental audio types shared by the pipeline.
//
// This package defines:
//   - Format: channel count and sample rate of interleaved PCM data
//   - Sample: the element types a stream can carry
//   - the error taxonomy shared by streams, sinks and players
//
// Streams in this module carry float32 samples in [-1, 1]. The conversion
// helpers map them to the integer formats output devices expect.
//
// Example:
//
//	format, err := audio.NewFormat(2, 48000)
//	d := format.Duration(96000) // one second
package audio
