// ABOUTME: Sample stream pipeline package
// ABOUTME: Stream contract, in-memory source, converters, loop and tap stages
// Package stream defines the pull-based sample pipeline.
//
// Every producer (decoder, generator) and every stage implements
// SampleStream. Stages are built by composition: a stage holds its upstream
// stream and delegates format and position queries to it.
//
// Stages provided here:
//   - Memory: seekable stream over a slice
//   - MonoToStereo / StereoToMono: channel conversion
//   - Converter: per-sample type conversion
//   - Loop: wraps a seekable stream and rewinds it at the end
//   - Tap: mirrors reads into a ring buffer for visualization
//
// Example:
//
//	src, _ := stream.NewMemory(audio.Format{Channels: 1, SampleRate: 44100}, samples)
//	stereo, _ := stream.NewMonoToStereo[float32](src)
//	looped, _ := stream.NewLoop[float32](stereo)
//	n, err := looped.Read(buf, 0, len(buf))
package stream
