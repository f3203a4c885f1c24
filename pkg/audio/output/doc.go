// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Sink contract, the software buffer queue and device backends
// Package output provides hardware sinks for the playback tracker.
//
// Every backend embeds a Queue, which does the buffer bookkeeping, and drives
// Queue.Read from the device. Backends: malgo (default), oto, null, and
// portaudio when built with -tags portaudio.
//
// Example:
//
//	f := audio.Format{Channels: 2, SampleRate: 48000}
//	sink, err := output.Open("malgo", f)
//	ids, err := sink.Allocate(3)
//	err = sink.Upload(ids[0], f, samples)
//	err = sink.Enqueue(ids[0])
//	err = sink.Play()
package output
