// ABOUTME: Audio encoder package for persisting produced samples
// ABOUTME: Provides the Encoder interface, a WAV encoder and a stream Recorder
// Package encode writes float32 sample streams to files.
//
// A Recorder subscribes to a stream's read notifications, so whatever the
// playback pipeline pulls is written out without a second reader:
//
//	enc, err := encode.CreateWAV("out.wav", dec.Format(), 16)
//	rec := encode.NewRecorder(dec, enc)
//	defer rec.Close()
package encode
