// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides float32 sample streams for MP3, FLAC, WAV, Ogg Vorbis and Ogg Opus files
// Package decode opens audio files as sample streams.
//
// Supports: MP3, FLAC, WAV (PCM), Ogg Vorbis, Ogg Opus
//
// Every decoder produces interleaved float32 samples in [-1, 1] at the file's
// native rate. MP3, FLAC, WAV and Ogg Vorbis are seekable and can be looped; Ogg Opus is not.
//
// Example:
//
//	dec, err := decode.Open("song.flac")
//	defer dec.Close()
//	n, err := dec.Read(buf, 0, len(buf))
package decode
