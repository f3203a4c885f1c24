// Package playback keeps output sinks fed from sample streams.
//
// A Tracker runs a refill loop over every tracked Source. Each pass asks the
// sink how many buffers finished playing, reads that many buffers' worth of
// samples from the stream and queues them again. When a non-looping stream
// runs short the source is marked pending-finish; once every queued buffer has
// played the source's OnFinished hook fires.
//
// A Player is the usual Source: it owns one sink, plays one stream at a time
// and mirrors the sink's state as Stopped, Playing or Paused.
//
//	sink, _ := output.Open("malgo", audio.Format{Channels: 2, SampleRate: 44100})
//	player := playback.NewPlayer(sink, nil)
//	_ = player.LoadDefault(stream)
//	_ = player.Play()
package playback
