// Package synth generates test signals as sample streams.
//
// An Oscillator never runs out of samples, so it can feed a player forever.
// Its phase is tracked continuously, which keeps frequency changes click free:
//
//	osc, _ := synth.NewOscillator(audio.Format{Channels: 2, SampleRate: 48000})
//	osc.SetWaveform(synth.Triangle)
//	_ = osc.SetFrequency(220)
package synth
