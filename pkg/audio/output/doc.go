// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the shared Output device with oto, malgo and offline backends
// Package output provides the single playback device all channels share.
//
// Each channel is a looping voice behind a smoothed gain stage. The oto
// backend gives every channel its own oto player; the malgo and null
// backends mix voices in software.
//
// Example:
//
//	out, err := output.Open("oto", output.DefaultFormat, logger)
//	buf, err := out.Decode(data)
//	src, gain, err := out.CreateChannel(buf)
//	gain.Set(0.5)
//	err = src.Start()
package output
