// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates and channel layouts
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates.
// Handles both upsampling and downsampling, and Convert maps a whole decoded
// buffer onto an output device's rate and channel count.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	outputSize := r.Resample(inputSamples, outputSamples)
//
//	deviceBuf := resample.Convert(decoded, 48000, 2)
package resample
