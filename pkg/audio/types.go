// ABOUTME: Audio type definitions
// ABOUTME: Defines PCM formats, decoded buffers and the playback node interfaces
package audio

import "time"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes a PCM layout
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Buffer holds decoded PCM audio in memory.
// Samples are interleaved float32 in [-1, 1]. A Buffer is never mutated
// after decode and is shared by pointer.
type Buffer struct {
	Format  Format
	Samples []float32
}

// Frames returns the number of sample frames in the buffer
func (b *Buffer) Frames() int {
	if b == nil || b.Format.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Format.Channels
}

// Duration returns the playing time of the buffer
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.Format.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.Format.SampleRate)
}

// Source is one playing instance of a Buffer.
// Stopping discards the play position; a stopped Source is not restarted.
type Source interface {
	Start() error
	Stop() error
}

// Gain scales the output of a Source
type Gain interface {
	// Set jumps to v immediately
	Set(v float64)

	// RampTo approaches target exponentially with the given time constant
	RampTo(target float64, timeConstant time.Duration)

	// Target returns the value the gain is settling towards
	Target() float64
}

// SampleFromInt16 converts an int16 sample to float32
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}

// SampleFromInt converts a signed integer sample of the given bit depth to float32
func SampleFromInt(sample int32, bitDepth int) float32 {
	if bitDepth <= 0 || bitDepth > 32 {
		return 0
	}
	scale := float32(int64(1) << (bitDepth - 1))
	return Clip(float32(sample) / scale)
}

// SampleToInt16 converts a float32 sample to int16 with clipping
func SampleToInt16(sample float32) int16 {
	return int16(Clip(sample) * 32767.0)
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// Clip limits a sample to [-1, 1]
func Clip(sample float32) float32 {
	if sample > 1 {
		return 1
	}
	if sample < -1 {
		return -1
	}
	return sample
}
