// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Converts decoded buffers to the output rate and channel layout
package resample

import (
	"math"

	"github.com/zerohz/zerohz-go/pkg/audio"
)

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// Resample converts input samples to output sample rate using linear interpolation.
// input and output are interleaved. Returns the number of samples written.
func (r *Resampler) Resample(input []float32, output []float32) int {
	if len(input) == 0 {
		return 0
	}

	inputFrames := len(input) / r.channels
	outputFrames := len(output) / r.channels

	outIdx := 0
	for outIdx < outputFrames {
		inputIdx := int(r.position)

		// If we've consumed all input, stop
		if inputIdx >= inputFrames-1 {
			break
		}

		frac := float32(r.position - float64(inputIdx))

		for ch := 0; ch < r.channels; ch++ {
			s1 := input[inputIdx*r.channels+ch]
			s2 := input[(inputIdx+1)*r.channels+ch]
			output[outIdx*r.channels+ch] = s1*(1-frac) + s2*frac
		}

		outIdx++
		r.position += r.ratio
	}

	// Keep the fractional part for the next chunk
	r.position -= float64(int(r.position))

	return outIdx * r.channels
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// Convert returns buf rendered at the target sample rate and channel count.
// buf is returned unchanged when it already matches. The buffer is treated
// as a loop: the last input frame interpolates towards the first, so every
// output frame up to the loop point is kept.
func Convert(buf *audio.Buffer, sampleRate, channels int) *audio.Buffer {
	if buf == nil {
		return nil
	}

	mapped := mapChannels(buf.Samples, buf.Format.Channels, channels)
	if buf.Format.SampleRate == sampleRate {
		if buf.Format.Channels == channels {
			return buf
		}
		return withSamples(buf, mapped, sampleRate, channels)
	}

	frames := len(mapped) / channels
	if frames == 0 {
		return withSamples(buf, nil, sampleRate, channels)
	}

	// Append frame 0 so the final segment wraps around the loop point
	wrapped := make([]float32, 0, len(mapped)+channels)
	wrapped = append(wrapped, mapped[:frames*channels]...)
	wrapped = append(wrapped, mapped[:channels]...)

	r := New(buf.Format.SampleRate, sampleRate, channels)
	out := make([]float32, int(math.Ceil(float64(frames)/r.ratio))*channels)
	n := r.Resample(wrapped, out)

	return withSamples(buf, out[:n], sampleRate, channels)
}

func withSamples(buf *audio.Buffer, samples []float32, sampleRate, channels int) *audio.Buffer {
	format := buf.Format
	format.SampleRate = sampleRate
	format.Channels = channels
	return &audio.Buffer{Format: format, Samples: samples}
}

// mapChannels converts interleaved samples between channel counts.
// Mono is duplicated to every output channel, anything wider folded down to
// mono is averaged, and other layouts repeat the input channels in order.
func mapChannels(samples []float32, from, to int) []float32 {
	if from == to || from == 0 {
		return samples
	}

	frames := len(samples) / from
	out := make([]float32, frames*to)

	for f := 0; f < frames; f++ {
		in := samples[f*from : f*from+from]
		if to == 1 {
			var sum float32
			for _, s := range in {
				sum += s
			}
			out[f] = sum / float32(from)
			continue
		}
		for c := 0; c < to; c++ {
			out[f*to+c] = in[c%from]
		}
	}

	return out
}
