// ABOUTME: Looping voice and smoothed gain stage shared by all backends
// ABOUTME: The gain target is written by the host and read by the audio thread
package output

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/zerohz/zerohz-go/pkg/audio"
)

// settleEpsilon is the distance at which a ramp snaps onto its target
const settleEpsilon = 1e-4

// gainStage implements audio.Gain with exponential smoothing, the same curve
// as a Web Audio setTargetAtTime ramp.
type gainStage struct {
	target     atomic.Uint64 // float64 bits
	jumpTo     atomic.Uint64 // float64 bits, valid while jump is set
	tau        atomic.Int64  // time constant in ns
	jump       atomic.Bool
	sampleRate int

	// Audio thread only
	current float64
}

func newGainStage(sampleRate int) *gainStage {
	return &gainStage{sampleRate: sampleRate}
}

// Set jumps to v on the next rendered frame
func (g *gainStage) Set(v float64) {
	g.jumpTo.Store(math.Float64bits(v))
	g.target.Store(math.Float64bits(v))
	g.jump.Store(true)
}

// RampTo approaches target exponentially with the given time constant. A
// pending Set still lands first, so the ramp starts from its value.
func (g *gainStage) RampTo(target float64, timeConstant time.Duration) {
	g.tau.Store(int64(timeConstant))
	g.target.Store(math.Float64bits(target))
}

// Target returns the value the gain is settling towards
func (g *gainStage) Target() float64 {
	return math.Float64frombits(g.target.Load())
}

// apply scales interleaved samples in place, advancing the ramp once per frame
func (g *gainStage) apply(samples []float32, channels int) {
	if g.jump.Swap(false) {
		g.current = math.Float64frombits(g.jumpTo.Load())
	}
	target := g.Target()
	tau := time.Duration(g.tau.Load())
	if tau <= 0 {
		g.current = target
	}

	if g.current == target {
		if target == 1 {
			return
		}
		gain := float32(target)
		for i := range samples {
			samples[i] *= gain
		}
		return
	}

	coeff := 1 - math.Exp(-1/(tau.Seconds()*float64(g.sampleRate)))
	for f := 0; f+channels <= len(samples); f += channels {
		g.current += (target - g.current) * coeff
		if math.Abs(target-g.current) < settleEpsilon {
			g.current = target
		}
		gain := float32(g.current)
		for ch := 0; ch < channels; ch++ {
			samples[f+ch] *= gain
		}
	}
}

// voice renders one buffer through a gain stage, looping unless oneShot
type voice struct {
	buf     *audio.Buffer
	gain    *gainStage
	oneShot bool

	// Audio thread only
	pos  int
	done bool
}

func newVoice(buf *audio.Buffer, gain *gainStage, oneShot bool) *voice {
	return &voice{buf: buf, gain: gain, oneShot: oneShot}
}

// read fills out with the next samples. A looping voice wraps to the first
// frame with no gap; a one-shot voice pads with silence and marks itself done.
func (v *voice) read(out []float32) {
	src := v.buf.Samples
	written := 0

	for written < len(out) {
		if v.done || len(src) == 0 {
			clear(out[written:])
			break
		}

		n := copy(out[written:], src[v.pos:])
		written += n
		v.pos += n

		if v.pos >= len(src) {
			v.pos = 0
			if v.oneShot {
				v.done = true
			}
		}
	}

	v.gain.apply(out, v.buf.Format.Channels)
}
