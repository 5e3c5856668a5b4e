// ABOUTME: Audio output tests
// ABOUTME: Verifies looping voices, gain smoothing, mixing and the offline backend
package output

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/zerohz/zerohz-go/pkg/audio"
)

var testFormat = audio.Format{Codec: "pcm", SampleRate: 1000, Channels: 1, BitDepth: 32}

func constBuffer(value float32, frames int) *audio.Buffer {
	samples := make([]float32, frames)
	for i := range samples {
		samples[i] = value
	}
	return &audio.Buffer{Format: testFormat, Samples: samples}
}

func TestImplementsOutput(t *testing.T) {
	var _ Output = (*Oto)(nil)
	var _ Output = (*Malgo)(nil)
	var _ Output = (*Null)(nil)
	var _ audio.Gain = (*gainStage)(nil)
	var _ audio.Source = (*mixChannel)(nil)
	var _ audio.Source = (*otoChannel)(nil)
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("alsa-direct", DefaultFormat, zerolog.Nop()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestOpenNullFillsFormat(t *testing.T) {
	out, err := Open("null", audio.Format{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if out.Format().SampleRate != 48000 || out.Format().Channels != 2 {
		t.Errorf("expected default format, got %+v", out.Format())
	}
}

func TestVoiceLoopsWithoutGap(t *testing.T) {
	buf := &audio.Buffer{Format: testFormat, Samples: []float32{0.1, 0.2, 0.3}}
	gain := newGainStage(testFormat.SampleRate)
	gain.Set(1)
	v := newVoice(buf, gain, false)

	out := make([]float32, 7)
	v.read(out)

	want := []float32{0.1, 0.2, 0.3, 0.1, 0.2, 0.3, 0.1}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("sample %d: expected %v, got %v", i, want[i], out[i])
		}
	}
	if v.done {
		t.Error("looping voice should never finish")
	}
}

func TestOneShotVoicePadsAndFinishes(t *testing.T) {
	buf := &audio.Buffer{Format: testFormat, Samples: []float32{0.5, 0.5}}
	gain := newGainStage(testFormat.SampleRate)
	gain.Set(1)
	v := newVoice(buf, gain, true)

	out := make([]float32, 4)
	v.read(out)

	if out[1] != 0.5 || out[2] != 0 || out[3] != 0 {
		t.Errorf("expected padding after end, got %v", out)
	}
	if !v.done {
		t.Error("one-shot voice should be done")
	}
}

func TestGainSetIsImmediate(t *testing.T) {
	gain := newGainStage(testFormat.SampleRate)
	gain.RampTo(1, 100*time.Millisecond)
	gain.Set(0.25)

	out := []float32{1, 1, 1}
	gain.apply(out, 1)

	for i, s := range out {
		if s != 0.25 {
			t.Errorf("sample %d: expected 0.25, got %v", i, s)
		}
	}
}

func TestGainRampAfterPendingSetStartsFromSet(t *testing.T) {
	gain := newGainStage(testFormat.SampleRate)
	gain.Set(0.5)
	gain.RampTo(0, 20*time.Millisecond)

	out := make([]float32, 20)
	for i := range out {
		out[i] = 1
	}
	gain.apply(out, 1)

	if out[0] < 0.4 || out[0] >= 0.5 {
		t.Errorf("expected ramp to start just below 0.5, got %v", out[0])
	}
	if out[19] <= 0 || out[19] >= out[0] {
		t.Errorf("expected a falling ramp, got %v", out)
	}
	if gain.Target() != 0 {
		t.Errorf("expected target 0, got %v", gain.Target())
	}
}

func TestGainRampConvergesAndSnaps(t *testing.T) {
	gain := newGainStage(testFormat.SampleRate)
	gain.Set(0)
	gain.apply(make([]float32, 1), 1)

	gain.RampTo(1, 10*time.Millisecond)
	if gain.Target() != 1 {
		t.Errorf("expected target 1, got %v", gain.Target())
	}

	// One time constant is 10 frames at 1kHz
	out := make([]float32, 10)
	for i := range out {
		out[i] = 1
	}
	gain.apply(out, 1)

	if out[0] <= 0 || out[0] >= out[9] {
		t.Errorf("expected a rising ramp, got %v", out)
	}
	if math.Abs(float64(out[9])-(1-math.Exp(-1))) > 0.01 {
		t.Errorf("expected ~63%% after one time constant, got %v", out[9])
	}

	long := make([]float32, 500)
	for i := range long {
		long[i] = 1
	}
	gain.apply(long, 1)

	if gain.current != 1 {
		t.Errorf("expected ramp to snap onto target, current %v", gain.current)
	}
	if long[499] != 1 {
		t.Errorf("expected unity output after settling, got %v", long[499])
	}
}

func TestGainRampMonotonicDown(t *testing.T) {
	gain := newGainStage(testFormat.SampleRate)
	gain.Set(1)
	gain.apply(make([]float32, 1), 1)

	gain.RampTo(0, 20*time.Millisecond)
	out := make([]float32, 50)
	for i := range out {
		out[i] = 1
	}
	gain.apply(out, 1)

	for i := 1; i < len(out); i++ {
		if out[i] > out[i-1] {
			t.Fatalf("ramp went up at frame %d: %v > %v", i, out[i], out[i-1])
		}
	}
}

func TestSoftClip(t *testing.T) {
	samples := []float32{0.5, 0.9, 5, -5, -0.3}
	softClip(samples)

	if samples[0] != 0.5 || samples[4] != -0.3 {
		t.Errorf("expected quiet samples untouched, got %v", samples)
	}
	if samples[1] <= 0.8 || samples[1] >= 0.9 {
		t.Errorf("expected 0.9 to be softened, got %v", samples[1])
	}
	if samples[2] > 1 || samples[3] < -1 {
		t.Errorf("expected output within [-1, 1], got %v", samples)
	}
}

func TestNullChannelLifecycle(t *testing.T) {
	out := NewNull(testFormat)

	src, gain, err := out.CreateChannel(constBuffer(0.5, 100))
	if err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}
	gain.Set(0.5)

	if out.Voices() != 0 {
		t.Error("channel should not be in the mix before Start")
	}

	if err := src.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := src.Start(); err != nil {
		t.Fatalf("second Start should be a no-op: %v", err)
	}
	if out.Voices() != 1 {
		t.Errorf("expected 1 voice, got %d", out.Voices())
	}

	samples := out.Render(10)
	if samples[0] != 0.25 {
		t.Errorf("expected 0.25, got %v", samples[0])
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("second Stop should be a no-op: %v", err)
	}
	if out.Voices() != 0 {
		t.Errorf("expected 0 voices after Stop, got %d", out.Voices())
	}
	if err := src.Start(); err == nil {
		t.Error("expected error restarting a stopped channel")
	}
}

func TestNullMixesChannels(t *testing.T) {
	out := NewNull(testFormat)

	for i := 0; i < 2; i++ {
		src, gain, err := out.CreateChannel(constBuffer(0.2, 50))
		if err != nil {
			t.Fatalf("CreateChannel failed: %v", err)
		}
		gain.Set(1)
		if err := src.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
	}

	samples := out.Render(5)
	if math.Abs(float64(samples[0])-0.4) > 1e-6 {
		t.Errorf("expected summed 0.4, got %v", samples[0])
	}
}

func TestNullSuspendSilences(t *testing.T) {
	out := NewNull(testFormat)
	src, gain, _ := out.CreateChannel(constBuffer(0.5, 10))
	gain.Set(1)
	_ = src.Start()

	_ = out.Suspend()
	if samples := out.Render(4); samples[0] != 0 {
		t.Errorf("expected silence while suspended, got %v", samples[0])
	}
	if out.Voices() != 1 {
		t.Error("suspend should keep voices")
	}

	_ = out.Resume()
	if samples := out.Render(4); samples[0] != 0.5 {
		t.Errorf("expected audio after resume, got %v", samples[0])
	}
}

func TestNullPlayOnceLeavesMix(t *testing.T) {
	out := NewNull(testFormat)

	if err := out.PlayOnce(constBuffer(0.5, 3), 0.5); err != nil {
		t.Fatalf("PlayOnce failed: %v", err)
	}
	if out.OneShots() != 1 || out.Voices() != 1 {
		t.Fatalf("expected one one-shot voice, got %d/%d", out.OneShots(), out.Voices())
	}

	out.Render(10)
	if out.Voices() != 0 {
		t.Error("one-shot voice should leave the mix when finished")
	}
}

func TestCreateChannelRejectsMismatchedFormat(t *testing.T) {
	out := NewNull(testFormat)

	stereo := &audio.Buffer{
		Format:  audio.Format{SampleRate: 1000, Channels: 2},
		Samples: []float32{0, 0},
	}
	if _, _, err := out.CreateChannel(stereo); err == nil {
		t.Error("expected error for channel count mismatch")
	}
	if _, _, err := out.CreateChannel(&audio.Buffer{Format: testFormat}); err == nil {
		t.Error("expected error for empty buffer")
	}
}
