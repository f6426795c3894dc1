package audio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/ongakudo/midiengine/pkg/device"
)

// SampleRate is the audio sample rate used for MIDI synthesis.
const SampleRate = 44100

// Synth adapts a meltysynth.Synthesizer into a pkg/device.Device and,
// via Stream, an io.Reader of rendered PCM16 stereo samples for
// Ebitengine's audio.Player. Send and the stream's Read run on
// different goroutines (the scheduler's worker and Ebitengine's audio
// callback); mu serializes access to the shared Synthesizer.
type Synth struct {
	mu          sync.Mutex
	synthesizer *meltysynth.Synthesizer
}

// NewSynth loads soundFontPath and builds a Synthesizer over it at
// SampleRate.
func NewSynth(soundFontPath string) (*Synth, error) {
	sf, err := LoadSoundFont(soundFontPath)
	if err != nil {
		return nil, err
	}
	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	synthesizer, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	return &Synth{synthesizer: synthesizer}, nil
}

// Send implements device.Device: it decodes msg's channel/command/data
// bytes and forwards them to the synthesizer, mirroring the
// status-byte split every channel voice message uses. Only channel
// voice messages (0x80..0xEF) are accepted — the playhead never
// forwards anything else to a device (see pkg/playhead's IsPlayable
// guard), so anything outside that range reaching Send here is
// unexpected.
func (s *Synth) Send(msg []byte) error {
	if len(msg) == 0 {
		return device.NewError(device.UnsupportedMessage, "empty message")
	}
	status := msg[0]
	if status < 0x80 || status >= 0xF0 {
		return device.NewError(device.UnsupportedMessage, fmt.Sprintf("status 0x%02x is not a channel voice message", status))
	}
	channel := int32(status & 0x0F)
	command := int32(status & 0xF0)
	var data1, data2 int32
	if len(msg) > 1 {
		data1 = int32(msg[1])
	}
	if len(msg) > 2 {
		data2 = int32(msg[2])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.synthesizer.ProcessMidiMessage(channel, command, data1, data2)
	return nil
}

// Stream renders whatever a Synth's Synthesizer currently has sounding
// into an Ebitengine audio.Player-compatible PCM16 stereo byte stream.
// Unlike go-meltysynth's own MidiFileSequencer, Stream has no notion of
// a MIDI file or a timeline of its own — it only renders live
// synthesizer state, driven entirely by whatever Send calls pkg/
// scheduler's worker makes.
type Stream struct {
	synth *Synth
}

// NewPlayer creates an Ebitengine audio.Player that continuously
// renders s's synthesizer output.
func NewPlayer(ctx *audio.Context, s *Synth) (*audio.Player, error) {
	return ctx.NewPlayer(&Stream{synth: s})
}

// Read implements io.Reader, rendering len(p)/4 stereo 16-bit frames.
func (r *Stream) Read(p []byte) (int, error) {
	samples := len(p) / 4
	if samples == 0 {
		return 0, nil
	}
	left := make([]float32, samples)
	right := make([]float32, samples)

	r.synth.mu.Lock()
	r.synth.synthesizer.Render(left, right)
	r.synth.mu.Unlock()

	for i := range samples {
		l := int16(clamp(left[i], -1, 1) * 32767)
		rr := int16(clamp(right[i], -1, 1) * 32767)
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(rr))
	}
	return len(p), nil
}

func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
