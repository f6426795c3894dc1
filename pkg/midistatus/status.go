// Package midistatus holds the observable MIDI state a stream of
// messages accumulates — tempo, time/key signature, per-channel
// controller and note state — and a processor that keeps it in sync as
// messages (real or emulated during a seek) are applied.
package midistatus

// Ports and channels are both addressed 1..16 in the data model (spec.md
// §3); index 0 of each array is unused so port/channel numbers can be
// used directly as indices.
const (
	NumPorts    = 17
	NumChannels = 17
	NumNotes    = 128
	NumControllers = 120
)

// ChannelVoiceStatus holds a channel's sustained channel-voice state:
// current program, channel aftertouch, pitch-bend, and the 120-entry
// controller map (controllers 0..119; 120..127 are channel-mode messages
// and are not latched here).
type ChannelVoiceStatus struct {
	HasProgram bool
	Program    byte

	HasAftertouch bool
	Aftertouch    byte

	HasPitchBend bool
	PitchBend    int16

	Controllers [NumControllers]byte
}

// KeyStatus holds one channel's 128-note on/off matrix with per-note
// velocity and polyphonic pressure.
type KeyStatus struct {
	On        [NumNotes]bool
	Velocity  [NumNotes]byte
	Pressure  [NumNotes]byte
}

// MidiStatus is the full observable state accumulated from a message
// stream: tempo, time/key signature, and per-port-per-channel controller
// and note state. The zero value is a valid "nothing has happened yet"
// status except for Tempo, which callers should initialize via
// NewMidiStatus so DefaultTempo (120 bpm) applies before the first tempo
// meta-event, per spec.md §6.
type MidiStatus struct {
	Tempo uint32 // microseconds per quarter note

	Numerator      byte
	DenominatorRaw byte // power-of-two exponent, as encoded on the wire

	KeySignatureSharpsFlats int8
	KeySignatureMinor       bool

	KeyStatus           [NumPorts][NumChannels]KeyStatus
	ChannelVoiceStatus  [NumPorts][NumChannels]ChannelVoiceStatus
}

// Controller indices used by ReportStatus resync (spec.md §4.4).
const (
	ControllerBankMSB    = 0
	ControllerBankLSB    = 32
	ControllerVolumeMSB  = 7
	ControllerVolumeLSB  = 39
	ControllerPanMSB     = 10
	ControllerPanLSB     = 42
	ControllerExpression = 11
	ControllerExprLSB    = 43
	ControllerBalanceMSB = 8
	ControllerBalanceLSB = 40
	ControllerSustain    = 64
)

// NewMidiStatus returns a MidiStatus with the default tempo applied
// (spec.md §6's default_tempo, 120 bpm = 500000 microseconds/quarter).
func NewMidiStatus() *MidiStatus {
	return &MidiStatus{Tempo: 500000}
}
