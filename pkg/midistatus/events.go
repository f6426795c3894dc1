package midistatus

// Event types published on a processor's *eventbus.Bus as status changes
// are observed. Port is 1-based, matching spec.md §3; Channel is the
// 0-based wire channel (0..15) taken from the status byte.

type TempoChanged struct {
	MicrosPerQuarter uint32
}

type TimeSignatureChanged struct {
	Numerator              byte
	DenominatorPow2        byte
	ClocksPerClick         byte
	Notated32ndsPerQuarter byte
}

type KeySignatureChanged struct {
	SharpsFlats int8
	Minor       bool
}

type NoteChanged struct {
	Port, Channel, Note byte
	On                  bool
	Velocity            byte
}

type ControllerChanged struct {
	Port, Channel, Controller, Value byte
}

type ProgramChanged struct {
	Port, Channel, Program byte
}

type ChannelAftertouchChanged struct {
	Port, Channel, Pressure byte
}

type PolyAftertouchChanged struct {
	Port, Channel, Note, Pressure byte
}

type PitchBendChanged struct {
	Port, Channel byte
	Value         int16
}
