package midistatus

import (
	"github.com/ongakudo/midiengine/pkg/eventbus"
	"github.com/ongakudo/midiengine/pkg/message"
)

// Processor applies messages to a MidiStatus and publishes a change
// event for every field it touches, so downstream observers (a device
// resync routine, a UI) don't have to diff snapshots themselves.
//
// A Processor is not safe for concurrent use; callers that apply
// messages from multiple goroutines must serialize their own calls
// (the playhead, which owns the only writer, already does this).
type Processor struct {
	status *MidiStatus
	bus    *eventbus.Bus
}

// NewProcessor returns a Processor over status, publishing change events
// on bus. Either may be shared with other processors/playheads that
// address different ports.
func NewProcessor(status *MidiStatus, bus *eventbus.Bus) *Processor {
	return &Processor{status: status, bus: bus}
}

// Status returns the underlying MidiStatus.
func (p *Processor) Status() *MidiStatus {
	return p.status
}

// Process applies msg, received on port, to the status and publishes
// the corresponding change event(s). Non-playable messages (meta events
// other than tempo/time-signature/key-signature) are ignored.
func (p *Processor) Process(port byte, msg message.Message) {
	switch {
	case msg.IsTempo():
		p.status.Tempo = msg.Tempo()
		eventbus.Publish(p.bus, TempoChanged{MicrosPerQuarter: p.status.Tempo})

	case msg.IsTimeSignature():
		num, denomPow2, cpc, n32 := msg.TimeSignature()
		p.status.Numerator = num
		p.status.DenominatorRaw = denomPow2
		eventbus.Publish(p.bus, TimeSignatureChanged{
			Numerator:              num,
			DenominatorPow2:        denomPow2,
			ClocksPerClick:         cpc,
			Notated32ndsPerQuarter: n32,
		})

	case msg.IsKeySignature():
		sf, minor := msg.KeySignature()
		p.status.KeySignatureSharpsFlats = sf
		p.status.KeySignatureMinor = minor
		eventbus.Publish(p.bus, KeySignatureChanged{SharpsFlats: sf, Minor: minor})

	case msg.IsNoteOn():
		ch := msg.Channel()
		note := msg.Note()
		vel := msg.Velocity()
		ks := &p.status.KeyStatus[port][ch+1]
		ks.On[note] = true
		ks.Velocity[note] = vel
		eventbus.Publish(p.bus, NoteChanged{Port: port, Channel: ch, Note: note, On: true, Velocity: vel})

	case msg.IsNoteOff():
		ch := msg.Channel()
		note := msg.Note()
		ks := &p.status.KeyStatus[port][ch+1]
		ks.On[note] = false
		ks.Velocity[note] = 0
		eventbus.Publish(p.bus, NoteChanged{Port: port, Channel: ch, Note: note, On: false})

	case msg.IsPolyAftertouch():
		ch := msg.Channel()
		note := msg.Note()
		pressure := msg.Pressure()
		p.status.KeyStatus[port][ch+1].Pressure[note] = pressure
		eventbus.Publish(p.bus, PolyAftertouchChanged{Port: port, Channel: ch, Note: note, Pressure: pressure})

	case msg.IsControlChange():
		ch := msg.Channel()
		ctrl := msg.Controller()
		val := msg.ControllerValue()
		if int(ctrl) < NumControllers {
			p.status.ChannelVoiceStatus[port][ch+1].Controllers[ctrl] = val
		}
		eventbus.Publish(p.bus, ControllerChanged{Port: port, Channel: ch, Controller: ctrl, Value: val})

	case msg.IsProgramChange():
		ch := msg.Channel()
		program := msg.Program()
		cv := &p.status.ChannelVoiceStatus[port][ch+1]
		cv.HasProgram = true
		cv.Program = program
		eventbus.Publish(p.bus, ProgramChanged{Port: port, Channel: ch, Program: program})

	case msg.IsChannelAftertouch():
		ch := msg.Channel()
		pressure := msg.Pressure()
		cv := &p.status.ChannelVoiceStatus[port][ch+1]
		cv.HasAftertouch = true
		cv.Aftertouch = pressure
		eventbus.Publish(p.bus, ChannelAftertouchChanged{Port: port, Channel: ch, Pressure: pressure})

	case msg.IsPitchBend():
		ch := msg.Channel()
		bend := msg.PitchBend()
		cv := &p.status.ChannelVoiceStatus[port][ch+1]
		cv.HasPitchBend = true
		cv.PitchBend = bend
		eventbus.Publish(p.bus, PitchBendChanged{Port: port, Channel: ch, Value: bend})
	}
}

// reportOrder is the literal controller resync order spec.md §4.4
// prescribes: balance, pan, expression, volume, each MSB before LSB.
var reportOrder = []byte{
	ControllerBalanceMSB, ControllerBalanceLSB,
	ControllerPanMSB, ControllerPanLSB,
	ControllerExpression, ControllerExprLSB,
	ControllerVolumeMSB, ControllerVolumeLSB,
}

// ReportStatus re-publishes the current state of every port/channel as
// change events, in the fixed deterministic order spec.md §4.4
// prescribes: {tempo, time-sig, key-sig} first, then for each
// port/channel in order: balance MSB, balance LSB, pan MSB/LSB,
// expression MSB/LSB, volume MSB/LSB, program. Channel aftertouch,
// pitch bend, and sounding notes are not part of that literal sequence
// but are genuine observable state this module's multi-port status
// matrix carries, so they're appended per channel after program. This
// lets a device that was just opened — or that missed messages because
// of a seek — resynchronize to the status without replaying the whole
// stream, per spec.md §4.4's post-seek resync contract (spec.md §8
// property 7).
func (p *Processor) ReportStatus() {
	eventbus.Publish(p.bus, TempoChanged{MicrosPerQuarter: p.status.Tempo})
	eventbus.Publish(p.bus, TimeSignatureChanged{
		Numerator:       p.status.Numerator,
		DenominatorPow2: p.status.DenominatorRaw,
	})
	eventbus.Publish(p.bus, KeySignatureChanged{
		SharpsFlats: p.status.KeySignatureSharpsFlats,
		Minor:       p.status.KeySignatureMinor,
	})

	for port := 1; port < NumPorts; port++ {
		for ch := 1; ch < NumChannels; ch++ {
			cv := &p.status.ChannelVoiceStatus[port][ch]
			channel := byte(ch - 1)

			for _, ctrl := range reportOrder {
				eventbus.Publish(p.bus, ControllerChanged{
					Port: byte(port), Channel: channel, Controller: ctrl, Value: cv.Controllers[ctrl],
				})
			}
			if cv.HasProgram {
				eventbus.Publish(p.bus, ProgramChanged{Port: byte(port), Channel: channel, Program: cv.Program})
			}

			if cv.HasAftertouch {
				eventbus.Publish(p.bus, ChannelAftertouchChanged{Port: byte(port), Channel: channel, Pressure: cv.Aftertouch})
			}
			if cv.HasPitchBend {
				eventbus.Publish(p.bus, PitchBendChanged{Port: byte(port), Channel: channel, Value: cv.PitchBend})
			}

			ks := &p.status.KeyStatus[port][ch]
			for note := 0; note < NumNotes; note++ {
				if ks.On[note] {
					eventbus.Publish(p.bus, NoteChanged{
						Port: byte(port), Channel: channel, Note: byte(note), On: true, Velocity: ks.Velocity[note],
					})
				}
			}
		}
	}
}
