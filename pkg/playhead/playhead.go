// Package playhead implements the track playhead: a per-track stateful
// cursor that converts delta-time ticks into wall-clock durations under
// a live tempo, advances through a decoded track's events, forwards
// playable messages to a device, and supports forward/rewind seeking
// with emulated state reconstruction. It is driven externally by a
// scheduler (pkg/scheduler) that supplies the elapsed wall time since
// the previous tick.
package playhead

import (
	"time"

	"github.com/ongakudo/midiengine/internal/logging"
	"github.com/ongakudo/midiengine/pkg/device"
	"github.com/ongakudo/midiengine/pkg/eventbus"
	"github.com/ongakudo/midiengine/pkg/message"
	"github.com/ongakudo/midiengine/pkg/midistatus"
	"github.com/ongakudo/midiengine/pkg/smf"
)

// State is the playhead's lifecycle state.
type State int

const (
	// Idle: no track bound yet.
	Idle State = iota
	// Armed: bound to a track, positioned at start or at a seek target,
	// not currently being advanced by a scheduler.
	Armed
	// Ticking: the scheduler is actively driving this playhead.
	Ticking
	// Eof: the track has been fully consumed.
	Eof
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Ticking:
		return "ticking"
	case Eof:
		return "eof"
	default:
		return "unknown"
	}
}

// EventKind distinguishes a handler invocation driven by real playback
// from one driven by seek emulation (status-only replay with no device
// output).
type EventKind int

const (
	Realtime EventKind = iota
	Emulated
)

// Handler is invoked once per message the playhead processes, whether
// real-time (during Tick) or emulated (during a forward seek replay).
// playtime is the playhead's virtual position at the moment of the
// call. Implementations must return promptly: Tick calls Handler
// synchronously from the scheduler's worker goroutine.
type Handler func(kind EventKind, playtime time.Duration, msg message.TimedMessage)

// Eternity is the sentinel Tick/Seek-internal return value meaning "no
// further event exists" — the Go analogue of the source's ns::MAX.
const Eternity = time.Duration(1<<63 - 1)

// Playhead is a single track cursor. The zero value is not usable; use
// New. A Playhead is not safe for concurrent use — all methods must be
// called from a single goroutine (the scheduler's worker, by
// convention).
type Playhead struct {
	name string

	state State
	track smf.Track
	next  int // index of the next not-yet-played event in track

	sleepRemaining time.Duration
	playtime       time.Duration
	compensation   time.Duration
	primed         bool // true until the first Tick has set sleepRemaining from track[0]'s own delta

	division  smf.Division
	tempo     uint32 // microseconds per quarter note
	ticksToNs float64
	smpte2997 bool

	device  device.Device
	handler Handler
	bus     *eventbus.Bus

	status    *midistatus.MidiStatus
	processor *midistatus.Processor
	port      byte
}

// New returns an Idle Playhead named name. Port (1..16) identifies
// which midistatus port-channel matrix this playhead's status updates
// target; New sets it to 1, which most single-device setups keep, and
// SetPort changes it. The playhead owns its own MidiStatus/Processor
// pair and its own event bus.
func New(name string) *Playhead {
	bus := eventbus.New()
	status := midistatus.NewMidiStatus()
	return &Playhead{
		name:      name,
		state:     Idle,
		smpte2997: true,
		port:      1,
		bus:       bus,
		status:    status,
		processor: midistatus.NewProcessor(status, bus),
	}
}

// Name returns the playhead's name.
func (p *Playhead) Name() string { return p.name }

// State returns the current lifecycle state.
func (p *Playhead) State() State { return p.state }

// Playtime returns the playhead's current virtual position.
func (p *Playhead) Playtime() time.Duration { return p.playtime }

// SetDevice sets the output sink messages are forwarded to during
// real-time ticking. A nil device means messages are processed into
// status but never forwarded.
func (p *Playhead) SetDevice(d device.Device) { p.device = d }

// SetHandler sets the per-message callback.
func (p *Playhead) SetHandler(h Handler) { p.handler = h }

// SetPort sets which midistatus port (1..16) this playhead's status
// processor addresses.
func (p *Playhead) SetPort(port byte) { p.port = port }

// Bus returns the event bus this playhead's status processor and
// device-send failures are published on.
func (p *Playhead) Bus() *eventbus.Bus { return p.bus }

// Status returns the playhead's MidiStatus, observable state
// accumulated from the track's channel-voice and meta events.
func (p *Playhead) Status() *midistatus.MidiStatus { return p.status }

// SetSMPTE2997 controls whether an SMPTE-mode division with fps==29 is
// interpreted as the 29.97 drop-frame rate (default true) or exactly 29
// Hz.
func (p *Playhead) SetSMPTE2997(v bool) { p.smpte2997 = v }

// BindTrack binds track to this playhead: resets the next-event cursor
// to the beginning, zeroes playtime and compensation, resets tempo to
// the default (120 bpm) and status to empty, then recomputes the
// ticks-to-nanoseconds conversion. An empty track immediately reaches
// Eof on the next Tick.
func (p *Playhead) BindTrack(track smf.Track) {
	p.track = track
	p.next = 0
	p.playtime = 0
	p.sleepRemaining = 0
	p.compensation = 0
	p.primed = true
	p.tempo = smf.DefaultTempoMicrosPerQuarter
	*p.status = *midistatus.NewMidiStatus()
	p.recomputeTicksToNs()
	if len(track) == 0 {
		p.state = Eof
	} else {
		p.state = Armed
	}
}

func (p *Playhead) recomputeTicksToNs() {
	ns, err := p.division.NanosPerTick(p.tempo, p.smpte2997)
	if err != nil {
		ns = 0
	}
	p.ticksToNs = ns
}

func (p *Playhead) tickDuration(delta uint32) time.Duration {
	return time.Duration(p.ticksToNs * float64(delta))
}

// retime recomputes ticks-to-nanoseconds and rescales sleepRemaining so
// the elapsed fraction of the in-flight delta is preserved (spec.md §8
// property 5): sleepRemaining_new == (sleepRemaining_old / ticksToNs_old)
// * ticksToNs_new.
func (p *Playhead) retime() {
	old := p.ticksToNs
	p.recomputeTicksToNs()
	if old > 0 && p.sleepRemaining > 0 {
		p.sleepRemaining = time.Duration(float64(p.sleepRemaining) / old * p.ticksToNs)
	}
}

// SetDivision changes the track division (e.g. after detecting a
// different file), retiming the in-flight delta.
func (p *Playhead) SetDivision(d smf.Division) {
	p.division = d
	p.retime()
}

// SetTempo changes the current tempo (microseconds per quarter note),
// retiming the in-flight delta. Applying the same tempo twice is a
// no-op beyond the redundant (harmless) rescale (spec.md §8 property
// 4): rescaling by ticksToNs_new/ticksToNs_old where both are equal is
// the identity.
func (p *Playhead) SetTempo(tempo uint32) {
	p.tempo = tempo
	p.retime()
}

// process applies msg to the status processor, then invokes the
// handler (if any), then — for a Realtime message with a device
// attached — forwards it to the device, publishing a SendFailed event
// on the bus if the device rejects it (spec.md §7: one failed send does
// not halt playback).
func (p *Playhead) process(tm message.TimedMessage, kind EventKind) {
	p.processor.Process(p.port, tm.Message)
	if tm.Message.IsTempo() {
		// tempo_change_aware (spec default: on): a tempo meta
		// encountered in the stream itself retimes ticksToNs for
		// whatever comes next, same as an explicit SetTempo call.
		p.tempo = tm.Message.Tempo()
		p.recomputeTicksToNs()
	}
	if p.handler != nil {
		p.invokeHandler(kind, tm)
	}
	if kind != Realtime || p.device == nil || !tm.Message.IsPlayable() {
		return
	}
	if err := p.device.Send([]byte(tm.Message)); err != nil {
		eventbus.Publish(p.bus, SendFailed{Err: err})
	}
}

// invokeHandler calls p.handler, recovering a panic rather than letting
// it unwind into the scheduler's worker goroutine and take every other
// playhead in the group down with it.
func (p *Playhead) invokeHandler(kind EventKind, tm message.TimedMessage) {
	defer func() {
		if r := recover(); r != nil {
			logging.Component("playhead").Error("handler panicked", "playhead", p.name, "panic", r)
		}
	}()
	p.handler(kind, p.playtime, tm)
}

// Tick reports that slept wall-time has elapsed since the previous
// Tick call and returns the duration to sleep before the next Tick is
// needed, or Eternity once the track is exhausted. See
// midiadvancedtrackplayer.hpp's tick() for the originating algorithm;
// the compensation scheme carries over-slept debt into subsequent
// intervals so cumulative drift stays bounded by one wakeup rather than
// growing with the event count.
func (p *Playhead) Tick(slept time.Duration) time.Duration {
	if p.state == Eof {
		return Eternity
	}
	p.state = Ticking
	if len(p.track) == 0 {
		p.state = Eof
		return Eternity
	}

	p.playtime += slept
	if p.primed {
		p.primed = false
		p.sleepRemaining = p.tickDuration(p.track[p.next].Delta)
	}
	if slept > p.sleepRemaining {
		p.compensation += slept - p.sleepRemaining
		slept = p.sleepRemaining
	}
	p.sleepRemaining -= slept
	if p.sleepRemaining > 0 {
		return p.sleepRemaining
	}

	for {
		p.process(p.track[p.next], Realtime)
		p.next++
		if p.next >= len(p.track) {
			p.state = Eof
			eventbus.Publish(p.bus, EndOfTrack{})
			return Eternity
		}

		sr := p.tickDuration(p.track[p.next].Delta)
		if sr <= p.compensation {
			p.compensation -= sr
			continue
		}
		taken := p.compensation
		p.compensation = 0
		p.sleepRemaining = sr - taken
		break
	}
	return p.sleepRemaining
}

// Seek moves the playhead to target (a virtual-time offset from the
// track's start), replaying every event between the current and target
// position through the status processor and handler as Emulated (never
// to the device) so downstream status stays consistent. Returns false
// if target is beyond the track's end, leaving the playhead at Eof.
func (p *Playhead) Seek(target time.Duration) bool {
	if p.state == Idle {
		return false
	}
	if target == p.playtime && p.state != Eof {
		return true
	}
	if target > p.playtime && p.state != Eof {
		return p.goForward(target)
	}
	p.resetToBegin()
	return p.goForward(target)
}

func (p *Playhead) resetToBegin() {
	p.next = 0
	p.playtime = 0
	p.compensation = 0
	p.sleepRemaining = 0
	p.primed = true
	*p.status = *midistatus.NewMidiStatus()
	p.tempo = p.status.Tempo
	p.recomputeTicksToNs()
}

// goForward advances the cursor, emulating every message strictly
// before target, then clamps playtime to target and recomputes the
// residual sleepRemaining for whatever event now sits at p.next.
func (p *Playhead) goForward(target time.Duration) bool {
	if len(p.track) == 0 {
		p.state = Eof
		return target == 0
	}
	if p.primed {
		p.primed = false
		p.sleepRemaining = p.tickDuration(p.track[p.next].Delta)
	}

	for p.playtime+p.sleepRemaining < target {
		p.playtime += p.sleepRemaining
		p.process(p.track[p.next], Emulated)
		p.next++
		if p.next >= len(p.track) {
			p.state = Eof
			return false
		}
		p.sleepRemaining = p.tickDuration(p.track[p.next].Delta)
	}

	p.sleepRemaining = p.playtime + p.sleepRemaining - target
	p.playtime = target
	p.state = Armed
	return true
}
