package smf

import "errors"

// Division is the SMF header's time-division field. The high bit selects
// between two interpretations: PPQ (pulses per quarter note) when clear,
// SMPTE (frames per second / ticks per frame) when set. See spec.md §3.
type Division uint16

// ErrNotPPQ / ErrNotSMPTE are returned by the accessor that doesn't match
// the division's actual mode.
var (
	ErrNotPPQ   = errors.New("smf: division is not in PPQ mode")
	ErrNotSMPTE = errors.New("smf: division is not in SMPTE mode")
)

// IsSMPTE reports whether d uses SMPTE (absolute-time) division.
func (d Division) IsSMPTE() bool {
	return d&0x8000 != 0
}

// PPQTicks returns the ticks-per-quarter-note value for a PPQ-mode
// division (1..32767).
func (d Division) PPQTicks() (uint16, error) {
	if d.IsSMPTE() {
		return 0, ErrNotPPQ
	}
	return uint16(d), nil
}

// SMPTEFrameRate returns the nominal frames-per-second (24, 25, 29, or 30;
// 29 denotes the 29.97 drop-frame rate) and ticks-per-frame for an
// SMPTE-mode division.
func (d Division) SMPTEFrameRate() (fps int8, ticksPerFrame byte, err error) {
	if !d.IsSMPTE() {
		return 0, 0, ErrNotSMPTE
	}
	negFps := int8(byte(d >> 8))
	return -negFps, byte(d), nil
}

// NanosPerTick returns the duration of a single tick in nanoseconds,
// given the division and (for PPQ mode) the current tempo in
// microseconds-per-quarter-note. smpte2997 selects whether a declared
// fps of 29 is interpreted as exactly 29 Hz or as the 29.97 drop-frame
// rate (spec.md §9 Open Question, resolved in SPEC_FULL.md to default
// true).
func (d Division) NanosPerTick(tempoMicrosPerQuarter uint32, smpte2997 bool) (float64, error) {
	if d.IsSMPTE() {
		fps, ticksPerFrame, err := d.SMPTEFrameRate()
		if err != nil {
			return 0, err
		}
		rate := float64(fps)
		if fps == 29 && smpte2997 {
			rate = 30000.0 / 1001.0
		}
		if rate <= 0 || ticksPerFrame == 0 {
			return 0, errors.New("smf: invalid SMPTE division")
		}
		return 1e9 / (rate * float64(ticksPerFrame)), nil
	}
	ticks, err := d.PPQTicks()
	if err != nil {
		return 0, err
	}
	if ticks == 0 {
		return 0, errors.New("smf: zero PPQ division")
	}
	return float64(tempoMicrosPerQuarter) * 1000.0 / float64(ticks), nil
}

// DefaultTempoMicrosPerQuarter is 120 BPM, the default tempo applied
// before the first tempo meta-event (spec.md §6 configuration option
// default_tempo).
const DefaultTempoMicrosPerQuarter uint32 = 500000
