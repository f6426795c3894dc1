package playhead

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/ongakudo/midiengine/pkg/smf"
)

// Property 5 from spec.md §8: a tempo change mid-delta rescales
// sleepRemaining so the ticks-until-next-event count it represents is
// preserved, not the nanosecond count.
func TestPropertyRetimingPreservesTicksRemaining(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("SetTempo rescales sleepRemaining by the tick ratio", prop.ForAll(
		func(oldTempo, newTempo uint32, sleptMicros uint32) bool {
			payload := []byte{
				0xE8, 0x07, 0x90, 60, 100, // delta 1000, note on
				0x00, 0xFF, 0x2F, 0x00, // end of track
			}
			track, err := smf.DecodeTrack(payload)
			if err != nil {
				return false
			}

			ph := New("prop")
			ph.BindTrack(track)
			ph.SetDivision(smf.Division(96))
			ph.SetTempo(oldTempo)

			full := ph.Tick(0)
			if full == Eternity || full <= 0 {
				return false
			}

			slept := time.Duration(sleptMicros) * time.Microsecond
			if slept >= full {
				slept = full / 2
			}
			ph.Tick(slept)
			before := ph.sleepRemaining
			oldTicksToNs := ph.ticksToNs

			ph.SetTempo(newTempo)

			if oldTicksToNs <= 0 {
				return true
			}
			want := float64(before) / oldTicksToNs * ph.ticksToNs
			got := float64(ph.sleepRemaining)
			diff := got - want
			if diff < 0 {
				diff = -diff
			}
			return diff <= 1.0
		},
		gen.UInt32Range(1, 2_000_000),
		gen.UInt32Range(1, 2_000_000),
		gen.UInt32Range(0, 10_000),
	))

	properties.TestingRun(t)
}
