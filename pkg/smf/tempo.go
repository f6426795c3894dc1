package smf

import (
	"math"

	"github.com/ongakudo/midiengine/pkg/message"
)

// ScaleTempo returns a copy of track with every tempo meta event's
// microseconds-per-quarter-note value divided by scale, so scale > 1.0
// plays the track faster and scale < 1.0 plays it slower — the same
// effective-tempo-over-original-tempo speed multiplier a tempo-offset
// control applies, just expressed as a ratio instead of a BPM delta.
// Non-tempo events are returned unchanged and still share track's
// bytes; each rewritten tempo event gets a fresh byte slice, so the
// result never aliases track's tempo-event byte slices.
func ScaleTempo(track Track, scale float64) Track {
	if scale == 1.0 {
		return track
	}

	scaled := make(Track, len(track))
	for i, tm := range track {
		if !tm.Message.IsTempo() {
			scaled[i] = tm
			continue
		}
		scaled[i] = message.TimedMessage{
			Delta:   tm.Delta,
			Message: rescaleTempoMessage(tm.Message, scale),
		}
	}
	return scaled
}

func rescaleTempoMessage(m message.Message, scale float64) message.Message {
	original := m.Tempo()
	rescaled := uint32(math.Round(float64(original) / scale))
	if rescaled < 1 {
		rescaled = 1
	}
	if rescaled > 0xFFFFFF {
		rescaled = 0xFFFFFF
	}

	out := make(message.Message, len(m))
	copy(out, m)
	payloadStart := len(m) - 3
	out[payloadStart] = byte(rescaled >> 16)
	out[payloadStart+1] = byte(rescaled >> 8)
	out[payloadStart+2] = byte(rescaled)
	return out
}
