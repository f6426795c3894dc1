package smf

import "github.com/ongakudo/midiengine/pkg/message"

// Track is a fully-decoded MTrk payload: each TimedMessage's bytes
// borrow from the original file buffer, except running-status events,
// which TrackIterator copies with their status byte prepended. The
// sequence itself is materialized into a slice so
// callers get random access and backward iteration for free — the
// "owned" Track representation spec.md §3 permits, built directly on
// top of the zero-copy TrackIterator rather than duplicating its
// decode logic.
type Track []message.TimedMessage

// DecodeTrack runs a TrackIterator over payload to completion and
// returns every event it produced. A decode error aborts with whatever
// events were already produced discarded, matching ParseHeader's
// all-or-nothing error policy.
func DecodeTrack(payload []byte) (Track, error) {
	it := NewTrackIterator(payload)
	var track Track
	for it.Next() {
		track = append(track, it.Message())
	}
	if it.Err() != nil {
		return nil, it.Err()
	}
	return track, nil
}
