package playhead

// SendFailed is published on a playhead's bus when its device rejects a
// real-time message. Playback is not halted — see spec/DESIGN note on
// send_failed in pkg/device and DESIGN.md.
type SendFailed struct {
	Err error
}

// EndOfTrack is published once, when Tick processes the track's last
// event. It is not published for an empty track, nor when a Seek runs
// past the end of the track.
type EndOfTrack struct{}
