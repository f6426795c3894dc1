package scheduler

// ModeChanged is published on a Group's bus when the worker starts
// (Playing false), whenever Play/Pause changes the worker's running
// state, and whenever the worker parks itself because every playhead in
// the group reached Eof.
type ModeChanged struct {
	Playing bool
}

// EndOfSong is published each time a tick round ends with no playhead
// left in the group: every playhead has reached Eof and been removed
// (in that round or an earlier one), or the group was empty. The worker
// clears the play flag just before publishing it.
type EndOfSong struct{}
