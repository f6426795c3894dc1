package smf

import "testing"

// spec.md S2: header bytes, expected {type=1, ntrks=2, division=96}.
func TestParseHeaderS2(t *testing.T) {
	data := []byte{
		0x4D, 0x54, 0x68, 0x64, 0x00, 0x00, 0x00, 0x06,
		0x00, 0x01, 0x00, 0x02, 0x00, 0x60,
	}
	// The S2 scenario only specifies the fixed MThd fields; append two
	// minimal empty-payload MTrk chunks so ParseHeader (which always
	// slices out every declared track) has something to find.
	emptyTrack := []byte{0x4D, 0x54, 0x72, 0x6B, 0x00, 0x00, 0x00, 0x00} // "MTrk", length 0
	data = append(data, emptyTrack...)
	data = append(data, emptyTrack...)

	hdr, chunks, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if hdr.Format != 1 || hdr.NumTracks != 2 || hdr.Division != 96 {
		t.Fatalf("header = %+v, want format=1 ntrks=2 division=96", hdr)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 track chunks, got %d", len(chunks))
	}
}

func buildMinimalFile(trackPayload []byte) []byte {
	var out []byte
	out = append(out, "MThd"...)
	out = append(out, 0, 0, 0, 6)
	out = append(out, 0, 0) // format 0
	out = append(out, 0, 1) // ntrks 1
	out = append(out, 0, 96)
	out = append(out, "MTrk"...)
	var lenBytes [4]byte
	l := len(trackPayload)
	lenBytes[0] = byte(l >> 24)
	lenBytes[1] = byte(l >> 16)
	lenBytes[2] = byte(l >> 8)
	lenBytes[3] = byte(l)
	out = append(out, lenBytes[:]...)
	out = append(out, trackPayload...)
	return out
}

func TestParseHeaderRejectsBadMagic(t *testing.T) {
	_, _, err := ParseHeader([]byte("XXXX000000000000"))
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ErrInvalidFileHeader {
		t.Fatalf("err = %v, want InvalidFileHeader", err)
	}
}

func TestParseHeaderRejectsZeroDivision(t *testing.T) {
	data := buildMinimalFile(nil)
	data[12], data[13] = 0, 0
	_, _, err := ParseHeader(data)
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ErrInvalidDivision {
		t.Fatalf("err = %v, want InvalidDivision", err)
	}
}

func TestParseHeaderRejectsFormat0MultiTrack(t *testing.T) {
	data := buildMinimalFile(nil)
	data[11] = 2 // ntrks = 2, format stays 0
	_, _, err := ParseHeader(data)
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ErrInvalidSMFType {
		t.Fatalf("err = %v, want InvalidSmfType", err)
	}
}

// spec.md S3: track "00 FF 51 03 07 A1 20 00 FF 2F 00" -> tempo at t=0,
// end-of-track at t=0.
func TestTrackIteratorS3(t *testing.T) {
	payload := []byte{0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20, 0x00, 0xFF, 0x2F, 0x00}
	it := NewTrackIterator(payload)

	if !it.Next() {
		t.Fatalf("expected tempo event, err=%v", it.Err())
	}
	tm := it.Message()
	if tm.Delta != 0 || !tm.Message.IsTempo() || tm.Message.Tempo() != 500000 {
		t.Fatalf("tempo event = %+v", tm)
	}

	if !it.Next() {
		t.Fatalf("expected end-of-track event, err=%v", it.Err())
	}
	tm = it.Message()
	if tm.Delta != 0 || !tm.Message.IsEndOfTrack() {
		t.Fatalf("end-of-track event = %+v", tm)
	}

	if it.Next() {
		t.Fatalf("expected no further events")
	}
	if it.Err() != nil {
		t.Fatalf("unexpected error at clean end: %v", it.Err())
	}
}

// spec.md S4: running status. "00 90 3C 64 60 3C 00" -> note-on 60/100 at
// delta 0, note-off (velocity-0 note-on) 60/0 at delta 96 (0x60).
func TestTrackIteratorS4RunningStatus(t *testing.T) {
	payload := []byte{0x00, 0x90, 0x3C, 0x64, 0x60, 0x3C, 0x00}
	it := NewTrackIterator(payload)

	if !it.Next() {
		t.Fatalf("expected note-on, err=%v", it.Err())
	}
	tm := it.Message()
	if tm.Delta != 0 || !tm.Message.IsNoteOn() || tm.Message.Note() != 60 || tm.Message.Velocity() != 100 {
		t.Fatalf("first event = %+v", tm)
	}

	if !it.Next() {
		t.Fatalf("expected note-off via running status, err=%v", it.Err())
	}
	tm = it.Message()
	if tm.Delta != 96 || !tm.Message.IsNoteOff() || tm.Message.Note() != 60 {
		t.Fatalf("second event = %+v", tm)
	}
	if tm.Message.Channel() != 0 {
		t.Fatalf("running-status channel = %d, want 0", tm.Message.Channel())
	}
}

func TestTrackIteratorRunningStatusWithoutPriorStatus(t *testing.T) {
	payload := []byte{0x00, 0x3C, 0x64}
	it := NewTrackIterator(payload)
	if it.Next() {
		t.Fatalf("expected failure, got event %+v", it.Message())
	}
	pe, ok := it.Err().(*ParseError)
	if !ok || pe.Kind != ErrRunningStatusWithoutStatus {
		t.Fatalf("err = %v, want RunningStatusWithoutStatus", it.Err())
	}
}

func TestTrackIteratorTruncatedChannelEvent(t *testing.T) {
	payload := []byte{0x00, 0x90, 0x3C}
	it := NewTrackIterator(payload)
	if it.Next() {
		t.Fatalf("expected failure")
	}
	pe, ok := it.Err().(*ParseError)
	if !ok || pe.Kind != ErrUnexpectedEOF {
		t.Fatalf("err = %v, want UnexpectedEof", it.Err())
	}
}

func TestTrackIteratorSysExTerminatorMismatch(t *testing.T) {
	// F0, length 2, payload does not end in F7.
	payload := []byte{0x00, 0xF0, 0x02, 0x01, 0x02}
	it := NewTrackIterator(payload)
	if !it.Next() {
		t.Fatalf("expected event despite terminator mismatch, err=%v", it.Err())
	}
	if !it.SysExTerminatorMismatch() {
		t.Fatalf("expected mismatch to be flagged")
	}
	if !it.Message().Message.IsSysEx() {
		t.Fatalf("expected sysex message")
	}
}

func TestTrackIteratorSysExWithTerminator(t *testing.T) {
	payload := []byte{0x00, 0xF0, 0x03, 0x01, 0x02, 0xF7}
	it := NewTrackIterator(payload)
	if !it.Next() {
		t.Fatalf("expected event, err=%v", it.Err())
	}
	if it.SysExTerminatorMismatch() {
		t.Fatalf("did not expect mismatch")
	}
	data := it.Message().Message.SysExData()
	if len(data) != 2 || data[0] != 0x01 || data[1] != 0x02 {
		t.Fatalf("sysex payload = %v", data)
	}
}

// spec.md §8 property 2 (parse totality) spot-check: a track with several
// events is fully consumed and yields exactly as many events as encoded.
func TestTrackIteratorTotality(t *testing.T) {
	payload := []byte{
		0x00, 0x90, 0x3C, 0x64, // note on
		0x00, 0x91, 0x40, 0x50, // note on, different channel, explicit status
		0x10, 0x80, 0x3C, 0x00, // note off
		0x00, 0xFF, 0x2F, 0x00, // end of track
	}
	it := NewTrackIterator(payload)
	count := 0
	for it.Next() {
		count++
	}
	if it.Err() != nil {
		t.Fatalf("unexpected error: %v", it.Err())
	}
	if count != 4 {
		t.Fatalf("count = %d, want 4", count)
	}
	if it.Pos() != len(payload) {
		t.Fatalf("pos = %d, want %d (entire slice consumed)", it.Pos(), len(payload))
	}
}

func TestSplitTrackChunkRoundTrip(t *testing.T) {
	data := buildMinimalFile([]byte{0x00, 0xFF, 0x2F, 0x00})
	_, chunks, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	payload, err := SplitTrackChunk(chunks[0])
	if err != nil {
		t.Fatalf("SplitTrackChunk: %v", err)
	}
	it := NewTrackIterator(payload)
	if !it.Next() || !it.Message().Message.IsEndOfTrack() {
		t.Fatalf("expected end-of-track event")
	}
}

func TestDivisionNanosPerTickS1(t *testing.T) {
	// spec.md S1: division 0x0060 (96 PPQ), tempo 500000 MSPQ (120 bpm),
	// delta 96 -> ticks_to_ns = 5_208_333, sleep_before_event = 500_000_000.
	d := Division(0x0060)
	nsPerTick, err := d.NanosPerTick(500000, true)
	if err != nil {
		t.Fatalf("NanosPerTick: %v", err)
	}
	if got := int64(nsPerTick); got != 5_208_333 {
		t.Fatalf("ns/tick = %d, want 5208333", got)
	}
	sleep := nsPerTick * 96
	if got := int64(sleep); got != 500_000_000 {
		t.Fatalf("sleep = %d, want 500000000", got)
	}
}

func TestDivisionSMPTE2997(t *testing.T) {
	fps29 := int8(-29)
	d := Division(0x8000 | uint16(uint8(fps29))<<8 | 80)
	fps, tpf, err := d.SMPTEFrameRate()
	if err != nil {
		t.Fatalf("SMPTEFrameRate: %v", err)
	}
	if fps != 29 || tpf != 80 {
		t.Fatalf("fps=%d tpf=%d, want 29, 80", fps, tpf)
	}
	ns, err := d.NanosPerTick(0, true)
	if err != nil {
		t.Fatalf("NanosPerTick: %v", err)
	}
	wantRate := 30000.0 / 1001.0
	wantNs := 1e9 / (wantRate * 80)
	if diff := ns - wantNs; diff > 1 || diff < -1 {
		t.Fatalf("ns/tick = %v, want ~%v", ns, wantNs)
	}
}
