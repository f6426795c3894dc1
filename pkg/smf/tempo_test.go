package smf

import (
	"testing"

	"github.com/ongakudo/midiengine/pkg/message"
)

func tempoMessage(mspq uint32) message.Message {
	return message.Message{0xFF, 0x51, 0x03, byte(mspq >> 16), byte(mspq >> 8), byte(mspq)}
}

func TestScaleTempoDoublesSpeed(t *testing.T) {
	track := Track{
		{Delta: 0, Message: tempoMessage(500000)},
		{Delta: 10, Message: message.Message{0x90, 0x3C, 0x64}},
	}

	scaled := ScaleTempo(track, 2.0)

	if got := scaled[0].Message.Tempo(); got != 250000 {
		t.Fatalf("tempo = %d, want 250000", got)
	}
	if scaled[1].Message.IsTempo() {
		t.Fatal("non-tempo event should not be touched")
	}
	if string(scaled[1].Message) != string(track[1].Message) {
		t.Fatal("non-tempo event bytes changed")
	}
}

func TestScaleTempoHalvesSpeed(t *testing.T) {
	track := Track{{Delta: 0, Message: tempoMessage(500000)}}

	scaled := ScaleTempo(track, 0.5)

	if got := scaled[0].Message.Tempo(); got != 1000000 {
		t.Fatalf("tempo = %d, want 1000000", got)
	}
}

func TestScaleTempoIdentityReturnsSameSlice(t *testing.T) {
	track := Track{{Delta: 0, Message: tempoMessage(500000)}}
	if got := ScaleTempo(track, 1.0); &got[0] != &track[0] {
		t.Fatal("scale 1.0 should return the original track unchanged")
	}
}

func TestScaleTempoClampsToMinimumOneMicrosecond(t *testing.T) {
	track := Track{{Delta: 0, Message: tempoMessage(1)}}
	scaled := ScaleTempo(track, 1_000_000.0)
	if got := scaled[0].Message.Tempo(); got != 1 {
		t.Fatalf("tempo = %d, want clamped to 1", got)
	}
}

func TestScaleTempoDoesNotAliasOriginalBytes(t *testing.T) {
	track := Track{{Delta: 0, Message: tempoMessage(500000)}}
	scaled := ScaleTempo(track, 2.0)
	if &scaled[0].Message[0] == &track[0].Message[0] {
		t.Fatal("scaled tempo message must not alias the original byte slice")
	}
}
