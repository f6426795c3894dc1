// Package vlq implements SMF's variable-length quantity encoding: a
// base-128 big-endian integer where every byte but the last has its high
// bit set. Deltas and meta-event lengths in a Standard MIDI File both use
// this encoding.
package vlq

import "errors"

// MaxValue is the largest integer representable in 4 VLQ bytes (28 value
// bits).
const MaxValue = 0x0FFFFFFF

// ErrOverflow is returned when decoding would need a 5th continuation
// byte (i.e. the encoded value exceeds MaxValue).
var ErrOverflow = errors.New("vlq: value exceeds 4-byte encoding")

// ErrTruncated is returned when the byte slice ends before a complete
// VLQ has been read (the last byte read still had its high bit set).
var ErrTruncated = errors.New("vlq: truncated before continuation ended")

// Decode reads a VLQ from the start of b and returns the decoded value
// and the number of bytes consumed. It never allocates.
func Decode(b []byte) (value uint32, n int, err error) {
	for n = 0; n < 4; n++ {
		if n >= len(b) {
			return 0, n, ErrTruncated
		}
		c := b[n]
		value = (value << 7) | uint32(c&0x7f)
		if c&0x80 == 0 {
			return value, n + 1, nil
		}
	}
	return 0, 4, ErrOverflow
}

// Encode appends the minimum-length VLQ encoding of n to dst and returns
// the extended slice. Returns ErrOverflow (with dst unmodified) if n
// exceeds MaxValue.
func Encode(dst []byte, n uint32) ([]byte, error) {
	if n > MaxValue {
		return dst, ErrOverflow
	}
	var buf [4]byte
	buf[3] = byte(n & 0x7f)
	count := 1
	n >>= 7
	for n != 0 {
		count++
		buf[4-count] = byte(n&0x7f) | 0x80
		n >>= 7
	}
	return append(dst, buf[4-count:]...), nil
}

// Len reports the number of bytes Encode would emit for n, without
// allocating.
func Len(n uint32) int {
	switch {
	case n <= 0x7f:
		return 1
	case n <= 0x3fff:
		return 2
	case n <= 0x1fffff:
		return 3
	default:
		return 4
	}
}
