package s7

import (
	"encoding/binary"
	"math"
	"strings"
)

// readU8/readU16/... and their write counterparts are the primitive
// big-endian accessors every datatype encoder/decoder in value.go builds
// on (§4.1). All of them bounds-check their target slice and report
// ErrShortBuffer rather than panicking — the teacher's value.go inlines
// this same check ad hoc at every call site (`if len(v.Bytes) < 2 {...}`);
// here it is factored into one place per datatype width.

func readU8(b []byte) (byte, error) {
	if len(b) < 1 {
		return 0, ErrShortBuffer
	}
	return b[0], nil
}

func writeU8(b []byte, v byte) error {
	if len(b) < 1 {
		return ErrShortBuffer
	}
	b[0] = v
	return nil
}

func readU16(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, ErrShortBuffer
	}
	return binary.BigEndian.Uint16(b), nil
}

func writeU16(b []byte, v uint16) error {
	if len(b) < 2 {
		return ErrShortBuffer
	}
	binary.BigEndian.PutUint16(b, v)
	return nil
}

func readU32(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, ErrShortBuffer
	}
	return binary.BigEndian.Uint32(b), nil
}

func writeU32(b []byte, v uint32) error {
	if len(b) < 4 {
		return ErrShortBuffer
	}
	binary.BigEndian.PutUint32(b, v)
	return nil
}

func readU64(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, ErrShortBuffer
	}
	return binary.BigEndian.Uint64(b), nil
}

func writeU64(b []byte, v uint64) error {
	if len(b) < 8 {
		return ErrShortBuffer
	}
	binary.BigEndian.PutUint64(b, v)
	return nil
}

func readI16(b []byte) (int16, error) {
	u, err := readU16(b)
	return int16(u), err
}

func writeI16(b []byte, v int16) error { return writeU16(b, uint16(v)) }

func readI32(b []byte) (int32, error) {
	u, err := readU32(b)
	return int32(u), err
}

func writeI32(b []byte, v int32) error { return writeU32(b, uint32(v)) }

func readF32(b []byte) (float32, error) {
	u, err := readU32(b)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

func writeF32(b []byte, v float32) error {
	return writeU32(b, math.Float32bits(v))
}

// readBCDByte decodes a single BCD byte: high nibble * 10 + low nibble,
// each nibble required to be 0-9 (§4.1).
func readBCDByte(b byte) (int, error) {
	hi, lo := b>>4, b&0x0F
	if hi > 9 || lo > 9 {
		return 0, ErrInvalidBCD
	}
	return int(hi)*10 + int(lo), nil
}

// writeBCDByte encodes 0-99 as a packed BCD byte.
func writeBCDByte(v int) (byte, error) {
	if v < 0 || v > 99 {
		return 0, ErrInvalidBCD
	}
	return byte((v/10)<<4 | (v % 10)), nil
}

// readFixedASCII decodes a fixed-length ASCII field, optionally
// right-trimming trailing spaces and NULs.
func readFixedASCII(b []byte, trim bool) string {
	s := string(b)
	if trim {
		s = strings.TrimRight(s, " \x00")
	}
	return s
}

// writeFixedASCII writes s into a fixed-length buffer, space-padding (or
// truncating) to fit.
func writeFixedASCII(b []byte, s string) {
	n := copy(b, s)
	for i := n; i < len(b); i++ {
		b[i] = ' '
	}
}
