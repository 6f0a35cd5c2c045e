// Package varint provides the zigzag+varint encoding shared by the
// auxiliary-length stream codec (DeltaVarint) and the reorder map (C8).
// Simplified to single-order delta: no delta-of-delta chaining, one value
// in, one value out.
package varint

import "encoding/binary"

// AppendZigzag appends the zigzag+varint encoding of a signed delta to buf
// and returns the extended slice.
func AppendZigzag(buf []byte, delta int64) []byte {
	zigzag := uint64((delta << 1) ^ (delta >> 63))
	return binary.AppendUvarint(buf, zigzag)
}

// ReadZigzag reads a zigzag+varint encoded delta from data starting at
// offset, returning the decoded value, the offset just past it, and
// whether decoding succeeded.
func ReadZigzag(data []byte, offset int) (int64, int, bool) {
	u, n, ok := ReadUvarint(data, offset)
	if !ok {
		return 0, offset, false
	}

	return ZigzagDecode(u), n, true
}

// ZigzagDecode reverses zigzag encoding using branchless bit operations.
func ZigzagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// ReadUvarint decodes an unsigned varint from data starting at offset,
// returning the value, the offset just past it, and whether decoding
// succeeded (false on truncated/invalid input).
func ReadUvarint(data []byte, offset int) (uint64, int, bool) {
	if offset >= len(data) {
		return 0, offset, false
	}

	v, n := binary.Uvarint(data[offset:])
	if n <= 0 {
		return 0, offset, false
	}

	return v, offset + n, true
}
