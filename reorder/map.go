// Package reorder implements the archive's reorder map (C8): the bijection
// between original input record positions and archive record positions,
// persisted as two delta+varint encoded permutation arrays.
package reorder

import (
	"github.com/fqzip/fqzip/errs"
	"github.com/fqzip/fqzip/internal/varint"
)

// Version is the reorder map's own sub-header version (§4.4 step 4).
const Version = 1

// Map holds the two mutually-inverse permutations of 1..N described in §3:
//
//	Forward[i] = archive position of the record originally at position i
//	Reverse[j] = original position of the record at archive position j
//
// Both arrays are 1-based values stored at 0-based slice indices, i.e.
// Forward[0] is the archive position of original record 1.
type Map struct {
	Forward []uint32
	Reverse []uint32
}

// Build constructs a Map from the archive-order sequence of original
// positions, i.e. originalOf[j] is the 1-based original position of the
// record written at archive position j+1 (0-based index). This is exactly
// what a global-analysis phase (sort/reorder) produces: for each archive
// slot, which original record landed there.
func Build(originalOf []uint32) (*Map, error) {
	n := len(originalOf)
	reverse := make([]uint32, n)
	copy(reverse, originalOf)

	forward := make([]uint32, n)
	seen := make([]bool, n+1)
	for archivePos, origPos := range reverse {
		if origPos == 0 || int(origPos) > n {
			return nil, errs.Wrap(errs.KindFormat, errs.ErrInvalidIndexOffsets, "reorder map: original position out of range")
		}
		if seen[origPos] {
			return nil, errs.Wrap(errs.KindFormat, errs.ErrInvalidIndexOffsets, "reorder map: duplicate original position")
		}
		seen[origPos] = true

		forward[origPos-1] = uint32(archivePos + 1) //nolint:gosec
	}

	m := &Map{Forward: forward, Reverse: reverse}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Identity builds the trivial reorder map where archive order equals
// original order, for n records.
func Identity(n int) *Map {
	forward := make([]uint32, n)
	reverse := make([]uint32, n)
	for i := 0; i < n; i++ {
		forward[i] = uint32(i + 1) //nolint:gosec
		reverse[i] = uint32(i + 1) //nolint:gosec
	}

	return &Map{Forward: forward, Reverse: reverse}
}

// Validate checks that Forward and Reverse are both permutations of 1..N
// and are mutual inverses (§3, §8 property 4).
func (m *Map) Validate() error {
	n := len(m.Forward)
	if len(m.Reverse) != n {
		return errs.Wrap(errs.KindFormat, errs.ErrInvalidIndexOffsets, "reorder map: forward/reverse length mismatch")
	}

	for i, archivePos := range m.Forward {
		if archivePos == 0 || int(archivePos) > n {
			return errs.Wrap(errs.KindFormat, errs.ErrInvalidIndexOffsets, "reorder map: forward value out of range")
		}
		if m.Reverse[archivePos-1] != uint32(i+1) {
			return errs.Wrap(errs.KindFormat, errs.ErrInvalidIndexOffsets, "reorder map: forward/reverse not mutually inverse")
		}
	}

	return nil
}

// Len returns the number of records the map covers.
func (m *Map) Len() int {
	return len(m.Forward)
}

// EncodeArray delta+zigzag+varint encodes one permutation array (§4.7).
func EncodeArray(values []uint32) []byte {
	buf := make([]byte, 0, len(values)*2)

	var prev int64
	for _, v := range values {
		cur := int64(v)
		buf = varint.AppendZigzag(buf, cur-prev)
		prev = cur
	}

	return buf
}

// DecodeArray decodes a delta+zigzag+varint encoded permutation array of
// exactly n elements.
func DecodeArray(data []byte, n int) ([]uint32, error) {
	out := make([]uint32, n)

	var prev int64
	offset := 0
	for i := 0; i < n; i++ {
		delta, next, ok := varint.ReadZigzag(data, offset)
		if !ok {
			return nil, errs.Wrap(errs.KindFormat, errs.ErrTruncatedFile, "reorder map: truncated array")
		}
		offset = next

		prev += delta
		if prev <= 0 || prev > int64(^uint32(0)) {
			return nil, errs.Wrap(errs.KindFormat, errs.ErrInvalidIndexOffsets, "reorder map: decoded value out of range")
		}

		out[i] = uint32(prev)
	}

	return out, nil
}

// Encode serializes the map as the two delta+varint arrays described in
// §4.4/§4.7, in Forward-then-Reverse order. The caller is responsible for
// writing the map's own sub-header (totalReads, forwardMapSize,
// reverseMapSize) around these bytes.
func (m *Map) Encode() (forward, reverse []byte) {
	return EncodeArray(m.Forward), EncodeArray(m.Reverse)
}

// Decode reconstructs a Map from its encoded forward/reverse byte arrays and
// validates the permutation/inverse invariants.
func Decode(forward, reverse []byte, totalReads int) (*Map, error) {
	fwd, err := DecodeArray(forward, totalReads)
	if err != nil {
		return nil, err
	}

	rev, err := DecodeArray(reverse, totalReads)
	if err != nil {
		return nil, err
	}

	m := &Map{Forward: fwd, Reverse: rev}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}
