// Package hash wraps xxHash64 for the two checksum uses the archive format
// needs: a one-shot digest of a block's payload bytes, and an incremental
// digest accumulated as bytes are written to the archive sink.
package hash

import "github.com/cespare/xxhash/v2"

// Sum64 computes the xxHash64 digest of data in one call, used for a block's
// payload_xxh64 field.
func Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// State is an incremental xxHash64 accumulator. Unlike Sum64, it never holds
// the full input in memory: the writer feeds it every byte span as it is
// emitted to the sink, and Sum64 at any point returns the digest of
// everything written so far.
type State struct {
	d *xxhash.Digest
}

// NewState returns a fresh incremental hash state.
func NewState() *State {
	return &State{d: xxhash.New()}
}

// Write feeds p into the running digest. It never returns an error.
func (s *State) Write(p []byte) (int, error) {
	return s.d.Write(p)
}

// Sum64 returns the digest of every byte written so far.
func (s *State) Sum64() uint64 {
	return s.d.Sum64()
}

// Reset clears the state so it can be reused for a new digest.
func (s *State) Reset() {
	s.d.Reset()
}
