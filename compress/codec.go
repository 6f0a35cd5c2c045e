// Package compress provides general-purpose byte compressors used as
// building blocks for the per-stream codecs in package codec (C3 of the
// archive's block codec pipeline). It knows nothing about FASTQ records,
// blocks, or the archive container; it only compresses and decompresses
// opaque byte slices.
package compress

import "fmt"

// Compressor compresses an opaque byte slice.
//
// Memory management:
//   - Returned slice is newly allocated and owned by the caller
//   - Input slice is not modified
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor decompresses an opaque byte slice previously produced by the
// matching Compressor.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression for one algorithm.
//
// Implementations must be stateless across calls: the archive's codec tag
// scheme (format.CodecFamily/CodecVersion) resets context at every block
// boundary, so a Codec here must not carry state between Compress/Decompress
// calls that would break that contract.
type Codec interface {
	Compressor
	Decompressor
}

// Algorithm identifies one of the general byte compressors this package
// implements, independent of the archive's per-stream codec tags (which
// compose these with stream-specific transforms in package codec).
type Algorithm uint8

const (
	AlgorithmNone Algorithm = iota
	AlgorithmZstd
	AlgorithmS2
	AlgorithmLZ4
	AlgorithmXZ
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmZstd:
		return "zstd"
	case AlgorithmS2:
		return "s2"
	case AlgorithmLZ4:
		return "lz4"
	case AlgorithmXZ:
		return "xz"
	default:
		return "unknown"
	}
}

// New returns the built-in Codec for the given algorithm.
func New(a Algorithm) (Codec, error) {
	switch a {
	case AlgorithmNone:
		return NewNoOpCompressor(), nil
	case AlgorithmZstd:
		return NewZstdCompressor(), nil
	case AlgorithmS2:
		return NewS2Compressor(), nil
	case AlgorithmLZ4:
		return NewLZ4Compressor(), nil
	case AlgorithmXZ:
		return NewXZCompressor(), nil
	default:
		return nil, fmt.Errorf("compress: unknown algorithm %d", a)
	}
}
