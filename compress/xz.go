package compress

import (
	"bytes"

	"github.com/ulikunitz/xz"
)

// XZCompressor wraps the ulikunitz/xz LZMA2 container, the stand-in for the
// DeltaLzma codec family's "delta+lzma" ids-stream compressor (there is no
// pure LZMA1 library in the retrieved pack).
type XZCompressor struct{}

var _ Codec = (*XZCompressor)(nil)

// NewXZCompressor creates a new XZ compressor.
func NewXZCompressor() XZCompressor {
	return XZCompressor{}
}

// Compress compresses data using the default xz writer configuration.
func (c XZCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer

	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decompress decompresses xz-compressed data.
func (c XZCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
