package archive

import (
	"testing"

	"github.com/fqzip/fqzip/format"
	"github.com/stretchr/testify/require"
)

func TestFooter_EncodeDecode_RoundTrip(t *testing.T) {
	f := Footer{IndexOffset: 1024, ReorderMapOffset: 512, GlobalChecksum: 0x1122334455667788}

	encoded := f.Encode()
	require.Len(t, encoded, format.FooterSize)

	decoded, err := DecodeFooter(encoded)
	require.NoError(t, err)
	require.Equal(t, f, *decoded)
}

func TestDecodeFooter_WrongSize(t *testing.T) {
	_, err := DecodeFooter(make([]byte, 16))
	require.Error(t, err)
}

func TestDecodeFooter_BadMagic(t *testing.T) {
	f := Footer{IndexOffset: 1, ReorderMapOffset: 2, GlobalChecksum: 3}
	encoded := f.Encode()
	encoded[len(encoded)-1] ^= 0xFF

	_, err := DecodeFooter(encoded)
	require.Error(t, err)
}
