package archive

import (
	"github.com/fqzip/fqzip/endian"
	"github.com/fqzip/fqzip/errs"
	"github.com/fqzip/fqzip/format"
)

// Footer is the fixed 32-byte trailer every archive ends with (§4.4 step
// 6, §6.1). It is excluded from GlobalChecksum, which covers every byte
// written before it.
type Footer struct {
	IndexOffset      uint64
	ReorderMapOffset uint64
	GlobalChecksum   uint64
}

// Encode serializes f into its 32-byte on-disk layout.
func (f *Footer) Encode() []byte {
	engine := endian.GetLittleEndianEngine()
	buf := make([]byte, 0, format.FooterSize)

	buf = engine.AppendUint64(buf, f.IndexOffset)
	buf = engine.AppendUint64(buf, f.ReorderMapOffset)
	buf = engine.AppendUint64(buf, f.GlobalChecksum)
	buf = append(buf, format.FooterMagic[:]...)

	return buf
}

// DecodeFooter parses the trailing 32 bytes of an archive and validates the
// trailing magic.
func DecodeFooter(data []byte) (*Footer, error) {
	if len(data) != format.FooterSize {
		return nil, errs.Wrap(errs.KindFormat, errs.ErrInvalidFooter, "archive: footer must be exactly 32 bytes")
	}

	engine := endian.GetLittleEndianEngine()
	f := &Footer{
		IndexOffset:      engine.Uint64(data[0:8]),
		ReorderMapOffset: engine.Uint64(data[8:16]),
		GlobalChecksum:   engine.Uint64(data[16:24]),
	}

	var magic [format.MagicSize]byte
	copy(magic[:], data[24:32])
	if magic != format.FooterMagic {
		return nil, errs.Wrap(errs.KindFormat, errs.ErrInvalidFooter, "archive: trailing magic mismatch")
	}

	return f, nil
}
