package cli

import (
	"fmt"

	"github.com/fqzip/fqzip/block"
	"github.com/fqzip/fqzip/format"
)

// selectCodecs picks the per-stream codec tags for a compression run, based
// on the dominant read-length class. IDs and the auxiliary length stream
// use the same family regardless of length; sequence and quality follow the
// families the registry actually implements per length band (§6.4).
func selectCodecs(class format.ReadLengthClass, level int) block.CodecSelection {
	seqFamily := format.FamilyAbcV1
	switch class {
	case format.ReadLengthMedium:
		seqFamily = format.FamilyZstdPlain
	case format.ReadLengthLong:
		seqFamily = format.FamilyOverlapV1
	}

	qualFamily := format.FamilyScmV1
	if class == format.ReadLengthLong {
		qualFamily = format.FamilyScmOrder1
	}

	return block.CodecSelection{
		IDs:      format.Tag(format.FamilyDeltaZstd, 0),
		Sequence: format.Tag(seqFamily, 0),
		Quality:  format.Tag(qualFamily, 0),
		Aux:      format.Tag(format.FamilyDeltaVarint, 0),
		Level:    level,
	}
}

func parseQualityMode(s string) (format.QualityMode, error) {
	switch s {
	case "", "none":
		return format.QualityLossless, nil
	case "illumina8":
		return format.QualityIllumina8, nil
	case "qvz":
		return format.QualityQvz, nil
	case "discard":
		return format.QualityDiscard, nil
	default:
		return 0, fmt.Errorf("fqzip: invalid --lossy-quality %q (want none, illumina8, qvz, discard)", s)
	}
}

func parseIDMode(s string) (format.IDMode, error) {
	switch s {
	case "", "exact":
		return format.IDExact, nil
	case "tokenize":
		return format.IDTokenize, nil
	case "discard":
		return format.IDDiscard, nil
	default:
		return 0, fmt.Errorf("fqzip: invalid --id-mode %q (want exact, tokenize, discard)", s)
	}
}

func parsePELayout(s string) (format.PELayout, error) {
	switch s {
	case "", "interleaved":
		return format.PELayoutInterleaved, nil
	case "consecutive":
		return format.PELayoutConsecutive, nil
	default:
		return 0, fmt.Errorf("fqzip: invalid --pe-layout %q (want interleaved, consecutive)", s)
	}
}
