// Package quality detects and converts base-quality encodings.
package quality

import "fmt"

// Format is a quality encoding.
type Format int

const (
	Unknown Format = iota
	Sanger
	Illumina
	Solexa
)

const (
	SangerOffset   = 33
	IlluminaOffset = 64

	// MinAscii and MaxAscii bound every printable quality byte.
	MinAscii = 33
	MaxAscii = 126

	// MaxStandardPhred is the highest Sanger score accepted unless high
	// qualities are allowed (Phred 41, byte 'J').
	MaxStandardPhred = 41
	// MaxHighPhred is the highest Sanger score accepted with high qualities
	// allowed (byte '~').
	MaxHighPhred = 93
	// MaxIlluminaPhred is the highest legacy Illumina score (byte '~').
	MaxIlluminaPhred = 62

	// sangerOnlyBelow: any byte under this can only be offset-33.
	sangerOnlyBelow = 59
	// illuminaOnlyAbove: with no low byte seen, any byte over this points to
	// offset-64.
	illuminaOnlyAbove = 74
)

func (f Format) String() string {
	switch f {
	case Sanger:
		return "Sanger"
	case Illumina:
		return "Illumina"
	case Solexa:
		return "Solexa"
	default:
		return "Unknown"
	}
}

// Offset returns the ASCII offset of the encoding.
func (f Format) Offset() int {
	switch f {
	case Illumina, Solexa:
		return IlluminaOffset
	default:
		return SangerOffset
	}
}

// ParseFormat accepts the names printed by String, case-sensitively.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "Sanger", "Standard":
		return Sanger, nil
	case "Illumina":
		return Illumina, nil
	case "Solexa":
		return Solexa, nil
	}
	return Unknown, fmt.Errorf("unknown quality format %q", s)
}
