package quality

import (
	"fmt"
	"math"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
)

// solexaToPhred maps a Solexa byte (offset 64, from ';' = -5) to a Phred score.
var solexaToPhred [256]byte

func init() {
	for b := 59; b <= MaxAscii; b++ {
		s := float64(b - IlluminaOffset)
		p := 10 * math.Log10(math.Pow(10, s/10)+1)
		solexaToPhred[b] = byte(math.Round(p))
	}
}

// Standardizer converts records of a known encoding to Sanger in place and
// rejects bytes that cannot belong to that encoding.
type Standardizer struct {
	from      Format
	allowHigh bool
}

func NewStandardizer(from Format) *Standardizer {
	if from == Unknown {
		from = Sanger
	}
	return &Standardizer{from: from}
}

// AllowHighQualities accepts Sanger scores up to MaxHighPhred instead of
// MaxStandardPhred (e.g. simulated data).
func (s *Standardizer) AllowHighQualities(allow bool) *Standardizer {
	s.allowHigh = allow
	return s
}

// Source is the encoding this standardizer converts from.
func (s *Standardizer) Source() Format {
	return s.from
}

// Standardize rewrites r.Qual to Sanger. Sanger input is only validated, so
// applying it twice is a no-op.
func (s *Standardizer) Standardize(r *read.Read) error {
	switch s.from {
	case Illumina:
		for i, q := range r.Qual {
			if q < IlluminaOffset || q > MaxAscii {
				return s.outOfRange(r, q)
			}
			r.Qual[i] = q - (IlluminaOffset - SangerOffset)
		}
	case Solexa:
		for i, q := range r.Qual {
			if q < 59 || q > MaxAscii {
				return s.outOfRange(r, q)
			}
			r.Qual[i] = solexaToPhred[q] + SangerOffset
		}
	default:
		return s.Check(r)
	}
	return nil
}

// Check validates Sanger qualities without modifying them.
func (s *Standardizer) Check(r *read.Read) error {
	hi := byte(SangerOffset + MaxStandardPhred)
	if s.allowHigh {
		hi = SangerOffset + MaxHighPhred
	}
	for _, q := range r.Qual {
		if q < SangerOffset || q > hi {
			return s.outOfRange(r, q)
		}
	}
	return nil
}

func (s *Standardizer) outOfRange(r *read.Read, q byte) error {
	return fmt.Errorf("%w: byte %d (%q) in read %s is not valid %s (misencoded qualities?)",
		errkind.ErrQualityOutOfRange, q, q, r.Name, s.from)
}
