package quality

import (
	"fmt"
	"io"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
)

// DefaultMaxRecords is how many records detection samples by default.
const DefaultMaxRecords int64 = 1000000

// Detector accumulates a histogram of quality bytes and classifies them.
// Once a byte only valid in offset-33 has been seen the result stays Sanger.
type Detector struct {
	counts  [256]int64
	records int64
	sanger  bool
	min     byte
	max     byte
}

func NewDetector() *Detector {
	return &Detector{min: 255}
}

// Observe adds one record's qualities to the histogram.
func (d *Detector) Observe(qual []byte) error {
	for _, q := range qual {
		if q < MinAscii || q > MaxAscii {
			return fmt.Errorf("%w: %d (%q) outside [%d, %d]", errkind.ErrInvalidQualityByte, q, q, MinAscii, MaxAscii)
		}
		d.counts[q]++
		if q < d.min {
			d.min = q
		}
		if q > d.max {
			d.max = q
		}
		if q < sangerOnlyBelow {
			d.sanger = true
		}
	}
	d.records++
	return nil
}

// Records is the number of records observed.
func (d *Detector) Records() int64 {
	return d.records
}

// Count returns how many times byte q was observed.
func (d *Detector) Count(q byte) int64 {
	return d.counts[q]
}

// Format classifies what has been observed so far. Ambiguous streams (and
// empty ones) are reported as Sanger.
func (d *Detector) Format() Format {
	if d.sanger {
		return Sanger
	}
	if d.records > 0 && d.max > illuminaOnlyAbove {
		return Illumina
	}
	return Sanger
}

// RecordReader is the minimal source detection needs.
type RecordReader interface {
	Read() (*read.Read, error)
}

// Detect samples up to maxRecords records from r (all of them when
// maxRecords <= 0) and returns the quality format. Every sampled byte is
// validated, including those after the format is settled.
func Detect(r RecordReader, maxRecords int64) (Format, error) {
	d := NewDetector()
	for maxRecords <= 0 || d.Records() < maxRecords {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Unknown, err
		}
		if err := d.Observe(rec.Qual); err != nil {
			return Unknown, fmt.Errorf("record %s: %w", rec.Name, err)
		}
	}
	return d.Format(), nil
}
