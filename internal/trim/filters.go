package trim

import (
	"math"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
)

// Filter decides whether a read is kept. Filters see the bases surviving
// the trimmers.
type Filter interface {
	Name() string
	Test(r *read.Read) bool
}

const (
	ReadLengthName     = "ReadLengthReadFilter"
	AmbiguousBasesName = "AmbiguousBaseReadFilter"
)

const (
	DefaultMinReadLength   = 40
	DefaultMaxReadLength   = math.MaxInt32
	DefaultAmbigFilterFrac = 0.05
)

func surviving(r *read.Read) []byte {
	if r.Trim == nil {
		return r.Seq
	}
	return r.Seq[r.Trim.Start:r.Trim.End]
}

// ReadLengthFilter passes reads whose surviving length is in [Min, Max].
type ReadLengthFilter struct {
	Min int
	Max int
}

func NewReadLengthFilter(min, max int) (*ReadLengthFilter, error) {
	if min < 0 {
		return nil, errkind.Badf("--minReadLength must be >= 0, got %d", min)
	}
	if max < min {
		return nil, errkind.Badf("--maxReadLength (%d) is lower than --minReadLength (%d)", max, min)
	}
	return &ReadLengthFilter{Min: min, Max: max}, nil
}

func (*ReadLengthFilter) Name() string { return ReadLengthName }

func (f *ReadLengthFilter) Test(r *read.Read) bool {
	n := len(surviving(r))
	return n >= f.Min && n <= f.Max
}

// AmbiguousBaseFilter passes reads whose fraction of N is at most MaxFraction.
type AmbiguousBaseFilter struct {
	MaxFraction float64
}

func NewAmbiguousBaseFilter(frac float64) (*AmbiguousBaseFilter, error) {
	if frac < 0 || frac > 1 || math.IsNaN(frac) {
		return nil, errkind.Badf("--ambigFilterFrac must be in [0, 1], got %v", frac)
	}
	return &AmbiguousBaseFilter{MaxFraction: frac}, nil
}

func (*AmbiguousBaseFilter) Name() string { return AmbiguousBasesName }

func (f *AmbiguousBaseFilter) Test(r *read.Read) bool {
	seq := surviving(r)
	if len(seq) == 0 {
		return true
	}
	n := 0
	for _, b := range seq {
		if isN(b) {
			n++
		}
	}
	return float64(n)/float64(len(seq)) <= f.MaxFraction
}
