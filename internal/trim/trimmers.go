// Package trim runs reads through an ordered chain of trimmers and filters
// and keeps per-stage metrics.
package trim

import (
	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/quality"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
)

// Trimmer narrows the trimming annotation of a read. It must only shrink
// the interval and never touch the bases.
type Trimmer interface {
	Name() string
	Update(r *read.Read)
}

const (
	TrailingNName   = "TrailingNtrimmer"
	MottQualityName = "MottQualityTrimmer"
	CutReadName     = "CutReadTrimmer"
)

// DefaultMottThreshold is the Phred score a base must beat to be kept.
const DefaultMottThreshold = 20

// TrailingNTrimmer removes leading and trailing runs of N.
type TrailingNTrimmer struct{}

func (TrailingNTrimmer) Name() string { return TrailingNName }

func (TrailingNTrimmer) Update(r *read.Read) {
	iv := r.Trim
	start, end := iv.Start, iv.End
	for start < end && isN(r.Seq[start]) {
		start++
	}
	for end > start && isN(r.Seq[end-1]) {
		end--
	}
	iv.Shrink(start, end)
}

func isN(b byte) bool {
	return b == 'N' || b == 'n'
}

// MottQualityTrimmer keeps the highest scoring segment with per-base score
// q - Threshold (modified Mott algorithm).
type MottQualityTrimmer struct {
	Threshold int
}

func NewMottQualityTrimmer(threshold int) (*MottQualityTrimmer, error) {
	if threshold < 0 {
		return nil, errkind.Badf("--mottQualityThreshold must be >= 0, got %d", threshold)
	}
	return &MottQualityTrimmer{Threshold: threshold}, nil
}

func (*MottQualityTrimmer) Name() string { return MottQualityName }

func (t *MottQualityTrimmer) Update(r *read.Read) {
	iv := r.Trim
	best, bestStart, bestEnd := 0, iv.Start, iv.Start
	sum, start := 0, iv.Start
	for k := iv.Start; k < iv.End; k++ {
		sum += int(r.Qual[k]) - quality.SangerOffset - t.Threshold
		if sum < 0 {
			sum, start = 0, k+1
			continue
		}
		if sum > best {
			best, bestStart, bestEnd = sum, start, k+1
		}
	}
	if best <= 0 {
		iv.Shrink(iv.Start, iv.Start)
		return
	}
	iv.Shrink(bestStart, bestEnd)
}

// CutReadTrimmer removes a fixed number of bases from each end of the
// original read.
type CutReadTrimmer struct {
	FivePrime  int
	ThreePrime int
}

func NewCutReadTrimmer(five, three int) (*CutReadTrimmer, error) {
	if five < 0 || three < 0 {
		return nil, errkind.Badf("%s: bases to cut must be >= 0, got %d and %d", CutReadName, five, three)
	}
	if five == 0 && three == 0 {
		return nil, errkind.Badf("%s requires --cut5primeBases or --cut3primeBases", CutReadName)
	}
	return &CutReadTrimmer{FivePrime: five, ThreePrime: three}, nil
}

func (*CutReadTrimmer) Name() string { return CutReadName }

func (t *CutReadTrimmer) Update(r *read.Read) {
	r.Trim.Shrink(t.FivePrime, len(r.Seq)-t.ThreePrime)
}
