package decode

import (
	"fmt"
	"log"
	"strings"

	"github.com/Altius/stampipes/programs/readtools/internal/barcode"
	"github.com/Altius/stampipes/programs/readtools/internal/metrics"
)

// Counts are the counters kept per sample and per position. Assigned plus
// Rejected always equals Total.
type Counts struct {
	Total                int64
	Assigned             int64
	RejectedByN          int64
	RejectedByMismatches int64
	RejectedByDistance   int64
	RejectedByConflict   int64
}

func (c Counts) Rejected() int64 {
	return c.RejectedByN + c.RejectedByMismatches + c.RejectedByDistance + c.RejectedByConflict
}

func (c *Counts) reject(r Reason) {
	switch r {
	case RejectedByN:
		c.RejectedByN++
	case RejectedByMismatches:
		c.RejectedByMismatches++
	case RejectedByDistance:
		c.RejectedByDistance++
	case RejectedByConflict:
		c.RejectedByConflict++
	}
}

func (c *Counts) add(o Counts) {
	c.Total += o.Total
	c.Assigned += o.Assigned
	c.RejectedByN += o.RejectedByN
	c.RejectedByMismatches += o.RejectedByMismatches
	c.RejectedByDistance += o.RejectedByDistance
	c.RejectedByConflict += o.RejectedByConflict
}

// Stats accumulates decoding outcomes. The last sample row is UNKNOWN.
type Stats struct {
	dict      *barcode.Dictionary
	samples   []Counts
	positions []Counts
	// mismatch histogram of the closest barcode, one per position
	histograms []*metrics.Histogram
}

func newStats(dict *barcode.Dictionary) *Stats {
	n := dict.NumberOfBarcodes()
	s := &Stats{
		dict:       dict,
		samples:    make([]Counts, dict.NumberOfSamples()+1),
		positions:  make([]Counts, n),
		histograms: make([]*metrics.Histogram, n),
	}
	for i := range s.histograms {
		s.histograms[i] = metrics.NewHistogram("mismatches", fmt.Sprintf("barcode_%d", i+1))
	}
	return s
}

func (s *Stats) record(m Match) {
	row := len(s.samples) - 1
	if m.Assigned {
		row = m.Sample
	}
	c := &s.samples[row]
	c.Total++
	if m.Assigned {
		c.Assigned++
	} else {
		c.reject(m.Reason)
	}
	for i, p := range m.Positions {
		pc := &s.positions[i]
		pc.Total++
		if p.Assigned {
			pc.Assigned++
		} else {
			pc.reject(p.Reason)
		}
		s.histograms[i].Increment(p.Mismatches)
	}
}

// Sample returns the counters of sample j, or of UNKNOWN for Unknown.
func (s *Stats) Sample(j int) Counts {
	if j == Unknown {
		return s.samples[len(s.samples)-1]
	}
	return s.samples[j]
}

// Position returns the per-position counters of barcode i.
func (s *Stats) Position(i int) Counts {
	return s.positions[i]
}

// MismatchHistogram returns the histogram of best mismatches at position i.
func (s *Stats) MismatchHistogram(i int) *metrics.Histogram {
	return s.histograms[i]
}

// Totals sums every sample row, UNKNOWN included.
func (s *Stats) Totals() Counts {
	var t Counts
	for _, c := range s.samples {
		t.add(c)
	}
	return t
}

func percent(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

// LogSummary logs assigned records per sample and the unknown rate.
func (s *Stats) LogSummary(logger *log.Logger) {
	total := s.Totals()
	for j := 0; j < s.dict.NumberOfSamples(); j++ {
		c := s.samples[j]
		logger.Printf("%s: %d records (%.2f%%)", s.dict.SampleAt(j).Name, c.Total, percent(c.Total, total.Total))
	}
	u := s.Sample(Unknown)
	logger.Printf("%s: %d records (%.2f%%): %d by N, %d by mismatches, %d by distance, %d by conflict",
		barcode.UnknownName, u.Total, percent(u.Total, total.Total),
		u.RejectedByN, u.RejectedByMismatches, u.RejectedByDistance, u.RejectedByConflict)
}

var countColumns = []string{"TOTAL", "ASSIGNED", "REJECTED_BY_N", "REJECTED_BY_MISMATCHES", "REJECTED_BY_DISTANCE", "REJECTED_BY_CONFLICT"}

func countValues(c Counts) []any {
	return []any{c.Total, c.Assigned, c.RejectedByN, c.RejectedByMismatches, c.RejectedByDistance, c.RejectedByConflict}
}

// WriteMetrics adds the per-sample table (with a TOTAL footer), the
// per-position table and the mismatch histograms to f.
func (s *Stats) WriteMetrics(f *metrics.File) {
	total := s.Totals()
	cols := append([]string{"SAMPLE", "LIBRARY", "BARCODE"}, countColumns...)
	cols = append(cols, "PCT_RECORDS")
	samples := metrics.NewSection("BARCODE_DETECTOR", cols...)
	for j := 0; j < s.dict.NumberOfSamples(); j++ {
		sm := s.dict.SampleAt(j)
		samples.AddRow(s.row(sm.Name, sm.Library, strings.Join(sm.Barcodes, "_"), s.samples[j], total.Total)...)
	}
	var unknownBC []string
	for _, l := range s.dict.Lengths() {
		unknownBC = append(unknownBC, strings.Repeat("N", l))
	}
	samples.AddRow(s.row(barcode.UnknownName, barcode.UnknownName, strings.Join(unknownBC, "_"), s.Sample(Unknown), total.Total)...)
	samples.AddRow(s.row("TOTAL", "-", "-", total, total.Total)...)
	f.AddSection(samples)

	pos := metrics.NewSection("BARCODE_POSITIONS", append([]string{"POSITION", "LENGTH"}, countColumns...)...)
	for i, c := range s.positions {
		pos.AddRow(append([]any{i + 1, s.dict.Length(i)}, countValues(c)...)...)
	}
	f.AddSection(pos)
	f.AddHistogram(s.histograms...)
}

func (s *Stats) row(name, library, bc string, c Counts, total int64) []any {
	row := append([]any{name, library, bc}, countValues(c)...)
	return append(row, percent(c.Total, total))
}
