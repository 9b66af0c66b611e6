package trim

import (
	"github.com/Altius/stampipes/programs/readtools/internal/metrics"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
)

// FilterTag holds the name of the filter that discarded a read.
const FilterTag = "FT"

// CompletelyTrimmedReason is the discard reason of reads trimmed away.
const CompletelyTrimmedReason = ReadLengthName

// TrimmerMetric counts what one trimmer did.
type TrimmerMetric struct {
	Name              string
	Total             int64
	Trimmed           int64
	CompletelyTrimmed int64
}

// FilterMetric counts what one filter did.
type FilterMetric struct {
	Name     string
	Total    int64
	Filtered int64
}

// Pipeline applies trimmers then filters. Mate slot 0 is the first (or
// only) read of a fragment and slot 1 the second.
type Pipeline struct {
	trimmers    []Trimmer
	filters     []Filter
	trimStats   []TrimmerMetric
	filterStats []FilterMetric
	before      []*metrics.Histogram
	after       []*metrics.Histogram
}

// NewPipeline builds a pipeline with one length histogram pair per mate slot.
func NewPipeline(trimmers []Trimmer, filters []Filter, paired bool) *Pipeline {
	p := &Pipeline{trimmers: trimmers, filters: filters}
	for _, t := range trimmers {
		p.trimStats = append(p.trimStats, TrimmerMetric{Name: t.Name()})
	}
	for _, f := range filters {
		p.filterStats = append(p.filterStats, FilterMetric{Name: f.Name()})
	}
	if paired {
		p.before = []*metrics.Histogram{metrics.NewHistogram("length", "first_before"), metrics.NewHistogram("length", "second_before")}
		p.after = []*metrics.Histogram{metrics.NewHistogram("length", "first_after"), metrics.NewHistogram("length", "second_after")}
	} else {
		p.before = []*metrics.Histogram{metrics.NewHistogram("length", "before")}
		p.after = []*metrics.Histogram{metrics.NewHistogram("length", "after")}
	}
	return p
}

func (p *Pipeline) Trimmers() []Trimmer { return p.trimmers }

func (p *Pipeline) Filters() []Filter { return p.filters }

// Test runs the read through every stage. On pass the read keeps its
// trimming annotation until Pass is called. On discard the annotation is
// dropped and the FT tag names the reason.
func (p *Pipeline) Test(r *read.Read, slot int) bool {
	p.before[slot].Increment(r.Len())
	iv := r.StartTrim()

	for k, t := range p.trimmers {
		if iv.Completed {
			break
		}
		prev := *iv
		t.Update(r)
		st := &p.trimStats[k]
		st.Total++
		if *iv != prev {
			st.Trimmed++
		}
		if iv.Completed {
			st.CompletelyTrimmed++
		}
	}
	if iv.Completed {
		return p.discard(r, CompletelyTrimmedReason)
	}

	for k, f := range p.filters {
		st := &p.filterStats[k]
		st.Total++
		if !f.Test(r) {
			st.Filtered++
			return p.discard(r, f.Name())
		}
	}
	return true
}

func (p *Pipeline) discard(r *read.Read, reason string) bool {
	r.ClearTrim()
	r.SetTag(FilterTag, reason)
	return false
}

// Pass cuts a read that passed Test and records its final length.
func (p *Pipeline) Pass(r *read.Read, slot int) {
	r.ApplyTrim()
	p.after[slot].Increment(r.Len())
}

// Reject drops the annotation of a read that passed Test but is discarded
// along with its mate. It gets no FT tag.
func (p *Pipeline) Reject(r *read.Read) {
	r.ClearTrim()
}

// TestFragment tests every mate independently. The fragment passes only if
// all of them do; then they are cut, otherwise passing mates are left
// untouched and untagged.
func (p *Pipeline) TestFragment(mates []*read.Read) bool {
	pass := true
	for slot, r := range mates {
		if !p.Test(r, slot) {
			pass = false
		}
	}
	for slot, r := range mates {
		if pass {
			p.Pass(r, slot)
		} else {
			p.Reject(r)
		}
	}
	return pass
}

func (p *Pipeline) TrimmerMetrics() []TrimmerMetric {
	return append([]TrimmerMetric(nil), p.trimStats...)
}

func (p *Pipeline) FilterMetrics() []FilterMetric {
	return append([]FilterMetric(nil), p.filterStats...)
}

// WriteMetrics adds the TRIMMER and FILTER sections and the length
// histograms to f.
func (p *Pipeline) WriteMetrics(f *metrics.File) {
	ts := metrics.NewSection("TRIMMER", "TRIMMER", "TOTAL", "TRIMMED", "TRIMMED_COMPLETE")
	for _, m := range p.trimStats {
		ts.AddRow(m.Name, m.Total, m.Trimmed, m.CompletelyTrimmed)
	}
	f.AddSection(ts)

	fs := metrics.NewSection("FILTER", "FILTER", "TOTAL", "FILTERED")
	for _, m := range p.filterStats {
		fs.AddRow(m.Name, m.Total, m.Filtered)
	}
	f.AddSection(fs)

	f.AddHistogram(p.before...)
	f.AddHistogram(p.after...)
}
