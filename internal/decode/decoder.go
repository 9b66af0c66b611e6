package decode

import (
	"fmt"
	"strings"

	"github.com/Altius/stampipes/programs/readtools/internal/barcode"
	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
)

// Unknown is the sample index of unassigned records.
const Unknown = barcode.Unknown

// cacheLimit bounds the per-position memo of scored observations.
const cacheLimit = 1 << 16

// Reason says why a position or a record was not assigned.
type Reason int

const (
	NotRejected Reason = iota
	RejectedByN
	RejectedByMismatches
	RejectedByDistance
	// RejectedByConflict: accepted positions point to different samples.
	RejectedByConflict
)

var reasonNames = [...]string{"assigned", "rejected_by_N", "rejected_by_mismatches", "rejected_by_distance", "rejected_by_conflict"}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// PositionMatch is the outcome at one barcode position.
type PositionMatch struct {
	// Barcode is the closest dictionary barcode, set even when rejected.
	Barcode string
	// Sample is the lowest sample index carrying Barcode, or Unknown when
	// the position was rejected.
	Sample           int
	Mismatches       int
	SecondMismatches int
	Ns               int
	Assigned         bool
	Reason           Reason

	candidates []int
}

// Distance is the gap between the runner-up and the winner.
func (p PositionMatch) Distance() int {
	return p.SecondMismatches - p.Mismatches
}

// Match is the routing decision for one record.
type Match struct {
	Sample    int
	Assigned  bool
	Reason    Reason
	Positions []PositionMatch
}

// Barcodes returns the winning dictionary barcode at every position.
func (m Match) Barcodes() []string {
	out := make([]string, len(m.Positions))
	for i, p := range m.Positions {
		out[i] = p.Barcode
	}
	return out
}

// Decoder routes barcode tuples. It is not safe for concurrent use: the
// statistics and the memo are updated on every call.
type Decoder struct {
	dict     *barcode.Dictionary
	cfg      Config
	lengths  []int
	distinct [][]string
	// owners[i][k] lists the samples whose barcode i is distinct[i][k].
	owners [][][]int
	cache  []map[string]PositionMatch
	stats  *Stats

	votes   []int
	touched []int
}

// New validates cfg against dict. Invalid thresholds are
// ErrBadConfiguration.
func New(dict *barcode.Dictionary, cfg Config) (*Decoder, error) {
	n := dict.NumberOfBarcodes()
	if err := cfg.validate(n); err != nil {
		return nil, err
	}
	d := &Decoder{
		dict:     dict,
		cfg:      cfg,
		lengths:  dict.Lengths(),
		distinct: make([][]string, n),
		owners:   make([][][]int, n),
		cache:    make([]map[string]PositionMatch, n),
		stats:    newStats(dict),
		votes:    make([]int, dict.NumberOfSamples()),
	}
	for i := 0; i < n; i++ {
		d.distinct[i] = dict.DistinctBarcodes(i)
		index := make(map[string]int, len(d.distinct[i]))
		for k, bc := range d.distinct[i] {
			index[bc] = k
		}
		d.owners[i] = make([][]int, len(d.distinct[i]))
		for j, bc := range dict.BarcodesAtPosition(i) {
			k := index[bc]
			d.owners[i][k] = append(d.owners[i][k], j)
		}
		d.cache[i] = make(map[string]PositionMatch)
	}
	return d, nil
}

func (d *Decoder) Dictionary() *barcode.Dictionary {
	return d.dict
}

func (d *Decoder) Config() Config {
	return d.cfg
}

func (d *Decoder) Stats() *Stats {
	return d.stats
}

// Unreachable lists samples that can never be assigned because another
// sample carries the same barcode tuple.
func (d *Decoder) Unreachable() []int {
	var out []int
	for j := 0; j < d.dict.NumberOfSamples(); j++ {
		if _, ok := d.dict.UniqueTuple(d.dict.SampleAt(j).Barcodes); !ok {
			out = append(out, j)
		}
	}
	return out
}

// Decode assigns observed, one barcode per position. Observed barcodes
// longer than the dictionary are truncated on the right; shorter ones are
// ErrBarcodeTooShort. Anything else, including all-N input, yields a Match.
func (d *Decoder) Decode(observed []string) (Match, error) {
	if len(observed) != len(d.lengths) {
		return Match{Sample: Unknown}, fmt.Errorf("%w: expected %d barcodes, found %d (%s)",
			errkind.ErrMissingBarcode, len(d.lengths), len(observed), strings.Join(observed, ","))
	}
	pos := make([]PositionMatch, len(observed))
	for i, o := range observed {
		l := d.lengths[i]
		if len(o) < l {
			return Match{Sample: Unknown}, fmt.Errorf("%w: barcode %d %q has %d bases, dictionary has %d",
				errkind.ErrBarcodeTooShort, i+1, o, len(o), l)
		}
		key := o[:l]
		if pm, ok := d.cache[i][key]; ok {
			pos[i] = pm
			continue
		}
		pm := d.scorePosition(i, strings.ToUpper(key))
		if len(d.cache[i]) < cacheLimit {
			d.cache[i][key] = pm
		}
		pos[i] = pm
	}
	m := d.aggregate(pos)
	d.stats.record(m)
	return m, nil
}

func (d *Decoder) mismatches(obs, bc string) int {
	m := 0
	for k := 0; k < len(bc); k++ {
		o, b := obs[k], bc[k]
		if o == b {
			continue
		}
		if !d.cfg.CountNAsMismatch && (o == 'N' || b == 'N') {
			continue
		}
		m++
	}
	return m
}

func (d *Decoder) scorePosition(i int, obs string) PositionMatch {
	l := d.lengths[i]
	best, second, bestK := l+1, l+1, -1
	for k, bc := range d.distinct[i] {
		m := d.mismatches(obs, bc)
		if m < best {
			second = best
			best, bestK = m, k
		} else if m < second {
			second = m
		}
	}
	pm := PositionMatch{
		Barcode:          d.distinct[i][bestK],
		Sample:           Unknown,
		Mismatches:       best,
		SecondMismatches: second,
		Ns:               strings.Count(obs, "N"),
	}
	switch {
	case pm.Ns > d.cfg.MaxN:
		pm.Reason = RejectedByN
	case best > d.cfg.MaxMismatches[i]:
		pm.Reason = RejectedByMismatches
	case second-best < d.cfg.MinDistance[i]:
		pm.Reason = RejectedByDistance
	default:
		pm.Assigned = true
		pm.candidates = d.owners[i][bestK]
		pm.Sample = pm.candidates[0]
	}
	return pm
}

// aggregate combines the positions. All accepted positions must agree when
// none is unknown; otherwise the accepted ones vote and a unique majority
// wins.
func (d *Decoder) aggregate(pos []PositionMatch) Match {
	m := Match{Sample: Unknown, Positions: pos}
	unknown := 0
	for _, p := range pos {
		if !p.Assigned {
			unknown++
			continue
		}
		for _, j := range p.candidates {
			if d.votes[j] == 0 {
				d.touched = append(d.touched, j)
			}
			d.votes[j]++
		}
	}
	if unknown == len(pos) {
		m.Reason = pos[0].Reason
		return m
	}

	best, bestVotes, tie := Unknown, 0, false
	for _, j := range d.touched {
		switch v := d.votes[j]; {
		case v > bestVotes:
			best, bestVotes, tie = j, v, false
		case v == bestVotes:
			tie = true
		}
		d.votes[j] = 0
	}
	d.touched = d.touched[:0]

	if tie || (unknown == 0 && bestVotes != len(pos)) {
		m.Reason = RejectedByConflict
		return m
	}
	m.Sample = best
	m.Assigned = true
	return m
}
