// Package decode assigns observed barcode tuples to dictionary samples
// under a mismatch, distance and N policy, and keeps per-sample statistics.
package decode

import (
	"math"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
)

// NoLimit disables the N threshold.
const NoLimit = math.MaxInt

// Config is the decoding policy. MaxMismatches and MinDistance hold one
// value per barcode position.
type Config struct {
	MaxMismatches    []int
	MinDistance      []int
	MaxN             int
	CountNAsMismatch bool
}

// DefaultConfig is 0 mismatches, distance 1, no N limit.
func DefaultConfig(n int) Config {
	c := Config{MaxN: NoLimit, CountNAsMismatch: true}
	c.MaxMismatches, _ = Broadcast("maximumMismatches", nil, n, 0)
	c.MinDistance, _ = Broadcast("minimumDistance", nil, n, 1)
	return c
}

// Broadcast expands a per-position option to n values. No values means
// def everywhere and a single value applies to every position.
func Broadcast(name string, values []int, n, def int) ([]int, error) {
	out := make([]int, n)
	switch len(values) {
	case 0:
		for i := range out {
			out[i] = def
		}
	case 1:
		for i := range out {
			out[i] = values[0]
		}
	case n:
		copy(out, values)
	default:
		return nil, errkind.Badf("--%s given %d times for %d barcodes", name, len(values), n)
	}
	return out, nil
}

func (c Config) validate(n int) error {
	if len(c.MaxMismatches) != n {
		return errkind.Badf("%d maximum mismatch values for %d barcodes", len(c.MaxMismatches), n)
	}
	if len(c.MinDistance) != n {
		return errkind.Badf("%d minimum distance values for %d barcodes", len(c.MinDistance), n)
	}
	for i, m := range c.MaxMismatches {
		if m < 0 {
			return errkind.Badf("maximum mismatches for barcode %d must be >= 0, got %d", i+1, m)
		}
	}
	for i, d := range c.MinDistance {
		if d < 1 {
			return errkind.Badf("minimum distance for barcode %d must be >= 1, got %d", i+1, d)
		}
	}
	if c.MaxN < 0 {
		return errkind.Badf("maximum N must be >= 0, got %d", c.MaxN)
	}
	return nil
}
