package barcode

// Conflict is a pair of distinct barcodes at one position close enough
// that some observed sequence lies within the mismatch budget of both.
type Conflict struct {
	Position int
	Barcodes [2]string
	Distance int
}

// Hamming counts the positions where a and b differ. Both must have the
// same length.
func Hamming(a, b string) int {
	n := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}

// Conflicts reports the pairs of distinct barcodes at position i that are
// at most 2*maxMismatches substitutions apart, in dictionary order.
func (d *Dictionary) Conflicts(i, maxMismatches int) []Conflict {
	if maxMismatches <= 0 {
		return nil
	}
	bcs := d.distinct[i]
	var out []Conflict
	for a := 0; a < len(bcs); a++ {
		for b := a + 1; b < len(bcs); b++ {
			if dist := Hamming(bcs[a], bcs[b]); dist <= 2*maxMismatches {
				out = append(out, Conflict{Position: i, Barcodes: [2]string{bcs[a], bcs[b]}, Distance: dist})
			}
		}
	}
	return out
}
