// Package barcode loads the per-run sample dictionary used for
// demultiplexing and answers lookups against it.
package barcode

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/shenwei356/xopen"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
)

// Unknown is the sample index of the fallback routing target.
const Unknown = -1

// UnknownName is reserved for the fallback sample.
const UnknownName = "UNKNOWN"

// ReadGroup is the metadata attached to records of one sample.
type ReadGroup struct {
	ID      string
	Sample  string
	Library string
}

// UnknownReadGroup is used for records that could not be assigned.
var UnknownReadGroup = ReadGroup{ID: UnknownName, Sample: UnknownName, Library: UnknownName}

// Sample is one row of the dictionary.
type Sample struct {
	Name      string
	Library   string
	Barcodes  []string
	ReadGroup ReadGroup
}

// Dictionary is the immutable sample table.
type Dictionary struct {
	samples []Sample
	lengths []int
	// tuples maps the joined barcode tuple to every sample carrying it.
	tuples map[string][]int
	// distinct[i] is the set of barcodes at position i, in first-seen order.
	distinct [][]string
}

// ReadDictionaryFile loads a dictionary from a (possibly compressed) file.
func ReadDictionaryFile(filename, runID string) (*Dictionary, error) {
	fh, err := xopen.Ropen(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: opening barcode file %s: %v", errkind.ErrBadConfiguration, filename, err)
	}
	defer fh.Close()
	d, err := ReadDictionary(fh, runID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return d, nil
}

// ReadDictionary parses whitespace-delimited rows of
// "sample library barcode1 [barcode2 ...]". Blank lines and lines starting
// with '#' are skipped.
func ReadDictionary(r io.Reader, runID string) (*Dictionary, error) {
	var samples []Sample
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, malformed(lineNo, "expected sample, library and at least one barcode, got %d columns", len(fields))
		}
		s := Sample{Name: fields[0], Library: fields[1]}
		for _, bc := range fields[2:] {
			s.Barcodes = append(s.Barcodes, strings.ToUpper(bc))
		}
		for _, bc := range s.Barcodes {
			if !validBases(bc) {
				return nil, malformed(lineNo, "barcode %q has characters other than A, C, G, T, N", bc)
			}
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewDictionary(samples, runID)
}

// NewDictionary validates samples and builds the lookup indices.
// The read group of each sample is derived from runID.
func NewDictionary(samples []Sample, runID string) (*Dictionary, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", errkind.ErrMalformedDictionary)
	}
	n := len(samples[0].Barcodes)
	if n == 0 {
		return nil, fmt.Errorf("%w: sample %s has no barcodes", errkind.ErrMalformedDictionary, samples[0].Name)
	}
	d := &Dictionary{
		samples:  make([]Sample, len(samples)),
		lengths:  make([]int, n),
		tuples:   make(map[string][]int, len(samples)),
		distinct: make([][]string, n),
	}
	for i, bc := range samples[0].Barcodes {
		d.lengths[i] = len(bc)
	}

	names := make(map[string]int)
	seenAt := make([]map[string]struct{}, n)
	for i := range seenAt {
		seenAt[i] = make(map[string]struct{})
	}

	for j, s := range samples {
		if s.Name == UnknownName {
			return nil, fmt.Errorf("%w: sample name %s is reserved", errkind.ErrMalformedDictionary, UnknownName)
		}
		if prev, dup := names[s.Name]; dup {
			if samples[prev].Library == s.Library {
				return nil, fmt.Errorf("%w: sample %s library %s listed twice", errkind.ErrMalformedDictionary, s.Name, s.Library)
			}
			return nil, fmt.Errorf("%w: sample name %s is not unique", errkind.ErrMalformedDictionary, s.Name)
		}
		names[s.Name] = j
		if len(s.Barcodes) != n {
			return nil, fmt.Errorf("%w: sample %s has %d barcodes, expected %d", errkind.ErrMalformedDictionary, s.Name, len(s.Barcodes), n)
		}
		for i, bc := range s.Barcodes {
			if len(bc) != d.lengths[i] {
				return nil, fmt.Errorf("%w: sample %s barcode %d (%s) has length %d, expected %d",
					errkind.ErrMalformedDictionary, s.Name, i+1, bc, len(bc), d.lengths[i])
			}
			if _, ok := seenAt[i][bc]; !ok {
				seenAt[i][bc] = struct{}{}
				d.distinct[i] = append(d.distinct[i], bc)
			}
		}
		s.Barcodes = append([]string(nil), s.Barcodes...)
		s.ReadGroup = ReadGroup{ID: readGroupID(runID, s.Name), Sample: s.Name, Library: s.Library}
		d.samples[j] = s
		key := tupleKey(s.Barcodes)
		d.tuples[key] = append(d.tuples[key], j)
	}
	return d, nil
}

func readGroupID(runID, sample string) string {
	if runID == "" {
		return sample
	}
	return runID + "_" + sample
}

func tupleKey(barcodes []string) string {
	return strings.Join(barcodes, "\x00")
}

func validBases(bc string) bool {
	for i := 0; i < len(bc); i++ {
		switch bc[i] {
		case 'A', 'C', 'G', 'T', 'N':
		default:
			return false
		}
	}
	return len(bc) > 0
}

func malformed(line int, format string, a ...any) error {
	return fmt.Errorf("%w: line %d: %s", errkind.ErrMalformedDictionary, line, fmt.Sprintf(format, a...))
}

// NumberOfBarcodes is N, the number of barcode positions per sample.
func (d *Dictionary) NumberOfBarcodes() int {
	return len(d.lengths)
}

// NumberOfSamples counts real samples; the unknown sentinel is excluded.
func (d *Dictionary) NumberOfSamples() int {
	return len(d.samples)
}

func (d *Dictionary) SampleAt(j int) Sample {
	return d.samples[j]
}

// Length is L_i, the barcode length at position i.
func (d *Dictionary) Length(i int) int {
	return d.lengths[i]
}

// Lengths returns a copy of every L_i.
func (d *Dictionary) Lengths() []int {
	return append([]int(nil), d.lengths...)
}

// BarcodesAtPosition returns the barcode at position i for every sample,
// aligned by sample index.
func (d *Dictionary) BarcodesAtPosition(i int) []string {
	out := make([]string, len(d.samples))
	for j, s := range d.samples {
		out[j] = s.Barcodes[i]
	}
	return out
}

// DistinctBarcodes returns the distinct barcodes at position i.
func (d *Dictionary) DistinctBarcodes(i int) []string {
	return append([]string(nil), d.distinct[i]...)
}

// ReadGroupFor returns the read group of sample j, or UnknownReadGroup
// for Unknown.
func (d *Dictionary) ReadGroupFor(j int) ReadGroup {
	if j == Unknown || j < 0 || j >= len(d.samples) {
		return UnknownReadGroup
	}
	return d.samples[j].ReadGroup
}

// ReadGroups lists the read groups of every sample followed by the unknown one.
func (d *Dictionary) ReadGroups() []ReadGroup {
	out := make([]ReadGroup, 0, len(d.samples)+1)
	for _, s := range d.samples {
		out = append(out, s.ReadGroup)
	}
	return append(out, UnknownReadGroup)
}

// SampleName returns the name of sample j or UnknownName.
func (d *Dictionary) SampleName(j int) string {
	if j == Unknown {
		return UnknownName
	}
	return d.samples[j].Name
}

// UniqueTuple reports the sample whose full barcode tuple equals barcodes,
// provided exactly one sample carries it.
func (d *Dictionary) UniqueTuple(barcodes []string) (int, bool) {
	js := d.tuples[tupleKey(barcodes)]
	if len(js) != 1 {
		return Unknown, false
	}
	return js[0], true
}

// WriteTo writes the table back out, one tab-delimited row per sample.
func (d *Dictionary) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, s := range d.samples {
		n, err := fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Library, strings.Join(s.Barcodes, "\t"))
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
