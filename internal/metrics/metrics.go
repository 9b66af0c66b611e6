// Package metrics writes the tab-delimited metrics files produced by the
// demultiplexers and the trimmer: a '#' header block, then rectangular
// METRICS sections, then HISTOGRAM blocks.
package metrics

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shenwei356/xopen"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
)

// File collects every section of one metrics file.
type File struct {
	Header     []string
	Sections   []*Section
	Histograms []*Histogram
}

// New starts a metrics file whose header block holds the given lines.
func New(header ...string) *File {
	return &File{Header: header}
}

func (f *File) AddSection(s *Section) {
	f.Sections = append(f.Sections, s)
}

func (f *File) AddHistogram(h ...*Histogram) {
	f.Histograms = append(f.Histograms, h...)
}

// Section is one rectangular table.
type Section struct {
	Name    string
	Columns []string
	Rows    [][]string
}

func NewSection(name string, columns ...string) *Section {
	return &Section{Name: name, Columns: columns}
}

// AddRow appends a row; values are formatted with fmt.Sprint, float64 with
// four decimals.
func (s *Section) AddRow(values ...any) {
	row := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case float64:
			row[i] = fmt.Sprintf("%.4f", x)
		default:
			row[i] = fmt.Sprint(x)
		}
	}
	s.Rows = append(s.Rows, row)
}

// Histogram counts integer bins. Histograms sharing a Key are written side
// by side as columns named by Label.
type Histogram struct {
	Key    string
	Label  string
	counts map[int]int64
}

func NewHistogram(key, label string) *Histogram {
	return &Histogram{Key: key, Label: label, counts: make(map[int]int64)}
}

func (h *Histogram) Increment(bin int) {
	h.counts[bin]++
}

func (h *Histogram) Add(bin int, n int64) {
	h.counts[bin] += n
}

func (h *Histogram) Count(bin int) int64 {
	return h.counts[bin]
}

// Total is the sum over every bin.
func (h *Histogram) Total() (n int64) {
	for _, c := range h.counts {
		n += c
	}
	return n
}

// Bins returns the non-empty bins in ascending order.
func (h *Histogram) Bins() []int {
	bins := make([]int, 0, len(h.counts))
	for b := range h.counts {
		bins = append(bins, b)
	}
	sort.Ints(bins)
	return bins
}

// Write renders the file.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, line := range f.Header {
		fmt.Fprintf(bw, "# %s\n", line)
	}
	for _, s := range f.Sections {
		fmt.Fprintf(bw, "\n## METRICS\t%s\n", s.Name)
		fmt.Fprintln(bw, strings.Join(s.Columns, "\t"))
		for _, row := range s.Rows {
			fmt.Fprintln(bw, strings.Join(row, "\t"))
		}
	}

	var keys []string
	groups := make(map[string][]*Histogram)
	for _, h := range f.Histograms {
		if _, ok := groups[h.Key]; !ok {
			keys = append(keys, h.Key)
		}
		groups[h.Key] = append(groups[h.Key], h)
	}
	for _, key := range keys {
		writeHistograms(bw, key, groups[key])
	}
	return bw.Flush()
}

func writeHistograms(w io.Writer, key string, hs []*Histogram) {
	fmt.Fprintf(w, "\n## HISTOGRAM\t%s\n", key)
	cols := []string{key}
	seen := make(map[int]struct{})
	var bins []int
	for _, h := range hs {
		cols = append(cols, h.Label)
		for b := range h.counts {
			if _, ok := seen[b]; !ok {
				seen[b] = struct{}{}
				bins = append(bins, b)
			}
		}
	}
	sort.Ints(bins)
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	for _, b := range bins {
		fmt.Fprint(w, b)
		for _, h := range hs {
			fmt.Fprintf(w, "\t%d", h.counts[b])
		}
		fmt.Fprintln(w)
	}
}

// WriteFile writes the metrics to filename; a .gz suffix compresses it.
func (f *File) WriteFile(filename string) error {
	out, err := xopen.Wopen(filename)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errkind.ErrCouldNotCreateOutput, filename, err)
	}
	err = f.Write(out)
	if err == nil {
		// xopen's Close drops flush errors.
		err = out.Writer.Flush()
	}
	out.Close()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errkind.ErrCouldNotCreateOutput, filename, err)
	}
	return nil
}
