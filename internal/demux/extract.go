// Package demux routes fragments to per-sample outputs from barcodes
// found in read names or in record tags.
package demux

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
)

// Extractor finds the observed barcodes of a fragment and writes the
// decoded ones back into it.
type Extractor interface {
	Extract(mates []*read.Read) ([]string, error)
	Annotate(mates []*read.Read, barcodes []string, assigned bool)
}

// NameExtractor reads barcodes from the read name after the last
// Separator ("read#ACGT_TTGA/1"), split on Delimiter. With FromComment
// the barcodes are the comment after its last ':' split on '+'
// (Illumina "1:N:0:ACGT+TTGA").
type NameExtractor struct {
	Separator   byte
	Delimiter   byte
	FromComment bool
}

// DefaultNameExtractor uses '#' and '_'.
func DefaultNameExtractor() *NameExtractor {
	return &NameExtractor{Separator: '#', Delimiter: '_'}
}

// mateSuffix returns the length of a trailing "/1" or "/2".
func mateSuffix(name []byte) int {
	if n := len(name); n >= 2 && name[n-2] == '/' && (name[n-1] == '1' || name[n-1] == '2') {
		return 2
	}
	return 0
}

func (e *NameExtractor) field(r *read.Read) (start, end int, ok bool) {
	if e.FromComment {
		i := bytes.LastIndexByte(r.Comment, ':')
		if i < 0 || i == len(r.Comment)-1 {
			return 0, 0, false
		}
		return i + 1, len(r.Comment), true
	}
	end = len(r.Name) - mateSuffix(r.Name)
	i := bytes.LastIndexByte(r.Name[:end], e.Separator)
	if i < 0 || i == end-1 {
		return 0, 0, false
	}
	return i + 1, end, true
}

func (e *NameExtractor) delimiter() string {
	if e.FromComment {
		return "+"
	}
	return string(e.Delimiter)
}

func (e *NameExtractor) Extract(mates []*read.Read) ([]string, error) {
	r := mates[0]
	start, end, ok := e.field(r)
	if !ok {
		where := fmt.Sprintf("after '%c' in the name", e.Separator)
		if e.FromComment {
			where = "after the last ':' in the comment"
		}
		return nil, fmt.Errorf("%w: no barcode %s of %s %s", errkind.ErrMissingBarcode, where, r.Name, r.Comment)
	}
	src := r.Name
	if e.FromComment {
		src = r.Comment
	}
	return strings.Split(string(src[start:end]), e.delimiter()), nil
}

// Annotate replaces the observed barcodes of every mate with the
// dictionary ones. Unassigned fragments keep their names.
func (e *NameExtractor) Annotate(mates []*read.Read, barcodes []string, assigned bool) {
	if !assigned {
		return
	}
	joined := strings.Join(barcodes, e.delimiter())
	for _, r := range mates {
		start, end, ok := e.field(r)
		if !ok {
			continue
		}
		if e.FromComment {
			r.Comment = splice(r.Comment, start, end, joined)
		} else {
			r.Name = splice(r.Name, start, end, joined)
		}
	}
}

func splice(b []byte, start, end int, s string) []byte {
	out := make([]byte, 0, len(b)-(end-start)+len(s))
	out = append(out, b[:start]...)
	out = append(out, s...)
	return append(out, b[end:]...)
}

// TagExtractor reads one barcode per tag from the first mate. Annotate
// appends the barcodes to every mate name after Separator and drops the
// barcode tags.
type TagExtractor struct {
	Tags      []string
	Separator byte
	Delimiter byte
}

func NewTagExtractor(tags ...string) *TagExtractor {
	return &TagExtractor{Tags: tags, Separator: '#', Delimiter: '_'}
}

func (e *TagExtractor) Extract(mates []*read.Read) ([]string, error) {
	out := make([]string, len(e.Tags))
	for i, tag := range e.Tags {
		v, ok := mates[0].Tag(tag)
		if !ok {
			return nil, fmt.Errorf("%w: tag %s not found in record %s", errkind.ErrMissingBarcode, tag, mates[0].Name)
		}
		out[i] = v
	}
	return out, nil
}

func (e *TagExtractor) Annotate(mates []*read.Read, barcodes []string, assigned bool) {
	suffix := string(e.Separator) + strings.Join(barcodes, string(e.Delimiter))
	for _, r := range mates {
		end := len(r.Name) - mateSuffix(r.Name)
		r.Name = splice(r.Name, end, end, suffix)
		for _, tag := range e.Tags {
			r.DeleteTag(tag)
		}
	}
}
