// Package seqio reads and writes sequencing records: FASTQ through
// shenwei356/bio, SAM and BAM through biogo/hts.
package seqio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/quality"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
)

// Reader yields records until io.EOF.
type Reader interface {
	Read() (*read.Read, error)
	Close() error
}

// IsAligned reports whether filename is a SAM or BAM file.
func IsAligned(filename string) bool {
	switch strings.ToLower(filepath.Ext(trimCompression(filename))) {
	case ".bam", ".sam":
		return true
	}
	return false
}

func trimCompression(filename string) string {
	for _, ext := range []string{".gz", ".zst"} {
		if strings.HasSuffix(strings.ToLower(filename), ext) {
			return filename[:len(filename)-len(ext)]
		}
	}
	return filename
}

// Open picks a reader from the file extension: .bam, .sam (optionally
// gzipped) or FASTQ otherwise. "-" is FASTQ on stdin.
func Open(filename string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(trimCompression(filename))) {
	case ".bam":
		return OpenBam(filename)
	case ".sam":
		return OpenSam(filename)
	}
	return OpenFastq(filename)
}

// FastqReader reads FASTQ records. The header is split on the first
// whitespace into name and comment.
type FastqReader struct {
	fq *fastx.Reader
}

func OpenFastq(filename string) (*FastqReader, error) {
	fq, err := fastx.NewDefaultReader(filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}
	return &FastqReader{fq: fq}, nil
}

func (f *FastqReader) Read() (*read.Read, error) {
	rec, err := f.fq.Read()
	if err != nil {
		return nil, err
	}
	return fromFastx(rec)
}

func (f *FastqReader) Close() error {
	f.fq.Close()
	return nil
}

// fromFastx copies rec. Records without one quality per base, FASTA
// among them, are ErrInvalidQualityByte.
func fromFastx(rec *fastx.Record) (*read.Read, error) {
	if len(rec.Seq.Qual) != len(rec.Seq.Seq) {
		return nil, fmt.Errorf("%w: record %s has %d bases and %d qualities, FASTQ input is required",
			errkind.ErrInvalidQualityByte, firstWord(rec.Name), len(rec.Seq.Seq), len(rec.Seq.Qual))
	}
	r := &read.Read{
		Seq:  append([]byte(nil), rec.Seq.Seq...),
		Qual: append([]byte(nil), rec.Seq.Qual...),
	}
	header := rec.Name
	if i := bytes.IndexAny(header, " \t"); i >= 0 {
		r.Name = append([]byte(nil), header[:i]...)
		r.Comment = append([]byte(nil), bytes.TrimSpace(header[i+1:])...)
	} else {
		r.Name = append([]byte(nil), header...)
	}
	return r, nil
}

func firstWord(header []byte) []byte {
	if i := bytes.IndexAny(header, " \t"); i >= 0 {
		return header[:i]
	}
	return header
}

type samRecordReader interface {
	Read() (*sam.Record, error)
	Header() *sam.Header
}

// SamReader reads SAM or BAM records. Reverse strand records are turned
// back to their sequenced orientation and aux fields become tags.
type SamReader struct {
	r      samRecordReader
	closer io.Closer
	file   io.Closer
}

func OpenBam(filename string) (*SamReader, error) {
	fh, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	br, err := bam.NewReader(fh, 0)
	if err != nil {
		fh.Close()
		return nil, fmt.Errorf("reading BAM %s: %w", filename, err)
	}
	return &SamReader{r: br, closer: br, file: fh}, nil
}

func OpenSam(filename string) (*SamReader, error) {
	fh, err := xopen.Ropen(filename)
	if err != nil {
		return nil, err
	}
	sr, err := sam.NewReader(fh)
	if err != nil {
		fh.Close()
		return nil, fmt.Errorf("reading SAM %s: %w", filename, err)
	}
	return &SamReader{r: sr, file: fh}, nil
}

func (s *SamReader) Header() *sam.Header {
	return s.r.Header()
}

func (s *SamReader) Read() (*read.Read, error) {
	rec, err := s.r.Read()
	if err != nil {
		return nil, err
	}
	return fromSam(rec), nil
}

func (s *SamReader) Close() error {
	if s.closer != nil {
		s.closer.Close()
	}
	return s.file.Close()
}

var complement = [256]byte{
	'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'N': 'N',
	'a': 't', 'c': 'g', 'g': 'c', 't': 'a', 'n': 'n',
}

func fromSam(rec *sam.Record) *read.Read {
	seq := rec.Seq.Expand()
	qual := make([]byte, len(seq))
	for i := range qual {
		if i < len(rec.Qual) && rec.Qual[i] != 0xff {
			qual[i] = rec.Qual[i] + quality.SangerOffset
		} else {
			qual[i] = quality.SangerOffset
		}
	}
	if rec.Flags&sam.Reverse != 0 {
		for i, j := 0, len(seq)-1; i <= j; i, j = i+1, j-1 {
			seq[i], seq[j] = revcomp(seq[j]), revcomp(seq[i])
			qual[i], qual[j] = qual[j], qual[i]
		}
	}
	r := &read.Read{Name: []byte(rec.Name), Seq: seq, Qual: qual}
	if rec.Flags&sam.Paired != 0 {
		switch {
		case rec.Flags&sam.Read1 != 0:
			r.Mate = 1
		case rec.Flags&sam.Read2 != 0:
			r.Mate = 2
		}
	}
	for _, aux := range rec.AuxFields {
		if aux.Type() == 'Z' {
			r.SetTag(aux.Tag().String(), aux.Value().(string))
			continue
		}
		r.SetTypedTag(aux.Tag().String(), auxText(aux), append([]byte(nil), aux...))
	}
	return r
}

// auxText is the value of aux as written in a SAM text field.
func auxText(aux sam.Aux) string {
	switch aux.Type() {
	case 'A':
		return string(aux[3:4])
	case 'H':
		return fmt.Sprintf("%02X", aux.Value())
	case 'B':
		var b strings.Builder
		b.WriteByte(aux[3])
		v := reflect.ValueOf(aux.Value())
		for i := 0; i < v.Len(); i++ {
			fmt.Fprintf(&b, ",%v", v.Index(i).Interface())
		}
		return b.String()
	}
	return fmt.Sprint(aux.Value())
}

func revcomp(b byte) byte {
	if c := complement[b]; c != 0 {
		return c
	}
	return b
}

// Stdin is the file name that reads standard input.
const Stdin = "-"

// DetectFile samples up to maxRecords of filename to guess its quality
// encoding. The file is opened separately from the one later converted, so
// it must not be Stdin; use DetectBuffered there.
func DetectFile(filename string, maxRecords int64) (quality.Format, error) {
	r, err := Open(filename)
	if err != nil {
		return quality.Unknown, err
	}
	defer r.Close()
	return quality.Detect(r, maxRecords)
}

// DetectBuffered samples up to maxRecords of r, keeping them in memory,
// and returns a reader that yields the sampled records again before the
// rest of r.
func DetectBuffered(r Reader, maxRecords int64) (quality.Format, Reader, error) {
	rr := &replayReader{Reader: r}
	format, err := quality.Detect(recordingReader{rr}, maxRecords)
	if err != nil {
		return quality.Unknown, nil, err
	}
	return format, rr, nil
}

// replayReader returns buf, then the error that ended sampling (if any),
// then the rest of the wrapped reader.
type replayReader struct {
	Reader
	buf []*read.Read
	err error
}

func (r *replayReader) Read() (*read.Read, error) {
	if len(r.buf) > 0 {
		rec := r.buf[0]
		r.buf[0] = nil
		r.buf = r.buf[1:]
		return rec, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.Reader.Read()
}

// recordingReader fills a replayReader while detection reads through it.
type recordingReader struct {
	rr *replayReader
}

func (c recordingReader) Read() (*read.Read, error) {
	rec, err := c.rr.Reader.Read()
	if err != nil {
		c.rr.err = err
		return nil, err
	}
	c.rr.buf = append(c.rr.buf, rec)
	return rec, nil
}
