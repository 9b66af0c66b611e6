package seqio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"github.com/Altius/stampipes/programs/readtools/internal/barcode"
	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/quality"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
)

// Writer consumes records. Close flushes and releases the output.
type Writer interface {
	Write(r *read.Read) error
	Close() error
}

// Create picks a writer from the file extension: .bam and .sam get the
// header, anything else is FASTQ.
func Create(filename string, header *sam.Header) (Writer, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".bam", ".sam":
		return CreateSam(filename, header)
	}
	return CreateFastq(filename)
}

func createFile(filename string) (io.WriteCloser, error) {
	if filename == "-" {
		return nopCloser{os.Stdout}, nil
	}
	fh, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errkind.ErrCouldNotCreateOutput, err)
	}
	return fh, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// FastqWriter writes FASTQ, compressed with pgzip for .gz and zstd for
// .zst. Tags are appended to the comment as SAM-style TG:Z:value fields.
type FastqWriter struct {
	bw      *bufio.Writer
	closers []io.Closer
	line    []byte
}

func CreateFastq(filename string) (*FastqWriter, error) {
	fh, err := createFile(filename)
	if err != nil {
		return nil, err
	}
	w := &FastqWriter{closers: []io.Closer{fh}}
	var out io.Writer = fh
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".gz":
		gz := pgzip.NewWriter(fh)
		w.closers = append([]io.Closer{gz}, w.closers...)
		out = gz
	case ".zst":
		zw, err := zstd.NewWriter(fh)
		if err != nil {
			fh.Close()
			return nil, fmt.Errorf("%w: %s: %v", errkind.ErrCouldNotCreateOutput, filename, err)
		}
		w.closers = append([]io.Closer{zw}, w.closers...)
		out = zw
	}
	w.bw = bufio.NewWriterSize(out, 1<<16)
	return w, nil
}

// NewFastqWriter writes uncompressed FASTQ to w.
func NewFastqWriter(w io.Writer) *FastqWriter {
	return &FastqWriter{bw: bufio.NewWriter(w)}
}

func (w *FastqWriter) Write(r *read.Read) error {
	b := w.line[:0]
	b = append(b, '@')
	b = append(b, r.Name...)
	if len(r.Comment) > 0 {
		b = append(b, ' ')
		b = append(b, r.Comment...)
	}
	for _, k := range r.TagKeys() {
		b = append(b, ' ')
		b = append(b, k...)
		b = append(b, ':', tagKind(r, k), ':')
		b = append(b, r.Tags[k]...)
	}
	b = append(b, '\n')
	b = append(b, r.Seq...)
	b = append(b, "\n+\n"...)
	b = append(b, r.Qual...)
	b = append(b, '\n')
	w.line = b
	_, err := w.bw.Write(b)
	return err
}

func (w *FastqWriter) Close() error {
	err := w.bw.Flush()
	for _, c := range w.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// NewHeader builds an unsorted SAM header carrying the given read groups.
func NewHeader(groups []barcode.ReadGroup) (*sam.Header, error) {
	h, err := sam.NewHeader(nil, nil)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		rg, err := sam.NewReadGroup(g.ID, "", "", g.Library, "", "", "", g.Sample, "", "", time.Time{}, 0)
		if err != nil {
			return nil, fmt.Errorf("read group %s: %w", g.ID, err)
		}
		if err := h.AddReadGroup(rg); err != nil {
			return nil, fmt.Errorf("read group %s: %w", g.ID, err)
		}
	}
	return h, nil
}

type samRecordWriter interface {
	Write(r *sam.Record) error
}

// SamWriter writes unmapped SAM or BAM records.
type SamWriter struct {
	w       samRecordWriter
	flush   func() error
	closers []io.Closer
}

// CreateSam writes BAM for a .bam extension and SAM otherwise. A nil
// header writes an empty one.
func CreateSam(filename string, header *sam.Header) (*SamWriter, error) {
	if header == nil {
		var err error
		if header, err = sam.NewHeader(nil, nil); err != nil {
			return nil, err
		}
	}
	fh, err := createFile(filename)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(filename), ".bam") {
		bw, err := bam.NewWriter(fh, header, runtime.GOMAXPROCS(0))
		if err != nil {
			fh.Close()
			return nil, fmt.Errorf("%w: %s: %v", errkind.ErrCouldNotCreateOutput, filename, err)
		}
		return &SamWriter{w: bw, closers: []io.Closer{bw, fh}}, nil
	}
	buf := bufio.NewWriter(fh)
	sw, err := sam.NewWriter(buf, header, sam.FlagDecimal)
	if err != nil {
		fh.Close()
		return nil, fmt.Errorf("%w: %s: %v", errkind.ErrCouldNotCreateOutput, filename, err)
	}
	return &SamWriter{w: sw, flush: buf.Flush, closers: []io.Closer{fh}}, nil
}

func (w *SamWriter) Write(r *read.Read) error {
	rec, err := toSam(r)
	if err != nil {
		return err
	}
	return w.w.Write(rec)
}

func (w *SamWriter) Close() error {
	var err error
	if w.flush != nil {
		err = w.flush()
	}
	for _, c := range w.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func toSam(r *read.Read) (*sam.Record, error) {
	qual := make([]byte, len(r.Qual))
	for i, q := range r.Qual {
		qual[i] = q - quality.SangerOffset
	}
	flags := sam.Unmapped
	if r.Mate > 0 {
		flags |= sam.Paired | sam.MateUnmapped
		if r.Mate == 1 {
			flags |= sam.Read1
		} else {
			flags |= sam.Read2
		}
	}
	rec := &sam.Record{
		Name:    string(r.Name),
		Pos:     -1,
		MatePos: -1,
		Flags:   flags,
		Seq:     sam.NewSeq(r.Seq),
		Qual:    qual,
	}
	for _, k := range r.TagKeys() {
		if raw, ok := r.Aux[k]; ok {
			rec.AuxFields = append(rec.AuxFields, sam.Aux(raw))
			continue
		}
		aux, err := sam.NewAux(sam.NewTag(k), r.Tags[k])
		if err != nil {
			return nil, fmt.Errorf("tag %s of %s: %w", k, r.Name, err)
		}
		rec.AuxFields = append(rec.AuxFields, aux)
	}
	return rec, nil
}

// tagKind is the SAM type letter of tag k: Z unless it came typed from
// SAM or BAM input.
func tagKind(r *read.Read, k string) byte {
	if raw, ok := r.Aux[k]; ok {
		return sam.Aux(raw).Kind()
	}
	return 'Z'
}
