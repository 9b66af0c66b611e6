package demux

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/Altius/stampipes/programs/readtools/internal/barcode"
	"github.com/Altius/stampipes/programs/readtools/internal/decode"
	"github.com/Altius/stampipes/programs/readtools/internal/metrics"
	"github.com/Altius/stampipes/programs/readtools/internal/progress"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
	"github.com/Altius/stampipes/programs/readtools/internal/seqio"
)

// ReadGroupTag carries the read group of a demultiplexed record in BAM
// output.
const ReadGroupTag = "RG"

// DiscardedSuffix names the output of unassigned fragments.
const DiscardedSuffix = "discarded"

// maxConflictLines bounds the per-position conflict warnings.
const maxConflictLines = 10

// Format is the output file format of a demultiplexer.
type Format int

const (
	FASTQ Format = iota
	BAM
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "fastq", "fq":
		return FASTQ, nil
	case "bam":
		return BAM, nil
	}
	return FASTQ, fmt.Errorf("unknown output format %q (fastq or bam)", s)
}

// Outputs names the files written for a prefix.
type Outputs struct {
	Prefix string
	Split  bool
	Format Format
	// Compress gzips FASTQ outputs.
	Compress bool
}

func (o Outputs) ext() string {
	switch {
	case o.Format == BAM:
		return ".bam"
	case o.Compress:
		return ".fq.gz"
	}
	return ".fq"
}

// files returns the file names for one output stem: one per mate for
// paired FASTQ, otherwise a single file holding every mate.
func (o Outputs) files(stem string, paired bool) []string {
	if paired && o.Format == FASTQ {
		return []string{stem + "_1" + o.ext(), stem + "_2" + o.ext()}
	}
	return []string{stem + o.ext()}
}

// Route registers every sample of dict and UNKNOWN on w. Unassigned
// fragments go to <prefix>_discarded; assigned ones to <prefix> or, when
// split, to <prefix>_<sample>.
func (o Outputs) Route(w *seqio.SplitWriter, dict *barcode.Dictionary, paired bool) {
	for j := 0; j < dict.NumberOfSamples(); j++ {
		stem := o.Prefix
		if o.Split {
			stem += "_" + dict.SampleAt(j).Name
		}
		w.Route(dict.SampleAt(j).Name, o.files(stem, paired)...)
	}
	w.Route(barcode.UnknownName, o.files(o.Prefix+"_"+DiscardedSuffix, paired)...)
}

// MetricsFile is where the decoder statistics are written.
func (o Outputs) MetricsFile() string {
	return o.Prefix + ".metrics"
}

// Demultiplexer decodes every fragment of a source and writes it to the
// output of its sample.
type Demultiplexer struct {
	decoder    *decode.Decoder
	extractor  Extractor
	out        *seqio.SplitWriter
	logger     *log.Logger
	readGroups bool
}

func New(decoder *decode.Decoder, extractor Extractor, out *seqio.SplitWriter, logger *log.Logger) *Demultiplexer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Demultiplexer{decoder: decoder, extractor: extractor, out: out, logger: logger}
}

// TagReadGroups sets the RG tag of every record to the read group of its
// sample.
func (d *Demultiplexer) TagReadGroups(on bool) *Demultiplexer {
	d.readGroups = on
	return d
}

func (d *Demultiplexer) Decoder() *decode.Decoder {
	return d.decoder
}

// Run consumes src until EOF or until ctx is done. It does not close src
// or the outputs.
func (d *Demultiplexer) Run(ctx context.Context, src *seqio.Source, rep progress.Reporter) error {
	dict := d.decoder.Dictionary()
	for n := 0; ; n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		mates, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := d.process(dict, mates); err != nil {
			return err
		}
		if rep != nil {
			rep.Increment()
		}
	}
	if rep != nil {
		rep.Finish()
	}
	return nil
}

func (d *Demultiplexer) process(dict *barcode.Dictionary, mates []*read.Read) error {
	observed, err := d.extractor.Extract(mates)
	if err != nil {
		return err
	}
	m, err := d.decoder.Decode(observed)
	if err != nil {
		return fmt.Errorf("record %s: %w", mates[0].Name, err)
	}
	if m.Assigned {
		d.extractor.Annotate(mates, m.Barcodes(), true)
	} else {
		d.extractor.Annotate(mates, observed, false)
	}
	if d.readGroups {
		rg := dict.ReadGroupFor(m.Sample).ID
		for _, r := range mates {
			r.SetTag(ReadGroupTag, rg)
		}
	}
	return d.out.Write(dict.SampleName(m.Sample), mates)
}

// WriteMetrics writes the decoder statistics to filename below the given
// header lines.
func (d *Demultiplexer) WriteMetrics(filename string, header ...string) error {
	f := metrics.New(header...)
	d.decoder.Stats().WriteMetrics(f)
	return f.WriteFile(filename)
}

// CheckDictionary warns about samples sharing a barcode tuple and about
// barcode pairs at one position that a single sequence can match within
// the mismatch budget.
func CheckDictionary(decoder *decode.Decoder, logger *log.Logger) {
	dict := decoder.Dictionary()
	for _, j := range decoder.Unreachable() {
		s := dict.SampleAt(j)
		logger.Printf("WARNING: sample %s (%s) shares barcodes %s with another sample and can never be assigned",
			s.Name, s.Library, strings.Join(s.Barcodes, "_"))
	}
	cfg := decoder.Config()
	for i := 0; i < dict.NumberOfBarcodes(); i++ {
		conflicts := dict.Conflicts(i, cfg.MaxMismatches[i])
		if len(conflicts) == 0 {
			continue
		}
		logger.Printf("WARNING: %d barcode pairs at barcode %d are close enough to share sequences within %d mismatches",
			len(conflicts), i+1, cfg.MaxMismatches[i])
		for k, c := range conflicts {
			if k == maxConflictLines {
				logger.Printf("  ... %d more", len(conflicts)-k)
				break
			}
			logger.Printf("  %s, %s: distance %d", c.Barcodes[0], c.Barcodes[1], c.Distance)
		}
	}
}
