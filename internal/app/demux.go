package app

import (
	"github.com/biogo/hts/sam"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Altius/stampipes/programs/readtools/internal/decode"
	"github.com/Altius/stampipes/programs/readtools/internal/demux"
	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/seqio"
)

// outputOptions choose the demultiplexed file names and format.
type outputOptions struct {
	prefix        string
	format        string
	disableZipped bool
}

func (o *outputOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.prefix, "output", "", "output `prefix`")
	fs.StringVar(&o.format, "outputFormat", "fastq", "fastq or bam")
	fs.BoolVar(&o.disableZipped, "disableZippedOutput", false, "write plain FASTQ instead of .fq.gz")
}

func (o *outputOptions) outputs(split bool) (demux.Outputs, error) {
	format, err := demux.ParseFormat(o.format)
	if err != nil {
		return demux.Outputs{}, errkind.Badf("--outputFormat: %v", err)
	}
	return demux.Outputs{Prefix: o.prefix, Split: split, Format: format, Compress: !o.disableZipped}, nil
}

func singleByte(flag, s string) (byte, error) {
	if len(s) != 1 {
		return 0, errkind.Badf("--%s must be a single character, got %q", flag, s)
	}
	return s[0], nil
}

func newFastqBarcodeDetectorCommand(e *env) *cobra.Command {
	var (
		input1, input2 string
		separator      string
		delimiter      string
		inComment      bool
		allowHigh      bool
		opts           decoderOptions
		out            outputOptions
	)
	cmd := &cobra.Command{
		Use:   "FastqBarcodeDetector",
		Short: "Demultiplex FASTQ files by the barcodes in the read names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := required(cmd.Flags(), "input1", "output"); err != nil {
				return err
			}
			if err := opts.resolve(cmd.Flags()); err != nil {
				return err
			}
			outputs, err := out.outputs(opts.Split)
			if err != nil {
				return err
			}
			sep, err := singleByte("barcodeSeparator", separator)
			if err != nil {
				return err
			}
			del, err := singleByte("barcodeDelimiter", delimiter)
			if err != nil {
				return err
			}
			dec, err := opts.decoder()
			if err != nil {
				return err
			}
			e.logger.Printf("%s", &opts)
			demux.CheckDictionary(dec, e.logger)

			src, err := e.source(input1, input2, false, allowHigh)
			if err != nil {
				return err
			}
			defer src.Close()

			extractor := &demux.NameExtractor{Separator: sep, Delimiter: del, FromComment: inComment}
			return runDemux(e, dec, extractor, src, outputs)
		},
	}
	f := cmd.Flags()
	f.StringVar(&input1, "input1", "", "FASTQ `file` (first mate)")
	f.StringVar(&input2, "input2", "", "FASTQ `file` (second mate)")
	f.StringVar(&separator, "barcodeSeparator", "#", "character before the barcodes in the read name")
	f.StringVar(&delimiter, "barcodeDelimiter", "_", "character between barcodes in the read name")
	f.BoolVar(&inComment, "barcodeInComment", false, "read the barcodes from an Illumina comment (1:N:0:ACGT+TTGA)")
	f.BoolVar(&allowHigh, "allowHighQualities", false, "accept Sanger qualities up to Phred 93")
	opts.AddFlags(f)
	out.AddFlags(f)
	return cmd
}

func newTaggedBamToFastqCommand(e *env) *cobra.Command {
	var (
		input  string
		tags   []string
		single bool
		opts   decoderOptions
		out    outputOptions
	)
	cmd := &cobra.Command{
		Use:   "TaggedBamToFastq",
		Short: "Demultiplex a SAM/BAM file by the barcodes in its tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := required(cmd.Flags(), "input", "output"); err != nil {
				return err
			}
			if len(tags) == 0 {
				return errkind.Badf("at least one --tag is required")
			}
			for _, t := range tags {
				if len(t) != 2 {
					return errkind.Badf("--tag %q: SAM tags have two characters", t)
				}
			}
			if err := opts.resolve(cmd.Flags()); err != nil {
				return err
			}
			outputs, err := out.outputs(opts.Split)
			if err != nil {
				return err
			}
			dec, err := opts.decoder()
			if err != nil {
				return err
			}
			if n := dec.Dictionary().NumberOfBarcodes(); n != len(tags) {
				return errkind.Badf("%d --tag values for %d barcodes in %s", len(tags), n, opts.BarcodeFile)
			}
			e.logger.Printf("%s", &opts)
			demux.CheckDictionary(dec, e.logger)

			r, err := e.open(input)
			if err != nil {
				return err
			}
			src := seqio.NewInterleaved(r)
			if single {
				src = seqio.NewSingle(r)
			}
			defer src.Close()
			return runDemux(e, dec, demux.NewTagExtractor(tags...), src, outputs)
		},
	}
	f := cmd.Flags()
	f.StringVar(&input, "input", "", "SAM or BAM `file`")
	f.StringArrayVar(&tags, "tag", nil, "tag holding a barcode, once per barcode")
	f.BoolVar(&single, "single", false, "records are single-end instead of interleaved pairs")
	opts.AddFlags(f)
	out.AddFlags(f)
	return cmd
}

func runDemux(e *env, dec *decode.Decoder, extractor demux.Extractor, src *seqio.Source, outputs demux.Outputs) error {
	dict := dec.Dictionary()
	var header *sam.Header
	if outputs.Format == demux.BAM {
		var err error
		if header, err = seqio.NewHeader(dict.ReadGroups()); err != nil {
			return errkind.Internalf("%v", err)
		}
	}
	out := seqio.NewSplitWriter(e.openOutput(header))
	outputs.Route(out, dict, src.IsPaired())
	if err := out.OpenAll(); err != nil {
		return err
	}

	d := demux.New(dec, extractor, out, e.logger).TagReadGroups(outputs.Format == demux.BAM)
	err := d.Run(e.ctx, src, e.reporter(0, "fragments"))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := d.WriteMetrics(outputs.MetricsFile(), e.commandLine()); err != nil {
		return err
	}

	stats := dec.Stats()
	stats.LogSummary(e.logger)
	total := stats.Totals()
	s := summary(e)
	s.count("Fragments", total.Total)
	s.percent("Assigned", total.Assigned, total.Total)
	s.percent("Unknown", total.Total-total.Assigned, total.Total)
	return nil
}
