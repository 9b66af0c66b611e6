package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/progress"
	"github.com/Altius/stampipes/programs/readtools/internal/quality"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
	"github.com/Altius/stampipes/programs/readtools/internal/seqio"
)

// countingReader reports every record it returns.
type countingReader struct {
	seqio.Reader
	rep progress.Reporter
}

func (c *countingReader) Read() (*read.Read, error) {
	r, err := c.Reader.Read()
	if err == nil {
		c.rep.Increment()
	}
	return r, err
}

// source opens one file, two mate files, or one interleaved file, and
// converts their qualities to Sanger. The encoding is detected on the first
// input; standard input is sampled in memory and replayed.
func (e *env) source(input, input2 string, interleaved, allowHigh bool) (*seqio.Source, error) {
	if input2 == seqio.Stdin {
		return nil, errkind.Badf("--input2 cannot read standard input")
	}
	var format quality.Format
	if input != seqio.Stdin {
		var err error
		if format, err = seqio.DetectFile(input, quality.DefaultMaxRecords); err != nil {
			return nil, err
		}
	}
	first, err := e.open(input)
	if err != nil {
		return nil, err
	}
	if input == seqio.Stdin {
		var replay seqio.Reader
		if format, replay, err = seqio.DetectBuffered(first, quality.DefaultMaxRecords); err != nil {
			first.Close()
			return nil, err
		}
		first = replay
	}
	e.logger.Printf("%s: %s qualities", input, format)
	std := quality.NewStandardizer(format).AllowHighQualities(allowHigh)

	switch {
	case input2 != "":
		second, err := e.open(input2)
		if err != nil {
			first.Close()
			return nil, err
		}
		return seqio.NewPaired(first, second).Standardize(std), nil
	case interleaved:
		return seqio.NewInterleaved(first).Standardize(std), nil
	}
	return seqio.NewSingle(first).Standardize(std), nil
}

func newQualityCheckerCommand(e *env) *cobra.Command {
	var (
		input    string
		maxReads int64
	)
	cmd := &cobra.Command{
		Use:   "QualityChecker",
		Short: "Print the quality encoding of a file: Sanger or Illumina",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := required(cmd.Flags(), "input"); err != nil {
				return err
			}
			if maxReads < 0 {
				return errkind.Badf("--maximum-reads must be >= 0, got %d", maxReads)
			}
			r, err := e.open(input)
			if err != nil {
				return err
			}
			defer r.Close()

			rep := e.reporter(maxReads, "records")
			format, err := quality.Detect(&countingReader{Reader: r, rep: rep}, maxReads)
			rep.Finish()
			if err != nil {
				return err
			}
			fmt.Fprintln(e.stdout, format)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "FASTQ, SAM or BAM `file` to check")
	cmd.Flags().Int64Var(&maxReads, "maximum-reads", quality.DefaultMaxRecords, "records sampled, 0 for all")
	return cmd
}

func newStandardizeQualityCommand(e *env) *cobra.Command {
	var (
		input, input2   string
		output, output2 string
		allowHigh       bool
	)
	cmd := &cobra.Command{
		Use:   "StandardizeQuality",
		Short: "Rewrite Illumina encoded qualities as Sanger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := required(cmd.Flags(), "input", "output"); err != nil {
				return err
			}
			if (input2 == "") != (output2 == "") {
				return errkind.Badf("--input2 and --output2 go together")
			}
			src, err := e.source(input, input2, false, allowHigh)
			if err != nil {
				return err
			}
			defer src.Close()

			out := seqio.NewSplitWriter(e.openOutput(nil))
			if output2 != "" {
				out.Route("out", output, output2)
			} else {
				out.Route("out", output)
			}
			if err := out.OpenAll(); err != nil {
				return err
			}
			rep := e.reporter(0, "fragments")
			err = copyFragments(e, src, rep, func(mates []*read.Read) error {
				return out.Write("out", mates)
			})
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			summary(e).count("Records standardized", src.Fragments())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&input, "input", "", "FASTQ, SAM or BAM `file`")
	f.StringVar(&input2, "input2", "", "second mate `file`")
	f.StringVar(&output, "output", "", "output `file`")
	f.StringVar(&output2, "output2", "", "second mate output `file`")
	f.BoolVar(&allowHigh, "allowHighQualities", false, "accept Sanger qualities up to Phred 93")
	return cmd
}

// copyFragments feeds every fragment of src to fn, stopping when the
// command context is done.
func copyFragments(e *env, src *seqio.Source, rep progress.Reporter, fn func([]*read.Read) error) error {
	for n := 0; ; n++ {
		if n%1024 == 0 {
			if err := e.ctx.Err(); err != nil {
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
		if err := fn(mates); err != nil {
			return err
		}
		rep.Increment()
	}
	rep.Finish()
	return nil
}
