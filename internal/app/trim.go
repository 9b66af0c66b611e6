package app

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/metrics"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
	"github.com/Altius/stampipes/programs/readtools/internal/seqio"
	"github.com/Altius/stampipes/programs/readtools/internal/trim"
)

var compressionExts = []string{".gz", ".bgz", ".bz2", ".xz", ".zst"}

// splitExt splits "dir/out.fq.gz" into "dir/out" and ".fq.gz".
func splitExt(name string) (stem, ext string) {
	base, comp := name, ""
	for _, c := range compressionExts {
		if strings.HasSuffix(strings.ToLower(base), c) {
			comp = base[len(base)-len(c):]
			base = base[:len(base)-len(c)]
			break
		}
	}
	e := filepath.Ext(base)
	return base[:len(base)-len(e)], e + comp
}

// insertSuffix puts suffix before the extension of name.
func insertSuffix(name, suffix string) string {
	stem, ext := splitExt(name)
	return stem + suffix + ext
}

// mateFiles names one output per mate when mates are written separately.
func mateFiles(name string, separate bool) []string {
	if !separate {
		return []string{name}
	}
	return []string{insertSuffix(name, "_1"), insertSuffix(name, "_2")}
}

func newTrimReadsCommand(e *env) *cobra.Command {
	var (
		input, input2 string
		interleaved   bool
		output        string
		keepDiscarded bool
		allowHigh     bool
	)
	opts := trim.DefaultOptions()
	trimmers := trim.NewTrimmerDescriptor(opts)
	filters := trim.NewFilterDescriptor(opts)

	cmd := &cobra.Command{
		Use:   "TrimReads",
		Short: "Trim reads and drop those failing the read filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := required(cmd.Flags(), "input", "output"); err != nil {
				return err
			}
			if input2 != "" && interleaved {
				return errkind.Badf("--input2 cannot be combined with --interleaved")
			}
			ts, err := trimmers.Resolve(cmd.Flags(), e.logger)
			if err != nil {
				return err
			}
			fs, err := filters.Resolve(cmd.Flags(), e.logger)
			if err != nil {
				return err
			}

			src, err := e.source(input, input2, interleaved, allowHigh)
			if err != nil {
				return err
			}
			defer src.Close()

			p := trim.NewPipeline(ts, fs, src.IsPaired())
			e.logger.Printf("trimmers: %s", pluginNames(ts))
			e.logger.Printf("read filters: %s", pluginNames(fs))

			out := seqio.NewSplitWriter(e.openOutput(nil))
			out.Route("pass", mateFiles(output, input2 != "")...)
			if keepDiscarded {
				out.Route("discarded", mateFiles(insertSuffix(output, "_discarded"), input2 != "")...)
			}
			if err := out.OpenAll(); err != nil {
				return err
			}

			var passed, discarded int64
			err = copyFragments(e, src, e.reporter(0, "fragments"), func(mates []*read.Read) error {
				if p.TestFragment(mates) {
					passed++
					return out.Write("pass", mates)
				}
				discarded++
				if keepDiscarded {
					return out.Write("discarded", mates)
				}
				return nil
			})
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			f := metrics.New(e.commandLine())
			p.WriteMetrics(f)
			stem, _ := splitExt(output)
			if err := f.WriteFile(stem + ".metrics"); err != nil {
				return err
			}

			s := summary(e)
			s.count("Fragments", passed+discarded)
			s.percent("Passed", passed, passed+discarded)
			s.percent("Discarded", discarded, passed+discarded)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&input, "input", "", "FASTQ, SAM or BAM `file`")
	f.StringVar(&input2, "input2", "", "second mate `file`")
	f.BoolVar(&interleaved, "interleaved", false, "input holds consecutive mates")
	f.StringVar(&output, "output", "", "output `file`; _1 and _2 are added for --input2")
	f.BoolVar(&keepDiscarded, "keepDiscarded", false, "write discarded fragments to <output>_discarded")
	f.BoolVar(&allowHigh, "allowHighQualities", false, "accept Sanger qualities up to Phred 93")
	opts.AddFlags(f)
	trimmers.AddFlags(f)
	filters.AddFlags(f)
	return cmd
}

type named interface {
	Name() string
}

func pluginNames[T named](plugins []T) string {
	if len(plugins) == 0 {
		return "none"
	}
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name()
	}
	return strings.Join(names, ", ")
}
