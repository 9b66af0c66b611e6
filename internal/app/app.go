// Package app is the readtools command tree.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/biogo/hts/sam"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/progress"
	"github.com/Altius/stampipes/programs/readtools/internal/seqio"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	quiet      bool
	progress   bool
	readAhead  bool
	cpuprofile string
	memprofile string
}

// env is what a running subcommand sees of the process.
type env struct {
	ctx    context.Context
	stdout io.Writer
	stderr io.Writer
	logger *log.Logger
	global globalOptions
	argv   []string

	stopProfile func() error
}

var red = color.New(color.FgRed).SprintFunc()

// Run executes argv (without the program name) and returns the exit code.
func Run(ctx context.Context, argv []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(stderr, red(fmt.Sprintf("readtools: internal error: %v", r)))
			code = errkind.ExitInternal
		}
	}()

	e := &env{ctx: ctx, stdout: stdout, stderr: stderr, argv: argv}
	root := newRootCommand(e)
	root.SetArgs(argv)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if perr := e.finishProfiles(); err == nil {
		err = perr
	}
	if err == nil {
		return errkind.ExitOK
	}
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, red("readtools: interrupted"))
		return errkind.ExitInterrupt
	}
	if e.logger == nil && errkind.ExitCode(err) == errkind.ExitIO {
		// cobra rejected the command line before any command ran
		err = errkind.Badf("%v", err)
	}
	fmt.Fprintln(stderr, red("readtools: "+err.Error()))
	return errkind.ExitCode(err)
}

func newRootCommand(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "readtools",
		Short:         "Quality detection, trimming and barcode demultiplexing of sequencing reads",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			out := e.stderr
			if e.global.quiet {
				out = io.Discard
			}
			e.logger = log.New(out, "", log.LstdFlags)
			var err error
			e.stopProfile, err = startProfile(e.global.cpuprofile)
			return err
		},
	}
	pf := root.PersistentFlags()
	pf.BoolVar(&e.global.quiet, "quiet", false, "only print errors")
	pf.BoolVar(&e.global.progress, "progress", false, "show a progress bar instead of periodic log lines")
	pf.BoolVar(&e.global.readAhead, "readAhead", false, "parse FASTQ input and write output on background goroutines")
	pf.StringVar(&e.global.cpuprofile, "cpuprofile", "", "write cpu profile to `file`")
	pf.StringVar(&e.global.memprofile, "memprofile", "", "write memory profile to `file`")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errkind.Badf("%v", err)
	})
	root.AddCommand(
		newQualityCheckerCommand(e),
		newStandardizeQualityCommand(e),
		newTrimReadsCommand(e),
		newFastqBarcodeDetectorCommand(e),
		newTaggedBamToFastqCommand(e),
	)
	return root
}

// finishProfiles stops the CPU profile and writes the memory profile of a
// command that started them.
func (e *env) finishProfiles() error {
	if e.logger == nil {
		return nil
	}
	if e.stopProfile != nil {
		if err := e.stopProfile(); err != nil {
			return err
		}
	}
	return writeMemProfile(e.global.memprofile)
}

func startProfile(filename string) (func() error, error) {
	if filename == "" {
		return nil, nil
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("could not start CPU profile: %w", err)
	}
	return func() error {
		pprof.StopCPUProfile()
		return f.Close()
	}, nil
}

func writeMemProfile(filename string) error {
	if filename == "" {
		return nil
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}
	return nil
}

// required fails with ErrBadConfiguration when a flag was left empty.
func required(fs *pflag.FlagSet, names ...string) error {
	for _, name := range names {
		if f := fs.Lookup(name); f != nil && f.Value.String() == "" {
			return errkind.Badf("--%s is required", name)
		}
	}
	return nil
}

// commandLine is the metrics header line of a run.
func (e *env) commandLine() string {
	return "readtools " + strings.Join(e.argv, " ")
}

func (e *env) open(filename string) (seqio.Reader, error) {
	if e.global.readAhead {
		return seqio.OpenWithReadAhead(filename)
	}
	return seqio.Open(filename)
}

// openOutput returns the writer factory for output files.
func (e *env) openOutput(header *sam.Header) seqio.OpenFunc {
	return func(filename string) (seqio.Writer, error) {
		w, err := seqio.Create(filename, header)
		if err != nil {
			return nil, err
		}
		if e.global.readAhead {
			return seqio.NewAsyncWriter(w, 1000), nil
		}
		return w, nil
	}
}

func (e *env) reporter(total int64, what string) progress.Reporter {
	return progress.New(e.global.progress, total, e.stderr, e.logger, what)
}
