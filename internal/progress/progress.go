// Package progress reports how many records a command has processed.
package progress

import (
	"io"
	"log"

	pb "github.com/cheggaaa/pb/v3"
)

// LogEvery is how often the logging reporter prints a line.
const LogEvery = 1000000

// Reporter counts processed records.
type Reporter interface {
	Increment()
	Finish()
}

// New returns a progress bar on w when bar is set, otherwise a reporter
// that logs every LogEvery records. total <= 0 means unknown.
func New(bar bool, total int64, w io.Writer, logger *log.Logger, what string) Reporter {
	if bar {
		b := pb.New64(total)
		b.SetTemplate(pb.Full)
		if total <= 0 {
			b.SetTemplate(pb.Simple)
		}
		b.SetWriter(w)
		b.Start()
		return &barReporter{bar: b}
	}
	return &logReporter{logger: logger, what: what}
}

type barReporter struct {
	bar *pb.ProgressBar
}

func (b *barReporter) Increment() { b.bar.Increment() }

func (b *barReporter) Finish() { b.bar.Finish() }

type logReporter struct {
	logger *log.Logger
	what   string
	n      int64
}

func (l *logReporter) Increment() {
	l.n++
	if l.n%LogEvery == 0 {
		l.logger.Printf("processed %d %s", l.n, l.what)
	}
}

func (l *logReporter) Finish() {
	l.logger.Printf("processed %d %s in total", l.n, l.what)
}
