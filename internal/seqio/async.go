package seqio

import (
	"io"

	"github.com/shenwei356/bio/seqio/fastx"

	"github.com/Altius/stampipes/programs/readtools/internal/read"
)

// AsyncWriter batches records and writes them from its own goroutine.
// Call Close() when you're done; it reports the first write error.
type AsyncWriter struct {
	w       Writer
	cache   []*read.Read
	records chan []*read.Read
	errors  chan error
}

// NewAsyncWriter wraps w. cacheSize is how many records to batch at a time.
func NewAsyncWriter(w Writer, cacheSize int) *AsyncWriter {
	if cacheSize < 1 {
		cacheSize = 1
	}
	a := &AsyncWriter{
		w:       w,
		cache:   make([]*read.Read, 0, cacheSize),
		records: make(chan []*read.Read, 2),
		errors:  make(chan error, 1),
	}
	go func() {
		var err error
		for batch := range a.records {
			for _, r := range batch {
				if err == nil {
					err = a.w.Write(r)
				}
			}
		}
		a.errors <- err
	}()
	return a
}

// Write queues r. r must not be modified afterwards.
func (a *AsyncWriter) Write(r *read.Read) error {
	a.cache = append(a.cache, r)
	if len(a.cache) == cap(a.cache) {
		a.Flush()
	}
	return nil
}

// Flush hands the current batch to the writer goroutine.
func (a *AsyncWriter) Flush() {
	if len(a.cache) == 0 {
		return
	}
	a.records <- a.cache
	a.cache = make([]*read.Read, 0, cap(a.cache))
}

func (a *AsyncWriter) Close() error {
	a.Flush()
	close(a.records)
	err := <-a.errors
	if cerr := a.w.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadAhead parses FASTQ in a background goroutine, chunkSize records at
// a time with up to bufferSize chunks queued.
type ReadAhead struct {
	fq     *fastx.Reader
	chunks chan fastx.RecordChunk
	buf    []*fastx.Record
	err    error
}

func OpenReadAhead(filename string, bufferSize, chunkSize int) (*ReadAhead, error) {
	fq, err := fastx.NewDefaultReader(filename)
	if err != nil {
		return nil, err
	}
	return &ReadAhead{fq: fq, chunks: fq.ChunkChan(bufferSize, chunkSize)}, nil
}

func (ra *ReadAhead) Read() (*read.Read, error) {
	for len(ra.buf) == 0 {
		if ra.err != nil {
			return nil, ra.err
		}
		chunk, ok := <-ra.chunks
		if !ok {
			ra.err = io.EOF
			continue
		}
		ra.buf = chunk.Data
		if chunk.Err != nil {
			ra.err = chunk.Err
		}
	}
	rec := ra.buf[0]
	ra.buf = ra.buf[1:]
	return fromFastx(rec)
}

func (ra *ReadAhead) Close() error {
	ra.fq.Close()
	return nil
}

// OpenWithReadAhead is Open, except FASTQ input is parsed ahead of the
// consumer.
func OpenWithReadAhead(filename string) (Reader, error) {
	if IsAligned(filename) {
		return Open(filename)
	}
	return OpenReadAhead(filename, 10, 1000)
}
