package seqio

import (
	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
)

// OpenFunc creates the writer behind one output file.
type OpenFunc func(filename string) (Writer, error)

// SplitWriter routes fragments by key to output files. Several keys may
// share a file; each file has exactly one writer.
type SplitWriter struct {
	open    OpenFunc
	routes  map[string][]string
	files   map[string]Writer
	opened  []string
	closed  bool
	written map[string]int64
}

func NewSplitWriter(open OpenFunc) *SplitWriter {
	return &SplitWriter{
		open:    open,
		routes:  make(map[string][]string),
		files:   make(map[string]Writer),
		written: make(map[string]int64),
	}
}

// Route sends fragments with key to filenames: the i-th mate goes to the
// i-th file, or every mate to the single file given.
func (s *SplitWriter) Route(key string, filenames ...string) {
	s.routes[key] = filenames
}

func (s *SplitWriter) writer(filename string) (Writer, error) {
	if w, ok := s.files[filename]; ok {
		return w, nil
	}
	w, err := s.open(filename)
	if err != nil {
		return nil, err
	}
	s.files[filename] = w
	s.opened = append(s.opened, filename)
	return w, nil
}

// OpenAll creates every routed file up front, so empty outputs exist.
func (s *SplitWriter) OpenAll() error {
	for _, names := range s.routes {
		for _, name := range names {
			if _, err := s.writer(name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SplitWriter) Write(key string, mates []*read.Read) error {
	names, ok := s.routes[key]
	if !ok || len(names) == 0 {
		return errkind.Internalf("no output for %q", key)
	}
	for i, r := range mates {
		name := names[min(i, len(names)-1)]
		w, err := s.writer(name)
		if err != nil {
			return err
		}
		if err := w.Write(r); err != nil {
			return err
		}
		s.written[name]++
	}
	return nil
}

// Files lists the files opened so far, in opening order.
func (s *SplitWriter) Files() []string {
	return append([]string(nil), s.opened...)
}

// Written is the number of records written to filename.
func (s *SplitWriter) Written(filename string) int64 {
	return s.written[filename]
}

// Close closes every file and returns the first error.
func (s *SplitWriter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	for _, name := range s.opened {
		if cerr := s.files[name].Close(); err == nil {
			err = cerr
		}
	}
	return err
}
