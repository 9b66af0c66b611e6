package seqio

import (
	"fmt"
	"io"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/quality"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
)

// Layout is how mates are laid out in the input.
type Layout int

const (
	Single Layout = iota
	Paired
	Interleaved
)

func (l Layout) String() string {
	switch l {
	case Paired:
		return "paired"
	case Interleaved:
		return "interleaved"
	default:
		return "single"
	}
}

// Source yields fragments: one read for single input, two mates otherwise.
type Source struct {
	layout Layout
	first  Reader
	second Reader
	std    *quality.Standardizer
	count  int64
}

func NewSingle(r Reader) *Source {
	return &Source{layout: Single, first: r}
}

// NewPaired reads mates in lock step from two readers.
func NewPaired(r1, r2 Reader) *Source {
	return &Source{layout: Paired, first: r1, second: r2}
}

// NewInterleaved reads consecutive records of r as mates.
func NewInterleaved(r Reader) *Source {
	return &Source{layout: Interleaved, first: r}
}

// Standardize converts every record with std as it is read.
func (s *Source) Standardize(std *quality.Standardizer) *Source {
	s.std = std
	return s
}

func (s *Source) Layout() Layout {
	return s.layout
}

// IsPaired reports whether fragments have two mates.
func (s *Source) IsPaired() bool {
	return s.layout != Single
}

// Fragments is the number of fragments returned so far.
func (s *Source) Fragments() int64 {
	return s.count
}

// Next returns the next fragment or io.EOF. Inputs that run out of mates
// are ErrTruncatedInput.
func (s *Source) Next() ([]*read.Read, error) {
	var mates []*read.Read
	switch s.layout {
	case Single:
		r, err := s.first.Read()
		if err != nil {
			return nil, err
		}
		mates = []*read.Read{r}
	case Paired:
		r1, err1 := s.first.Read()
		r2, err2 := s.second.Read()
		switch {
		case err1 == io.EOF && err2 == io.EOF:
			return nil, io.EOF
		case err1 != nil && err1 != io.EOF:
			return nil, err1
		case err2 != nil && err2 != io.EOF:
			return nil, err2
		case err1 == io.EOF || err2 == io.EOF:
			return nil, fmt.Errorf("%w: paired inputs have a different number of records (after %d pairs)",
				errkind.ErrTruncatedInput, s.count)
		}
		mates = []*read.Read{r1, r2}
	case Interleaved:
		r1, err := s.first.Read()
		if err != nil {
			return nil, err
		}
		r2, err := s.first.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: interleaved input has an odd number of records (last %s)",
				errkind.ErrTruncatedInput, r1.Name)
		}
		if err != nil {
			return nil, err
		}
		mates = []*read.Read{r1, r2}
	}

	if len(mates) == 2 {
		mates[0].Mate, mates[1].Mate = 1, 2
	}
	if s.std != nil {
		for _, r := range mates {
			if err := s.std.Standardize(r); err != nil {
				return nil, err
			}
		}
	}
	s.count++
	return mates, nil
}

// Close closes every reader.
func (s *Source) Close() error {
	err := s.first.Close()
	if s.second != nil {
		if err2 := s.second.Close(); err == nil {
			err = err2
		}
	}
	return err
}
