package quality

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
)

type sliceReader struct {
	reads []*read.Read
	i     int
}

func (s *sliceReader) Read() (*read.Read, error) {
	if s.i >= len(s.reads) {
		return nil, io.EOF
	}
	s.i++
	return s.reads[s.i-1], nil
}

func readsWithQuals(quals ...string) *sliceReader {
	s := &sliceReader{}
	for _, q := range quals {
		s.reads = append(s.reads, &read.Read{Name: []byte("r"), Seq: make([]byte, len(q)), Qual: []byte(q)})
	}
	return s
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		quals []string
		max   int64
		want  Format
	}{
		{"sanger low byte", []string{"IIII", "##II"}, 0, Sanger},
		{"illumina high bytes", []string{"hhhh", "ffBB"}, 0, Illumina},
		{"ambiguous defaults to sanger", []string{"BBBB", "JJJ@"}, 0, Sanger},
		{"empty stream", nil, 0, Sanger},
		{"sanger evidence beyond sample is ignored", []string{"hhhh", "####"}, 1, Illumina},
		{"monotone once sanger", []string{"####", "hhhh"}, 0, Sanger},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Detect(readsWithQuals(tc.quals...), tc.max)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectInvalidByte(t *testing.T) {
	_, err := Detect(readsWithQuals("II\x1fI"), 0)
	assert.True(t, errors.Is(err, errkind.ErrInvalidQualityByte))

	_, err = Detect(readsWithQuals("II\x7fI"), 0)
	assert.True(t, errors.Is(err, errkind.ErrInvalidQualityByte))
}

func TestDetectIsDeterministic(t *testing.T) {
	quals := []string{"BBBB", "hhBB", "JJJJ"}
	first, err := Detect(readsWithQuals(quals...), 2)
	require.NoError(t, err)
	second, err := Detect(readsWithQuals(quals...), 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDetectValidatesAfterSanger(t *testing.T) {
	src := readsWithQuals("####", "II\x1fI")
	_, err := Detect(src, 0)
	assert.True(t, errors.Is(err, errkind.ErrInvalidQualityByte))
	assert.Equal(t, 2, src.i)
}

func TestStandardizeIllumina(t *testing.T) {
	r := &read.Read{Name: []byte("r"), Qual: []byte("@Jh~")}
	require.NoError(t, NewStandardizer(Illumina).Standardize(r))
	assert.Equal(t, []byte{'@' - 31, 'J' - 31, 'h' - 31, '~' - 31}, r.Qual)

	bad := &read.Read{Name: []byte("r"), Qual: []byte("hh#h")}
	err := NewStandardizer(Illumina).Standardize(bad)
	assert.True(t, errors.Is(err, errkind.ErrQualityOutOfRange))
}

func TestStandardizeSangerIsIdempotent(t *testing.T) {
	r := &read.Read{Name: []byte("r"), Qual: []byte("!#5?IJ")}
	s := NewStandardizer(Sanger)
	require.NoError(t, s.Standardize(r))
	require.NoError(t, s.Standardize(r))
	assert.Equal(t, "!#5?IJ", string(r.Qual))
}

func TestStandardizeHighQualities(t *testing.T) {
	r := &read.Read{Name: []byte("sim"), Qual: []byte("II~")}
	err := NewStandardizer(Sanger).Standardize(r)
	assert.True(t, errors.Is(err, errkind.ErrQualityOutOfRange))

	assert.NoError(t, NewStandardizer(Sanger).AllowHighQualities(true).Standardize(r))
}

func TestStandardizeSolexa(t *testing.T) {
	r := &read.Read{Name: []byte("r"), Qual: []byte{';', '@', 'h'}}
	require.NoError(t, NewStandardizer(Solexa).Standardize(r))
	// Solexa -5 -> Phred 1, 0 -> 3, 40 -> 40
	assert.Equal(t, []byte{34, 36, 73}, r.Qual)
}

func TestFormatNames(t *testing.T) {
	for _, f := range []Format{Sanger, Illumina, Solexa} {
		got, err := ParseFormat(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	assert.Equal(t, 33, Sanger.Offset())
	assert.Equal(t, 64, Illumina.Offset())
	_, err := ParseFormat("phred99")
	assert.Error(t, err)
}
