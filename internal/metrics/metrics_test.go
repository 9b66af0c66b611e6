package metrics

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
)

func TestWrite(t *testing.T) {
	f := New("readtools TrimReads --input in.fq", "started 2024-01-01")
	s := NewSection("TRIMMER", "NAME", "TOTAL", "FRACTION")
	s.AddRow("MottQualityTrimmer", 10, 0.5)
	f.AddSection(s)

	before := NewHistogram("length", "before")
	after := NewHistogram("length", "after")
	before.Add(100, 3)
	after.Increment(80)
	after.Increment(100)
	f.AddHistogram(before, after)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	want := "# readtools TrimReads --input in.fq\n" +
		"# started 2024-01-01\n" +
		"\n## METRICS\tTRIMMER\n" +
		"NAME\tTOTAL\tFRACTION\n" +
		"MottQualityTrimmer\t10\t0.5000\n" +
		"\n## HISTOGRAM\tlength\n" +
		"length\tbefore\tafter\n" +
		"80\t0\t1\n" +
		"100\t3\t1\n"
	assert.Equal(t, want, buf.String())
}

func TestHistogram(t *testing.T) {
	h := NewHistogram("mismatches", "position_1")
	h.Increment(2)
	h.Increment(0)
	h.Add(2, 4)
	assert.Equal(t, []int{0, 2}, h.Bins())
	assert.Equal(t, int64(5), h.Count(2))
	assert.Equal(t, int64(6), h.Total())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.metrics")
	f := New("header")
	require.NoError(t, f.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# header\n", string(data))

	notDir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(notDir, nil, 0o644))
	err = f.WriteFile(filepath.Join(notDir, "out.metrics"))
	assert.True(t, errors.Is(err, errkind.ErrCouldNotCreateOutput))
}

func TestWriteFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "out.metrics")
	require.NoError(t, New("header").WriteFile(path))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
