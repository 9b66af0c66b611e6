package app

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
	"github.com/Altius/stampipes/programs/readtools/internal/read"
	"github.com/Altius/stampipes/programs/readtools/internal/seqio"
)

func run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = Run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestQualityChecker(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"sanger", "@r1\nACGT\n+\n#I5!\n", "Sanger\n"},
		{"illumina", "@r1\nACGT\n+\nhhJB\n", "Illumina\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := write(t, dir, tc.name+".fq", tc.content)
			code, stdout, _ := run(t, "QualityChecker", "--quiet", "--input", in)
			assert.Equal(t, errkind.ExitOK, code)
			assert.Equal(t, tc.want, stdout)
		})
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing input", []string{"QualityChecker"}},
		{"unknown flag", []string{"QualityChecker", "--bogus"}},
		{"unknown command", []string{"Bogus"}},
		{"positional argument", []string{"QualityChecker", "--input", "x.fq", "extra"}},
		{"both disable flags", []string{"TrimReads", "--input", "x.fq", "--output", "y.fq", "--disableTrimmer", "MottQualityTrimmer", "--disableAllDefaultTrimmers"}},
		{"cut without bases", []string{"TrimReads", "--input", "x.fq", "--output", "y.fq", "--trimmer", "CutReadTrimmer"}},
		{"param of disabled filter", []string{"TrimReads", "--input", "x.fq", "--output", "y.fq", "--ambigFilterFrac", "0.1"}},
		{"bad output format", []string{"TaggedBamToFastq", "--input", "x.bam", "--output", "o", "--tag", "BC", "--barcodeFile", "b", "--outputFormat", "cram"}},
		{"negative maximumN", []string{"FastqBarcodeDetector", "--input1", "x.fq", "--output", "o", "--barcodeFile", "b", "--maximumN", "-2"}},
		{"negative maximum-reads", []string{"QualityChecker", "--input", "x.fq", "--maximum-reads", "-1"}},
		{"missing barcode file", []string{"TaggedBamToFastq", "--input", "x.bam", "--output", "o", "--tag", "BC", "--barcodeFile", "no-such-barcodes.txt"}},
		{"second mate on stdin", []string{"StandardizeQuality", "--input", "x.fq", "--input2", "-", "--output", "o1", "--output2", "o2"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _, stderr := run(t, append(tc.args, "--quiet")...)
			assert.Equal(t, errkind.ExitUser, code, stderr)
			assert.Contains(t, stderr, "readtools: ")
		})
	}
}

func TestMissingInputFile(t *testing.T) {
	code, _, _ := run(t, "QualityChecker", "--quiet", "--input", filepath.Join(t.TempDir(), "none.fq"))
	assert.Equal(t, errkind.ExitIO, code)
}

func TestTrimReads(t *testing.T) {
	dir := t.TempDir()
	in := write(t, dir, "in.fq", "@r1\nACGTACGTNN\n+\nIIIIIIIIII\n@r2\nACG\n+\nIII\n")
	out := filepath.Join(dir, "out.fq")

	code, _, stderr := run(t, "TrimReads", "--input", in, "--output", out, "--keepDiscarded", "--minReadLength", "5")
	require.Equal(t, errkind.ExitOK, code, stderr)
	assert.Equal(t, "@r1\nACGTACGT\n+\nIIIIIIII\n", readFile(t, out))
	assert.Equal(t, "@r2 FT:Z:ReadLengthReadFilter\nACG\n+\nIII\n", readFile(t, filepath.Join(dir, "out_discarded.fq")))
	assert.Contains(t, stderr, "Passed: 1 (50.00%)")

	m := readFile(t, filepath.Join(dir, "out.metrics"))
	assert.True(t, strings.HasPrefix(m, "# readtools TrimReads"))
	assert.Contains(t, m, "## METRICS\tTRIMMER")
	assert.Contains(t, m, "TrailingNtrimmer\t2\t1\t0")
}

func TestTrimReadsPaired(t *testing.T) {
	dir := t.TempDir()
	in1 := write(t, dir, "in_1.fq", "@p1/1\nACGTACGT\n+\nIIIIIIII\n@p2/1\nACGTACGT\n+\nIIIIIIII\n")
	in2 := write(t, dir, "in_2.fq", "@p1/2\nTTTTTTTT\n+\nIIIIIIII\n@p2/2\nTT\n+\nII\n")
	out := filepath.Join(dir, "out.fq.gz")

	code, _, stderr := run(t, "TrimReads", "--quiet", "--input", in1, "--input2", in2, "--output", out, "--minReadLength", "5")
	require.Equal(t, errkind.ExitOK, code, stderr)

	first := readAllFile(t, filepath.Join(dir, "out_1.fq.gz"))
	second := readAllFile(t, filepath.Join(dir, "out_2.fq.gz"))
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "p1/2", string(second[0].Name))
	assert.FileExists(t, filepath.Join(dir, "out.metrics"))
	assert.NoFileExists(t, filepath.Join(dir, "out_discarded_1.fq.gz"))
}

func readAllFile(t *testing.T, path string) []*read.Read {
	t.Helper()
	r, err := seqio.Open(path)
	require.NoError(t, err)
	defer r.Close()
	var out []*read.Read
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

const dictionary = "A\tlibA\tACGT\nB\tlibB\tTTTT\n"

const namedReads = "@r1#ACGT\nAAAA\n+\nIIII\n@r2#TTTA\nCCCC\n+\nIIII\n@r3#GGGG\nGGGG\n+\nIIII\n"

func TestFastqBarcodeDetector(t *testing.T) {
	dir := t.TempDir()
	bc := write(t, dir, "barcodes.txt", dictionary)
	in := write(t, dir, "in.fq", namedReads)
	prefix := filepath.Join(dir, "out")

	code, _, stderr := run(t, "FastqBarcodeDetector", "--input1", in, "--output", prefix, "--barcodeFile", bc,
		"--maximumMismatches", "1", "--split", "--disableZippedOutput")
	require.Equal(t, errkind.ExitOK, code, stderr)

	assert.Equal(t, "@r1#ACGT\nAAAA\n+\nIIII\n", readFile(t, prefix+"_A.fq"))
	assert.Equal(t, "@r2#TTTT\nCCCC\n+\nIIII\n", readFile(t, prefix+"_B.fq"))
	assert.Equal(t, "@r3#GGGG\nGGGG\n+\nIIII\n", readFile(t, prefix+"_discarded.fq"))
	assert.Contains(t, readFile(t, prefix+".metrics"), "## METRICS\tBARCODE_DETECTOR")
	assert.Contains(t, stderr, "Assigned: 2 (66.67%)")
}

func TestFastqBarcodeDetectorConfigFile(t *testing.T) {
	dir := t.TempDir()
	bc := write(t, dir, "barcodes.txt", dictionary)
	in := write(t, dir, "in.fq", namedReads)
	cfg := write(t, dir, "config.json", `{"barcodeFile": "`+bc+`", "maximumMismatches": [1], "split": true}`)

	prefix := filepath.Join(dir, "file")
	code, _, stderr := run(t, "FastqBarcodeDetector", "--quiet", "--input1", in, "--output", prefix,
		"--configFile", cfg, "--disableZippedOutput")
	require.Equal(t, errkind.ExitOK, code, stderr)
	assert.Contains(t, readFile(t, prefix+"_B.fq"), "@r2#TTTT")

	prefix = filepath.Join(dir, "flag")
	code, _, stderr = run(t, "FastqBarcodeDetector", "--quiet", "--input1", in, "--output", prefix,
		"--configFile", cfg, "--maximumMismatches", "0", "--disableZippedOutput")
	require.Equal(t, errkind.ExitOK, code, stderr)
	assert.Equal(t, "", readFile(t, prefix+"_B.fq"))
	assert.Contains(t, readFile(t, prefix+"_discarded.fq"), "@r2#TTTA")
}

func TestFastqBarcodeDetectorShortBarcode(t *testing.T) {
	dir := t.TempDir()
	bc := write(t, dir, "barcodes.txt", dictionary)
	in := write(t, dir, "in.fq", "@r1#AC\nAAAA\n+\nIIII\n")
	code, _, stderr := run(t, "FastqBarcodeDetector", "--quiet", "--input1", in, "--output", filepath.Join(dir, "o"), "--barcodeFile", bc)
	assert.Equal(t, errkind.ExitUser, code)
	assert.Contains(t, stderr, "barcode too short")
}

func writeTaggedSam(t *testing.T, path string) {
	t.Helper()
	w, err := seqio.Create(path, nil)
	require.NoError(t, err)
	for _, p := range []struct{ name, bc string }{{"p1", "ACGA"}, {"p2", "GGCC"}} {
		for mate := 1; mate <= 2; mate++ {
			r := &read.Read{Name: []byte(p.name), Seq: []byte("ACGT"), Qual: []byte("IIII"), Mate: mate}
			r.SetTag("BC", p.bc)
			require.NoError(t, w.Write(r))
		}
	}
	require.NoError(t, w.Close())
}

func TestTaggedBamToFastq(t *testing.T) {
	dir := t.TempDir()
	bc := write(t, dir, "barcodes.txt", dictionary)
	in := filepath.Join(dir, "in.sam")
	writeTaggedSam(t, in)
	prefix := filepath.Join(dir, "out")

	code, _, stderr := run(t, "TaggedBamToFastq", "--quiet", "--input", in, "--tag", "BC", "--output", prefix,
		"--barcodeFile", bc, "--maximumMismatches", "1", "--disableZippedOutput")
	require.Equal(t, errkind.ExitOK, code, stderr)
	assert.Equal(t, "@p1#ACGT\nACGT\n+\nIIII\n", readFile(t, prefix+"_1.fq"))
	assert.Equal(t, "@p1#ACGT\nACGT\n+\nIIII\n", readFile(t, prefix+"_2.fq"))
	assert.Equal(t, "@p2#GGCC\nACGT\n+\nIIII\n", readFile(t, prefix+"_discarded_1.fq"))
}

func TestTaggedBamToFastqBamOutput(t *testing.T) {
	dir := t.TempDir()
	bc := write(t, dir, "barcodes.txt", dictionary)
	in := filepath.Join(dir, "in.bam")
	writeTaggedSam(t, in)
	prefix := filepath.Join(dir, "out")

	code, _, stderr := run(t, "TaggedBamToFastq", "--quiet", "--input", in, "--tag", "BC", "--output", prefix,
		"--barcodeFile", bc, "--maximumMismatches", "1", "--outputFormat", "bam", "--runName", "run")
	require.Equal(t, errkind.ExitOK, code, stderr)

	got := readAllFile(t, prefix+".bam")
	require.Len(t, got, 2)
	rg, _ := got[0].Tag("RG")
	assert.Equal(t, "run_A", rg)
	assert.Equal(t, 2, got[1].Mate)

	code, _, _ = run(t, "TaggedBamToFastq", "--quiet", "--input", in, "--tag", "BC", "--tag", "B2", "--output", prefix,
		"--barcodeFile", bc)
	assert.Equal(t, errkind.ExitUser, code)
}

func TestStandardizeQuality(t *testing.T) {
	dir := t.TempDir()
	in := write(t, dir, "in.fq", "@r1\nACGT\n+\nhhhJ\n")
	out := filepath.Join(dir, "out.fq")
	code, _, stderr := run(t, "StandardizeQuality", "--quiet", "--input", in, "--output", out)
	require.Equal(t, errkind.ExitOK, code, stderr)
	assert.Equal(t, "@r1\nACGT\n+\nIII+\n", readFile(t, out))
}

// withStdin points os.Stdin at a file holding content for the rest of
// the test.
func withStdin(t *testing.T, content string) {
	t.Helper()
	f, err := os.Open(write(t, t.TempDir(), "stdin.fq", content))
	require.NoError(t, err)
	saved := os.Stdin
	os.Stdin = f
	t.Cleanup(func() {
		os.Stdin = saved
		f.Close()
	})
}

func TestStandardizeQualityStdin(t *testing.T) {
	withStdin(t, "@r1\nACGT\n+\nhhhJ\n@r2\nAC\n+\nhh\n")
	out := filepath.Join(t.TempDir(), "out.fq")
	code, _, stderr := run(t, "StandardizeQuality", "--quiet", "--input", "-", "--output", out)
	require.Equal(t, errkind.ExitOK, code, stderr)
	assert.Equal(t, "@r1\nACGT\n+\nIII+\n@r2\nAC\n+\nII\n", readFile(t, out))
}

func TestTrimReadsStdin(t *testing.T) {
	withStdin(t, "@r1\nACGTACGTNN\n+\nIIIIIIIIII\n")
	out := filepath.Join(t.TempDir(), "out.fq")
	code, _, stderr := run(t, "TrimReads", "--quiet", "--input", "-", "--output", out, "--minReadLength", "5")
	require.Equal(t, errkind.ExitOK, code, stderr)
	assert.Equal(t, "@r1\nACGTACGT\n+\nIIIIIIII\n", readFile(t, out))
}

func TestFastaInput(t *testing.T) {
	dir := t.TempDir()
	in := write(t, dir, "in.fa", ">r1\nACGTACGT\n")
	code, _, stderr := run(t, "TrimReads", "--quiet", "--input", in, "--output", filepath.Join(dir, "out.fq"))
	assert.Equal(t, errkind.ExitUser, code)
	assert.Contains(t, stderr, "FASTQ input is required")
}

func TestSplitExt(t *testing.T) {
	tests := []struct {
		name, stem, ext string
	}{
		{"out.fq", "out", ".fq"},
		{"dir/out.fq.gz", "dir/out", ".fq.gz"},
		{"out.bam", "out", ".bam"},
		{"out", "out", ""},
		{"a.b/out.FASTQ.GZ", "a.b/out", ".FASTQ.GZ"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stem, ext := splitExt(tc.name)
			assert.Equal(t, tc.stem, stem)
			assert.Equal(t, tc.ext, ext)
		})
	}
	assert.Equal(t, "out_discarded.fq.gz", insertSuffix("out.fq.gz", "_discarded"))
	assert.Equal(t, []string{"o_1.fq", "o_2.fq"}, mateFiles("o.fq", true))
}

func TestComma(t *testing.T) {
	for n, want := range map[int64]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -4500: "-4,500"} {
		assert.Equal(t, want, comma(n))
	}
}
