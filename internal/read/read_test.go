package read

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalShrink(t *testing.T) {
	tests := []struct {
		name       string
		initial    Interval
		start, end int
		want       Interval
	}{
		{"inside", Interval{End: 10}, 2, 8, Interval{Start: 2, End: 8}},
		{"never widens", Interval{Start: 1, End: 9}, -3, 20, Interval{Start: 1, End: 9}},
		{"empty", Interval{End: 10}, 5, 5, Interval{Start: 5, End: 5, Completed: true}},
		{"crossed", Interval{End: 10}, 7, 3, Interval{Start: 7, End: 7, Completed: true}},
		{"past the end", Interval{End: 10}, 12, 20, Interval{Start: 10, End: 10, Completed: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			iv := tc.initial
			iv.Shrink(tc.start, tc.end)
			assert.Equal(t, tc.want, iv)
		})
	}
}

func TestApplyTrim(t *testing.T) {
	r := &Read{Name: []byte("r1"), Seq: []byte("NNACGTNN"), Qual: []byte("!!IIII!!")}
	iv := r.StartTrim()
	require.Equal(t, Interval{Start: 0, End: 8}, *iv)

	iv.Shrink(2, 6)
	r.ApplyTrim()
	assert.Equal(t, "ACGT", string(r.Seq))
	assert.Equal(t, "IIII", string(r.Qual))
	assert.Nil(t, r.Trim)

	// no annotation: nothing happens
	r.ApplyTrim()
	assert.Equal(t, "ACGT", string(r.Seq))
}

func TestCloneIsDeep(t *testing.T) {
	r := &Read{Name: []byte("r1"), Seq: []byte("ACGT"), Qual: []byte("IIII"), Mate: 2}
	r.SetTag("BC", "ACGT")
	r.StartTrim().Shrink(1, 3)

	c := r.Clone()
	c.Seq[0] = 'T'
	c.SetTag("BC", "TTTT")
	c.Trim.Shrink(2, 3)

	assert.Equal(t, "ACGT", string(r.Seq))
	v, _ := r.Tag("BC")
	assert.Equal(t, "ACGT", v)
	assert.Equal(t, 1, r.Trim.Start)
	assert.Equal(t, 2, c.Mate)
}

func TestTagKeysSorted(t *testing.T) {
	r := &Read{}
	r.SetTag("RG", "x")
	r.SetTag("FT", "y")
	r.SetTag("BC", "z")
	assert.Equal(t, []string{"BC", "FT", "RG"}, r.TagKeys())
	r.DeleteTag("FT")
	_, ok := r.Tag("FT")
	assert.False(t, ok)
}

func TestTypedTags(t *testing.T) {
	r := &Read{}
	r.SetTypedTag("XI", "42", []byte{'X', 'I', 'C', 42})
	r.SetTypedTag("XJ", "7", []byte{'X', 'J', 'C', 7})

	c := r.Clone()
	c.Aux["XI"][3] = 0
	assert.Equal(t, byte(42), r.Aux["XI"][3])

	r.SetTag("XI", "forty-two")
	assert.NotContains(t, r.Aux, "XI")
	r.DeleteTag("XJ")
	assert.NotContains(t, r.Aux, "XJ")
	assert.Equal(t, []string{"XI"}, r.TagKeys())
}
