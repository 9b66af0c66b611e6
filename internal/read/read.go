// Package read is the record abstraction shared by every readtools stage:
// a name, the bases, ASCII qualities, a tag map and an optional trimming
// annotation.
package read

import (
	"sort"
)

// Interval is the trimming annotation: the half-open range [Start, End) of
// the original sequence that survives. Completed marks a read trimmed away.
type Interval struct {
	Start     int
	End       int
	Completed bool
}

// Len is the number of surviving bases.
func (iv *Interval) Len() int {
	return iv.End - iv.Start
}

// Shrink tightens the interval to [start, end) intersected with the current
// one. It never widens it. An empty result marks the read as completely
// trimmed.
func (iv *Interval) Shrink(start, end int) {
	if start > iv.Start {
		iv.Start = min(start, iv.End)
	}
	if end < iv.End {
		iv.End = end
	}
	if iv.Start >= iv.End {
		iv.End = iv.Start
		iv.Completed = true
	}
}

// Read is a single sequencing record. Qual holds ASCII-encoded qualities
// (Sanger after standardization). Mate is 0 for unpaired reads, otherwise 1
// or 2.
type Read struct {
	Name    []byte
	Comment []byte
	Seq     []byte
	Qual    []byte
	Mate    int
	Tags    map[string]string
	// Aux keeps the encoded SAM aux field of tags that are not plain
	// strings, so their type survives a SAM to SAM copy. SetTag and
	// DeleteTag drop the entry.
	Aux  map[string][]byte
	Trim *Interval
}

// Len returns the number of bases.
func (r *Read) Len() int {
	return len(r.Seq)
}

// Clone returns a deep copy of r.
func (r *Read) Clone() *Read {
	c := &Read{
		Name:    append([]byte(nil), r.Name...),
		Comment: append([]byte(nil), r.Comment...),
		Seq:     append([]byte(nil), r.Seq...),
		Qual:    append([]byte(nil), r.Qual...),
		Mate:    r.Mate,
	}
	if r.Tags != nil {
		c.Tags = make(map[string]string, len(r.Tags))
		for k, v := range r.Tags {
			c.Tags[k] = v
		}
	}
	if r.Aux != nil {
		c.Aux = make(map[string][]byte, len(r.Aux))
		for k, v := range r.Aux {
			c.Aux[k] = append([]byte(nil), v...)
		}
	}
	if r.Trim != nil {
		iv := *r.Trim
		c.Trim = &iv
	}
	return c
}

func (r *Read) SetTag(key, value string) {
	if r.Tags == nil {
		r.Tags = make(map[string]string)
	}
	r.Tags[key] = value
	delete(r.Aux, key)
}

// SetTypedTag is SetTag for a tag that also has an encoded aux field.
func (r *Read) SetTypedTag(key, value string, aux []byte) {
	r.SetTag(key, value)
	if r.Aux == nil {
		r.Aux = make(map[string][]byte)
	}
	r.Aux[key] = aux
}

func (r *Read) Tag(key string) (string, bool) {
	v, ok := r.Tags[key]
	return v, ok
}

func (r *Read) DeleteTag(key string) {
	delete(r.Tags, key)
	delete(r.Aux, key)
}

// TagKeys returns the tag names in sorted order.
func (r *Read) TagKeys() []string {
	keys := make([]string, 0, len(r.Tags))
	for k := range r.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StartTrim installs a fresh annotation covering the whole read, replacing
// any previous one, and returns it.
func (r *Read) StartTrim() *Interval {
	r.Trim = &Interval{Start: 0, End: len(r.Seq), Completed: len(r.Seq) == 0}
	return r.Trim
}

// ApplyTrim physically cuts the sequence and qualities to the annotated
// interval and clears the annotation. A read without annotation is left
// untouched.
func (r *Read) ApplyTrim() {
	if r.Trim == nil {
		return
	}
	iv := r.Trim
	r.Seq = r.Seq[iv.Start:iv.End]
	if len(r.Qual) >= iv.End {
		r.Qual = r.Qual[iv.Start:iv.End]
	}
	r.Trim = nil
}

// ClearTrim drops the annotation without cutting.
func (r *Read) ClearTrim() {
	r.Trim = nil
}
