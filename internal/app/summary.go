package app

import (
	"io"
	"strconv"

	"github.com/fatih/color"
)

// summaryPrinter writes the end-of-run counts to stderr.
type summaryPrinter struct {
	w io.Writer
}

func summary(e *env) summaryPrinter {
	if e.global.quiet {
		return summaryPrinter{w: io.Discard}
	}
	return summaryPrinter{w: e.stderr}
}

func (s summaryPrinter) count(label string, n int64) {
	color.New(color.FgHiGreen).Fprintf(s.w, "%s: %s\n", label, comma(n))
}

func (s summaryPrinter) percent(label string, n, total int64) {
	pct := 0.0
	if total > 0 {
		pct = 100 * float64(n) / float64(total)
	}
	color.New(color.FgHiMagenta).Fprintf(s.w, "%s: %s (%.2f%%)\n", label, comma(n), pct)
}

// comma formats n with thousands separators.
func comma(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
