// Package debug has helpers for human readable dumps.
package debug

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Fields writes name/value pairs one per line in natural order of names with
// values aligned.
func (tw TreeWriter) Fields(depth int, fields map[string]string) {
	names := slices.Collect(maps.Keys(fields))
	sort.Sort(natural.StringSlice(names))
	width := 0
	for _, n := range names {
		width = max(width, len(n))
	}
	for _, n := range names {
		tw.indent(depth)
		fmt.Fprintf(tw.w, "%-*s %s\n", width+1, n+":", fields[n])
	}
}
