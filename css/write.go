package css

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteTo writes the stylesheet to w as CSS text, implementing io.WriterTo.
// Variables come first, then rules in cascade order grouped by media, then
// keyframes sorted by name.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	if len(s.Variables) > 0 {
		names := make([]string, 0, len(s.Variables))
		for name := range s.Variables {
			names = append(names, name)
		}
		sort.Strings(names)
		cw.printf(":root {\n")
		for _, name := range names {
			cw.printf("  %s: %s;\n", name, s.Variables[name])
		}
		cw.printf("}\n")
	}

	rules := make([]*Rule, len(s.Rules))
	for i := range s.Rules {
		rules[i] = &s.Rules[i]
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Order < rules[j].Order })

	for i := 0; i < len(rules); {
		media := rules[i].Media
		j := i
		for j < len(rules) && rules[j].Media == media {
			j++
		}
		if media == NoMedia {
			for _, r := range rules[i:j] {
				writeRule(cw, r, "")
			}
		} else {
			cw.printf("@media %s {\n", s.Media[media].Raw)
			for _, r := range rules[i:j] {
				writeRule(cw, r, "  ")
			}
			cw.printf("}\n")
		}
		i = j
	}

	names := make([]string, 0, len(s.Keyframes))
	for name := range s.Keyframes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cw.printf("@keyframes %s {\n", name)
		for _, f := range s.Keyframes[name].Frames {
			cw.printf("  %s%% {\n", formatFloat(f.Offset*100))
			for _, d := range f.Declarations {
				cw.printf("    %s;\n", d)
			}
			cw.printf("  }\n")
		}
		cw.printf("}\n")
	}
	return cw.n, cw.err
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func writeRule(cw *countingWriter, r *Rule, indent string) {
	cw.printf("%s%s {\n", indent, r.Selector.Raw)
	var last string
	for _, d := range r.Declarations {
		// unexpanded shorthand is written once
		if part, ok := d.Value.(ShorthandPart); ok {
			if part.Shorthand == last {
				continue
			}
			last = part.Shorthand
			d = Declaration{Property: part.Shorthand, Value: part.Value, Important: d.Important}
		} else {
			last = ""
		}
		cw.printf("%s  %s;\n", indent, d)
	}
	cw.printf("%s}\n", indent)
}

// countingWriter remembers the first error, subsequent writes are no-ops.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) printf(format string, args ...any) {
	if cw.err != nil {
		return
	}
	n, err := fmt.Fprintf(cw.w, format, args...)
	cw.n += int64(n)
	cw.err = err
}
