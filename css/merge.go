package css

import (
	"slices"
	"strings"
)

// Merge combines stylesheets in the given order into a new one. Rule order
// indices are renumbered so that they are globally monotonic: every rule of
// a later sheet comes after every rule of an earlier one. Later variables
// and keyframes replace earlier ones with the same name. Inputs are not
// modified.
func Merge(sheets ...*Stylesheet) *Stylesheet {
	var names []string
	for _, s := range sheets {
		if s != nil && s.Source != "" {
			names = append(names, s.Source)
		}
	}
	out := newStylesheet(strings.Join(names, ","))

	order := 0
	for _, s := range sheets {
		if s == nil {
			continue
		}
		mediaBase := len(out.Media)
		out.Media = append(out.Media, s.Media...)

		rules := slices.Clone(s.Rules)
		slices.SortStableFunc(rules, func(a, b Rule) int { return a.Order - b.Order })
		for _, r := range rules {
			r.Order = order
			order++
			if r.Media != NoMedia {
				r.Media += mediaBase
			}
			out.Rules = append(out.Rules, r)
		}

		for name, v := range s.Variables {
			out.Variables[name] = v
		}
		for name, tl := range s.Keyframes {
			out.Keyframes[name] = tl
		}
		out.Warnings = append(out.Warnings, s.Warnings...)
		out.Dropped += s.Dropped
	}
	return out
}
