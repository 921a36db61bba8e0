package anim

import (
	"uistyle/cascade"
	"uistyle/css"
)

// Interpolable reports whether values can be blended continuously.
func Interpolable(from, to cascade.Value) bool {
	if from.Kind != to.Kind {
		return false
	}
	switch {
	case from.Kind.IsNumeric(), from.Kind == cascade.KindColor:
		return true
	case from.Kind == cascade.KindList:
		if from.Comma != to.Comma || len(from.Items) != len(to.Items) {
			return false
		}
	case from.Kind == cascade.KindFunction:
		if from.Str != to.Str || len(from.Items) != len(to.Items) {
			return false
		}
	default:
		return false
	}
	for i := range from.Items {
		if !Interpolable(from.Items[i], to.Items[i]) && !from.Items[i].Equal(to.Items[i]) {
			return false
		}
	}
	return true
}

// Interpolate blends values at progress p. Numbers and colors blend
// linearly, lists and functions element-wise, anything else flips from one
// value to the other at half progress. Progress outside [0, 1] returns the
// end points exactly.
func Interpolate(from, to cascade.Value, p float64) cascade.Value {
	switch {
	case p <= 0:
		return from
	case p >= 1:
		return to
	}
	if !Interpolable(from, to) {
		if p < 0.5 {
			return from
		}
		return to
	}

	switch from.Kind {
	case cascade.KindColor:
		c := from.Color.Colorful().BlendRgb(to.Color.Colorful(), p)
		return cascade.RGBA(css.Color{R: c.R, G: c.G, B: c.B, A: lerp(from.Color.A, to.Color.A, p)})
	case cascade.KindList, cascade.KindFunction:
		out := from
		out.Items = make([]cascade.Value, len(from.Items))
		for i := range from.Items {
			out.Items[i] = Interpolate(from.Items[i], to.Items[i], p)
		}
		return out
	}
	out := from
	out.Num = lerp(from.Num, to.Num, p)
	return out
}

func lerp(a, b, p float64) float64 {
	return a + (b-a)*p
}
