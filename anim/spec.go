package anim

import (
	"math"
	"slices"
	"strings"
	"time"

	"uistyle/cascade"
	"uistyle/css"
)

// Direction is animation-direction.
type Direction uint8

const (
	Normal Direction = iota
	Reverse
	Alternate
	AlternateReverse
)

var directionNames = map[string]Direction{
	"normal":            Normal,
	"reverse":           Reverse,
	"alternate":         Alternate,
	"alternate-reverse": AlternateReverse,
}

// TransitionSpec is one entry of the transition-* property lists.
type TransitionSpec struct {
	Property string // property name or "all"
	Duration time.Duration
	Delay    time.Duration
	Timing   Timing
}

// AnimationSpec is one entry of the animation-* property lists.
type AnimationSpec struct {
	Name       string
	Duration   time.Duration
	Delay      time.Duration
	Timing     Timing
	Iterations float64 // +Inf for infinite
	Direction  Direction
}

func seconds(v cascade.Value) time.Duration {
	if v.Kind != cascade.KindTime {
		return 0
	}
	return time.Duration(math.Round(v.Num * float64(time.Second)))
}

// cycle returns i-th entry of a list property, repeating shorter lists.
func cycle(items []cascade.Value, i int) cascade.Value {
	if len(items) == 0 {
		return cascade.Value{}
	}
	return items[i%len(items)]
}

func timing(v cascade.Value) Timing {
	t, err := ParseTiming(v)
	if err != nil {
		return Ease
	}
	return t
}

// Transitions returns transition entries of a computed style. The property
// list decides the number of entries.
func Transitions(props cascade.Properties) []TransitionSpec {
	names := props.Get("transition-property").List()
	durations := props.Get("transition-duration").List()
	delays := props.Get("transition-delay").List()
	timings := props.Get("transition-timing-function").List()

	var out []TransitionSpec
	for i, n := range names {
		name := strings.ToLower(n.Str)
		if name == "" || name == "none" {
			continue
		}
		out = append(out, TransitionSpec{
			Property: name,
			Duration: seconds(cycle(durations, i)),
			Delay:    seconds(cycle(delays, i)),
			Timing:   timing(cycle(timings, i)),
		})
	}
	return out
}

// transitionFor returns the last entry naming property, its shorthand or
// "all".
func transitionFor(specs []TransitionSpec, property string) (TransitionSpec, bool) {
	for i := len(specs) - 1; i >= 0; i-- {
		p := specs[i].Property
		if p == property || p == "all" || slices.Contains(css.Longhands(p), property) {
			return specs[i], true
		}
	}
	return TransitionSpec{}, false
}

// Animations returns animation entries of a computed style.
func Animations(props cascade.Properties) []AnimationSpec {
	names := props.Get("animation-name").List()
	durations := props.Get("animation-duration").List()
	delays := props.Get("animation-delay").List()
	timings := props.Get("animation-timing-function").List()
	counts := props.Get("animation-iteration-count").List()
	directions := props.Get("animation-direction").List()

	var out []AnimationSpec
	for i, n := range names {
		if n.Str == "" || n.IsKeyword("none") {
			continue
		}
		spec := AnimationSpec{
			Name:       n.Str,
			Duration:   seconds(cycle(durations, i)),
			Delay:      seconds(cycle(delays, i)),
			Timing:     timing(cycle(timings, i)),
			Iterations: 1,
			Direction:  directionNames[cycle(directions, i).Str],
		}
		switch c := cycle(counts, i); {
		case c.IsKeyword("infinite"):
			spec.Iterations = math.Inf(1)
		case c.Kind == cascade.KindNumber && c.Num >= 0:
			spec.Iterations = c.Num
		}
		out = append(out, spec)
	}
	return out
}
