package anim

import (
	"fmt"
	"math"
	"strings"

	"uistyle/cascade"
)

// Timing maps linear progress in [0, 1] to eased progress.
type Timing struct {
	name   string
	x1, y1 float64
	x2, y2 float64
	steps  int  // > 0 for step functions
	jump   bool // steps jump at the start of each interval
}

// Standard easing curves.
var (
	Linear    = Timing{name: "linear", x1: 0, y1: 0, x2: 1, y2: 1}
	Ease      = Timing{name: "ease", x1: 0.25, y1: 0.1, x2: 0.25, y2: 1}
	EaseIn    = Timing{name: "ease-in", x1: 0.42, y1: 0, x2: 1, y2: 1}
	EaseOut   = Timing{name: "ease-out", x1: 0, y1: 0, x2: 0.58, y2: 1}
	EaseInOut = Timing{name: "ease-in-out", x1: 0.42, y1: 0, x2: 0.58, y2: 1}
	StepStart = Timing{name: "step-start", steps: 1, jump: true}
	StepEnd   = Timing{name: "step-end", steps: 1}
)

var namedTimings = map[string]Timing{
	Linear.name:    Linear,
	Ease.name:      Ease,
	EaseIn.name:    EaseIn,
	EaseOut.name:   EaseOut,
	EaseInOut.name: EaseInOut,
	StepStart.name: StepStart,
	StepEnd.name:   StepEnd,
}

// CubicBezier returns curve through (0,0), (x1,y1), (x2,y2), (1,1). X
// coordinates are clamped to [0, 1].
func CubicBezier(x1, y1, x2, y2 float64) Timing {
	return Timing{
		name: fmt.Sprintf("cubic-bezier(%g, %g, %g, %g)", x1, y1, x2, y2),
		x1:   math.Max(0, math.Min(1, x1)), y1: y1,
		x2: math.Max(0, math.Min(1, x2)), y2: y2,
	}
}

// Steps returns a stepping function with n intervals.
func Steps(n int, jumpStart bool) Timing {
	n = max(n, 1)
	pos := "end"
	if jumpStart {
		pos = "start"
	}
	return Timing{name: fmt.Sprintf("steps(%d, %s)", n, pos), steps: n, jump: jumpStart}
}

// ParseTiming converts resolved timing function value.
func ParseTiming(v cascade.Value) (Timing, error) {
	switch v.Kind {
	case cascade.KindKeyword:
		if t, ok := namedTimings[strings.ToLower(v.Str)]; ok {
			return t, nil
		}
	case cascade.KindFunction:
		switch strings.ToLower(v.Str) {
		case "cubic-bezier":
			if len(v.Items) != 4 {
				break
			}
			var p [4]float64
			for i, it := range v.Items {
				if it.Kind != cascade.KindNumber {
					return Timing{}, fmt.Errorf("bad timing function %s", v)
				}
				p[i] = it.Num
			}
			return CubicBezier(p[0], p[1], p[2], p[3]), nil
		case "steps":
			if len(v.Items) == 0 || len(v.Items) > 2 || v.Items[0].Kind != cascade.KindNumber || v.Items[0].Num < 1 {
				break
			}
			start := false
			if len(v.Items) == 2 {
				switch {
				case v.Items[1].IsKeyword("start"), v.Items[1].IsKeyword("jump-start"):
					start = true
				case v.Items[1].IsKeyword("end"), v.Items[1].IsKeyword("jump-end"):
				default:
					return Timing{}, fmt.Errorf("bad timing function %s", v)
				}
			}
			return Steps(int(v.Items[0].Num), start), nil
		}
	}
	return Timing{}, fmt.Errorf("bad timing function %s", v)
}

func (t Timing) String() string { return t.name }

// At returns eased progress for x in [0, 1].
func (t Timing) At(x float64) float64 {
	switch {
	case x <= 0:
		if t.steps > 0 && t.jump && x == 0 {
			return 1 / float64(t.steps)
		}
		return 0
	case x >= 1:
		return 1
	}
	if t.steps > 0 {
		n := float64(t.steps)
		if t.jump {
			return math.Min(1, math.Ceil(x*n)/n)
		}
		return math.Floor(x*n) / n
	}
	if t.x1 == t.y1 && t.x2 == t.y2 {
		return x
	}
	return bezier(t.solve(x), t.y1, t.y2)
}

// bezier evaluates one coordinate of the curve at parameter s.
func bezier(s, p1, p2 float64) float64 {
	u := 1 - s
	return 3*u*u*s*p1 + 3*u*s*s*p2 + s*s*s
}

func bezierSlope(s, p1, p2 float64) float64 {
	u := 1 - s
	return 3*u*u*p1 + 6*u*s*(p2-p1) + 3*s*s*(1-p2)
}

// solve finds curve parameter for x. Newton iterations converge for typical
// curves, bisection covers flat slopes.
func (t Timing) solve(x float64) float64 {
	const eps = 1e-7
	s := x
	for range 8 {
		d := bezier(s, t.x1, t.x2) - x
		if math.Abs(d) < eps {
			return s
		}
		slope := bezierSlope(s, t.x1, t.x2)
		if math.Abs(slope) < 1e-6 {
			break
		}
		s -= d / slope
	}

	lo, hi := 0.0, 1.0
	s = x
	for lo < hi {
		v := bezier(s, t.x1, t.x2)
		if math.Abs(v-x) < eps {
			return s
		}
		if v < x {
			lo = s
		} else {
			hi = s
		}
		if hi-lo < eps {
			break
		}
		s = (lo + hi) / 2
	}
	return s
}
