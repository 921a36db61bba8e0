package css

import (
	"fmt"
	"slices"
	"strings"
)

type shorthand struct {
	longhands []string
	expand    func(name string, e Expr) ([]Expr, error)
	// longhands missing from the value are left alone instead of reset
	partial bool
}

var (
	edges   = []string{"top", "right", "bottom", "left"}
	corners = []string{"top-left", "top-right", "bottom-right", "bottom-left"}
)

func sides(format string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf(format, n)
	}
	return out
}

var shorthands = map[string]shorthand{
	"padding":       {longhands: sides("padding-%s", edges), expand: expandEdges},
	"margin":        {longhands: sides("margin-%s", edges), expand: expandEdges},
	"border-width":  {longhands: sides("border-%s-width", edges), expand: expandEdges},
	"border-radius": {longhands: sides("border-%s-radius", corners), expand: expandCorners},
	"border": {
		longhands: append(sides("border-%s-width", edges), "border-style", "border-color"),
		expand:    expandBorder,
	},
	"border-top":    borderSide("top"),
	"border-right":  borderSide("right"),
	"border-bottom": borderSide("bottom"),
	"border-left":   borderSide("left"),
	"overflow":      {longhands: []string{"overflow-x", "overflow-y"}, expand: expandPair},
	"gap":           {longhands: []string{"row-gap", "column-gap"}, expand: expandPair},
	"flex":          {longhands: []string{"flex-grow", "flex-shrink", "flex-basis"}, expand: expandFlex},
	"background":    {longhands: []string{"background-color", "background-image"}, expand: expandBackground},
	"transition": {
		longhands: []string{"transition-property", "transition-duration", "transition-timing-function", "transition-delay"},
		expand:    expandTransition,
	},
	"animation": {
		longhands: []string{"animation-name", "animation-duration", "animation-timing-function", "animation-delay", "animation-iteration-count", "animation-direction"},
		expand:    expandAnimation,
	},
}

// borderSide sets width of one edge, style and color only when given.
func borderSide(edge string) shorthand {
	return shorthand{
		longhands: []string{"border-" + edge + "-width", "border-style", "border-color"},
		expand:    expandBorderSide,
		partial:   true,
	}
}

// IsShorthand reports whether name is a supported shorthand.
func IsShorthand(name string) bool {
	_, ok := shorthands[name]
	return ok
}

// Longhands returns properties set by a shorthand.
func Longhands(name string) []string {
	return slices.Clone(shorthands[name].longhands)
}

// Expand splits a shorthand value into longhand declarations. Longhands not
// mentioned in the value are reset to their initial values, except for
// per-edge border shorthands which omit them. A global keyword applies to
// every longhand.
func Expand(name string, e Expr) (map[string]Expr, error) {
	sh, ok := shorthands[name]
	if !ok {
		return nil, fmt.Errorf("unknown shorthand %q", name)
	}
	out := make(map[string]Expr, len(sh.longhands))
	if _, ok := IsGlobalKeyword(e); ok {
		for _, lh := range sh.longhands {
			out[lh] = e
		}
		return out, nil
	}
	vals, err := sh.expand(name, e)
	if err != nil {
		return nil, err
	}
	for i, lh := range sh.longhands {
		v := vals[i]
		if v == nil {
			if sh.partial {
				continue
			}
			v = properties[lh].Initial
		}
		if !properties[lh].Accepts(v) {
			return nil, fmt.Errorf("%s: invalid value %q for %s", name, v, lh)
		}
		out[lh] = v
	}
	return out, nil
}

// expandEdges maps 1 to 4 values onto top, right, bottom, left. Three values
// are (left, right, top) with bottom set to zero, four values are (left,
// right, top, bottom).
func expandEdges(name string, e Expr) ([]Expr, error) {
	v := spaceItems(e)
	var top, right, bottom, left Expr
	switch len(v) {
	case 1:
		top, right, bottom, left = v[0], v[0], v[0], v[0]
	case 2:
		top, bottom = v[0], v[0]
		left, right = v[1], v[1]
	case 3:
		left, right, top, bottom = v[0], v[1], v[2], Number{}
	case 4:
		left, right, top, bottom = v[0], v[1], v[2], v[3]
	default:
		return nil, fmt.Errorf("%s takes 1 to 4 values, got %d", name, len(v))
	}
	return []Expr{top, right, bottom, left}, nil
}

// expandCorners maps 1 to 4 values onto top-left, top-right, bottom-right,
// bottom-left. Two values are (top, bottom) pairs, three values leave
// bottom-right at zero.
func expandCorners(name string, e Expr) ([]Expr, error) {
	v := spaceItems(e)
	switch len(v) {
	case 1:
		return []Expr{v[0], v[0], v[0], v[0]}, nil
	case 2:
		return []Expr{v[0], v[0], v[1], v[1]}, nil
	case 3:
		return []Expr{v[0], v[1], Number{}, v[2]}, nil
	case 4:
		return []Expr{v[0], v[1], v[2], v[3]}, nil
	}
	return nil, fmt.Errorf("%s takes 1 to 4 values, got %d", name, len(v))
}

func expandPair(name string, e Expr) ([]Expr, error) {
	v := spaceItems(e)
	switch len(v) {
	case 1:
		return []Expr{v[0], v[0]}, nil
	case 2:
		return []Expr{v[0], v[1]}, nil
	}
	return nil, fmt.Errorf("%s takes 1 or 2 values, got %d", name, len(v))
}

// expandBorder accepts width, style and color in any order.
func expandBorder(name string, e Expr) ([]Expr, error) {
	width, style, color, err := borderParts(name, e)
	if err != nil {
		return nil, err
	}
	if width == nil && style != nil {
		width = Dimension{Value: 1, Unit: UnitPx}
	}
	return []Expr{width, width, width, width, style, color}, nil
}

func expandBorderSide(name string, e Expr) ([]Expr, error) {
	width, style, color, err := borderParts(name, e)
	if err != nil {
		return nil, err
	}
	return []Expr{width, style, color}, nil
}

func borderParts(name string, e Expr) (width, style, color Expr, err error) {
	styleProp, colorProp := properties["border-style"], properties["border-color"]
	for _, it := range spaceItems(e) {
		switch {
		case width == nil && isLength(it):
			width = it
		case style == nil && styleProp.acceptsSingle(it):
			style = it
		case color == nil && colorProp.acceptsSingle(it):
			color = it
		default:
			return nil, nil, nil, fmt.Errorf("%s: unexpected value %q", name, it)
		}
	}
	return width, style, color, nil
}

// expandFlex follows "none", "auto", "<grow>", "<grow> <shrink>",
// "<grow> <basis>" and "<grow> <shrink> <basis>".
func expandFlex(name string, e Expr) ([]Expr, error) {
	v := spaceItems(e)
	if len(v) == 1 {
		if k, ok := v[0].(Keyword); ok {
			switch strings.ToLower(k.Name) {
			case "none":
				return []Expr{Number{}, Number{}, Keyword{Name: "auto"}}, nil
			case "auto":
				return []Expr{Number{Value: 1}, Number{Value: 1}, Keyword{Name: "auto"}}, nil
			}
		}
		if _, ok := v[0].(Number); !ok {
			// a lone basis
			return []Expr{Number{Value: 1}, Number{Value: 1}, v[0]}, nil
		}
	}
	grow, shrink, basis := Expr(Number{Value: 1}), Expr(Number{Value: 1}), Expr(Number{})
	switch len(v) {
	case 1:
		grow = v[0]
	case 2:
		grow = v[0]
		if _, ok := v[1].(Number); ok {
			shrink = v[1]
		} else {
			basis = v[1]
		}
	case 3:
		grow, shrink, basis = v[0], v[1], v[2]
	default:
		return nil, fmt.Errorf("%s takes 1 to 3 values, got %d", name, len(v))
	}
	return []Expr{grow, shrink, basis}, nil
}

func expandBackground(name string, e Expr) ([]Expr, error) {
	var color, image Expr
	colorProp := properties["background-color"]
	for _, it := range spaceItems(e) {
		switch v := it.(type) {
		case String:
			if v.URL && image == nil {
				image = it
				continue
			}
		case Func:
			if strings.HasSuffix(v.Name, "gradient") && image == nil {
				image = it
				continue
			}
		}
		if color == nil && colorProp.acceptsSingle(it) {
			color = it
			continue
		}
		if k, ok := it.(Keyword); ok && strings.EqualFold(k.Name, "none") && image == nil {
			image = it
			continue
		}
		return nil, fmt.Errorf("%s: unexpected value %q", name, it)
	}
	return []Expr{color, image}, nil
}

var timingKeywords = []string{"linear", "ease", "ease-in", "ease-out", "ease-in-out", "step-start", "step-end"}

func isTiming(e Expr) bool {
	switch v := e.(type) {
	case Keyword:
		return slices.Contains(timingKeywords, strings.ToLower(v.Name))
	case Func:
		return v.Name == "cubic-bezier" || v.Name == "steps"
	}
	return false
}

func isTime(e Expr) bool {
	d, ok := e.(Dimension)
	return ok && d.Unit.IsTime()
}

// expandTransition expands "<property> <duration> <timing> <delay>" items.
// The first time is the duration, the second the delay.
func expandTransition(name string, e Expr) ([]Expr, error) {
	var props, durations, timings, delays []Expr
	for _, single := range commaItems(e) {
		var prop, dur, timing, delay Expr
		for _, it := range spaceItems(single) {
			switch {
			case isTime(it) && dur == nil:
				dur = it
			case isTime(it) && delay == nil:
				delay = it
			case isTiming(it) && timing == nil:
				timing = it
			case prop == nil:
				if _, ok := it.(Keyword); !ok {
					return nil, fmt.Errorf("%s: unexpected value %q", name, it)
				}
				prop = it
			default:
				return nil, fmt.Errorf("%s: unexpected value %q", name, it)
			}
		}
		props = append(props, orDefault(prop, Keyword{Name: "all"}))
		durations = append(durations, orDefault(dur, Dimension{Unit: UnitS}))
		timings = append(timings, orDefault(timing, Keyword{Name: "ease"}))
		delays = append(delays, orDefault(delay, Dimension{Unit: UnitS}))
	}
	return []Expr{commaList(props), commaList(durations), commaList(timings), commaList(delays)}, nil
}

var directionKeywords = []string{"normal", "reverse", "alternate", "alternate-reverse"}

// expandAnimation expands "<name> <duration> <timing> <delay> <count>
// <direction>" items in any order.
func expandAnimation(name string, e Expr) ([]Expr, error) {
	var names, durations, timings, delays, counts, directions []Expr
	for _, single := range commaItems(e) {
		var anim, dur, timing, delay, count, dir Expr
		for _, it := range spaceItems(single) {
			k, isKeyword := it.(Keyword)
			_, isNumber := it.(Number)
			switch {
			case isTime(it) && dur == nil:
				dur = it
			case isTime(it) && delay == nil:
				delay = it
			case isTiming(it) && timing == nil:
				timing = it
			case count == nil && (isNumber || isKeyword && strings.EqualFold(k.Name, "infinite")):
				count = it
			case dir == nil && isKeyword && slices.Contains(directionKeywords, strings.ToLower(k.Name)):
				dir = it
			case anim == nil && (isKeyword || isString(it)):
				anim = it
			default:
				return nil, fmt.Errorf("%s: unexpected value %q", name, it)
			}
		}
		names = append(names, orDefault(anim, Keyword{Name: "none"}))
		durations = append(durations, orDefault(dur, Dimension{Unit: UnitS}))
		timings = append(timings, orDefault(timing, Keyword{Name: "ease"}))
		delays = append(delays, orDefault(delay, Dimension{Unit: UnitS}))
		counts = append(counts, orDefault(count, Number{Value: 1}))
		directions = append(directions, orDefault(dir, Keyword{Name: "normal"}))
	}
	return []Expr{
		commaList(names), commaList(durations), commaList(timings),
		commaList(delays), commaList(counts), commaList(directions),
	}, nil
}

func isString(e Expr) bool {
	_, ok := e.(String)
	return ok
}

func orDefault(e, def Expr) Expr {
	if e == nil {
		return def
	}
	return e
}

func commaList(items []Expr) Expr {
	if len(items) == 1 {
		return items[0]
	}
	return List{Items: items, Comma: true}
}

// spaceItems returns items of a space separated list.
func spaceItems(e Expr) []Expr {
	if l, ok := e.(List); ok && !l.Comma {
		return l.Items
	}
	return []Expr{e}
}

// commaItems returns items of a comma separated list.
func commaItems(e Expr) []Expr {
	if l, ok := e.(List); ok && l.Comma {
		return l.Items
	}
	return []Expr{e}
}
