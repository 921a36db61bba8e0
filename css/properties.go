package css

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

// Kind is the value grammar accepted by a property.
type Kind uint8

const (
	KindLength  Kind = iota // length or percentage
	KindNumber              // plain number
	KindInteger             // integral number
	KindColor
	KindKeyword // keywords only
	KindTime    // s or ms
	KindIdent   // custom identifiers, e.g. animation names
	KindAny     // free form, resolved structurally
)

// Axis tells which parent dimension percentages resolve against.
type Axis uint8

const (
	AxisWidth Axis = iota
	AxisHeight
)

// Property describes a longhand property.
type Property struct {
	Name      string
	Kind      Kind
	Keywords  []string
	Inherited bool
	List      bool // accepts comma separated list of values
	Axis      Axis
	Initial   Expr
}

// Global keywords are accepted by every property.
const (
	KeywordInherit = "inherit"
	KeywordInitial = "initial"
	KeywordUnset   = "unset"
)

// IsGlobalKeyword reports inherit, initial and unset.
func IsGlobalKeyword(e Expr) (string, bool) {
	k, ok := e.(Keyword)
	if !ok {
		return "", false
	}
	switch name := strings.ToLower(k.Name); name {
	case KeywordInherit, KeywordInitial, KeywordUnset:
		return name, true
	}
	return "", false
}

type propDef struct {
	name      string
	kind      Kind
	initial   string
	keywords  []string
	inherited bool
	list      bool
	axis      Axis
}

var (
	kwAuto     = []string{"auto"}
	kwAlign    = []string{"normal", "stretch", "start", "end", "flex-start", "flex-end", "center", "baseline"}
	kwJustify  = []string{"normal", "start", "end", "flex-start", "flex-end", "center", "space-between", "space-around", "space-evenly", "stretch"}
	kwOverflow = []string{"visible", "hidden", "clip", "scroll", "auto"}
	kwTracks   = []string{"auto", "min-content", "max-content"}
)

var propDefs = []propDef{
	// box model
	{name: "width", kind: KindLength, initial: "auto", keywords: kwTracks},
	{name: "height", kind: KindLength, initial: "auto", keywords: kwTracks, axis: AxisHeight},
	{name: "min-width", kind: KindLength, initial: "auto", keywords: kwTracks},
	{name: "min-height", kind: KindLength, initial: "auto", keywords: kwTracks, axis: AxisHeight},
	{name: "max-width", kind: KindLength, initial: "none", keywords: []string{"none", "min-content", "max-content"}},
	{name: "max-height", kind: KindLength, initial: "none", keywords: []string{"none", "min-content", "max-content"}, axis: AxisHeight},
	{name: "padding-top", kind: KindLength, initial: "0"},
	{name: "padding-right", kind: KindLength, initial: "0"},
	{name: "padding-bottom", kind: KindLength, initial: "0"},
	{name: "padding-left", kind: KindLength, initial: "0"},
	{name: "margin-top", kind: KindLength, initial: "0", keywords: kwAuto},
	{name: "margin-right", kind: KindLength, initial: "0", keywords: kwAuto},
	{name: "margin-bottom", kind: KindLength, initial: "0", keywords: kwAuto},
	{name: "margin-left", kind: KindLength, initial: "0", keywords: kwAuto},
	{name: "border-top-width", kind: KindLength, initial: "0"},
	{name: "border-right-width", kind: KindLength, initial: "0"},
	{name: "border-bottom-width", kind: KindLength, initial: "0"},
	{name: "border-left-width", kind: KindLength, initial: "0"},
	{name: "border-top-left-radius", kind: KindLength, initial: "0"},
	{name: "border-top-right-radius", kind: KindLength, initial: "0"},
	{name: "border-bottom-right-radius", kind: KindLength, initial: "0"},
	{name: "border-bottom-left-radius", kind: KindLength, initial: "0"},
	{name: "border-style", kind: KindKeyword, initial: "none", keywords: []string{"none", "solid", "dashed", "dotted", "double"}},
	{name: "border-color", kind: KindColor, initial: "currentcolor", keywords: []string{"currentcolor"}},
	{name: "box-sizing", kind: KindKeyword, initial: "content-box", keywords: []string{"content-box", "border-box"}},

	// layout
	{name: "display", kind: KindKeyword, initial: "flex", keywords: []string{"flex", "grid", "block", "none"}},
	{name: "position", kind: KindKeyword, initial: "relative", keywords: []string{"relative", "absolute"}},
	{name: "top", kind: KindLength, initial: "auto", keywords: kwAuto, axis: AxisHeight},
	{name: "right", kind: KindLength, initial: "auto", keywords: kwAuto},
	{name: "bottom", kind: KindLength, initial: "auto", keywords: kwAuto, axis: AxisHeight},
	{name: "left", kind: KindLength, initial: "auto", keywords: kwAuto},
	{name: "overflow-x", kind: KindKeyword, initial: "visible", keywords: kwOverflow},
	{name: "overflow-y", kind: KindKeyword, initial: "visible", keywords: kwOverflow},
	{name: "z-index", kind: KindInteger, initial: "auto", keywords: kwAuto},
	{name: "visibility", kind: KindKeyword, initial: "visible", keywords: []string{"visible", "hidden"}, inherited: true},
	{name: "scroll-width", kind: KindLength, initial: "0"},
	{name: "pointer-events", kind: KindKeyword, initial: "auto", keywords: []string{"auto", "none"}},

	// flex
	{name: "flex-direction", kind: KindKeyword, initial: "row", keywords: []string{"row", "column", "row-reverse", "column-reverse"}},
	{name: "flex-wrap", kind: KindKeyword, initial: "nowrap", keywords: []string{"nowrap", "wrap", "wrap-reverse"}},
	{name: "flex-grow", kind: KindNumber, initial: "0"},
	{name: "flex-shrink", kind: KindNumber, initial: "1"},
	{name: "flex-basis", kind: KindLength, initial: "auto", keywords: kwTracks},
	{name: "align-items", kind: KindKeyword, initial: "normal", keywords: kwAlign},
	{name: "align-self", kind: KindKeyword, initial: "auto", keywords: append([]string{"auto"}, kwAlign...)},
	{name: "align-content", kind: KindKeyword, initial: "normal", keywords: kwJustify},
	{name: "justify-content", kind: KindKeyword, initial: "normal", keywords: kwJustify},
	{name: "justify-items", kind: KindKeyword, initial: "normal", keywords: kwAlign},
	{name: "justify-self", kind: KindKeyword, initial: "auto", keywords: append([]string{"auto"}, kwAlign...)},
	{name: "row-gap", kind: KindLength, initial: "0", axis: AxisHeight},
	{name: "column-gap", kind: KindLength, initial: "0"},

	// grid subset
	{name: "grid-template-columns", kind: KindAny, initial: "none"},
	{name: "grid-template-rows", kind: KindAny, initial: "none"},
	{name: "grid-auto-columns", kind: KindAny, initial: "auto"},
	{name: "grid-auto-rows", kind: KindAny, initial: "auto"},
	{name: "grid-auto-flow", kind: KindAny, initial: "row"},
	{name: "grid-row", kind: KindAny, initial: "auto"},
	{name: "grid-column", kind: KindAny, initial: "auto"},

	// typography
	{name: "color", kind: KindColor, initial: "black", inherited: true},
	{name: "font-size", kind: KindLength, initial: "16px", inherited: true},
	{name: "font-family", kind: KindAny, initial: "sans-serif", inherited: true},
	{name: "font-weight", kind: KindNumber, initial: "400", keywords: []string{"normal", "bold", "lighter", "bolder"}, inherited: true},
	{name: "font-style", kind: KindKeyword, initial: "normal", keywords: []string{"normal", "italic", "oblique"}, inherited: true},
	{name: "line-height", kind: KindAny, initial: "normal", inherited: true},
	{name: "letter-spacing", kind: KindLength, initial: "0", keywords: []string{"normal"}, inherited: true},
	{name: "text-align", kind: KindKeyword, initial: "start", keywords: []string{"start", "end", "left", "right", "center", "justify"}, inherited: true},
	{name: "text-wrap", kind: KindKeyword, initial: "wrap", keywords: []string{"wrap", "nowrap", "balance", "pretty"}, inherited: true},
	{name: "cursor", kind: KindAny, initial: "auto", inherited: true},

	// visual
	{name: "background-color", kind: KindColor, initial: "transparent", keywords: []string{"currentcolor"}},
	{name: "background-image", kind: KindAny, initial: "none"},
	{name: "opacity", kind: KindNumber, initial: "1"},
	{name: "box-shadow", kind: KindAny, initial: "none"},
	{name: "outline-color", kind: KindColor, initial: "currentcolor", keywords: []string{"currentcolor"}},
	{name: "outline-width", kind: KindLength, initial: "0"},

	// transform
	{name: "transform", kind: KindAny, initial: "none"},
	{name: "transform-origin", kind: KindAny, initial: "50% 50%"},

	// transition
	{name: "transition-property", kind: KindIdent, initial: "all", list: true},
	{name: "transition-duration", kind: KindTime, initial: "0s", list: true},
	{name: "transition-timing-function", kind: KindAny, initial: "ease", list: true},
	{name: "transition-delay", kind: KindTime, initial: "0s", list: true},

	// animation
	{name: "animation-name", kind: KindIdent, initial: "none", list: true},
	{name: "animation-duration", kind: KindTime, initial: "0s", list: true},
	{name: "animation-timing-function", kind: KindAny, initial: "ease", list: true},
	{name: "animation-delay", kind: KindTime, initial: "0s", list: true},
	{name: "animation-iteration-count", kind: KindNumber, initial: "1", keywords: []string{"infinite"}, list: true},
	{name: "animation-direction", kind: KindKeyword, initial: "normal", keywords: []string{"normal", "reverse", "alternate", "alternate-reverse"}, list: true},
}

var properties = func() map[string]*Property {
	m := make(map[string]*Property, len(propDefs))
	for _, d := range propDefs {
		initial, err := ParseValue(d.initial)
		if err != nil {
			panic(fmt.Sprintf("bad initial value %q for %s: %v", d.initial, d.name, err))
		}
		m[d.name] = &Property{
			Name:      d.name,
			Kind:      d.kind,
			Keywords:  d.keywords,
			Inherited: d.inherited,
			List:      d.list,
			Axis:      d.axis,
			Initial:   initial,
		}
	}
	return m
}()

// LookupProperty returns longhand property definition.
func LookupProperty(name string) (*Property, bool) {
	p, ok := properties[name]
	return p, ok
}

// PropertyNames returns all longhand names sorted.
func PropertyNames() []string {
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Accepts reports whether expression is valid for the property. Values
// referencing variables are accepted and validated after substitution.
func (p *Property) Accepts(e Expr) bool {
	if ContainsVar(e) {
		return true
	}
	if _, ok := IsGlobalKeyword(e); ok {
		return true
	}
	if l, ok := e.(List); ok && l.Comma && p.List {
		for _, it := range l.Items {
			if !p.acceptsSingle(it) {
				return false
			}
		}
		return true
	}
	return p.acceptsSingle(e)
}

func (p *Property) acceptsSingle(e Expr) bool {
	if k, ok := e.(Keyword); ok && slices.Contains(p.Keywords, strings.ToLower(k.Name)) {
		return true
	}
	switch p.Kind {
	case KindLength:
		return isLength(e)
	case KindNumber:
		return isNumber(e)
	case KindInteger:
		n, ok := e.(Number)
		return ok && n.Value == math.Trunc(n.Value)
	case KindColor:
		switch v := e.(type) {
		case Color:
			return true
		case Keyword:
			_, ok := LookupColor(v.Name)
			return ok
		}
	case KindTime:
		switch v := e.(type) {
		case Dimension:
			return v.Unit.IsTime()
		case Number:
			return v.Value == 0
		}
	case KindIdent:
		switch e.(type) {
		case Keyword, String:
			return true
		}
	case KindAny:
		return true
	}
	return false
}

// isLength accepts lengths, percentages, unitless zero and math over them.
func isLength(e Expr) bool {
	switch v := e.(type) {
	case Dimension:
		return v.Unit.IsLength()
	case Number:
		return v.Value == 0
	case Math:
		return mathLeaves(v, func(leaf Expr) bool {
			switch l := leaf.(type) {
			case Dimension:
				return l.Unit.IsLength() || l.Unit.IsAngle()
			case Number:
				return true
			}
			return false
		})
	}
	return false
}

func isNumber(e Expr) bool {
	switch v := e.(type) {
	case Number:
		return true
	case Math:
		return mathLeaves(v, func(leaf Expr) bool {
			switch l := leaf.(type) {
			case Number:
				return true
			case Dimension:
				return l.Unit.IsAngle()
			}
			return false
		})
	}
	return false
}

func mathLeaves(m Math, ok func(Expr) bool) bool {
	for _, a := range m.Args {
		if sub, isMath := a.(Math); isMath {
			if !mathLeaves(sub, ok) {
				return false
			}
			continue
		}
		if !ok(a) {
			return false
		}
	}
	return true
}
