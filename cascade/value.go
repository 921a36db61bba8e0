package cascade

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"uistyle/css"
)

// Kind tags a resolved Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindLength
	KindNumber
	KindAngle
	KindTime
	KindFlex
	KindColor
	KindKeyword
	KindString
	KindList
	KindFunction
)

var kindNames = [...]string{
	KindNone:     "none",
	KindLength:   "length",
	KindNumber:   "number",
	KindAngle:    "angle",
	KindTime:     "time",
	KindFlex:     "flex",
	KindColor:    "color",
	KindKeyword:  "keyword",
	KindString:   "string",
	KindList:     "list",
	KindFunction: "function",
}

func (k Kind) String() string { return kindNames[k] }

// IsNumeric reports kinds carried in Value.Num.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindLength, KindNumber, KindAngle, KindTime, KindFlex:
		return true
	}
	return false
}

// Value is a fully resolved property value: lengths in pixels, angles in
// radians, times in seconds, colors as RGBA. Values are immutable, share
// Items freely.
type Value struct {
	Kind  Kind
	Num   float64
	Color css.Color
	Str   string  // keyword, string or function name
	Items []Value // list items or function arguments
	Comma bool    // list separator
	URL   bool
}

// Px returns a length value.
func Px(v float64) Value { return Value{Kind: KindLength, Num: v} }

// Num returns a plain number.
func Num(v float64) Value { return Value{Kind: KindNumber, Num: v} }

// Seconds returns a time value.
func Seconds(v float64) Value { return Value{Kind: KindTime, Num: v} }

// Radians returns an angle value.
func Radians(v float64) Value { return Value{Kind: KindAngle, Num: v} }

// Ident returns a keyword value.
func Ident(s string) Value { return Value{Kind: KindKeyword, Str: s} }

// RGBA returns a color value.
func RGBA(c css.Color) Value { return Value{Kind: KindColor, Color: c} }

// IsKeyword reports keyword value with given name.
func (v Value) IsKeyword(name string) bool {
	return v.Kind == KindKeyword && v.Str == name
}

// List returns items of a list value, or the value itself.
func (v Value) List() []Value {
	if v.Kind == KindList {
		return v.Items
	}
	return []Value{v}
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Num != o.Num || v.Color != o.Color || v.Str != o.Str ||
		v.Comma != o.Comma || v.URL != o.URL || len(v.Items) != len(o.Items) {
		return false
	}
	for i := range v.Items {
		if !v.Items[i].Equal(o.Items[i]) {
			return false
		}
	}
	return true
}

func formatNum(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}

func (v Value) String() string {
	switch v.Kind {
	case KindNone:
		return ""
	case KindLength:
		return formatNum(v.Num) + "px"
	case KindNumber:
		return formatNum(v.Num)
	case KindAngle:
		return formatNum(v.Num) + "rad"
	case KindTime:
		return formatNum(v.Num) + "s"
	case KindFlex:
		return formatNum(v.Num) + "fr"
	case KindColor:
		return v.Color.String()
	case KindString:
		return css.String{Value: v.Str, URL: v.URL}.String()
	case KindList:
		sep := " "
		if v.Comma {
			sep = ", "
		}
		return joinValues(v.Items, sep)
	case KindFunction:
		return v.Str + "(" + joinValues(v.Items, ", ") + ")"
	}
	return v.Str
}

func joinValues(vs []Value, sep string) string {
	parts := make([]string, len(vs))
	for i, it := range vs {
		parts[i] = it.String()
	}
	return strings.Join(parts, sep)
}

// Properties maps property names to resolved values. A missing property has
// its initial value.
type Properties map[string]Value

// Get returns value of property, falling back to the initial value.
func (p Properties) Get(name string) Value {
	if v, ok := p[name]; ok {
		return v
	}
	return Initial(name)
}

// Clone returns a shallow copy, values are immutable.
func (p Properties) Clone() Properties {
	c := make(Properties, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Names returns property names in sorted order.
func (p Properties) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
