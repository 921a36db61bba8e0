package cascade

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"uistyle/css"
)

// Size is a width and height in pixels.
type Size struct {
	Width, Height float64
}

// Context carries what relative units resolve against.
type Context struct {
	// Basis is the layout parent size, percentages resolve against it.
	Basis        Size
	Viewport     Size
	RootFontSize float64
	// CurrentColor is the resolved "color" of the element.
	CurrentColor css.Color
}

var errNotNumeric = errors.New("not a numeric expression")

// Evaluate resolves a substituted expression for a property. Expressions
// still containing variables are an error.
func Evaluate(prop *css.Property, e css.Expr, ctx Context) (Value, error) {
	ev := evaluator{prop: prop, ctx: ctx}
	return ev.value(e)
}

type evaluator struct {
	prop *css.Property
	ctx  Context
}

func (ev evaluator) value(e css.Expr) (Value, error) {
	switch v := e.(type) {
	case css.Number:
		if ev.prop.Kind == css.KindLength && v.Value == 0 {
			return Px(0), nil
		}
		return Num(v.Value), nil
	case css.Dimension:
		q, err := ev.dimension(v)
		if err != nil {
			return Value{}, err
		}
		return q.value(), nil
	case css.Color:
		return RGBA(v), nil
	case css.Keyword:
		return ev.keyword(v.Name), nil
	case css.String:
		return Value{Kind: KindString, Str: v.Value, URL: v.URL}, nil
	case css.List:
		out := Value{Kind: KindList, Comma: v.Comma, Items: make([]Value, len(v.Items))}
		for i, it := range v.Items {
			r, err := ev.value(it)
			if err != nil {
				return Value{}, err
			}
			out.Items[i] = r
		}
		return out, nil
	case css.Math:
		q, err := ev.math(v)
		if err != nil {
			return Value{}, err
		}
		return q.value(), nil
	case css.Func:
		out := Value{Kind: KindFunction, Str: v.Name, Items: make([]Value, len(v.Args))}
		for i, a := range v.Args {
			r, err := ev.value(a)
			if err != nil {
				return Value{}, err
			}
			out.Items[i] = r
		}
		return out, nil
	case css.VarRef:
		return Value{}, fmt.Errorf("%w: %s", ErrUnresolvedVariable, v.Name)
	case css.ShorthandPart:
		return Value{}, fmt.Errorf("unexpanded shorthand %s", v.Shorthand)
	}
	return Value{}, fmt.Errorf("unsupported expression %T", e)
}

func (ev evaluator) keyword(name string) Value {
	lower := strings.ToLower(name)
	switch ev.prop.Kind {
	case css.KindIdent:
		if lower == "none" || lower == "all" {
			return Ident(lower)
		}
		return Ident(name)
	case css.KindColor, css.KindAny:
		if lower == "currentcolor" {
			return RGBA(ev.ctx.CurrentColor)
		}
		if c, ok := css.LookupColor(lower); ok {
			return RGBA(c)
		}
	}
	return Ident(lower)
}

type dim uint8

const (
	dimNumber dim = iota
	dimLength
	dimAngle
	dimTime
	dimFlex
)

// quantity is an intermediate numeric result with its dimension.
type quantity struct {
	v float64
	d dim
}

func (q quantity) value() Value {
	switch q.d {
	case dimLength:
		return Px(q.v)
	case dimAngle:
		return Radians(q.v)
	case dimTime:
		return Seconds(q.v)
	case dimFlex:
		return Value{Kind: KindFlex, Num: q.v}
	}
	return Num(q.v)
}

func (ev evaluator) basis() float64 {
	if ev.prop.Axis == css.AxisHeight {
		return ev.ctx.Basis.Height
	}
	return ev.ctx.Basis.Width
}

func (ev evaluator) dimension(d css.Dimension) (quantity, error) {
	vp := ev.ctx.Viewport
	switch d.Unit {
	case css.UnitPx:
		return quantity{d.Value, dimLength}, nil
	case css.UnitPercent:
		return quantity{d.Value / 100 * ev.basis(), dimLength}, nil
	case css.UnitVw:
		return quantity{d.Value / 100 * vp.Width, dimLength}, nil
	case css.UnitVh:
		return quantity{d.Value / 100 * vp.Height, dimLength}, nil
	case css.UnitVmin:
		return quantity{d.Value / 100 * math.Min(vp.Width, vp.Height), dimLength}, nil
	case css.UnitVmax:
		return quantity{d.Value / 100 * math.Max(vp.Width, vp.Height), dimLength}, nil
	case css.UnitRem:
		return quantity{d.Value * ev.ctx.RootFontSize, dimLength}, nil
	case css.UnitDeg:
		return quantity{d.Value * math.Pi / 180, dimAngle}, nil
	case css.UnitRad:
		return quantity{d.Value, dimAngle}, nil
	case css.UnitTurn:
		return quantity{d.Value * 2 * math.Pi, dimAngle}, nil
	case css.UnitS:
		return quantity{d.Value, dimTime}, nil
	case css.UnitMs:
		return quantity{d.Value / 1000, dimTime}, nil
	case css.UnitFr:
		return quantity{d.Value, dimFlex}, nil
	}
	return quantity{}, fmt.Errorf("unsupported unit %s", d.Unit)
}

func (ev evaluator) operand(e css.Expr) (quantity, error) {
	switch v := e.(type) {
	case css.Number:
		return quantity{v.Value, dimNumber}, nil
	case css.Dimension:
		return ev.dimension(v)
	case css.Math:
		return ev.math(v)
	}
	return quantity{}, fmt.Errorf("%w: %s", errNotNumeric, e)
}

// math evaluates calc() arithmetic and min(), max(), sin() once all operands
// are concrete. Operands of + and - must share dimension, * needs one plain
// number and / a plain non-zero divisor.
func (ev evaluator) math(m css.Math) (quantity, error) {
	args := make([]quantity, len(m.Args))
	for i, a := range m.Args {
		q, err := ev.operand(a)
		if err != nil {
			return quantity{}, err
		}
		args[i] = q
	}

	switch m.Op {
	case css.OpAdd, css.OpSub:
		a, b := args[0], args[1]
		if a.d != b.d {
			// unitless zero mixes with anything
			switch {
			case b.d == dimNumber && b.v == 0:
				b.d = a.d
			case a.d == dimNumber && a.v == 0:
				a.d = b.d
			default:
				return quantity{}, fmt.Errorf("incompatible operands in %s", m)
			}
		}
		if m.Op == css.OpSub {
			return quantity{a.v - b.v, a.d}, nil
		}
		return quantity{a.v + b.v, a.d}, nil
	case css.OpMul:
		a, b := args[0], args[1]
		switch {
		case a.d == dimNumber:
			return quantity{a.v * b.v, b.d}, nil
		case b.d == dimNumber:
			return quantity{a.v * b.v, a.d}, nil
		}
		return quantity{}, fmt.Errorf("cannot multiply two dimensions in %s", m)
	case css.OpDiv:
		a, b := args[0], args[1]
		if b.d != dimNumber {
			return quantity{}, fmt.Errorf("divisor must be a number in %s", m)
		}
		if b.v == 0 {
			return quantity{}, fmt.Errorf("division by zero in %s", m)
		}
		return quantity{a.v / b.v, a.d}, nil
	case css.OpMin, css.OpMax:
		if len(args) == 0 {
			return quantity{}, fmt.Errorf("empty %s", m)
		}
		res := args[0]
		for _, q := range args[1:] {
			if q.d != res.d {
				return quantity{}, fmt.Errorf("incompatible operands in %s", m)
			}
			if (m.Op == css.OpMin && q.v < res.v) || (m.Op == css.OpMax && q.v > res.v) {
				res = q
			}
		}
		return res, nil
	case css.OpSin:
		if len(args) != 1 || (args[0].d != dimNumber && args[0].d != dimAngle) {
			return quantity{}, fmt.Errorf("sin() takes an angle or a number")
		}
		return quantity{math.Sin(args[0].v), dimNumber}, nil
	}
	return quantity{}, fmt.Errorf("unsupported operator %s", m.Op)
}
