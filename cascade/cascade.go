package cascade

import (
	"fmt"
	"math"
	"strings"

	"uistyle/css"
	"uistyle/dom"
)

// "color" goes first, currentcolor in other properties refers to it.
var propOrder = func() []*css.Property {
	names := css.PropertyNames()
	out := make([]*css.Property, 0, len(names))
	color, _ := css.LookupProperty("color")
	out = append(out, color)
	for _, name := range names {
		if name == "color" {
			continue
		}
		p, _ := css.LookupProperty(name)
		out = append(out, p)
	}
	return out
}()

type winner struct {
	rule *css.Rule
	decl *css.Declaration
	pos  int // declaration position inside rule
}

// beats orders competing declarations: importance, then specificity, then
// rule position, then declaration position.
func (w winner) beats(o winner) bool {
	if w.decl.Important != o.decl.Important {
		return w.decl.Important
	}
	if c := w.rule.Selector.Specificity.Compare(o.rule.Selector.Specificity); c != 0 {
		return c > 0
	}
	if w.rule.Order != o.rule.Order {
		return w.rule.Order > o.rule.Order
	}
	return w.pos > o.pos
}

func winners(rules []*css.Rule) map[string]winner {
	out := make(map[string]winner)
	for _, r := range rules {
		for i := range r.Declarations {
			w := winner{rule: r, decl: &r.Declarations[i], pos: i}
			if cur, ok := out[w.decl.Property]; !ok || w.beats(cur) {
				out[w.decl.Property] = w
			}
		}
	}
	return out
}

// evaluate turns winning declarations into a property set. It returns the
// basis children resolve percentages against.
func (r *Resolver) evaluate(id dom.NodeID, won map[string]winner, parent Properties, basis Size) (Properties, Size) {
	ctx := Context{
		Basis:        basis,
		Viewport:     r.opts.Viewport,
		RootFontSize: r.opts.RootFontSize,
		CurrentColor: parent.Get("color").Color,
	}

	out := make(Properties, len(won)+8)
	for _, prop := range propOrder {
		w, ok := won[prop.Name]
		switch {
		case ok:
			out[prop.Name] = r.declared(id, prop, w.decl, parent, ctx)
		case prop.Inherited:
			if v, ok := parent[prop.Name]; ok {
				out[prop.Name] = v
			}
		case isCurrentColor(prop.Initial):
			out[prop.Name] = RGBA(ctx.CurrentColor)
		}
		if prop.Name == "color" {
			ctx.CurrentColor = out.Get("color").Color
		}
	}

	next := basis
	if w := out.Get("width"); w.Kind == KindLength {
		next.Width = w.Num
	}
	if h := out.Get("height"); h.Kind == KindLength {
		next.Height = h.Num
	}
	return out, next
}

// declared computes value of a winning declaration. Unusable values fall
// back to the inherited value for inherited properties and to the initial
// value otherwise.
func (r *Resolver) declared(id dom.NodeID, prop *css.Property, decl *css.Declaration, parent Properties, ctx Context) Value {
	v, err := r.compute(prop, decl, parent, ctx)
	if err == nil {
		return v
	}
	r.note(id, prop.Name, err)
	if prop.Inherited {
		return parent.Get(prop.Name)
	}
	return initialOf(prop, ctx)
}

func (r *Resolver) compute(prop *css.Property, decl *css.Declaration, parent Properties, ctx Context) (Value, error) {
	e, err := r.scope.Substitute(decl.Value)
	if err != nil {
		return Value{}, err
	}
	if sp, ok := e.(css.ShorthandPart); ok {
		parts, err := css.Expand(sp.Shorthand, sp.Value)
		if err != nil {
			return Value{}, err
		}
		if e, ok = parts[sp.Longhand]; !ok {
			return Value{}, fmt.Errorf("%s value %q does not set %s", sp.Shorthand, sp.Value, sp.Longhand)
		}
	}

	if kw, ok := css.IsGlobalKeyword(e); ok {
		switch {
		case kw == css.KeywordInherit, kw == css.KeywordUnset && prop.Inherited:
			return parent.Get(prop.Name), nil
		}
		return initialOf(prop, ctx), nil
	}

	if !prop.Accepts(e) {
		return Value{}, fmt.Errorf("invalid value %q", e)
	}
	v, err := Evaluate(prop, e, ctx)
	if err != nil {
		return Value{}, err
	}
	v, ok := conform(prop, v)
	if !ok {
		return Value{}, fmt.Errorf("%s value %q does not fit", v.Kind, e)
	}
	return v, nil
}

// Keyframe evaluates a keyframe declaration in the context of a computed
// node style. Unusable declarations report false.
func (r *Resolver) Keyframe(cs *ComputedStyle, decl css.Declaration) (Value, bool) {
	prop, ok := css.LookupProperty(decl.Property)
	if !ok {
		return Value{}, false
	}
	ctx := Context{
		Basis:        cs.parentBasis,
		Viewport:     r.opts.Viewport,
		RootFontSize: r.opts.RootFontSize,
		CurrentColor: cs.Active.Get("color").Color,
	}
	v, err := r.compute(prop, &decl, cs.parent, ctx)
	if err != nil {
		r.note(cs.Node, prop.Name, err)
		return Value{}, false
	}
	return v, true
}

func isCurrentColor(e css.Expr) bool {
	k, ok := e.(css.Keyword)
	return ok && strings.EqualFold(k.Name, "currentcolor")
}

func initialOf(prop *css.Property, ctx Context) Value {
	if isCurrentColor(prop.Initial) {
		return RGBA(ctx.CurrentColor)
	}
	return Initial(prop.Name)
}

// conform checks evaluated value against property grammar, math may produce
// a dimension the property does not take.
func conform(prop *css.Property, v Value) (Value, bool) {
	if prop.List && v.Kind == KindList && v.Comma {
		items := make([]Value, len(v.Items))
		for i, it := range v.Items {
			c, ok := conformSingle(prop, it)
			if !ok {
				return v, false
			}
			items[i] = c
		}
		v.Items = items
		return v, true
	}
	return conformSingle(prop, v)
}

func conformSingle(prop *css.Property, v Value) (Value, bool) {
	if v.Kind == KindKeyword {
		return v, true
	}
	switch prop.Kind {
	case css.KindLength:
		if v.Kind == KindNumber && v.Num == 0 {
			return Px(0), true
		}
		return v, v.Kind == KindLength
	case css.KindNumber:
		return v, v.Kind == KindNumber
	case css.KindInteger:
		if v.Kind != KindNumber {
			return v, false
		}
		return Num(math.Round(v.Num)), true
	case css.KindTime:
		if v.Kind == KindNumber && v.Num == 0 {
			return Seconds(0), true
		}
		return v, v.Kind == KindTime
	case css.KindColor:
		return v, v.Kind == KindColor
	}
	return v, true
}
