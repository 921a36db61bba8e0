package cascade_test

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"uistyle/cascade"
	"uistyle/css"
	"uistyle/dom"
	"uistyle/match"
)

const page = `<html><body>
<div id="p" class="panel"><div id="c" class="child"></div></div>
<button id="b" class="btn"></button>
<div id="c2"></div>
</body></html>`

type fixture struct {
	doc *dom.Document
	r   *cascade.Resolver
}

func setup(t *testing.T, src string, opts cascade.Options) fixture {
	t.Helper()
	doc, err := dom.NewBuilder(zap.NewNop()).Parse([]byte(page))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	sheet, err := css.NewParser(zap.NewNop()).Parse([]byte(src), "test.css")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if opts.Viewport == (cascade.Size{}) {
		opts.Viewport = cascade.Size{Width: 800, Height: 600}
	}
	return fixture{doc: doc, r: cascade.NewResolver(zaptest.NewLogger(t), doc, sheet, nil, opts)}
}

func (f fixture) style(t *testing.T, id string, snap match.Snapshot) *cascade.ComputedStyle {
	t.Helper()
	frame := f.r.ResolveTree(snap)
	cs := frame.Get(f.doc.ByID(id))
	if cs == nil {
		t.Fatalf("no style for #%s", id)
	}
	return cs
}

func expect(t *testing.T, props cascade.Properties, name, want string) {
	t.Helper()
	if got := props.Get(name).String(); got != want {
		t.Errorf("%s = %q, want %q", name, got, want)
	}
}

func TestResolve_PercentOfParent(t *testing.T) {
	f := setup(t, `
#p { width: 200px; height: 50px }
#c { width: calc(50% + 10px); height: 20%; margin-left: 10% }
`, cascade.Options{})
	cs := f.style(t, "c", nil)
	expect(t, cs.Active, "width", "110px")
	expect(t, cs.Active, "height", "10px")
	expect(t, cs.Active, "margin-left", "20px")

	// no width on the parent chain: viewport is the basis
	cs = f.style(t, "c2", nil)
	if got := cs.Basis(); got != (cascade.Size{Width: 800, Height: 600}) {
		t.Errorf("Basis() = %v", got)
	}
}

func TestResolve_Precedence(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"specificity", `#b { color: red } .btn { color: blue }`, "#ff0000"},
		{"source order", `.btn { color: red } .btn { color: blue }`, "#0000ff"},
		{"last declaration in rule", `.btn { color: red; color: blue }`, "#0000ff"},
		{"important beats specificity", `.btn { color: red !important } #b { color: blue }`, "#ff0000"},
		{"important then specificity", `#b { color: red !important } .btn { color: blue !important }`, "#ff0000"},
		{"media applies", `.btn { color: red } @media (min-width: 100px) { .btn { color: blue } }`, "#0000ff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.src, cascade.Options{Media: func(int) bool { return true }})
			expect(t, f.style(t, "b", nil).Active, "color", tt.want)
		})
	}
}

func TestResolve_MediaInactive(t *testing.T) {
	f := setup(t, `.btn { color: red } @media (min-width: 100px) { .btn { color: blue } }`, cascade.Options{})
	expect(t, f.style(t, "b", nil).Active, "color", "#ff0000")
}

func TestResolve_Variables(t *testing.T) {
	f := setup(t, `
:root { --gap: 8px; --a: var(--b); --b: var(--a); --pair: 1px 2px; --len: 5px }
#c {
  padding-top: var(--gap);
  padding-left: var(--missing, 3px);
  padding-right: var(--a);
  margin-top: calc(var(--missing, 5px) + 1px);
  margin-left: calc(var(--gap) * 2);
  opacity: var(--len);
}
#c2 { margin: var(--pair) }
`, cascade.Options{})

	cs := f.style(t, "c", nil)
	expect(t, cs.Active, "padding-top", "8px")
	expect(t, cs.Active, "padding-left", "3px")
	expect(t, cs.Active, "padding-right", "0px")
	expect(t, cs.Active, "margin-top", "0px")
	expect(t, cs.Active, "margin-left", "16px")
	expect(t, cs.Active, "opacity", "1")

	cs2 := f.style(t, "c2", nil)
	expect(t, cs2.Active, "margin-top", "1px")
	expect(t, cs2.Active, "margin-right", "2px")
	expect(t, cs2.Active, "margin-bottom", "1px")
	expect(t, cs2.Active, "margin-left", "2px")

	d := f.r.Diagnostics()
	if d.Cyclic == 0 || d.Unresolved == 0 || d.Invalid == 0 {
		t.Errorf("Diagnostics() = %+v, expected all counters set", d)
	}
}

func TestResolve_ScopeOverride(t *testing.T) {
	doc, err := dom.NewBuilder(nil).Parse([]byte(page))
	if err != nil {
		t.Fatal(err)
	}
	sheet, err := css.NewParser(nil).Parse([]byte(`:root { --w: 10px } #c2 { width: var(--w) }`))
	if err != nil {
		t.Fatal(err)
	}
	base := cascade.NewScope(sheet.Variables)
	w, _ := css.ParseValue("42px")
	over := base.With(map[string]css.Expr{"--w": w})
	if over.Version() <= base.Version() {
		t.Error("scope versions must increase")
	}

	for _, tt := range []struct {
		scope *cascade.Scope
		want  string
	}{{base, "10px"}, {over, "42px"}} {
		r := cascade.NewResolver(nil, doc, sheet, tt.scope, cascade.Options{})
		cs := r.Resolve(doc.ByID("c2"), nil, nil)
		expect(t, cs.Active, "width", tt.want)
	}
}

func TestResolve_StateLayers(t *testing.T) {
	f := setup(t, `
.btn { color: red; width: 10px }
.btn:hover { color: blue }
.btn:focus { width: 20px }
#b.btn { color: green }
`, cascade.Options{})
	b := f.doc.ByID("b")

	cs := f.style(t, "b", match.Snapshot{b: css.StateHover})
	if cs.States != css.StateHover {
		t.Errorf("States = %v", cs.States)
	}
	expect(t, cs.Base, "color", "#008000")
	// state rules override base regardless of specificity
	expect(t, cs.Active, "color", "#0000ff")
	expect(t, cs.Active, "width", "10px")

	expect(t, cs.State(css.StateHover), "color", "#0000ff")
	expect(t, cs.State(css.StateFocus), "width", "20px")
	expect(t, cs.State(css.StateFocus), "color", "#008000")
	if _, ok := cs.ByState[css.StateChecked]; ok {
		t.Error("no rule depends on :checked")
	}
	expect(t, cs.State(css.StateChecked), "color", "#008000")
}

func TestResolve_Inheritance(t *testing.T) {
	f := setup(t, `
body { color: red; font-size: 20px; padding-top: 4px; opacity: 0.5 }
#c2 { padding-top: inherit; font-size: initial; opacity: unset; border-style: solid }
#b { color: unset; background-color: currentcolor }
`, cascade.Options{})

	cs := f.style(t, "c2", nil)
	expect(t, cs.Active, "color", "#ff0000")
	expect(t, cs.Active, "padding-top", "4px")
	expect(t, cs.Active, "font-size", "16px")
	expect(t, cs.Active, "opacity", "1")
	expect(t, cs.Active, "border-color", "#ff0000")

	b := f.style(t, "b", nil)
	expect(t, b.Active, "color", "#ff0000")
	expect(t, b.Active, "background-color", "#ff0000")
	expect(t, b.Active, "padding-top", "0px")
}

func TestResolve_Units(t *testing.T) {
	f := setup(t, `
#c2 { width: 2rem; height: 50vh; min-width: 10vw; max-width: 10vmin; transition-duration: 250ms, 0; z-index: 3 }
`, cascade.Options{RootFontSize: 10})
	cs := f.style(t, "c2", nil)
	expect(t, cs.Active, "width", "20px")
	expect(t, cs.Active, "height", "300px")
	expect(t, cs.Active, "min-width", "80px")
	expect(t, cs.Active, "max-width", "60px")
	expect(t, cs.Active, "transition-duration", "0.25s, 0s")
	expect(t, cs.Active, "z-index", "3")
}

func TestResolve_InvalidFallsBack(t *testing.T) {
	f := setup(t, `
body { font-size: 12px }
#c2 { width: calc(2 * 3); font-size: calc(1px / 0) }
`, cascade.Options{})
	cs := f.style(t, "c2", nil)
	expect(t, cs.Active, "width", "auto")
	expect(t, cs.Active, "font-size", "12px")
	if f.r.Diagnostics().Invalid == 0 {
		t.Error("expected invalid declarations to be counted")
	}
}

func TestResolveTree(t *testing.T) {
	f := setup(t, `div { width: 10px }`, cascade.Options{Workers: 2})
	removed := f.doc.Remove(f.doc.ByID("p"))

	frame := f.r.ResolveTree(nil)
	if len(frame) != f.doc.Len() {
		t.Fatalf("len(frame) = %d, want %d", len(frame), f.doc.Len())
	}
	for _, id := range removed {
		if frame.Get(id) != nil {
			t.Errorf("removed node %d has a style", id)
		}
	}
	f.doc.Walk(func(id dom.NodeID, _ int) bool {
		cs := frame.Get(id)
		if cs == nil || cs.Node != id {
			t.Errorf("node %d has no style", id)
		}
		return true
	})
	if frame.Get(dom.NodeID(-1)) != nil || frame.Get(dom.NodeID(len(frame))) != nil {
		t.Error("out of range lookups must return nil")
	}
}

func TestInitial(t *testing.T) {
	expect(t, nil, "opacity", "1")
	expect(t, nil, "display", "flex")
	expect(t, nil, "color", "#000000")
	if cascade.Initial("no-such-property").Kind != cascade.KindNone {
		t.Error("unknown property must have no initial value")
	}
}

func TestResolve_BorderEdgeShorthand(t *testing.T) {
	f := setup(t, `
:root { --edge: 4px }
#p { border: 2px solid red; border-left: 5px; border-right: var(--edge); scroll-width: 6px }
`, cascade.Options{})
	cs := f.style(t, "p", nil)
	expect(t, cs.Active, "border-top-width", "2px")
	expect(t, cs.Active, "border-left-width", "5px")
	expect(t, cs.Active, "border-right-width", "4px")
	expect(t, cs.Active, "border-style", "solid")
	expect(t, cs.Active, "border-color", "#ff0000")
	expect(t, cs.Active, "scroll-width", "6px")
}
