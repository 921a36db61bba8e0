package css_test

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"uistyle/css"
)

func mustParse(t *testing.T, src string) *css.Stylesheet {
	t.Helper()
	sheet, err := css.NewParser(zap.NewNop()).Parse([]byte(src), "test.css")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return sheet
}

func declValue(t *testing.T, r css.Rule, prop string) string {
	t.Helper()
	d, ok := r.GetProperty(prop)
	if !ok {
		t.Fatalf("rule %q has no %s", r.Selector.Raw, prop)
	}
	return d.Value.String()
}

func TestParser_FlatRules(t *testing.T) {
	sheet := mustParse(t, `
p { color: red; }
.card { width: 50%; height: 10vh; }
#main { opacity: 0.5 }
`)
	if len(sheet.Rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(sheet.Rules))
	}
	for i, r := range sheet.Rules {
		if r.Order != i {
			t.Errorf("rule %d order = %d", i, r.Order)
		}
		if r.Media != css.NoMedia {
			t.Errorf("rule %d media = %d", i, r.Media)
		}
	}
	if got := declValue(t, sheet.Rules[0], "color"); got != "red" {
		t.Errorf("color = %q", got)
	}
	if got := declValue(t, sheet.Rules[1], "width"); got != "50%" {
		t.Errorf("width = %q", got)
	}
	if got := declValue(t, sheet.Rules[2], "opacity"); got != "0.5" {
		t.Errorf("opacity = %q", got)
	}
}

func TestParser_Specificity(t *testing.T) {
	tests := []struct {
		selector string
		want     css.Specificity
	}{
		{"*", css.Specificity{0, 0, 0}},
		{"p", css.Specificity{0, 0, 1}},
		{"ul > li", css.Specificity{0, 0, 2}},
		{".a.b", css.Specificity{0, 2, 0}},
		{"#a .b p:hover", css.Specificity{1, 2, 1}},
		{":root", css.Specificity{0, 1, 0}},
		{"* > .x", css.Specificity{0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			sel, err := css.ParseSelector(tt.selector)
			if err != nil {
				t.Fatalf("ParseSelector() error = %v", err)
			}
			if sel.Specificity != tt.want {
				t.Errorf("Specificity = %v, want %v", sel.Specificity, tt.want)
			}
		})
	}
}

func TestParseSelector_Structure(t *testing.T) {
	sel, err := css.ParseSelector("div#main > ul.nav  li.item:hover:focus")
	if err != nil {
		t.Fatalf("ParseSelector() error = %v", err)
	}
	if len(sel.Parts) != 3 || len(sel.Combinators) != 2 {
		t.Fatalf("parts = %d, combinators = %d", len(sel.Parts), len(sel.Combinators))
	}
	if sel.Combinators[0] != css.Child || sel.Combinators[1] != css.Descendant {
		t.Errorf("combinators = %v", sel.Combinators)
	}
	if p := sel.Parts[0]; p.Tag != "div" || p.ID != "main" {
		t.Errorf("first part = %+v", p)
	}
	subj := sel.Subject()
	if subj.Tag != "li" || len(subj.Classes) != 1 || subj.Classes[0] != "item" {
		t.Errorf("subject = %+v", subj)
	}
	if subj.States != css.StateHover|css.StateFocus {
		t.Errorf("states = %v", subj.States)
	}
	if !sel.HasStates() {
		t.Error("HasStates() = false")
	}
}

func TestParseSelector_Unsupported(t *testing.T) {
	for _, s := range []string{"a::before", "a + b", "a ~ b", "[type=text]", "li:nth-child(2)", "a:visited", "> a", "a >", "a > > b", "a >> b"} {
		t.Run(s, func(t *testing.T) {
			if _, err := css.ParseSelector(s); err == nil {
				t.Errorf("expected error for %q", s)
			}
		})
	}
}

func TestParser_Important(t *testing.T) {
	sheet := mustParse(t, `a { color: red !important; width: 10px ! important; height: 5px }`)
	r := sheet.Rules[0]
	for _, prop := range []string{"color", "width"} {
		d, _ := r.GetProperty(prop)
		if !d.Important {
			t.Errorf("%s must be important", prop)
		}
	}
	if d, _ := r.GetProperty("height"); d.Important {
		t.Error("height must not be important")
	}
	if got := declValue(t, r, "width"); got != "10px" {
		t.Errorf("width = %q", got)
	}
}

func TestParser_DropsDeclarationsIndividually(t *testing.T) {
	sheet := mustParse(t, `a { backgroud-color: red; color: blue; width: banana; margin: 1px 2px 3px 4px 5px; opacity: 1 }`)
	if len(sheet.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(sheet.Rules))
	}
	r := sheet.Rules[0]
	if len(r.Declarations) != 2 {
		t.Errorf("expected 2 declarations, got %d: %v", len(r.Declarations), r.Declarations)
	}
	if sheet.Dropped != 3 {
		t.Errorf("Dropped = %d, want 3", sheet.Dropped)
	}
	found := false
	for _, w := range sheet.Warnings {
		if strings.Contains(w, "did you mean background-color") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected suggestion in warnings: %v", sheet.Warnings)
	}
}

func TestParser_DropsRulesWithUnsupportedSelectors(t *testing.T) {
	sheet := mustParse(t, `
a::before { color: red }
a + b { color: red }
[hidden] { color: red }
li:nth-child(2) { color: red }
b, i::after { color: green }
`)
	if len(sheet.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(sheet.Rules))
	}
	if sheet.Rules[0].Selector.Raw != "b" {
		t.Errorf("selector = %q", sheet.Rules[0].Selector.Raw)
	}
}

func TestParser_Nesting(t *testing.T) {
	sheet := mustParse(t, `
.card {
  color: red;
  &:hover { color: blue; }
  .title { font-size: 20px; }
  & > .icon, &.wide { width: 10px; }
  opacity: 0.5;
}
`)
	want := []string{".card", ".card:hover", ".card .title", ".card > .icon", ".card.wide"}
	if len(sheet.Rules) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(sheet.Rules))
	}
	for i, sel := range want {
		r := sheet.Rules[i]
		if r.Selector.Raw != sel {
			t.Errorf("rule %d selector = %q, want %q", i, r.Selector.Raw, sel)
		}
		if r.Order != i {
			t.Errorf("rule %q order = %d, want %d", sel, r.Order, i)
		}
	}
	parent := sheet.Rules[0]
	if len(parent.Declarations) != 2 {
		t.Errorf("parent declarations = %v", parent.Declarations)
	}
	if sheet.Rules[1].Selector.Subject().States != css.StateHover {
		t.Error("nested &:hover must require hover")
	}
}

func TestParser_SelectorList(t *testing.T) {
	sheet := mustParse(t, `h1, h2.big { margin: 0 auto }`)
	if len(sheet.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(sheet.Rules))
	}
	if sheet.Rules[0].Order >= sheet.Rules[1].Order {
		t.Error("selector list must keep source order")
	}
	r := sheet.Rules[1]
	if got := declValue(t, r, "margin-left"); got != "auto" {
		t.Errorf("margin-left = %q", got)
	}
	if got := declValue(t, r, "margin-top"); got != "0" {
		t.Errorf("margin-top = %q", got)
	}
}

func TestParser_Variables(t *testing.T) {
	sheet := mustParse(t, `
:root {
  --gap: 8px;
  --accent: var(--brand, #336699);
  color: black;
}
.x { --local: 1px; padding: var(--gap); }
`)
	if len(sheet.Variables) != 2 {
		t.Fatalf("variables = %v", sheet.Variables)
	}
	if got := sheet.Variables["--gap"].String(); got != "8px" {
		t.Errorf("--gap = %q", got)
	}
	ref, ok := sheet.Variables["--accent"].(css.VarRef)
	if !ok || ref.Name != "--brand" || ref.Fallback == nil {
		t.Errorf("--accent = %#v", sheet.Variables["--accent"])
	}
	if len(sheet.RulesBySelector(":root")) != 1 {
		t.Error("non-custom :root declarations form a regular rule")
	}

	x := sheet.RulesBySelector(".x")
	if len(x) != 1 {
		t.Fatal("expected .x rule")
	}
	if len(x[0].Declarations) != 4 {
		t.Fatalf("padding must expand to 4 deferred longhands, got %v", x[0].Declarations)
	}
	part, ok := x[0].Declarations[0].Value.(css.ShorthandPart)
	if !ok || part.Shorthand != "padding" || part.Longhand != "padding-top" {
		t.Errorf("first declaration = %#v", x[0].Declarations[0])
	}
	if sheet.Dropped != 1 {
		t.Errorf("custom property outside :root must be dropped, Dropped = %d", sheet.Dropped)
	}
}

func TestParser_Keyframes(t *testing.T) {
	sheet := mustParse(t, `
@keyframes pulse {
  from { opacity: 0 }
  50%, 75% { opacity: 0.5; width: 10px }
  to { opacity: 1 }
  75% { width: 20px }
}
@keyframes broken { }
`)
	tl, ok := sheet.Keyframes["pulse"]
	if !ok {
		t.Fatal("expected pulse timeline")
	}
	wantOffsets := []float64{0, 0.5, 0.75, 1}
	if len(tl.Frames) != len(wantOffsets) {
		t.Fatalf("frames = %d, want %d", len(tl.Frames), len(wantOffsets))
	}
	for i, off := range wantOffsets {
		if tl.Frames[i].Offset != off {
			t.Errorf("frame %d offset = %v, want %v", i, tl.Frames[i].Offset, off)
		}
	}
	// duplicated offset is merged, later declaration last
	f := tl.Frames[2].Declarations
	if last := f[len(f)-1]; last.Property != "width" || last.Value.String() != "20px" {
		t.Errorf("merged frame = %v", f)
	}
	if _, ok := sheet.Keyframes["broken"]; ok {
		t.Error("empty timeline must be dropped")
	}
}

func TestParser_Media(t *testing.T) {
	sheet := mustParse(t, `
@media (max-width: 900px) {
  .a { width: 10px }
}
.b {
  @media screen and (min-width: 100px) and (max-width: 200px) {
    color: red;
  }
}
@media (orientation: portrait) { .c { color: red } }
`)
	if len(sheet.Media) != 3 {
		t.Fatalf("media = %d, want 3", len(sheet.Media))
	}
	a := sheet.RulesBySelector(".a")
	if len(a) != 1 || a[0].Media != 0 {
		t.Fatalf(".a rules = %+v", a)
	}
	b := sheet.RulesBySelector(".b")
	if len(b) != 1 || b[0].Media != 1 {
		t.Fatalf(".b rules = %+v", b)
	}
	mq := sheet.Media[1]
	if mq.Matches(99) || !mq.Matches(100) || !mq.Matches(200) || mq.Matches(201) {
		t.Errorf("nested media query evaluates wrong: %+v", mq)
	}
	if sheet.Media[2].Matches(500) {
		t.Error("unsupported media feature must never match")
	}
}

func TestMediaQuery_Matches(t *testing.T) {
	sheet := mustParse(t, `@media (max-width: 900px) { a { color: red } } @media (min-width: 600px), (max-width: 100px) { a { color: red } }`)
	tests := []struct {
		query int
		width float64
		want  bool
	}{
		{0, 899, true},
		{0, 900, true},
		{0, 900.5, false},
		{0, 1200, false},
		{1, 50, true},
		{1, 300, false},
		{1, 600, true},
	}
	for _, tt := range tests {
		if got := sheet.Media[tt.query].Matches(tt.width); got != tt.want {
			t.Errorf("%s at %v = %v, want %v", sheet.Media[tt.query].Raw, tt.width, got, tt.want)
		}
	}
}

func TestParser_Shorthands(t *testing.T) {
	tests := []struct {
		decl string
		want map[string]string
	}{
		{"padding: 4px", map[string]string{"padding-top": "4px", "padding-right": "4px", "padding-bottom": "4px", "padding-left": "4px"}},
		{"padding: 1px 2px", map[string]string{"padding-top": "1px", "padding-bottom": "1px", "padding-left": "2px", "padding-right": "2px"}},
		{"padding: 1px 2px 3px", map[string]string{"padding-left": "1px", "padding-right": "2px", "padding-top": "3px", "padding-bottom": "0"}},
		{"margin: 1px 2px 3px 4px", map[string]string{"margin-left": "1px", "margin-right": "2px", "margin-top": "3px", "margin-bottom": "4px"}},
		{"border-radius: 1px 2px", map[string]string{"border-top-left-radius": "1px", "border-top-right-radius": "1px", "border-bottom-right-radius": "2px", "border-bottom-left-radius": "2px"}},
		{"border-radius: 1px 2px 3px", map[string]string{"border-top-left-radius": "1px", "border-top-right-radius": "2px", "border-bottom-right-radius": "0", "border-bottom-left-radius": "3px"}},
		{"border: 2px solid red", map[string]string{"border-top-width": "2px", "border-style": "solid", "border-color": "red"}},
		{"border-left: 3px", map[string]string{"border-left-width": "3px"}},
		{"border-top: 1px dashed blue", map[string]string{"border-top-width": "1px", "border-style": "dashed", "border-color": "blue"}},
		{"border-bottom: red", map[string]string{"border-color": "red"}},
		{"scroll-width: 8px", map[string]string{"scroll-width": "8px"}},
		{"overflow: hidden", map[string]string{"overflow-x": "hidden", "overflow-y": "hidden"}},
		{"gap: 4px 8px", map[string]string{"row-gap": "4px", "column-gap": "8px"}},
		{"flex: 2", map[string]string{"flex-grow": "2", "flex-shrink": "1", "flex-basis": "0"}},
		{"flex: none", map[string]string{"flex-grow": "0", "flex-shrink": "0", "flex-basis": "auto"}},
		{"background: #ff0000", map[string]string{"background-color": "#ff0000", "background-image": "none"}},
		{"transition: opacity 0.3s ease-in 1s, width 2s", map[string]string{
			"transition-property":        "opacity, width",
			"transition-duration":        "0.3s, 2s",
			"transition-timing-function": "ease-in, ease",
			"transition-delay":           "1s, 0s",
		}},
		{"animation: spin 2s linear infinite alternate", map[string]string{
			"animation-name":            "spin",
			"animation-duration":        "2s",
			"animation-timing-function": "linear",
			"animation-iteration-count": "infinite",
			"animation-direction":       "alternate",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			sheet := mustParse(t, "a { "+tt.decl+" }")
			if len(sheet.Rules) != 1 {
				t.Fatalf("expected 1 rule, warnings: %v", sheet.Warnings)
			}
			for prop, want := range tt.want {
				if got := declValue(t, sheet.Rules[0], prop); got != want {
					t.Errorf("%s = %q, want %q", prop, got, want)
				}
			}
		})
	}
}

func TestParser_BorderSideKeepsOtherEdges(t *testing.T) {
	sheet := mustParse(t, `a { border: 2px solid red; border-left: 5px } b { border-right: var(--w) }`)
	if len(sheet.Rules) != 2 {
		t.Fatalf("expected 2 rules, warnings: %v", sheet.Warnings)
	}
	a := sheet.Rules[0]
	if n := len(a.Declarations); n != 7 {
		t.Errorf("got %d declarations, want 7: %v", n, a.Declarations)
	}
	for prop, want := range map[string]string{
		"border-top-width": "2px",
		"border-style":     "solid",
		"border-color":     "red",
	} {
		if got := declValue(t, a, prop); got != want {
			t.Errorf("%s = %q, want %q", prop, got, want)
		}
	}
	if last := a.Declarations[len(a.Declarations)-1]; last.Property != "border-left-width" || last.Value.String() != "5px" {
		t.Errorf("last declaration = %v", last)
	}

	b := sheet.Rules[1]
	if len(b.Declarations) != 1 || b.Declarations[0].Property != "border-right-width" {
		t.Errorf("variable edge width declarations = %v", b.Declarations)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"10px", "10px"},
		{"-1.5rem", "-1.5rem"},
		{"calc(50% + 10px)", "calc(50% + 10px)"},
		{"calc(10px -5px)", "calc(10px - 5px)"},
		{"calc((1px + 2px) * 3)", "calc((1px + 2px) * 3)"},
		{"calc(100vw - 2 * 8px)", "calc(100vw - (2 * 8px))"},
		{"min(10px, 5vw, 2rem)", "min(10px, 5vw, 2rem)"},
		{"sin(90deg)", "sin(90deg)"},
		{"var(--x)", "var(--x)"},
		{"var(--x, var(--y, 10px))", "var(--x, var(--y, 10px))"},
		{"#f00", "#ff0000"},
		{"#ff000080", "rgba(255, 0, 0, 0.502)"},
		{"rgba(255, 0, 0, 0.5)", "rgba(255, 0, 0, 0.5)"},
		{"rgb(0 128 255)", "#0080ff"},
		{"transparent", "rgba(0, 0, 0, 0)"},
		{"url(img.png)", `url("img.png")`},
		{"translate(10px, 20px) rotate(45deg)", "translate(10px, 20px) rotate(45deg)"},
		{"repeat(3, 1fr)", "repeat(3, 1fr)"},
		{`"Open Sans", serif`, `"Open Sans", serif`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := css.ParseValue(tt.in)
			if err != nil {
				t.Fatalf("ParseValue() error = %v", err)
			}
			if got := e.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseValue_Errors(t *testing.T) {
	for _, in := range []string{"", "10qq", "calc(10px +)", "var(x)", "rgb(1, 2)", "#12345"} {
		t.Run(in, func(t *testing.T) {
			if _, err := css.ParseValue(in); err == nil {
				t.Errorf("expected error for %q", in)
			}
		})
	}
}

func TestParser_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
		line int
	}{
		{"unterminated block", []byte("a { color: red;\n"), 1},
		{"unterminated nested block", []byte("a {\n  &:hover { color: red; }\n  b {\n"), 3},
		{"stray closing brace", []byte("a { color: red }\n}\n"), 2},
		{"invalid utf8", []byte{'a', '{', 0xff, '}'}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := css.NewParser(nil).Parse(tt.src, "bad.css")
			var pe *css.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if pe.Line != tt.line {
				t.Errorf("line = %d, want %d", pe.Line, tt.line)
			}
			if !strings.HasPrefix(pe.Error(), "bad.css:") {
				t.Errorf("Error() = %q", pe.Error())
			}
		})
	}
}

func TestMerge(t *testing.T) {
	a := mustParse(t, `:root { --c: red; } @media (max-width: 10px) { .x { color: red } } p { color: var(--c) }`)
	b := mustParse(t, `:root { --c: blue; } @keyframes k { to { opacity: 1 } } @media (min-width: 5px) { .y { color: red } }`)

	before := a.Rules[0].Order
	m := css.Merge(a, b)
	if len(m.Rules) != 3 {
		t.Fatalf("rules = %d", len(m.Rules))
	}
	for i, r := range m.Rules {
		if r.Order != i {
			t.Errorf("rule %d order = %d", i, r.Order)
		}
	}
	if got := m.Variables["--c"].String(); got != "blue" {
		t.Errorf("--c = %q, later sheet must win", got)
	}
	if _, ok := m.Keyframes["k"]; !ok {
		t.Error("keyframes lost")
	}
	y := m.RulesBySelector(".y")
	if len(y) != 1 || m.Media[y[0].Media].Raw != "(min-width: 5px)" {
		t.Errorf("media index of .y not rebased: %+v", y)
	}
	if a.Rules[0].Order != before || len(a.Rules) != 2 {
		t.Error("Merge must not modify inputs")
	}
}

func TestStylesheet_String(t *testing.T) {
	src := `
:root { --pad: 4px; }
.card { color: red !important; padding: var(--pad) 2px; }
@media (max-width: 900px) { .card { width: 50%; } }
@keyframes fade { from { opacity: 0 } to { opacity: 1 } }
`
	sheet := mustParse(t, src)
	out := sheet.String()
	for _, want := range []string{
		"--pad: 4px;",
		"color: red !important;",
		"padding: var(--pad) 2px;",
		"@media (max-width: 900px) {",
		"@keyframes fade {",
		"100% {",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	again := mustParse(t, out)
	if len(again.Rules) != len(sheet.Rules) || len(again.Variables) != 1 || len(again.Keyframes) != 1 {
		t.Errorf("round trip changed stylesheet:\n%s", out)
	}
}
