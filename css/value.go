package css

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/tdewolff/parse/v2/css"
)

// Unit of a Dimension.
type Unit uint8

const (
	UnitPx Unit = iota
	UnitPercent
	UnitVw
	UnitVh
	UnitVmin
	UnitVmax
	UnitRem
	UnitDeg
	UnitRad
	UnitTurn
	UnitS
	UnitMs
	UnitFr
)

var unitNames = [...]string{
	UnitPx:      "px",
	UnitPercent: "%",
	UnitVw:      "vw",
	UnitVh:      "vh",
	UnitVmin:    "vmin",
	UnitVmax:    "vmax",
	UnitRem:     "rem",
	UnitDeg:     "deg",
	UnitRad:     "rad",
	UnitTurn:    "turn",
	UnitS:       "s",
	UnitMs:      "ms",
	UnitFr:      "fr",
}

func (u Unit) String() string {
	if int(u) < len(unitNames) {
		return unitNames[u]
	}
	return fmt.Sprintf("unit(%d)", u)
}

func parseUnit(s string) (Unit, bool) {
	s = strings.ToLower(s)
	for u, name := range unitNames {
		if name == s {
			return Unit(u), true
		}
	}
	return 0, false
}

// IsLength reports units resolving to pixels.
func (u Unit) IsLength() bool {
	return u <= UnitRem
}

// IsAngle reports angle units.
func (u Unit) IsAngle() bool {
	return u == UnitDeg || u == UnitRad || u == UnitTurn
}

// IsTime reports time units.
func (u Unit) IsTime() bool {
	return u == UnitS || u == UnitMs
}

// Expr is a value expression as written in a stylesheet. It is a closed set
// of variants, switch over concrete types to evaluate.
type Expr interface {
	fmt.Stringer
	isExpr()
}

type (
	// Number is a unitless number.
	Number struct {
		Value float64
	}
	// Dimension is a number with unit, percentages included.
	Dimension struct {
		Value float64
		Unit  Unit
	}
	// Keyword is an identifier. Named colors stay keywords until the
	// property they are used in is known.
	Keyword struct {
		Name string
	}
	// String is a quoted string or url().
	String struct {
		Value string
		URL   bool
	}
	// List is a space or comma separated sequence.
	List struct {
		Items []Expr
		Comma bool
	}
	// VarRef is var(--name[, fallback]).
	VarRef struct {
		Name     string
		Fallback Expr
	}
	// Math is calc() arithmetic or min(), max(), sin().
	Math struct {
		Op   MathOp
		Args []Expr
	}
	// Func is any other function, e.g. translate() or repeat().
	Func struct {
		Name string
		Args []Expr
	}
	// ShorthandPart is a longhand taken from a shorthand value that could not
	// be expanded at parse time because it references variables.
	ShorthandPart struct {
		Shorthand string
		Longhand  string
		Value     Expr
	}
)

func (Number) isExpr()        {}
func (Dimension) isExpr()     {}
func (Color) isExpr()         {}
func (Keyword) isExpr()       {}
func (String) isExpr()        {}
func (List) isExpr()          {}
func (VarRef) isExpr()        {}
func (Math) isExpr()          {}
func (Func) isExpr()          {}
func (ShorthandPart) isExpr() {}

// MathOp is the operator of a Math node.
type MathOp uint8

const (
	OpAdd MathOp = iota
	OpSub
	OpMul
	OpDiv
	OpMin
	OpMax
	OpSin
)

var opSymbols = [...]string{OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMin: "min", OpMax: "max", OpSin: "sin"}

func (o MathOp) String() string { return opSymbols[o] }

// IsArithmetic reports binary calc() operators.
func (o MathOp) IsArithmetic() bool { return o <= OpDiv }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (n Number) String() string    { return formatFloat(n.Value) }
func (d Dimension) String() string { return formatFloat(d.Value) + d.Unit.String() }
func (k Keyword) String() string   { return k.Name }

func (s String) String() string {
	q := `"` + cssEscapeDoubleQuoted(s.Value) + `"`
	if s.URL {
		return "url(" + q + ")"
	}
	return q
}

func (l List) String() string {
	sep := " "
	if l.Comma {
		sep = ", "
	}
	parts := make([]string, len(l.Items))
	for i, it := range l.Items {
		parts[i] = it.String()
	}
	return strings.Join(parts, sep)
}

func (v VarRef) String() string {
	if v.Fallback != nil {
		return "var(" + v.Name + ", " + v.Fallback.String() + ")"
	}
	return "var(" + v.Name + ")"
}

func (m Math) String() string {
	if m.Op.IsArithmetic() {
		return "calc(" + m.inner() + ")"
	}
	parts := make([]string, len(m.Args))
	for i, a := range m.Args {
		parts[i] = mathOperand(a)
	}
	return m.Op.String() + "(" + strings.Join(parts, ", ") + ")"
}

func (m Math) inner() string {
	return mathOperand(m.Args[0]) + " " + m.Op.String() + " " + mathOperand(m.Args[1])
}

func mathOperand(e Expr) string {
	if m, ok := e.(Math); ok && m.Op.IsArithmetic() {
		return "(" + m.inner() + ")"
	}
	return e.String()
}

func (f Func) String() string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		parts[i] = a.String()
	}
	return f.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (p ShorthandPart) String() string { return p.Value.String() }

// ContainsVar reports whether expression references any variable.
func ContainsVar(e Expr) bool {
	switch v := e.(type) {
	case VarRef:
		return true
	case List:
		for _, it := range v.Items {
			if ContainsVar(it) {
				return true
			}
		}
	case Math:
		for _, a := range v.Args {
			if ContainsVar(a) {
				return true
			}
		}
	case Func:
		for _, a := range v.Args {
			if ContainsVar(a) {
				return true
			}
		}
	case ShorthandPart:
		return ContainsVar(v.Value)
	}
	return false
}

// Items returns list items, or the expression itself as a single item.
func Items(e Expr) []Expr {
	if l, ok := e.(List); ok {
		return l.Items
	}
	return []Expr{e}
}

// ParseValue parses CSS value text, e.g. "calc(50% + 10px)".
func ParseValue(s string) (Expr, error) {
	toks, err := tokenize([]byte(s))
	if err != nil {
		return nil, err
	}
	return parseValue(toks)
}

// parseValue parses comma separated groups of space separated terms.
func parseValue(toks []token) (Expr, error) {
	toks = trimSpace(toks)
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty value")
	}
	groups := splitTop(toks)
	if len(groups) == 1 {
		return parseTerms(groups[0])
	}
	list := List{Comma: true, Items: make([]Expr, 0, len(groups))}
	for _, g := range groups {
		e, err := parseTerms(g)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, e)
	}
	return list, nil
}

func parseTerms(toks []token) (Expr, error) {
	toks = trimSpace(toks)
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty list item")
	}
	vp := &valueParser{toks: toks}
	var items []Expr
	for {
		vp.skipSpace()
		if vp.done() {
			break
		}
		e, err := vp.term()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return List{Items: items}, nil
}

type valueParser struct {
	toks []token
	pos  int
}

func (vp *valueParser) done() bool { return vp.pos >= len(vp.toks) }

func (vp *valueParser) peek() (token, bool) {
	if vp.done() {
		return token{}, false
	}
	return vp.toks[vp.pos], true
}

func (vp *valueParser) next() token {
	t := vp.toks[vp.pos]
	vp.pos++
	return t
}

func (vp *valueParser) skipSpace() {
	for !vp.done() && vp.toks[vp.pos].isSpace() {
		vp.pos++
	}
}

// block returns tokens up to the parenthesis closing an already consumed
// function or '(' token. Missing closing parenthesis at the end of input is
// tolerated.
func (vp *valueParser) block() []token {
	start, depth := vp.pos, 1
	for !vp.done() {
		t := vp.next()
		switch t.tt {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			depth--
			if depth == 0 {
				return vp.toks[start : vp.pos-1]
			}
		}
	}
	return vp.toks[start:]
}

func (vp *valueParser) term() (Expr, error) {
	t := vp.next()
	switch t.tt {
	case css.NumberToken, css.PercentageToken, css.DimensionToken:
		return parseNumeric(t)
	case css.HashToken:
		return parseHexColor(t.data)
	case css.IdentToken:
		if strings.EqualFold(t.data, "transparent") {
			return Color{}, nil
		}
		return Keyword{Name: t.data}, nil
	case css.StringToken:
		return String{Value: unquote(t.data)}, nil
	case css.URLToken:
		return String{Value: extractURL(t.data), URL: true}, nil
	case css.FunctionToken:
		return vp.function(t)
	case css.DelimToken:
		if t.data == "/" {
			// grid-area and similar slash separated values
			return Keyword{Name: "/"}, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %q", t.data)
}

func (vp *valueParser) function(t token) (Expr, error) {
	name := strings.ToLower(strings.TrimSuffix(t.data, "("))
	inner := trimSpace(vp.block())
	switch name {
	case "calc":
		return parseMath(inner)
	case "min", "max":
		op := OpMin
		if name == "max" {
			op = OpMax
		}
		m := Math{Op: op}
		for _, arg := range splitTop(inner) {
			e, err := parseMath(arg)
			if err != nil {
				return nil, err
			}
			m.Args = append(m.Args, e)
		}
		return m, nil
	case "sin":
		e, err := parseMath(inner)
		if err != nil {
			return nil, err
		}
		return Math{Op: OpSin, Args: []Expr{e}}, nil
	case "var":
		return parseVar(inner)
	case "rgb", "rgba":
		return parseRGB(inner)
	case "url":
		return String{Value: unquote(joinTokens(inner)), URL: true}, nil
	}
	f := Func{Name: name}
	if len(inner) == 0 {
		return f, nil
	}
	for _, arg := range splitTop(inner) {
		e, err := parseTerms(arg)
		if err != nil {
			return nil, fmt.Errorf("%s(): %w", name, err)
		}
		f.Args = append(f.Args, e)
	}
	return f, nil
}

func parseVar(toks []token) (Expr, error) {
	if len(toks) == 0 || !toks[0].isCustomProperty() {
		return nil, fmt.Errorf("var() requires custom property name")
	}
	ref := VarRef{Name: toks[0].data}
	rest := trimSpace(toks[1:])
	if len(rest) == 0 {
		return ref, nil
	}
	if rest[0].tt != css.CommaToken {
		return nil, fmt.Errorf("unexpected token %q in var()", rest[0].data)
	}
	if len(trimSpace(rest[1:])) == 0 {
		return ref, nil
	}
	fb, err := parseValue(rest[1:])
	if err != nil {
		return nil, fmt.Errorf("var() fallback: %w", err)
	}
	ref.Fallback = fb
	return ref, nil
}

// parseMath parses calc() grammar: sums of products of operands.
func parseMath(toks []token) (Expr, error) {
	vp := &valueParser{toks: trimSpace(toks)}
	if vp.done() {
		return nil, fmt.Errorf("empty math expression")
	}
	e, err := vp.sum()
	if err != nil {
		return nil, err
	}
	vp.skipSpace()
	if !vp.done() {
		return nil, fmt.Errorf("unexpected token %q in math expression", vp.toks[vp.pos].data)
	}
	return e, nil
}

func (vp *valueParser) sum() (Expr, error) {
	left, err := vp.product()
	if err != nil {
		return nil, err
	}
	for {
		vp.skipSpace()
		t, ok := vp.peek()
		if !ok {
			return left, nil
		}
		var (
			op    MathOp
			right Expr
		)
		switch {
		case t.isDelim("+") || t.isDelim("-"):
			vp.pos++
			op = OpAdd
			if t.data == "-" {
				op = OpSub
			}
			if right, err = vp.product(); err != nil {
				return nil, err
			}
		case isSignedNumeric(t):
			// "10px -5px" is lexed as two dimensions
			vp.pos++
			op = OpAdd
			if t.data[0] == '-' {
				op = OpSub
			}
			if right, err = parseNumeric(token{tt: t.tt, data: t.data[1:]}); err != nil {
				return nil, err
			}
			if right, err = vp.productTail(right); err != nil {
				return nil, err
			}
		default:
			return left, nil
		}
		left = Math{Op: op, Args: []Expr{left, right}}
	}
}

func isSignedNumeric(t token) bool {
	switch t.tt {
	case css.NumberToken, css.PercentageToken, css.DimensionToken:
		return len(t.data) > 1 && (t.data[0] == '-' || t.data[0] == '+')
	}
	return false
}

func (vp *valueParser) product() (Expr, error) {
	left, err := vp.operand()
	if err != nil {
		return nil, err
	}
	return vp.productTail(left)
}

func (vp *valueParser) productTail(left Expr) (Expr, error) {
	for {
		save := vp.pos
		vp.skipSpace()
		t, ok := vp.peek()
		if !ok || !(t.isDelim("*") || t.isDelim("/")) {
			vp.pos = save
			return left, nil
		}
		vp.pos++
		op := OpMul
		if t.data == "/" {
			op = OpDiv
		}
		right, err := vp.operand()
		if err != nil {
			return nil, err
		}
		left = Math{Op: op, Args: []Expr{left, right}}
	}
}

func (vp *valueParser) operand() (Expr, error) {
	vp.skipSpace()
	if vp.done() {
		return nil, fmt.Errorf("missing operand")
	}
	t := vp.next()
	switch t.tt {
	case css.NumberToken, css.PercentageToken, css.DimensionToken:
		return parseNumeric(t)
	case css.LeftParenthesisToken:
		return parseMath(vp.block())
	case css.FunctionToken:
		return vp.function(t)
	}
	return nil, fmt.Errorf("unexpected token %q in math expression", t.data)
}

func parseNumeric(t token) (Expr, error) {
	switch t.tt {
	case css.NumberToken:
		v, err := strconv.ParseFloat(t.data, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", t.data, err)
		}
		return Number{Value: v}, nil
	case css.PercentageToken:
		v, err := strconv.ParseFloat(strings.TrimSuffix(t.data, "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("bad percentage %q: %w", t.data, err)
		}
		return Dimension{Value: v, Unit: UnitPercent}, nil
	}
	v, unit, err := parseDimension(t.data)
	if err != nil {
		return nil, err
	}
	u, ok := parseUnit(unit)
	if !ok {
		return nil, fmt.Errorf("unsupported unit %q", unit)
	}
	return Dimension{Value: v, Unit: u}, nil
}

// parseDimension splits "12.5px" into number and unit.
func parseDimension(s string) (float64, string, error) {
	numEnd := 0
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || ((r == '-' || r == '+') && i == 0) {
			numEnd = i + 1
			continue
		}
		break
	}
	// exponent, "1e3px" but not "1em"
	if e := numEnd; e > 0 && e < len(s) && (s[e] == 'e' || s[e] == 'E') {
		d := e + 1
		if d < len(s) && (s[d] == '-' || s[d] == '+') {
			d++
		}
		if d < len(s) && unicode.IsDigit(rune(s[d])) {
			for d < len(s) && unicode.IsDigit(rune(s[d])) {
				d++
			}
			numEnd = d
		}
	}
	if numEnd == 0 {
		return 0, "", fmt.Errorf("bad dimension %q", s)
	}
	v, err := strconv.ParseFloat(s[:numEnd], 64)
	if err != nil {
		return 0, "", fmt.Errorf("bad dimension %q: %w", s, err)
	}
	return v, s[numEnd:], nil
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// extractURL returns the address of a url(...) token.
func extractURL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 4 && strings.EqualFold(s[:4], "url(") {
		s = strings.TrimSuffix(s[4:], ")")
	}
	return unquote(s)
}

// cssEscapeDoubleQuoted escapes a string for use inside CSS double quotes.
func cssEscapeDoubleQuoted(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
