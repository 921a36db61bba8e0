package css

import (
	"bytes"
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into structured rules.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet. The optional source parameter
// identifies what's being parsed (for diagnostics). Unsupported
// declarations and rules are dropped and reported in Stylesheet.Warnings,
// an error is returned only when the source as a whole is malformed.
func (p *Parser) Parse(data []byte, source ...string) (*Stylesheet, error) {
	var src string
	if len(source) > 0 {
		src = source[0]
	}
	p.log.Debug("Parsing CSS", zap.String("source", src), zap.Int("bytes", len(data)))

	if !utf8.Valid(data) {
		line := 1
		for i := 0; i < len(data); {
			r, size := utf8.DecodeRune(data[i:])
			if r == utf8.RuneError && size <= 1 {
				break
			}
			if r == '\n' {
				line++
			}
			i += size
		}
		return nil, &ParseError{Source: src, Line: line, Msg: "source is not valid UTF-8"}
	}

	toks, err := tokenize(data)
	if err != nil {
		return nil, &ParseError{Source: src, Line: bytes.Count(data, []byte("\n")) + 1, Msg: err.Error()}
	}

	sp := &sheetParser{log: p.log, toks: toks, sheet: newStylesheet(src)}
	if err := sp.parseTop(); err != nil {
		return nil, err
	}

	sheet := sp.sheet
	p.log.Debug("Parsed CSS",
		zap.String("source", src),
		zap.Int("rules", len(sheet.Rules)),
		zap.Int("variables", len(sheet.Variables)),
		zap.Int("keyframes", len(sheet.Keyframes)),
		zap.Int("media", len(sheet.Media)))
	if sheet.Dropped > 0 {
		p.log.Info("Unsupported CSS dropped", zap.String("source", src), zap.Int("count", sheet.Dropped))
	}
	return sheet, nil
}

// scope is the context of a block: parent selectors of a style rule (nil at
// top level), enclosing media group and whether it is a keyframe.
type scope struct {
	selectors []string
	media     int
	keyframe  bool
}

type stop uint8

const (
	stopEOF stop = iota
	stopBlock
	stopSemicolon
	stopClose
)

type sheetParser struct {
	log   *zap.Logger
	toks  []token
	pos   int
	sheet *Stylesheet
	order int
}

func (sp *sheetParser) done() bool { return sp.pos >= len(sp.toks) }

func (sp *sheetParser) peek() token { return sp.toks[sp.pos] }

func (sp *sheetParser) line() int {
	if sp.done() {
		if len(sp.toks) == 0 {
			return 1
		}
		return sp.toks[len(sp.toks)-1].line
	}
	return sp.toks[sp.pos].line
}

func (sp *sheetParser) errorf(line int, format string, args ...any) error {
	return &ParseError{Source: sp.sheet.Source, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// drop records a fail-soft problem.
func (sp *sheetParser) drop(line int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	sp.sheet.Dropped++
	sp.sheet.Warnings = append(sp.sheet.Warnings, fmt.Sprintf("line %d: %s", line, msg))
	sp.log.Debug("Dropping CSS", zap.Int("line", line), zap.String("reason", msg))
}

func (sp *sheetParser) parseTop() error {
	top := scope{media: NoMedia}
	for !sp.done() {
		t := sp.peek()
		switch {
		case t.isSpace(), t.tt == css.SemicolonToken, t.tt == css.CDOToken, t.tt == css.CDCToken:
			sp.pos++
		case t.tt == css.RightBraceToken:
			return sp.errorf(t.line, "unexpected '}'")
		case t.tt == css.AtKeywordToken:
			if err := sp.atRule(top); err != nil {
				return err
			}
		default:
			if err := sp.qualifiedRule(top); err != nil {
				return err
			}
		}
	}
	return nil
}

// prelude collects tokens up to a top-level '{', ';' or '}'. Braces and
// semicolons are consumed, a closing brace is left for the caller.
func (sp *sheetParser) prelude() ([]token, stop) {
	start, depth := sp.pos, 0
	for !sp.done() {
		t := sp.toks[sp.pos]
		switch t.tt {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.LeftBraceToken:
			if depth == 0 {
				sp.pos++
				return sp.toks[start : sp.pos-1], stopBlock
			}
		case css.SemicolonToken:
			if depth == 0 {
				sp.pos++
				return sp.toks[start : sp.pos-1], stopSemicolon
			}
		case css.RightBraceToken:
			if depth == 0 {
				return sp.toks[start:sp.pos], stopClose
			}
		}
		sp.pos++
	}
	return sp.toks[start:], stopEOF
}

// skipBlock skips past the brace closing an already opened block.
func (sp *sheetParser) skipBlock(line int) error {
	depth := 1
	for !sp.done() {
		t := sp.toks[sp.pos]
		sp.pos++
		switch t.tt {
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
	return sp.errorf(line, "unterminated block")
}

func (sp *sheetParser) atRule(sc scope) error {
	at := sp.toks[sp.pos]
	sp.pos++
	name := strings.ToLower(strings.TrimPrefix(at.data, "@"))
	prelude, st := sp.prelude()

	if st != stopBlock {
		if name != "import" && name != "charset" && name != "namespace" {
			sp.drop(at.line, "@%s without block", name)
		}
		return nil
	}

	switch name {
	case "media":
		mq, err := parseMediaQuery(prelude)
		if err != nil {
			sp.drop(at.line, "bad media query: %v", err)
			return sp.skipBlock(at.line)
		}
		if sc.media != NoMedia {
			mq = sp.sheet.Media[sc.media].and(mq)
		}
		if mq.Unsupported {
			sp.drop(at.line, "unsupported media query %q", mq.Raw)
		}
		idx := len(sp.sheet.Media)
		sp.sheet.Media = append(sp.sheet.Media, mq)
		if sc.selectors != nil {
			return sp.styleBlock(sc.selectors, idx, at.line)
		}
		return sp.ruleList(scope{media: idx}, at.line)

	case "keyframes", "-webkit-keyframes":
		kname := unquote(joinTokens(prelude))
		if kname == "" {
			sp.drop(at.line, "@keyframes without name")
			return sp.skipBlock(at.line)
		}
		return sp.keyframes(kname, at.line)
	}

	sp.drop(at.line, "unsupported at-rule @%s", name)
	return sp.skipBlock(at.line)
}

// ruleList parses rules up to the closing brace of an @media block.
func (sp *sheetParser) ruleList(sc scope, line int) error {
	for !sp.done() {
		t := sp.peek()
		switch {
		case t.isSpace(), t.tt == css.SemicolonToken:
			sp.pos++
		case t.tt == css.RightBraceToken:
			sp.pos++
			return nil
		case t.tt == css.AtKeywordToken:
			if err := sp.atRule(sc); err != nil {
				return err
			}
		default:
			if err := sp.qualifiedRule(sc); err != nil {
				return err
			}
		}
	}
	return sp.errorf(line, "unterminated block")
}

func (sp *sheetParser) qualifiedRule(sc scope) error {
	line := sp.line()
	prelude, st := sp.prelude()
	switch st {
	case stopBlock:
	case stopEOF:
		sp.drop(line, "unexpected end of input after %q", joinTokens(prelude))
		return nil
	default:
		sp.drop(line, "unexpected %q", joinTokens(prelude))
		return nil
	}

	var selectors []string
	for _, part := range splitTop(prelude) {
		selectors = append(selectors, joinTokens(part))
	}
	return sp.styleBlock(selectors, sc.media, line)
}

// styleBlock parses declarations and nested rules of an opened style rule
// block and emits one rule per selector. Parent rules precede nested ones
// in source order.
func (sp *sheetParser) styleBlock(selectors []string, media int, line int) error {
	at := len(sp.sheet.Rules)
	base := sp.order
	sp.order += len(selectors)

	decls, err := sp.blockBody(scope{selectors: selectors, media: media}, line)
	if err != nil {
		return err
	}

	var rules []Rule
	for i, raw := range selectors {
		sel, err := ParseSelector(raw)
		if err != nil {
			sp.drop(line, "rule dropped: %v", err)
			continue
		}
		rule := Rule{Selector: sel, Order: base + i, Media: media, Line: line}
		for _, d := range decls {
			if !strings.HasPrefix(d.Property, "--") {
				rule.Declarations = append(rule.Declarations, d)
				continue
			}
			if !sel.IsRoot() || media != NoMedia {
				sp.drop(line, "custom property %s outside of :root", d.Property)
				continue
			}
			sp.sheet.Variables[d.Property] = d.Value
		}
		if len(rule.Declarations) > 0 {
			rules = append(rules, rule)
		}
	}
	sp.sheet.Rules = slices.Insert(sp.sheet.Rules, at, rules...)
	return nil
}

// blockBody parses block content up to and including the closing brace.
func (sp *sheetParser) blockBody(sc scope, line int) ([]Declaration, error) {
	var decls []Declaration
	for !sp.done() {
		t := sp.peek()
		switch {
		case t.isSpace(), t.tt == css.SemicolonToken:
			sp.pos++
			continue
		case t.tt == css.RightBraceToken:
			sp.pos++
			return decls, nil
		case t.tt == css.AtKeywordToken && !sc.keyframe:
			if err := sp.atRule(sc); err != nil {
				return nil, err
			}
			continue
		}

		itemLine := t.line
		item, st := sp.prelude()
		switch st {
		case stopBlock:
			if sc.keyframe {
				sp.drop(itemLine, "nested rule in keyframe")
				if err := sp.skipBlock(itemLine); err != nil {
					return nil, err
				}
				continue
			}
			nested := nestSelectors(sc.selectors, joinTokens(item))
			if err := sp.styleBlock(nested, sc.media, itemLine); err != nil {
				return nil, err
			}
		case stopEOF:
			return nil, sp.errorf(line, "unterminated block")
		default:
			decls = append(decls, sp.declaration(item, sc, itemLine)...)
		}
	}
	return nil, sp.errorf(line, "unterminated block")
}

// declaration parses "name: value [!important]". Shorthands are expanded
// into longhands, unsupported properties and invalid values are dropped.
func (sp *sheetParser) declaration(toks []token, sc scope, line int) []Declaration {
	toks = trimSpace(toks)
	if len(toks) == 0 {
		return nil
	}
	nameTok := toks[0]
	if nameTok.tt != css.IdentToken && !nameTok.isCustomProperty() {
		sp.drop(line, "bad declaration %q", joinTokens(toks))
		return nil
	}
	rest := trimSpace(toks[1:])
	if len(rest) == 0 || rest[0].tt != css.ColonToken {
		sp.drop(line, "missing ':' in declaration %q", joinTokens(toks))
		return nil
	}
	value, important := splitImportant(rest[1:])

	if nameTok.isCustomProperty() {
		expr, err := parseValue(value)
		if err != nil {
			sp.drop(line, "custom property %s: %v", nameTok.data, err)
			return nil
		}
		return []Declaration{{Property: nameTok.data, Value: expr}}
	}

	name := strings.ToLower(nameTok.data)
	if sc.keyframe && important {
		sp.drop(line, "!important in keyframe for %s", name)
		return nil
	}

	_, known := LookupProperty(name)
	if !known && !IsShorthand(name) {
		if s := suggestProperty(name); s != "" {
			sp.drop(line, "unsupported property %s, did you mean %s?", name, s)
		} else {
			sp.drop(line, "unsupported property %s", name)
		}
		return nil
	}

	expr, err := parseValue(value)
	if err != nil {
		sp.drop(line, "%s: %v", name, err)
		return nil
	}

	if !IsShorthand(name) {
		prop, _ := LookupProperty(name)
		if !prop.Accepts(expr) {
			sp.drop(line, "%s: invalid value %q", name, expr)
			return nil
		}
		return []Declaration{{Property: name, Value: expr, Important: important}}
	}

	longhands := Longhands(name)
	decls := make([]Declaration, 0, len(longhands))
	if ContainsVar(expr) {
		if shorthands[name].partial {
			// which longhands are present is known only after substitution,
			// the edge width is the one always meant
			longhands = longhands[:1]
		}
		for _, lh := range longhands {
			decls = append(decls, Declaration{
				Property:  lh,
				Value:     ShorthandPart{Shorthand: name, Longhand: lh, Value: expr},
				Important: important,
			})
		}
		return decls
	}
	expanded, err := Expand(name, expr)
	if err != nil {
		sp.drop(line, "%v", err)
		return nil
	}
	for _, lh := range longhands {
		if v, ok := expanded[lh]; ok {
			decls = append(decls, Declaration{Property: lh, Value: v, Important: important})
		}
	}
	return decls
}

// splitImportant strips a trailing "!important".
func splitImportant(toks []token) ([]token, bool) {
	toks = trimSpace(toks)
	n := len(toks)
	if n < 2 || toks[n-1].tt != css.IdentToken || !strings.EqualFold(toks[n-1].data, "important") {
		return toks, false
	}
	rest := trimSpace(toks[:n-1])
	if len(rest) == 0 || !rest[len(rest)-1].isDelim("!") {
		return toks, false
	}
	return rest[:len(rest)-1], true
}

func suggestProperty(name string) string {
	targets := append(PropertyNames(), shorthandNames()...)
	ranks := fuzzy.RankFindFold(name, targets)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

func shorthandNames() []string {
	names := make([]string, 0, len(shorthands))
	for name := range shorthands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (sp *sheetParser) keyframes(name string, line int) error {
	tl := &Timeline{Name: name}
	for !sp.done() {
		t := sp.peek()
		switch {
		case t.isSpace(), t.tt == css.SemicolonToken:
			sp.pos++
			continue
		case t.tt == css.RightBraceToken:
			sp.pos++
			sortKeyframes(tl)
			if len(tl.Frames) == 0 {
				sp.drop(line, "@keyframes %s has no frames", name)
				return nil
			}
			sp.sheet.Keyframes[name] = tl
			return nil
		}

		frameLine := t.line
		prelude, st := sp.prelude()
		switch st {
		case stopEOF:
			return sp.errorf(line, "unterminated block")
		case stopSemicolon, stopClose:
			sp.drop(frameLine, "unexpected %q in @keyframes %s", joinTokens(prelude), name)
			continue
		}
		offsets, err := parseKeyframeSelectors(prelude)
		if err != nil {
			sp.drop(frameLine, "@keyframes %s: %v", name, err)
			if err := sp.skipBlock(frameLine); err != nil {
				return err
			}
			continue
		}
		decls, err := sp.blockBody(scope{media: NoMedia, keyframe: true}, frameLine)
		if err != nil {
			return err
		}
		decls = slices.DeleteFunc(decls, func(d Declaration) bool {
			if strings.HasPrefix(d.Property, "--") {
				sp.drop(frameLine, "custom property %s in keyframe", d.Property)
				return true
			}
			return false
		})
		for _, off := range offsets {
			tl.Frames = append(tl.Frames, Keyframe{Offset: off, Declarations: slices.Clone(decls)})
		}
	}
	return sp.errorf(line, "unterminated block")
}

// sortKeyframes orders frames by offset and merges frames sharing one.
func sortKeyframes(tl *Timeline) {
	sort.SliceStable(tl.Frames, func(i, j int) bool { return tl.Frames[i].Offset < tl.Frames[j].Offset })
	var merged []Keyframe
	for _, f := range tl.Frames {
		if n := len(merged); n > 0 && merged[n-1].Offset == f.Offset {
			merged[n-1].Declarations = append(merged[n-1].Declarations, f.Declarations...)
			continue
		}
		merged = append(merged, f)
	}
	tl.Frames = merged
}

// parseKeyframeSelectors parses "from", "to" and percentages into offsets
// in [0, 1].
func parseKeyframeSelectors(toks []token) ([]float64, error) {
	var offsets []float64
	for _, part := range splitTop(toks) {
		part = trimSpace(part)
		if len(part) != 1 {
			return nil, fmt.Errorf("bad keyframe selector %q", joinTokens(part))
		}
		t := part[0]
		switch {
		case t.tt == css.IdentToken && strings.EqualFold(t.data, "from"):
			offsets = append(offsets, 0)
		case t.tt == css.IdentToken && strings.EqualFold(t.data, "to"):
			offsets = append(offsets, 1)
		case t.tt == css.PercentageToken:
			e, err := parseNumeric(t)
			if err != nil {
				return nil, err
			}
			v := e.(Dimension).Value
			if v < 0 || v > 100 {
				return nil, fmt.Errorf("keyframe offset %s out of range", t.data)
			}
			offsets = append(offsets, v/100)
		default:
			return nil, fmt.Errorf("bad keyframe selector %q", t.data)
		}
	}
	return offsets, nil
}
