package css

import (
	"fmt"
	"slices"
	"strings"
)

// PseudoState is a set of transient element states. Selectors require
// states, consumers supply snapshots of active ones.
type PseudoState uint16

const (
	StateHover PseudoState = 1 << iota
	StateFocus
	StateActive
	StateChecked
	StateDisabled
	StateReadOnly
	StateInvalid
	StateSelected
)

// StateBase is the empty state set.
const StateBase PseudoState = 0

var stateNames = []struct {
	state PseudoState
	name  string
}{
	{StateHover, "hover"},
	{StateFocus, "focus"},
	{StateActive, "active"},
	{StateChecked, "checked"},
	{StateDisabled, "disabled"},
	{StateReadOnly, "read-only"},
	{StateInvalid, "invalid"},
	{StateSelected, "selected"},
}

// ParseState returns the state for a pseudo-class name without colon.
func ParseState(name string) (PseudoState, bool) {
	name = strings.ToLower(strings.TrimPrefix(name, ":"))
	for _, s := range stateNames {
		if s.name == name {
			return s.state, true
		}
	}
	return 0, false
}

// Has reports whether all states of o are in s.
func (s PseudoState) Has(o PseudoState) bool {
	return s&o == o
}

// Flags splits the set into single states in canonical order.
func (s PseudoState) Flags() []PseudoState {
	var flags []PseudoState
	for _, n := range stateNames {
		if s&n.state != 0 {
			flags = append(flags, n.state)
		}
	}
	return flags
}

// String returns CSS representation, e.g. ":hover:focus", or "base".
func (s PseudoState) String() string {
	if s == StateBase {
		return "base"
	}
	var sb strings.Builder
	for _, n := range stateNames {
		if s&n.state != 0 {
			sb.WriteString(":" + n.name)
		}
	}
	return sb.String()
}

// Specificity is the (id, class, tag) weight of a selector.
type Specificity [3]int

// Compare returns -1, 0 or 1 comparing lexicographically.
func (s Specificity) Compare(o Specificity) int {
	for i := range s {
		switch {
		case s[i] < o[i]:
			return -1
		case s[i] > o[i]:
			return 1
		}
	}
	return 0
}

func (s Specificity) String() string {
	return fmt.Sprintf("(%d,%d,%d)", s[0], s[1], s[2])
}

// Combinator joins two compound selectors.
type Combinator uint8

const (
	Descendant Combinator = iota
	Child
)

// Compound is a simple selector: optional tag, id, classes and required
// pseudo-states. Empty compound (or universal) matches every element.
type Compound struct {
	Tag     string
	ID      string
	Classes []string
	States  PseudoState
	Root    bool
}

// Selector is a chain of compounds, leftmost first. Combinators[i] joins
// Parts[i] and Parts[i+1].
type Selector struct {
	Raw         string
	Parts       []Compound
	Combinators []Combinator
	Specificity Specificity
}

// Subject returns the rightmost compound, the one matched against the
// element itself.
func (s *Selector) Subject() *Compound {
	return &s.Parts[len(s.Parts)-1]
}

// IsRoot reports whether selector is exactly ":root".
func (s *Selector) IsRoot() bool {
	if len(s.Parts) != 1 {
		return false
	}
	c := s.Parts[0]
	return c.Root && c.Tag == "" && c.ID == "" && len(c.Classes) == 0 && c.States == 0
}

// HasStates reports whether any compound requires a pseudo-state.
func (s *Selector) HasStates() bool {
	return slices.ContainsFunc(s.Parts, func(c Compound) bool { return c.States != 0 })
}

// Declaration is a single property assignment.
type Declaration struct {
	Property  string
	Value     Expr
	Important bool
}

func (d Declaration) String() string {
	if d.Important {
		return d.Property + ": " + d.Value.String() + " !important"
	}
	return d.Property + ": " + d.Value.String()
}

// NoMedia marks a rule outside of any @media group.
const NoMedia = -1

// Rule is a selector with its declarations. Order is the global source
// position used to break cascade ties, later wins.
type Rule struct {
	Selector     Selector
	Declarations []Declaration
	Order        int
	Media        int
	Line         int
}

// GetProperty returns the last declaration for a property.
func (r *Rule) GetProperty(name string) (Declaration, bool) {
	for i := len(r.Declarations) - 1; i >= 0; i-- {
		if r.Declarations[i].Property == name {
			return r.Declarations[i], true
		}
	}
	return Declaration{}, false
}

// Keyframe is a partial style at an offset in [0, 1].
type Keyframe struct {
	Offset       float64
	Declarations []Declaration
}

// Timeline is an ordered sequence of keyframes.
type Timeline struct {
	Name   string
	Frames []Keyframe
}

// Stylesheet is a parsed CSS source or a merge of several.
type Stylesheet struct {
	Source    string
	Rules     []Rule
	Variables map[string]Expr
	Keyframes map[string]*Timeline
	Media     []MediaQuery
	Warnings  []string
	Dropped   int
}

func newStylesheet(source string) *Stylesheet {
	return &Stylesheet{
		Source:    source,
		Variables: make(map[string]Expr),
		Keyframes: make(map[string]*Timeline),
	}
}

// RulesBySelector returns all rules with matching raw selector.
func (s *Stylesheet) RulesBySelector(selector string) []Rule {
	var matches []Rule
	for _, r := range s.Rules {
		if r.Selector.Raw == selector {
			matches = append(matches, r)
		}
	}
	return matches
}

// ParseError means the source could not be parsed at all and must not
// replace a previously loaded stylesheet.
type ParseError struct {
	Source string
	Line   int
	Msg    string
}

func (e *ParseError) Error() string {
	src := e.Source
	if src == "" {
		src = "stylesheet"
	}
	return fmt.Sprintf("%s:%d: %s", src, e.Line, e.Msg)
}
