package match

import (
	"slices"

	"uistyle/css"
	"uistyle/dom"
)

// Index buckets rules by the most selective part of their subject compound so
// that only plausible candidates are tested against a node.
type Index struct {
	rules     []css.Rule
	byID      map[string][]int
	byClass   map[string][]int
	byTag     map[string][]int
	universal []int
	states    css.PseudoState
}

// NewIndex indexes rules. The slice is retained and must not be modified.
func NewIndex(rules []css.Rule) *Index {
	ix := &Index{
		rules:   rules,
		byID:    make(map[string][]int),
		byClass: make(map[string][]int),
		byTag:   make(map[string][]int),
	}
	for i := range rules {
		sel := &rules[i].Selector
		for _, p := range sel.Parts {
			ix.states |= p.States
		}
		subj := sel.Subject()
		switch {
		case subj.ID != "":
			ix.byID[subj.ID] = append(ix.byID[subj.ID], i)
		case len(subj.Classes) > 0:
			ix.byClass[subj.Classes[0]] = append(ix.byClass[subj.Classes[0]], i)
		case subj.Tag != "":
			ix.byTag[subj.Tag] = append(ix.byTag[subj.Tag], i)
		default:
			ix.universal = append(ix.universal, i)
		}
	}
	return ix
}

// Len returns number of indexed rules.
func (ix *Index) Len() int {
	return len(ix.rules)
}

// States returns union of pseudo-states referenced by any selector.
func (ix *Index) States() css.PseudoState {
	return ix.states
}

// candidates returns positions of rules whose subject may match node, in
// ascending order.
func (ix *Index) candidates(n *dom.Node) []int {
	var out []int
	out = append(out, ix.universal...)
	if id := n.ID(); id != "" {
		out = append(out, ix.byID[id]...)
	}
	for _, c := range n.Classes() {
		out = append(out, ix.byClass[c]...)
	}
	out = append(out, ix.byTag[n.Tag]...)
	slices.Sort(out)
	return slices.Compact(out)
}

// Match returns rules matching node in ascending rule position. Rules
// inside media groups are included only when active reports their group as
// active, a nil active excludes all of them.
func (ix *Index) Match(doc *dom.Document, id dom.NodeID, states StateFunc, active func(group int) bool) []*css.Rule {
	n := doc.Node(id)
	if n == nil {
		return nil
	}
	var out []*css.Rule
	for _, i := range ix.candidates(n) {
		r := &ix.rules[i]
		if r.Media != css.NoMedia && (active == nil || !active(r.Media)) {
			continue
		}
		if Selector(doc, id, &r.Selector, states) {
			out = append(out, r)
		}
	}
	return out
}
