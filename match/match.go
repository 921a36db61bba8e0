// Package match decides which rules apply to a document node.
//
// Matching is pure: it depends only on the document, the rule and a
// pseudo-state lookup supplied by the caller, and is simply re-run when any of
// them changes.
package match

import (
	"uistyle/css"
	"uistyle/dom"
)

// StateFunc returns active pseudo-states of a node.
type StateFunc func(dom.NodeID) css.PseudoState

// Snapshot is a consumer supplied set of active states per node. Nodes not in
// the map have no active states.
type Snapshot map[dom.NodeID]css.PseudoState

// Of returns states of a node.
func (s Snapshot) Of(id dom.NodeID) css.PseudoState {
	return s[id]
}

// Clone returns an independent copy.
func (s Snapshot) Clone() Snapshot {
	c := make(Snapshot, len(s))
	for id, st := range s {
		if st != css.StateBase {
			c[id] = st
		}
	}
	return c
}

// NoStates is a StateFunc with every node in base state.
func NoStates(dom.NodeID) css.PseudoState { return css.StateBase }

// Only returns a StateFunc where node has exactly the given states and every
// other node has its states from snapshot.
func Only(snapshot Snapshot, node dom.NodeID, states css.PseudoState) StateFunc {
	return func(id dom.NodeID) css.PseudoState {
		if id == node {
			return states
		}
		return snapshot[id]
	}
}

// Compound reports whether a single compound selector matches node.
func Compound(doc *dom.Document, id dom.NodeID, c *css.Compound, states css.PseudoState) bool {
	n := doc.Node(id)
	if n == nil {
		return false
	}
	if c.Tag != "" && c.Tag != n.Tag {
		return false
	}
	if c.ID != "" && c.ID != n.ID() {
		return false
	}
	if c.Root && id != doc.Root() {
		return false
	}
	for _, class := range c.Classes {
		if !n.HasClass(class) {
			return false
		}
	}
	return states.Has(c.States)
}

// Selector reports whether the selector matches node. The rightmost compound
// is matched against the node, combinators are satisfied by walking up the
// ancestor chain with backtracking for descendant combinators.
func Selector(doc *dom.Document, id dom.NodeID, sel *css.Selector, states StateFunc) bool {
	if len(sel.Parts) == 0 {
		return false
	}
	return matchFrom(doc, sel, len(sel.Parts)-1, id, states)
}

func matchFrom(doc *dom.Document, sel *css.Selector, idx int, id dom.NodeID, states StateFunc) bool {
	if !Compound(doc, id, &sel.Parts[idx], states(id)) {
		return false
	}
	if idx == 0 {
		return true
	}
	switch sel.Combinators[idx-1] {
	case css.Child:
		p := doc.Parent(id)
		return p != dom.NoNode && matchFrom(doc, sel, idx-1, p, states)
	default:
		for p := doc.Parent(id); p != dom.NoNode; p = doc.Parent(p) {
			if matchFrom(doc, sel, idx-1, p, states) {
				return true
			}
		}
		return false
	}
}
