// Package cascade merges matched declarations into computed styles.
package cascade

import (
	"errors"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"uistyle/css"
	"uistyle/dom"
	"uistyle/match"
)

var initialValues = func() map[string]Value {
	m := make(map[string]Value)
	for _, name := range css.PropertyNames() {
		prop, _ := css.LookupProperty(name)
		v, err := Evaluate(prop, prop.Initial, Context{CurrentColor: css.Color{A: 1}})
		if err != nil {
			panic("bad initial value of " + name + ": " + err.Error())
		}
		m[name] = v
	}
	return m
}()

// Initial returns initial value of a property, KindNone for unknown ones.
func Initial(name string) Value {
	return initialValues[name]
}

// ComputedStyle is the resolved style of one node. It is never modified
// after it is produced, recomputation creates a new one.
type ComputedStyle struct {
	Node dom.NodeID
	// States the node had when the style was computed.
	States css.PseudoState
	// Base is the style with no pseudo-states active anywhere.
	Base Properties
	// Active is Base with declarations of all currently active states
	// layered on top.
	Active Properties
	// ByState holds Base with declarations requiring a single state of
	// this node layered on top, for states some selector refers to.
	ByState map[css.PseudoState]Properties

	parent      Properties
	parentBasis Size
	basis       Size
}

// Get returns active value of a property.
func (cs *ComputedStyle) Get(name string) Value {
	return cs.Active.Get(name)
}

// State returns the layer for a single state, Base when no rule depends on
// it.
func (cs *ComputedStyle) State(s css.PseudoState) Properties {
	if p, ok := cs.ByState[s]; ok {
		return p
	}
	return cs.Base
}

// Basis is the size percentages of children resolve against.
func (cs *ComputedStyle) Basis() Size {
	return cs.basis
}

// Diagnostics counts declarations that could not be used as written.
type Diagnostics struct {
	Unresolved int64 // undefined variables
	Cyclic     int64 // cyclic variables
	Invalid    int64 // values invalid after substitution or evaluation
}

// Options configure a Resolver.
type Options struct {
	Viewport     Size
	RootFontSize float64
	// Media reports whether a media group is active, nil disables all groups.
	Media func(group int) bool
	// Workers limits concurrent subtree resolution, defaults to GOMAXPROCS.
	Workers int
}

// Resolver computes styles of a document against one merged stylesheet,
// one variable scope and one viewport. It is immutable and safe for
// concurrent use.
type Resolver struct {
	log   *zap.Logger
	doc   *dom.Document
	index *match.Index
	scope *Scope
	opts  Options

	unresolved, cyclic, invalid atomic.Int64
}

// NewResolver creates a resolver. The sheet must not be modified afterwards.
func NewResolver(log *zap.Logger, doc *dom.Document, sheet *css.Stylesheet, scope *Scope, opts Options) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.RootFontSize <= 0 {
		opts.RootFontSize = 16
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if scope == nil {
		scope = NewScope(sheet.Variables)
	}
	return &Resolver{
		log:   log.Named("cascade"),
		doc:   doc,
		index: match.NewIndex(sheet.Rules),
		scope: scope,
		opts:  opts,
	}
}

// Diagnostics returns counters accumulated since the resolver was created.
func (r *Resolver) Diagnostics() Diagnostics {
	return Diagnostics{
		Unresolved: r.unresolved.Load(),
		Cyclic:     r.cyclic.Load(),
		Invalid:    r.invalid.Load(),
	}
}

// Resolve computes style of a node given the computed style of its parent
// (nil for the root) and the pseudo-state snapshot.
func (r *Resolver) Resolve(id dom.NodeID, parent *ComputedStyle, snapshot match.Snapshot) *ComputedStyle {
	if !r.doc.Alive(id) {
		return nil
	}

	parentBase, parentActive := Properties(nil), Properties(nil)
	basis := r.opts.Viewport
	if parent != nil {
		parentBase, parentActive = parent.Base, parent.Active
		basis = parent.basis
	}

	baseRules := r.index.Match(r.doc, id, match.NoStates, r.opts.Media)
	baseWinners := winners(baseRules)
	inBase := make(map[*css.Rule]bool, len(baseRules))
	for _, rule := range baseRules {
		inBase[rule] = true
	}

	cs := &ComputedStyle{
		Node:        id,
		States:      snapshot.Of(id),
		parent:      parentActive,
		parentBasis: basis,
	}
	cs.Base, _ = r.evaluate(id, baseWinners, parentBase, basis)

	// state dependent rules are layered over base winners
	layer := func(states match.StateFunc) (map[string]winner, bool) {
		var extra []*css.Rule
		for _, rule := range r.index.Match(r.doc, id, states, r.opts.Media) {
			if !inBase[rule] {
				extra = append(extra, rule)
			}
		}
		if len(extra) == 0 {
			return baseWinners, false
		}
		merged := make(map[string]winner, len(baseWinners))
		for k, w := range baseWinners {
			merged[k] = w
		}
		for k, w := range winners(extra) {
			merged[k] = w
		}
		return merged, true
	}

	activeWinners, _ := layer(snapshot.Of)
	cs.Active, cs.basis = r.evaluate(id, activeWinners, parentActive, basis)

	for _, s := range r.index.States().Flags() {
		w, ok := layer(match.Only(snapshot, id, s))
		if !ok {
			continue
		}
		if cs.ByState == nil {
			cs.ByState = make(map[css.PseudoState]Properties)
		}
		cs.ByState[s], _ = r.evaluate(id, w, parentActive, basis)
	}
	return cs
}

// Frame is the set of computed styles for a document, indexed by node id.
// Removed nodes have nil entries.
type Frame []*ComputedStyle

// Get returns style of node or nil.
func (f Frame) Get(id dom.NodeID) *ComputedStyle {
	if id < 0 || int(id) >= len(f) {
		return nil
	}
	return f[id]
}

// ResolveTree computes styles of every live node. Subtrees of the root's
// children are resolved concurrently, they share no mutable state.
func (r *Resolver) ResolveTree(snapshot match.Snapshot) Frame {
	frame := make(Frame, r.doc.Len())
	root := r.doc.Root()
	rootStyle := r.Resolve(root, nil, snapshot)
	if rootStyle == nil {
		return frame
	}
	frame[root] = rootStyle

	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for _, child := range r.doc.Node(root).Children {
		g.Go(func() error {
			r.resolveSubtree(frame, child, rootStyle, snapshot)
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	d := r.Diagnostics()
	r.log.Debug("Resolved styles",
		zap.Int("nodes", r.doc.Len()),
		zap.Uint64("scope", r.scope.Version()),
		zap.Int64("unresolved", d.Unresolved),
		zap.Int64("cyclic", d.Cyclic),
		zap.Int64("invalid", d.Invalid))
	return frame
}

func (r *Resolver) resolveSubtree(frame Frame, id dom.NodeID, parent *ComputedStyle, snapshot match.Snapshot) {
	cs := r.Resolve(id, parent, snapshot)
	if cs == nil {
		return
	}
	frame[id] = cs
	for _, child := range r.doc.Node(id).Children {
		r.resolveSubtree(frame, child, cs, snapshot)
	}
}

// note records why a declaration was not used.
func (r *Resolver) note(id dom.NodeID, prop string, err error) {
	switch {
	case errors.Is(err, ErrCyclicVariable):
		r.cyclic.Add(1)
	case errors.Is(err, ErrUnresolvedVariable):
		r.unresolved.Add(1)
	default:
		r.invalid.Add(1)
	}
	r.log.Debug("Declaration falls back", zap.Int32("node", int32(id)), zap.String("property", prop), zap.Error(err))
}
