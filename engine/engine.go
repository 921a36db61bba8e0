// Package engine ties document, stylesheets, pseudo-states, variables,
// viewport and animations together and publishes computed styles.
package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"uistyle/anim"
	"uistyle/cascade"
	"uistyle/css"
	"uistyle/dom"
	"uistyle/match"
	"uistyle/media"
)

// ErrNoDocument is returned by operations needing a loaded document.
var ErrNoDocument = errors.New("no document loaded")

// Options configure an Engine.
type Options struct {
	Viewport     cascade.Size
	RootFontSize float64
	// Workers limits concurrent subtree resolution.
	Workers int
	// Clock supplies time for triggers other than Tick, defaults to time.Now.
	Clock func() time.Time
}

// Source is a named stylesheet text.
type Source struct {
	Name string
	Data []byte
}

// Frame is an immutable set of styles published after every trigger.
type Frame struct {
	// Seq increases with every published frame.
	Seq  uint64
	Time time.Time
	// Styles holds static cascade results indexed by node id.
	Styles cascade.Frame
	// Current holds active styles with animations and transitions applied.
	Current []cascade.Properties
}

// Style returns static computed style of a node or nil.
func (f *Frame) Style(id dom.NodeID) *cascade.ComputedStyle {
	return f.Styles.Get(id)
}

// Properties returns current values of a node or nil.
func (f *Frame) Properties(id dom.NodeID) cascade.Properties {
	if id < 0 || int(id) >= len(f.Current) {
		return nil
	}
	return f.Current[id]
}

type sheet struct {
	name  string
	sheet *css.Stylesheet
}

// Engine recomputes styles synchronously on every trigger. Triggers are
// serialized, readers get the last published Frame without locking.
type Engine struct {
	log  *zap.Logger
	opts Options

	mu       sync.Mutex
	doc      *dom.Document
	external []sheet
	inline   []*css.Stylesheet
	merged   *css.Stylesheet
	vars     map[string]css.Expr
	scope    *cascade.Scope
	states   match.Snapshot
	media    *media.Evaluator
	anim     *anim.Animator
	resolver *cascade.Resolver
	now      time.Time
	seq      uint64

	frame atomic.Pointer[Frame]
}

// New creates an engine without document and stylesheets.
func New(log *zap.Logger, opts Options) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.RootFontSize <= 0 {
		opts.RootFontSize = 16
	}
	e := &Engine{
		log:    log.Named("engine"),
		opts:   opts,
		merged: css.Merge(),
		vars:   make(map[string]css.Expr),
		states: make(match.Snapshot),
		media:  media.NewEvaluator(log, nil),
		anim:   anim.NewAnimator(log, nil),
	}
	e.scope = cascade.NewScope(nil)
	e.media.Update(opts.Viewport.Width, opts.Viewport.Height)
	e.frame.Store(&Frame{})
	return e
}

// Frame returns the last published frame.
func (e *Engine) Frame() *Frame {
	return e.frame.Load()
}

// Style returns static computed style of a node from the last frame.
func (e *Engine) Style(id dom.NodeID) *cascade.ComputedStyle {
	return e.Frame().Style(id)
}

// Current returns current property values of a node from the last frame.
func (e *Engine) Current(id dom.NodeID) cascade.Properties {
	return e.Frame().Properties(id)
}

// Stylesheet returns merged stylesheet in effect.
func (e *Engine) Stylesheet() *css.Stylesheet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.merged
}

// Diagnostics returns counters of the last recomputation.
func (e *Engine) Diagnostics() cascade.Diagnostics {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resolver == nil {
		return cascade.Diagnostics{}
	}
	return e.resolver.Diagnostics()
}

// LoadDocument parses markup and its inline <style> sources and replaces the
// current document. On any parse error the previous document stays in
// effect. Pseudo-states and animation state of the old document are
// discarded.
func (e *Engine) LoadDocument(data []byte, name string) error {
	doc, err := dom.NewBuilder(e.log).Parse(data, name)
	if err != nil {
		return err
	}
	inline, err := e.parseInline(doc)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.doc, e.inline = doc, inline
	e.states = make(match.Snapshot)
	e.anim.Reset()
	e.log.Info("Document loaded", zap.String("source", name), zap.Int("nodes", doc.Len()), zap.Int("inline", len(inline)))
	e.rebuild()
	return nil
}

func (e *Engine) parseInline(doc *dom.Document) ([]*css.Stylesheet, error) {
	p := css.NewParser(e.log)
	var (
		out  []*css.Stylesheet
		errs error
	)
	for i, src := range doc.StyleSources() {
		if src.Inline == "" {
			continue
		}
		s, err := p.Parse([]byte(src.Inline), fmt.Sprintf("%s#style%d", doc.Name, i))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out = append(out, s)
	}
	return out, errs
}

// LoadStylesheets replaces all external stylesheets. Either every source
// parses and the set is replaced, or nothing changes and all parse errors
// are returned.
func (e *Engine) LoadStylesheets(sources ...Source) error {
	p := css.NewParser(e.log)
	var (
		sheets []sheet
		errs   error
	)
	for _, src := range sources {
		s, err := p.Parse(src.Data, src.Name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		sheets = append(sheets, sheet{name: src.Name, sheet: s})
	}
	if errs != nil {
		e.log.Warn("Stylesheets rejected, previous ones stay in effect", zap.Int("failed", len(multierr.Errors(errs))))
		return errs
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.external = sheets
	e.rebuild()
	return nil
}

// ReplaceStylesheet hot-reloads one external stylesheet by name, appending
// it when not loaded yet. A parse failure keeps the previous version.
func (e *Engine) ReplaceStylesheet(name string, data []byte) error {
	s, err := css.NewParser(e.log).Parse(data, name)
	if err != nil {
		e.log.Warn("Stylesheet rejected, previous version stays in effect", zap.String("source", name), zap.Error(err))
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if i := slices.IndexFunc(e.external, func(sh sheet) bool { return sh.name == name }); i >= 0 {
		e.external = slices.Clone(e.external)
		e.external[i].sheet = s
	} else {
		e.external = append(slices.Clone(e.external), sheet{name: name, sheet: s})
	}
	e.log.Info("Stylesheet replaced", zap.String("source", name))
	e.rebuild()
	return nil
}

// rebuild merges stylesheets and recomputes everything. Caller holds mu.
func (e *Engine) rebuild() {
	all := make([]*css.Stylesheet, 0, len(e.external)+len(e.inline))
	for _, s := range e.external {
		all = append(all, s.sheet)
	}
	all = append(all, e.inline...)
	e.merged = css.Merge(all...)
	e.scope = cascade.NewScope(e.merged.Variables).With(e.vars)
	e.media.SetQueries(e.merged.Media)
	e.anim.SetTimelines(e.merged.Keyframes)
	if e.merged.Dropped > 0 {
		e.log.Info("Unsupported CSS ignored", zap.Int("count", e.merged.Dropped))
	}
	e.recascade()
}

// SetViewport changes viewport size. Any change recomputes every node:
// media groups may toggle and viewport units depend on it.
func (e *Engine) SetViewport(width, height float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	size := cascade.Size{Width: width, Height: height}
	if size == e.opts.Viewport {
		return
	}
	e.opts.Viewport = size
	if e.media.Update(width, height) {
		e.log.Debug("Media groups changed", zap.Ints("active", e.media.ActiveSet()))
	}
	e.recascade()
}

// SetState sets pseudo-states of a node.
func (e *Engine) SetState(id dom.NodeID, states css.PseudoState) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ErrNoDocument
	}
	if !e.doc.Alive(id) {
		return fmt.Errorf("node %d does not exist", id)
	}
	if e.states.Of(id) == states {
		return nil
	}
	next := e.states.Clone()
	if states == css.StateBase {
		delete(next, id)
	} else {
		next[id] = states
	}
	e.states = next
	e.recascade()
	return nil
}

// SetStates replaces the whole pseudo-state snapshot.
func (e *Engine) SetStates(snapshot match.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ErrNoDocument
	}
	e.states = snapshot.Clone()
	e.recascade()
	return nil
}

// SetVariable overrides a custom property above :root declarations.
func (e *Engine) SetVariable(name, value string) error {
	if !strings.HasPrefix(name, "--") {
		return fmt.Errorf("bad variable name %q", name)
	}
	expr, err := css.ParseValue(value)
	if err != nil {
		return fmt.Errorf("bad value of %s: %w", name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[name] = expr
	e.scope = e.scope.With(map[string]css.Expr{name: expr})
	e.recascade()
	return nil
}

// ClearVariable removes an override, :root value applies again.
func (e *Engine) ClearVariable(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.vars[name]; !ok {
		return
	}
	delete(e.vars, name)
	e.scope = cascade.NewScope(e.merged.Variables).With(e.vars)
	e.recascade()
}

// RemoveNode removes node and its subtree. Animation and transition state
// of removed nodes is discarded before RemoveNode returns.
func (e *Engine) RemoveNode(id dom.NodeID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ErrNoDocument
	}
	// documents already handed out stay intact
	doc := e.doc.Clone()
	removed := doc.Remove(id)
	if len(removed) == 0 {
		return fmt.Errorf("node %d cannot be removed", id)
	}
	e.doc = doc
	e.anim.Remove(removed...)
	next := e.states.Clone()
	for _, r := range removed {
		delete(next, r)
	}
	e.states = next

	// no sibling combinators: styles of remaining nodes do not change
	old := e.frame.Load()
	styles := slices.Clone(old.Styles)
	current := slices.Clone(old.Current)
	for _, r := range removed {
		if int(r) < len(styles) {
			styles[r] = nil
		}
		if int(r) < len(current) {
			current[r] = nil
		}
	}
	e.log.Debug("Nodes removed", zap.Int("count", len(removed)))
	e.publish(old.Time, styles, current)
	return nil
}

// Tick advances animations and transitions to now and publishes a frame
// when any node changed. It returns ids of such nodes.
func (e *Engine) Tick(now time.Time) []dom.NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
	dirty := e.anim.Tick(now)
	if len(dirty) == 0 {
		return nil
	}
	old := e.frame.Load()
	current := slices.Clone(old.Current)
	for _, id := range dirty {
		if cs := old.Styles.Get(id); cs != nil {
			current[id] = e.anim.Overlay(id, now, cs.Active)
		}
	}
	e.publish(now, old.Styles, current)
	return dirty
}

// recascade resolves every node and feeds the results to the animator.
// Caller holds mu.
func (e *Engine) recascade() {
	if e.doc == nil {
		return
	}
	now := e.opts.Clock()
	if now.Before(e.now) {
		now = e.now
	}
	e.now = now

	r := cascade.NewResolver(e.log, e.doc, e.merged, e.scope, cascade.Options{
		Viewport:     e.opts.Viewport,
		RootFontSize: e.opts.RootFontSize,
		Media:        e.media.Snapshot(),
		Workers:      e.opts.Workers,
	})
	styles := r.ResolveTree(e.states)
	current := make([]cascade.Properties, len(styles))
	for i, cs := range styles {
		if cs == nil {
			continue
		}
		id := dom.NodeID(i)
		e.anim.Observe(id, now, cs.Active, func(d css.Declaration) (cascade.Value, bool) {
			return r.Keyframe(cs, d)
		})
		current[i] = e.anim.Overlay(id, now, cs.Active)
	}
	e.resolver = r

	if d := r.Diagnostics(); d != (cascade.Diagnostics{}) {
		e.log.Debug("Declarations fell back",
			zap.Int64("unresolved", d.Unresolved),
			zap.Int64("cyclic", d.Cyclic),
			zap.Int64("invalid", d.Invalid))
	}
	e.publish(now, styles, current)
}

func (e *Engine) publish(now time.Time, styles cascade.Frame, current []cascade.Properties) {
	e.seq++
	e.frame.Store(&Frame{Seq: e.seq, Time: now, Styles: styles, Current: current})
}
