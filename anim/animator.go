// Package anim drives transitions and keyframe animations on top of
// computed styles.
package anim

import (
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"uistyle/cascade"
	"uistyle/css"
	"uistyle/dom"
)

// Phase of a keyframe animation.
type Phase uint8

const (
	Pending  Phase = iota // waiting for delay
	Playing               // within its iterations
	Finished              // iteration count exhausted
)

// FrameEvaluator resolves a keyframe declaration in the context of the
// animated node.
type FrameEvaluator func(decl css.Declaration) (cascade.Value, bool)

type transition struct {
	from, to cascade.Value
	start    time.Time
	spec     TransitionSpec
}

// value returns interpolated value at now and whether the transition is
// over.
func (tr *transition) value(now time.Time) (cascade.Value, bool) {
	elapsed := now.Sub(tr.start) - tr.spec.Delay
	switch {
	case elapsed >= tr.spec.Duration:
		return tr.to, true
	case elapsed <= 0:
		return tr.from, false
	}
	p := tr.spec.Timing.At(float64(elapsed) / float64(tr.spec.Duration))
	return Interpolate(tr.from, tr.to, p), false
}

type frame struct {
	offset float64
	values map[string]cascade.Value
}

type animation struct {
	spec     AnimationSpec
	start    time.Time
	frames   []frame
	props    []string
	finished bool
}

// progress returns directed iteration progress, before easing.
func (an *animation) progress(now time.Time) (float64, Phase) {
	elapsed := now.Sub(an.start) - an.spec.Delay
	if elapsed < 0 {
		return 0, Pending
	}
	if an.spec.Duration <= 0 {
		return 1, Finished
	}
	iter := float64(elapsed) / float64(an.spec.Duration)
	if iter >= an.spec.Iterations {
		return 1, Finished
	}
	n := math.Floor(iter)
	p := iter - n
	odd := math.Mod(n, 2) == 1
	switch an.spec.Direction {
	case Reverse:
		p = 1 - p
	case Alternate:
		if odd {
			p = 1 - p
		}
	case AlternateReverse:
		if !odd {
			p = 1 - p
		}
	}
	return p, Playing
}

// sample interpolates property between bracketing keyframes. Missing 0% and
// 100% frames use the underlying value.
func (an *animation) sample(name string, p float64, base cascade.Value) cascade.Value {
	type point struct {
		offset float64
		v      cascade.Value
	}
	pts := make([]point, 0, len(an.frames)+2)
	for _, f := range an.frames {
		if v, ok := f.values[name]; ok {
			pts = append(pts, point{f.offset, v})
		}
	}
	if pts[0].offset > 0 {
		pts = slices.Insert(pts, 0, point{0, base})
	}
	if pts[len(pts)-1].offset < 1 {
		pts = append(pts, point{1, base})
	}
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		if p > b.offset && i < len(pts)-1 {
			continue
		}
		if b.offset <= a.offset {
			return b.v
		}
		return Interpolate(a.v, b.v, (p-a.offset)/(b.offset-a.offset))
	}
	return pts[0].v
}

// Animator keeps transition and animation state per node. It is not safe
// for concurrent use, the caller serializes Observe, Tick and Remove.
type Animator struct {
	log         *zap.Logger
	timelines   map[string]*css.Timeline
	transitions map[dom.NodeID]map[string]*transition
	animations  map[dom.NodeID][]*animation
	observed    map[dom.NodeID]cascade.Properties
}

// NewAnimator creates an animator using keyframe timelines of a stylesheet.
func NewAnimator(log *zap.Logger, timelines map[string]*css.Timeline) *Animator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Animator{
		log:         log.Named("anim"),
		timelines:   timelines,
		transitions: make(map[dom.NodeID]map[string]*transition),
		animations:  make(map[dom.NodeID][]*animation),
		observed:    make(map[dom.NodeID]cascade.Properties),
	}
}

// SetTimelines replaces keyframe timelines. Running animations pick up new
// frames on the next Observe of their node.
func (a *Animator) SetTimelines(timelines map[string]*css.Timeline) {
	a.timelines = timelines
}

// driven reports properties transitions never apply to.
func driven(name string) bool {
	return strings.HasPrefix(name, "transition-") || strings.HasPrefix(name, "animation-")
}

// Observe records newly computed style of a node. Changed values of
// properties covered by a transition start (or restart from the current
// interpolated value) a transition, changes of properties no longer covered
// cancel it. Animations follow animation-name: new names start playing,
// names no longer listed are dropped, names without a timeline are ignored.
// The first observation of a node only establishes its values.
func (a *Animator) Observe(id dom.NodeID, now time.Time, props cascade.Properties, eval FrameEvaluator) {
	prev, seen := a.observed[id]
	a.observed[id] = props
	if seen {
		a.observeTransitions(id, now, prev, props)
	}
	a.observeAnimations(id, now, props, eval)
}

func (a *Animator) observeTransitions(id dom.NodeID, now time.Time, prev, props cascade.Properties) {
	names := slices.Collect(maps.Keys(prev))
	for name := range props {
		if _, ok := prev[name]; !ok {
			names = append(names, name)
		}
	}

	specs := Transitions(props)
	running := a.transitions[id]
	for _, name := range names {
		if driven(name) {
			continue
		}
		to := props.Get(name)
		tr := running[name]
		if tr != nil && tr.to.Equal(to) {
			continue
		}
		from := prev.Get(name)
		if tr != nil {
			from, _ = tr.value(now)
		} else if from.Equal(to) {
			continue
		}

		spec, ok := transitionFor(specs, name)
		if !ok || spec.Duration <= 0 || !Interpolable(from, to) {
			if tr != nil {
				delete(running, name)
				a.log.Debug("Transition cancelled", zap.Int32("node", int32(id)), zap.String("property", name))
			}
			continue
		}
		if running == nil {
			running = make(map[string]*transition)
			a.transitions[id] = running
		}
		running[name] = &transition{from: from, to: to, start: now, spec: spec}
		a.log.Debug("Transition started",
			zap.Int32("node", int32(id)),
			zap.String("property", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.Duration("duration", spec.Duration),
			zap.Stringer("timing", spec.Timing))
	}
	if len(running) == 0 {
		delete(a.transitions, id)
	}
}

func (a *Animator) observeAnimations(id dom.NodeID, now time.Time, props cascade.Properties, eval FrameEvaluator) {
	old := a.animations[id]
	var next []*animation
	for _, spec := range Animations(props) {
		tl := a.timelines[spec.Name]
		if tl == nil || len(tl.Frames) == 0 {
			a.log.Debug("Animation timeline missing", zap.Int32("node", int32(id)), zap.String("name", spec.Name))
			continue
		}
		var an *animation
		for i, o := range old {
			if o != nil && o.spec.Name == spec.Name {
				an, old[i] = o, nil
				break
			}
		}
		if an == nil {
			an = &animation{start: now}
			a.log.Debug("Animation started", zap.Int32("node", int32(id)), zap.String("name", spec.Name),
				zap.Duration("duration", spec.Duration), zap.Float64("iterations", spec.Iterations))
		}
		an.spec = spec
		an.frames, an.props = resolveFrames(tl, eval)
		if len(an.props) > 0 {
			next = append(next, an)
		}
	}
	if len(next) == 0 {
		delete(a.animations, id)
		return
	}
	a.animations[id] = next
}

func resolveFrames(tl *css.Timeline, eval FrameEvaluator) ([]frame, []string) {
	frames := make([]frame, 0, len(tl.Frames))
	seen := make(map[string]bool)
	var props []string
	for _, kf := range tl.Frames {
		f := frame{offset: kf.Offset, values: make(map[string]cascade.Value, len(kf.Declarations))}
		for _, decl := range kf.Declarations {
			if eval == nil {
				break
			}
			v, ok := eval(decl)
			if !ok {
				continue
			}
			f.values[decl.Property] = v
			if !seen[decl.Property] {
				seen[decl.Property] = true
				props = append(props, decl.Property)
			}
		}
		frames = append(frames, f)
	}
	return frames, props
}

// Overlay returns base with values driven by animations and transitions of
// the node at now. Transitions win over animations for the same property.
// Base is returned as is when nothing drives the node.
func (a *Animator) Overlay(id dom.NodeID, now time.Time, base cascade.Properties) cascade.Properties {
	out := base
	cloned := false
	set := func(name string, v cascade.Value) {
		if !cloned {
			out, cloned = base.Clone(), true
		}
		out[name] = v
	}

	for _, an := range a.animations[id] {
		p, phase := an.progress(now)
		if phase != Playing {
			continue
		}
		eased := an.spec.Timing.At(p)
		for _, name := range an.props {
			set(name, an.sample(name, eased, base.Get(name)))
		}
	}
	for name, tr := range a.transitions[id] {
		v, _ := tr.value(now)
		set(name, v)
	}
	return out
}

// Tick retires finished transitions and animations. It returns, in
// ascending order, nodes whose overlay may differ from the previous tick.
func (a *Animator) Tick(now time.Time) []dom.NodeID {
	dirty := make(map[dom.NodeID]bool)
	for id, running := range a.transitions {
		dirty[id] = true
		for name, tr := range running {
			if _, done := tr.value(now); done {
				delete(running, name)
				a.log.Debug("Transition finished", zap.Int32("node", int32(id)), zap.String("property", name))
			}
		}
		if len(running) == 0 {
			delete(a.transitions, id)
		}
	}
	for id, ans := range a.animations {
		for _, an := range ans {
			_, phase := an.progress(now)
			switch {
			case phase != Finished:
				dirty[id] = true
			case !an.finished:
				an.finished = true
				dirty[id] = true
				a.log.Debug("Animation finished", zap.Int32("node", int32(id)), zap.String("name", an.spec.Name))
			}
		}
	}
	return slices.Sorted(maps.Keys(dirty))
}

// Progress returns directed progress of the node animation with given name.
func (a *Animator) Progress(id dom.NodeID, name string, now time.Time) (float64, Phase, bool) {
	for _, an := range a.animations[id] {
		if an.spec.Name == name {
			p, phase := an.progress(now)
			return p, phase, true
		}
	}
	return 0, Finished, false
}

// Running returns number of transitions and animations kept for a node.
func (a *Animator) Running(id dom.NodeID) (transitions, animations int) {
	return len(a.transitions[id]), len(a.animations[id])
}

// Len returns number of nodes with transition or animation state.
func (a *Animator) Len() int {
	ids := make(map[dom.NodeID]bool)
	for id := range a.transitions {
		ids[id] = true
	}
	for id := range a.animations {
		ids[id] = true
	}
	return len(ids)
}

// Remove discards all state of nodes.
func (a *Animator) Remove(ids ...dom.NodeID) {
	var n int
	for _, id := range ids {
		n += len(a.transitions[id]) + len(a.animations[id])
		delete(a.transitions, id)
		delete(a.animations, id)
		delete(a.observed, id)
	}
	if n > 0 {
		a.log.Debug("Discarded animation state", zap.Int("nodes", len(ids)), zap.Int("entries", n))
	}
}

// Reset discards state of all nodes.
func (a *Animator) Reset() {
	clear(a.transitions)
	clear(a.animations)
	clear(a.observed)
}
