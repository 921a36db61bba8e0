// Package media tracks which @media rule groups are active for the current
// viewport.
package media

import (
	"slices"

	"go.uber.org/zap"

	"uistyle/css"
)

// Evaluator evaluates media groups of a stylesheet against a viewport. It is
// not safe for concurrent use, readers on other goroutines should take a
// Snapshot.
type Evaluator struct {
	log     *zap.Logger
	queries []css.MediaQuery
	width   float64
	height  float64
	active  []bool
	valid   bool
}

// NewEvaluator creates an evaluator for the media groups of a stylesheet,
// indexed as css.Rule.Media.
func NewEvaluator(log *zap.Logger, queries []css.MediaQuery) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{
		log:     log.Named("media"),
		queries: queries,
		active:  make([]bool, len(queries)),
	}
}

// SetQueries replaces media groups, as after a stylesheet reload, and
// re-evaluates them against the last viewport.
func (e *Evaluator) SetQueries(queries []css.MediaQuery) {
	e.queries = queries
	e.active = make([]bool, len(queries))
	e.valid = false
	e.Update(e.width, e.height)
}

// Update sets the viewport size and reports whether any group changed its
// state since the previous evaluation. When it did, every node needs to be
// cascaded again.
func (e *Evaluator) Update(width, height float64) bool {
	if e.valid && width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height

	changed := !e.valid
	for i, q := range e.queries {
		on := q.Matches(width)
		if on != e.active[i] {
			changed = true
			e.log.Debug("Media group toggled", zap.Int("group", i), zap.String("query", q.Raw), zap.Bool("active", on))
		}
		e.active[i] = on
	}
	e.valid = true
	if changed {
		e.log.Debug("Viewport updated", zap.Float64("width", width), zap.Float64("height", height), zap.Ints("active", e.ActiveSet()))
	}
	return changed
}

// Viewport returns the last evaluated viewport.
func (e *Evaluator) Viewport() (width, height float64) {
	return e.width, e.height
}

// Active reports whether group is active. Unknown groups never are.
func (e *Evaluator) Active(group int) bool {
	return group >= 0 && group < len(e.active) && e.active[group]
}

// ActiveSet returns indexes of active groups in ascending order.
func (e *Evaluator) ActiveSet() []int {
	var out []int
	for i, on := range e.active {
		if on {
			out = append(out, i)
		}
	}
	return out
}

// Snapshot returns an immutable view of current group states, suitable for
// cascade.Options.Media.
func (e *Evaluator) Snapshot() func(group int) bool {
	active := slices.Clone(e.active)
	return func(group int) bool {
		return group >= 0 && group < len(active) && active[group]
	}
}
