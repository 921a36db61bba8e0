package cascade

import (
	"errors"
	"fmt"
	"maps"
	"sync/atomic"

	"uistyle/css"
)

var (
	// ErrUnresolvedVariable is reported for references to undefined variables.
	ErrUnresolvedVariable = errors.New("unresolved variable")
	// ErrCyclicVariable is reported for variables referencing themselves.
	ErrCyclicVariable = errors.New("cyclic variable")
)

var scopeVersion atomic.Uint64

// Scope is an immutable snapshot of custom properties. Changing variables
// produces a new Scope with a new version, readers keep using the one they
// started with.
type Scope struct {
	version uint64
	vars    map[string]css.Expr
}

// NewScope creates a snapshot from :root variables. The map is copied.
func NewScope(vars map[string]css.Expr) *Scope {
	return &Scope{version: scopeVersion.Add(1), vars: maps.Clone(vars)}
}

// With returns a new scope where overrides replace existing variables.
func (s *Scope) With(overrides map[string]css.Expr) *Scope {
	vars := make(map[string]css.Expr, len(s.vars)+len(overrides))
	maps.Copy(vars, s.vars)
	maps.Copy(vars, overrides)
	return &Scope{version: scopeVersion.Add(1), vars: vars}
}

// Version identifies the snapshot. Versions are unique per process and
// increase monotonically.
func (s *Scope) Version() uint64 {
	return s.version
}

// Lookup returns raw expression of a variable.
func (s *Scope) Lookup(name string) (css.Expr, bool) {
	if s == nil {
		return nil, false
	}
	e, ok := s.vars[name]
	return e, ok
}

// Len returns number of variables.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.vars)
}

// Substitute replaces variable references in e. A var() used directly as a
// value or list item falls back to its fallback expression when the
// variable is undefined or cyclic. A var() nested inside a function never
// consults its fallback.
func (s *Scope) Substitute(e css.Expr) (css.Expr, error) {
	sub := &substituter{scope: s, resolving: make(map[string]bool)}
	return sub.expr(e, true)
}

type substituter struct {
	scope     *Scope
	resolving map[string]bool
}

func (s *substituter) expr(e css.Expr, fallback bool) (css.Expr, error) {
	switch v := e.(type) {
	case css.VarRef:
		val, err := s.lookup(v.Name)
		if err == nil {
			return val, nil
		}
		if fallback && v.Fallback != nil {
			return s.expr(v.Fallback, true)
		}
		return nil, err
	case css.List:
		out := css.List{Comma: v.Comma, Items: make([]css.Expr, 0, len(v.Items))}
		for _, it := range v.Items {
			r, err := s.expr(it, fallback)
			if err != nil {
				return nil, err
			}
			// "var(--pair) 4px" with --pair: "1px 2px" splices
			if l, ok := r.(css.List); ok && !l.Comma && !v.Comma {
				out.Items = append(out.Items, l.Items...)
				continue
			}
			out.Items = append(out.Items, r)
		}
		return out, nil
	case css.Math:
		out := css.Math{Op: v.Op, Args: make([]css.Expr, len(v.Args))}
		for i, a := range v.Args {
			r, err := s.expr(a, false)
			if err != nil {
				return nil, err
			}
			out.Args[i] = r
		}
		return out, nil
	case css.Func:
		out := css.Func{Name: v.Name, Args: make([]css.Expr, len(v.Args))}
		for i, a := range v.Args {
			r, err := s.expr(a, false)
			if err != nil {
				return nil, err
			}
			out.Args[i] = r
		}
		return out, nil
	case css.ShorthandPart:
		r, err := s.expr(v.Value, fallback)
		if err != nil {
			return nil, err
		}
		return css.ShorthandPart{Shorthand: v.Shorthand, Longhand: v.Longhand, Value: r}, nil
	}
	return e, nil
}

func (s *substituter) lookup(name string) (css.Expr, error) {
	if s.resolving[name] {
		return nil, fmt.Errorf("%w: %s", ErrCyclicVariable, name)
	}
	raw, ok := s.scope.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedVariable, name)
	}
	s.resolving[name] = true
	defer delete(s.resolving, name)
	return s.expr(raw, true)
}
