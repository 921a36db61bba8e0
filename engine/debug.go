package engine

import (
	"strings"

	"uistyle/cascade"
	"uistyle/css"
	"uistyle/dom"
	"uistyle/utils/debug"
)

// Document returns the loaded document or nil. The returned document is
// never modified, RemoveNode installs a changed copy.
func (e *Engine) Document() *dom.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc
}

// Dump returns a readable tree of current styles. Only listed properties are
// shown, without names every property differing from its initial value is.
// It exists solely for manual inspection and reports.
func (e *Engine) Dump(props ...string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	tw := debug.NewTreeWriter()
	if e.doc == nil {
		tw.Line(0, "<no document>")
		return tw.String()
	}
	f := e.frame.Load()

	vars := make(map[string]string, len(e.merged.Variables)+len(e.vars))
	for name, v := range e.merged.Variables {
		vars[name] = v.String()
	}
	for name, v := range e.vars {
		vars[name] = v.String() + " (override)"
	}
	tw.Line(0, "Frame %d, viewport %gx%g, active media %v", f.Seq, e.opts.Viewport.Width, e.opts.Viewport.Height, e.media.ActiveSet())
	if len(vars) > 0 {
		tw.Line(0, "Variables (%d)", len(vars))
		tw.Fields(1, vars)
	}

	e.doc.Walk(func(id dom.NodeID, depth int) bool {
		cur := f.Properties(id)
		if cur == nil {
			return false
		}
		label := nodeLabel(e.doc.Node(id))
		if s := e.states.Of(id); s != css.StateBase {
			label += " " + s.String()
		}
		tw.Line(depth, "[%d] %s", id, label)
		tw.Fields(depth+1, fields(cur, f.Style(id), props))
		return true
	})
	return tw.String()
}

func fields(cur cascade.Properties, static *cascade.ComputedStyle, names []string) map[string]string {
	out := make(map[string]string)
	if len(names) == 0 {
		for name, v := range cur {
			if !v.Equal(cascade.Initial(name)) {
				out[name] = v.String()
			}
		}
	} else {
		for _, name := range names {
			out[name] = cur.Get(name).String()
		}
	}
	for name, v := range out {
		if static != nil && !cur.Get(name).Equal(static.Get(name)) {
			out[name] = v + " (animated)"
		}
	}
	return out
}

func nodeLabel(n *dom.Node) string {
	var sb strings.Builder
	sb.WriteString(n.Tag)
	if id := n.ID(); id != "" {
		sb.WriteString("#" + id)
	}
	for _, c := range n.Classes() {
		sb.WriteString("." + c)
	}
	return sb.String()
}
