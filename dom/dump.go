package dom

import (
	"fmt"
	"strings"

	"github.com/xlab/treeprint"
)

// String returns a readable tree of the document. It exists solely for
// manual inspection during debugging.
func (d *Document) String() string {
	if d == nil || d.Node(d.root) == nil {
		return "<empty document>"
	}
	tree := treeprint.New()
	tree.SetValue(d.label(d.root))
	var add func(branch treeprint.Tree, id NodeID)
	add = func(branch treeprint.Tree, id NodeID) {
		for _, c := range d.nodes[id].Children {
			if len(d.nodes[c].Children) == 0 {
				branch.AddNode(d.label(c))
				continue
			}
			add(branch.AddBranch(d.label(c)), c)
		}
	}
	add(tree, d.root)
	return tree.String()
}

// label renders node as a compact selector-like string.
func (d *Document) label(id NodeID) string {
	n := &d.nodes[id]
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d] %s", id, n.Tag)
	if v := n.ID(); v != "" {
		sb.WriteString("#" + v)
	}
	for _, c := range n.Classes() {
		sb.WriteString("." + c)
	}
	if n.Text != "" {
		text := n.Text
		if len(text) > 32 {
			text = text[:32] + "..."
		}
		fmt.Fprintf(&sb, " %q", text)
	}
	return sb.String()
}
