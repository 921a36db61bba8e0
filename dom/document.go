// Package dom holds the element tree styles are resolved against.
//
// Nodes live in an arena owned by Document and are addressed by NodeID. A
// parent is stored as an index, never as a pointer, so the tree has no
// ownership cycles.
package dom

import (
	"slices"
	"strings"
)

// NodeID addresses a node inside its Document. IDs are stable for the
// lifetime of the document and are never reused after removal.
type NodeID int32

// NoNode is the parent of the root and the result of failed lookups.
const NoNode NodeID = -1

// Attr is a single attribute in source order.
type Attr struct {
	Name  string
	Value string
}

// Node is an element of the document tree.
type Node struct {
	Tag      string
	Attrs    []Attr
	Text     string
	Children []NodeID
	Parent   NodeID

	removed bool
}

// Attr returns value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// ID returns value of the "id" attribute or empty string.
func (n *Node) ID() string {
	v, _ := n.Attr("id")
	return v
}

// Classes returns whitespace separated tokens of the "class" attribute.
func (n *Node) Classes() []string {
	v, ok := n.Attr("class")
	if !ok {
		return nil
	}
	return strings.Fields(v)
}

// HasClass reports whether class is one of node classes.
func (n *Node) HasClass(class string) bool {
	v, ok := n.Attr("class")
	if !ok {
		return false
	}
	for c := range strings.FieldsSeq(v) {
		if c == class {
			return true
		}
	}
	return false
}

// StyleSource is a stylesheet referenced by the document: either a path from
// <link rel="stylesheet"> or text of an inline <style> element.
type StyleSource struct {
	Href   string
	Inline string
}

// Document is an arena of nodes with a single root.
type Document struct {
	Name  string
	nodes []Node
	root  NodeID
}

// Root returns id of the root element.
func (d *Document) Root() NodeID {
	return d.root
}

// Len returns number of nodes ever allocated, including removed ones.
func (d *Document) Len() int {
	return len(d.nodes)
}

// Node returns node by id or nil when id is out of range or removed.
func (d *Document) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(d.nodes) || d.nodes[id].removed {
		return nil
	}
	return &d.nodes[id]
}

// Alive reports whether node is still part of the tree.
func (d *Document) Alive(id NodeID) bool {
	return d.Node(id) != nil
}

// Parent returns parent id, NoNode for root or unknown ids.
func (d *Document) Parent(id NodeID) NodeID {
	if n := d.Node(id); n != nil {
		return n.Parent
	}
	return NoNode
}

// Ancestors returns the ancestor chain of id, nearest first.
func (d *Document) Ancestors(id NodeID) []NodeID {
	var chain []NodeID
	for p := d.Parent(id); p != NoNode; p = d.Parent(p) {
		chain = append(chain, p)
	}
	return chain
}

// Walk visits live nodes depth first in document order, parents before
// children. Returning false from fn skips the subtree of the node.
func (d *Document) Walk(fn func(id NodeID, depth int) bool) {
	if d.Node(d.root) == nil {
		return
	}
	var visit func(id NodeID, depth int)
	visit = func(id NodeID, depth int) {
		if !fn(id, depth) {
			return
		}
		for _, c := range d.nodes[id].Children {
			visit(c, depth+1)
		}
	}
	visit(d.root, 0)
}

// ByID returns first node in document order with matching id attribute.
func (d *Document) ByID(id string) NodeID {
	found := NoNode
	d.Walk(func(n NodeID, _ int) bool {
		if found != NoNode {
			return false
		}
		if d.nodes[n].ID() == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// ByTag returns all nodes with given tag in document order.
func (d *Document) ByTag(tag string) []NodeID {
	var ids []NodeID
	d.Walk(func(n NodeID, _ int) bool {
		if d.nodes[n].Tag == tag {
			ids = append(ids, n)
		}
		return true
	})
	return ids
}

// StyleSources returns stylesheets referenced by the document in document
// order.
func (d *Document) StyleSources() []StyleSource {
	var sources []StyleSource
	d.Walk(func(id NodeID, _ int) bool {
		n := &d.nodes[id]
		switch n.Tag {
		case "link":
			rel, _ := n.Attr("rel")
			href, ok := n.Attr("href")
			if ok && href != "" && strings.EqualFold(strings.TrimSpace(rel), "stylesheet") {
				sources = append(sources, StyleSource{Href: href})
			}
		case "style":
			if strings.TrimSpace(n.Text) != "" {
				sources = append(sources, StyleSource{Inline: n.Text})
			}
		}
		return true
	})
	return sources
}

// Clone returns a deep copy sharing no mutable state with d.
func (d *Document) Clone() *Document {
	c := &Document{Name: d.Name, root: d.root, nodes: slices.Clone(d.nodes)}
	for i := range c.nodes {
		c.nodes[i].Children = slices.Clone(c.nodes[i].Children)
		c.nodes[i].Attrs = slices.Clone(c.nodes[i].Attrs)
	}
	return c
}

// Remove detaches node and its subtree from the document. It returns ids of
// all removed nodes, the node itself first. Removing the root is not allowed
// and returns nil.
func (d *Document) Remove(id NodeID) []NodeID {
	n := d.Node(id)
	if n == nil || id == d.root {
		return nil
	}
	if p := d.Node(n.Parent); p != nil {
		p.Children = slices.DeleteFunc(p.Children, func(c NodeID) bool { return c == id })
	}

	var removed []NodeID
	var mark func(id NodeID)
	mark = func(id NodeID) {
		removed = append(removed, id)
		for _, c := range d.nodes[id].Children {
			mark(c)
		}
		d.nodes[id].removed = true
	}
	mark(id)
	return removed
}

// add allocates a new node and links it under parent.
func (d *Document) add(tag string, attrs []Attr, parent NodeID) NodeID {
	id := NodeID(len(d.nodes))
	d.nodes = append(d.nodes, Node{Tag: tag, Attrs: attrs, Parent: parent})
	if parent != NoNode {
		d.nodes[parent].Children = append(d.nodes[parent].Children, id)
	}
	return id
}
