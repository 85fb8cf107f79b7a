// Package htmlnode provides small helpers for working with parsed
// golang.org/x/net/html node trees: attribute access, ordered child
// snapshots, and structural edits. It never parses or serializes HTML
// itself - trees come from the caller.
package htmlnode

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// AttrValue returns the value of the named attribute and whether it is
// present. Keys are expected in the lowercase form the x/net/html parser
// produces for HTML documents.
func AttrValue(n *html.Node, key string) (string, bool) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			return n.Attr[i].Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the named attribute is present, regardless of
// its value.
func HasAttr(n *html.Node, key string) bool {
	_, ok := AttrValue(n, key)
	return ok
}

// HasAnyAttr reports whether at least one of the named attributes is
// present.
func HasAnyAttr(n *html.Node, keys ...string) bool {
	for _, key := range keys {
		if HasAttr(n, key) {
			return true
		}
	}
	return false
}

// Children returns a snapshot of n's direct children in document order.
// The snapshot stays valid while the tree is being restructured, so
// callers may detach and re-append nodes while iterating over it.
func Children(n *html.Node) []*html.Node {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	return children
}

// Detach removes n from its parent. No-op when n has no parent.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// AppendChildren appends nodes to parent in the given order. Each node is
// detached from its current parent first since html.Node.AppendChild
// panics on nodes that are still attached elsewhere.
func AppendChildren(parent *html.Node, children ...*html.Node) {
	for _, c := range children {
		Detach(c)
		parent.AppendChild(c)
	}
}

// RemoveAllChildren detaches every direct child of n.
func RemoveAllChildren(n *html.Node) {
	for _, c := range Children(n) {
		n.RemoveChild(c)
	}
}

// FindNode returns the first element with the given tag in a depth-first
// walk of root, including root itself.
func FindNode(root *html.Node, tag atom.Atom) (*html.Node, bool) {
	if root.Type == html.ElementNode && root.DataAtom == tag {
		return root, true
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found, ok := FindNode(c, tag); ok {
			return found, true
		}
	}
	return nil, false
}
