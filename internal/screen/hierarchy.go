// File: internal/screen/hierarchy.go
package screen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ErrEmptyHierarchy is returned by Parse when the document has no root element.
var ErrEmptyHierarchy = errors.New("empty ui hierarchy")

// Node is one element of a uiautomator dump.
type Node struct {
	Index       int    `json:"index"`
	Class       string `json:"class,omitempty"`
	ResourceID  string `json:"resource_id,omitempty"`
	Package     string `json:"package,omitempty"`
	Text        string `json:"text,omitempty"`
	ContentDesc string `json:"content_desc,omitempty"`
	// RawBounds is the attribute as dumped; Bounds is only meaningful when HasBounds is set.
	RawBounds string `json:"bounds,omitempty"`
	Bounds    Bounds `json:"-"`
	HasBounds bool   `json:"-"`

	Checkable     bool `json:"checkable,omitempty"`
	Checked       bool `json:"checked,omitempty"`
	Clickable     bool `json:"clickable,omitempty"`
	LongClickable bool `json:"long_clickable,omitempty"`
	Enabled       bool `json:"enabled,omitempty"`
	Focusable     bool `json:"focusable,omitempty"`
	Focused       bool `json:"focused,omitempty"`
	Scrollable    bool `json:"scrollable,omitempty"`
	Selected      bool `json:"selected,omitempty"`
	Password      bool `json:"password,omitempty"`

	Depth    int     `json:"-"`
	Parent   *Node   `json:"-"`
	Children []*Node `json:"children,omitempty"`
}

// Hierarchy is the parsed element tree of one screen. Roots are the
// top-level nodes under the <hierarchy> element.
type Hierarchy struct {
	Rotation int     `json:"rotation"`
	Roots    []*Node `json:"roots"`
}

// Parse reads a uiautomator XML dump. Both a <hierarchy> document and a bare
// <node> root are accepted.
func Parse(raw string) (*Hierarchy, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil {
		return nil, fmt.Errorf("failed to parse ui hierarchy: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrEmptyHierarchy
	}

	h := &Hierarchy{}
	switch root.Tag {
	case "hierarchy":
		h.Rotation, _ = strconv.Atoi(root.SelectAttrValue("rotation", "0"))
		for _, child := range root.ChildElements() {
			if child.Tag == "node" {
				h.Roots = append(h.Roots, buildNode(child, nil, 0))
			}
		}
	case "node":
		h.Roots = []*Node{buildNode(root, nil, 0)}
	default:
		return nil, fmt.Errorf("unexpected ui hierarchy root element <%s>", root.Tag)
	}
	return h, nil
}

func buildNode(el *etree.Element, parent *Node, depth int) *Node {
	attr := func(key string) string { return el.SelectAttrValue(key, "") }
	flag := func(key string) bool { return attr(key) == "true" }

	n := &Node{
		Class:         attr("class"),
		ResourceID:    attr("resource-id"),
		Package:       attr("package"),
		Text:          attr("text"),
		ContentDesc:   attr("content-desc"),
		RawBounds:     attr("bounds"),
		Checkable:     flag("checkable"),
		Checked:       flag("checked"),
		Clickable:     flag("clickable"),
		LongClickable: flag("long-clickable"),
		Enabled:       flag("enabled"),
		Focusable:     flag("focusable"),
		Focused:       flag("focused"),
		Scrollable:    flag("scrollable"),
		Selected:      flag("selected"),
		Password:      flag("password"),
		Depth:         depth,
		Parent:        parent,
	}
	n.Index, _ = strconv.Atoi(attr("index"))
	if b, err := ParseBounds(n.RawBounds); err == nil {
		n.Bounds, n.HasBounds = b, true
	}

	for _, child := range el.ChildElements() {
		if child.Tag == "node" {
			n.Children = append(n.Children, buildNode(child, n, depth+1))
		}
	}
	return n
}

// Walk visits nodes in pre-order. Returning false from fn skips the node's subtree.
func (h *Hierarchy) Walk(fn func(*Node) bool) {
	if h == nil {
		return
	}
	var visit func(n *Node)
	visit = func(n *Node) {
		if !fn(n) {
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, r := range h.Roots {
		visit(r)
	}
}

// Len returns the number of nodes in the tree.
func (h *Hierarchy) Len() int {
	count := 0
	h.Walk(func(*Node) bool { count++; return true })
	return count
}

// FindByBounds returns every node whose parsed bounds equal b, in pre-order.
func (h *Hierarchy) FindByBounds(b Bounds) []*Node {
	var out []*Node
	h.Walk(func(n *Node) bool {
		if n.HasBounds && n.Bounds == b {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Interactive reports whether a tap on this node can reach a handler: the
// node is enabled and actionable itself, or sits inside a clickable ancestor.
func (n *Node) Interactive() bool {
	if n.Enabled && (n.Clickable || n.LongClickable || n.Checkable || n.Focusable || n.Scrollable) {
		return true
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Clickable {
			return true
		}
	}
	return false
}

// Describe returns a short human label, preferring visible text.
func (n *Node) Describe() string {
	switch {
	case strings.TrimSpace(n.Text) != "":
		return fmt.Sprintf("element with text '%s'", n.Text)
	case strings.TrimSpace(n.ContentDesc) != "":
		return fmt.Sprintf("element with description '%s'", n.ContentDesc)
	case n.ResourceID != "":
		return fmt.Sprintf("element %s", n.ResourceID)
	default:
		return fmt.Sprintf("element with bounds %s", n.RawBounds)
	}
}
