package render

import (
	"bytes"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element is a rendered HTML-like node. An element with an empty Tag is a
// text node carrying Text.
type Element struct {
	Tag      string
	Attrs    map[string]string
	Children []*Element
	Text     string
}

// El creates an element with the given tag and children. Nil children are
// skipped.
func El(tag string, children ...*Element) *Element {
	e := &Element{Tag: tag}
	return e.Append(children...)
}

// TextNode creates a text node.
func TextNode(s string) *Element {
	return &Element{Text: s}
}

// Set assigns an attribute and returns e for chaining. Empty values are
// stored; use Class to merge class lists.
func (e *Element) Set(key, value string) *Element {
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}
	e.Attrs[key] = value
	return e
}

// SetIf assigns an attribute only when cond holds.
func (e *Element) SetIf(cond bool, key, value string) *Element {
	if cond {
		e.Set(key, value)
	}
	return e
}

// Class appends class names, ignoring empty ones.
func (e *Element) Class(classes ...string) *Element {
	parts := make([]string, 0, len(classes)+1)
	if existing := e.Attr("class"); existing != "" {
		parts = append(parts, existing)
	}
	for _, c := range classes {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return e
	}
	return e.Set("class", strings.Join(parts, " "))
}

// Append adds children, skipping nils.
func (e *Element) Append(children ...*Element) *Element {
	for _, c := range children {
		if c != nil {
			e.Children = append(e.Children, c)
		}
	}
	return e
}

// Attr returns the value of an attribute, or "".
func (e *Element) Attr(key string) string {
	if e == nil || e.Attrs == nil {
		return ""
	}
	return e.Attrs[key]
}

// Has reports whether the attribute is present.
func (e *Element) Has(key string) bool {
	if e == nil || e.Attrs == nil {
		return false
	}
	_, ok := e.Attrs[key]
	return ok
}

// TextContent returns the concatenated text of e and its descendants.
func (e *Element) TextContent() string {
	var b strings.Builder
	e.walk(func(n *Element) bool {
		if n.Tag == "" {
			b.WriteString(n.Text)
		}
		return true
	})
	return b.String()
}

// Find returns the first element in pre-order for which match holds.
func (e *Element) Find(match func(*Element) bool) *Element {
	var found *Element
	e.walk(func(n *Element) bool {
		if n.Tag != "" && match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindAll returns every element in pre-order for which match holds.
func (e *Element) FindAll(match func(*Element) bool) []*Element {
	var out []*Element
	e.walk(func(n *Element) bool {
		if n.Tag != "" && match(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// ByTag matches elements with the given tag.
func ByTag(tag string) func(*Element) bool {
	return func(e *Element) bool { return e.Tag == tag }
}

// ByAttr matches elements whose attribute equals value.
func ByAttr(key, value string) func(*Element) bool {
	return func(e *Element) bool { return e.Has(key) && e.Attrs[key] == value }
}

// walk visits e and its descendants in pre-order until fn returns false.
func (e *Element) walk(fn func(*Element) bool) bool {
	if e == nil {
		return true
	}
	if !fn(e) {
		return false
	}
	for _, c := range e.Children {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}

// Node converts e into an x/net/html node tree. Attributes are emitted in
// key order so the output is deterministic.
func (e *Element) Node() *html.Node {
	if e.Tag == "" {
		return &html.Node{Type: html.TextNode, Data: e.Text}
	}
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     e.Tag,
		DataAtom: atom.Lookup([]byte(e.Tag)),
	}
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: e.Attrs[k]})
	}
	for _, c := range e.Children {
		n.AppendChild(c.Node())
	}
	return n
}

// HTML serializes e.
func (e *Element) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.Node()); err != nil {
		return "", err
	}
	return buf.String(), nil
}
