package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind identifies one of the element kinds the capture pipeline rewrites.
type Kind int

const (
	// KindAnchor is an <a> element; its href is a navigation target.
	KindAnchor Kind = iota
	// KindLink is a <link> element (stylesheets, icons).
	KindLink
	// KindScript is a <script> element.
	KindScript
	// KindImage is an <img> element.
	KindImage
)

// String returns the tag name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAnchor:
		return "a"
	case KindLink:
		return "link"
	case KindScript:
		return "script"
	case KindImage:
		return "img"
	default:
		return "unknown"
	}
}

// kindOf maps an element node to its Kind.
func kindOf(n *html.Node) (Kind, bool) {
	switch n.DataAtom {
	case atom.A:
		return KindAnchor, true
	case atom.Link:
		return KindLink, true
	case atom.Script:
		return KindScript, true
	case atom.Img:
		return KindImage, true
	default:
		return 0, false
	}
}

// Element is a handle to one element of a Document.
// Mutations through an Element are visible in the owning Document.
type Element struct {
	node *html.Node

	// Kind is the element kind.
	Kind Kind
}

// Attr returns the value of the attribute key and whether it is present.
func (e Element) Attr(key string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets the attribute key to val, adding it if absent.
func (e Element) SetAttr(key, val string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			e.node.Attr[i].Val = val
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: key, Val: val})
}

// HasRel reports whether the rel attribute contains the given token.
func (e Element) HasRel(token string) bool {
	rel, ok := e.Attr("rel")
	if !ok {
		return false
	}
	for _, f := range strings.Fields(rel) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

// Document is a parsed HTML document.
type Document struct {
	root *html.Node
}

// Parse parses an HTML document. Malformed markup is repaired the way
// browsers do, so Parse only fails on read errors.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Elements returns the elements of the given kinds in document order.
// With no kinds, every supported element is returned.
func (d *Document) Elements(kinds ...Kind) []Element {
	want := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	var out []Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if k, ok := kindOf(n); ok && (len(want) == 0 || want[k]) {
				out = append(out, Element{node: n, Kind: k})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return out
}

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() string {
	n := find(d.root, atom.Title)
	if n == nil {
		return ""
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

// AppendToBody parses fragment in body context and appends the resulting
// nodes as the last children of <body>.
func (d *Document) AppendToBody(fragment string) error {
	body := find(d.root, atom.Body)
	if body == nil {
		// html.Parse always synthesizes a body; this only guards hand-built trees.
		body = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
		d.root.AppendChild(body)
	}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return nil
}

// SetUTF8Charset removes every charset declaration, <meta charset> and
// <meta http-equiv="Content-Type"> alike, and puts a single
// <meta charset="utf-8"> at the start of <head>. Render always emits UTF-8,
// so a decoded page must not keep declaring its original encoding.
func (d *Document) SetUTF8Charset() {
	var decls []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
			e := Element{node: n}
			_, hasCharset := e.Attr("charset")
			equiv, _ := e.Attr("http-equiv")
			if hasCharset || strings.EqualFold(strings.TrimSpace(equiv), "content-type") {
				decls = append(decls, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)

	for _, n := range decls {
		n.Parent.RemoveChild(n)
	}

	head := find(d.root, atom.Head)
	if head == nil {
		// html.Parse always synthesizes a head; this only guards hand-built trees.
		head = &html.Node{Type: html.ElementNode, Data: "head", DataAtom: atom.Head}
		d.root.InsertBefore(head, d.root.FirstChild)
	}
	meta := &html.Node{
		Type:     html.ElementNode,
		Data:     "meta",
		DataAtom: atom.Meta,
		Attr:     []html.Attribute{{Key: "charset", Val: "utf-8"}},
	}
	head.InsertBefore(meta, head.FirstChild)
}

// Render serializes the document.
func (d *Document) Render() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// find returns the first element with the given atom in depth-first order.
func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}
