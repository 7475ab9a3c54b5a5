package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Node is a namespace-agnostic view of one XML element. Name and attribute
// keys are local names; Text holds the character data that appears before
// the first child element.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node

	sawChild bool
}

func (n *Node) Attr(name string) string {
	return n.Attrs[name]
}

// Child returns the first direct child with the given local name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns the direct children with the given local name in
// document order.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Descendants walks the subtree in document order, including n itself, and
// collects every element whose local name is one of names.
func (n *Node) Descendants(names ...string) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, name := range names {
			if cur.Name == name {
				out = append(out, cur)
				break
			}
		}
		for _, c := range cur.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// parseTree decodes data into a Node tree. Non-UTF-8 documents are
// transcoded according to their XML declaration.
func parseTree(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Entity = xml.HTMLEntity

	var root *Node
	var stack []*Node

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name.Local}
			if len(t.Attr) > 0 {
				node.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					node.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
				parent.sawChild = true
			}
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			if !top.sawChild {
				top.Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unexpected end of document inside <%s>", stack[len(stack)-1].Name)
	}
	return root, nil
}

// firstText tries names in priority order and returns the trimmed value of
// the first child carrying one. A link element yields its href attribute
// when present. Children whose value is blank are skipped.
func firstText(n *Node, names ...string) string {
	for _, name := range names {
		for _, c := range n.ChildrenNamed(name) {
			if name == "link" {
				if href := strings.TrimSpace(c.Attr("href")); href != "" {
					return href
				}
			}
			if text := strings.TrimSpace(c.Text); text != "" {
				return text
			}
		}
	}
	return ""
}
