package blocks

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTML serializes a display tree. The root itself emits no element.
func HTML(root *Node) (string, error) {
	var sb strings.Builder
	if root == nil {
		return "", nil
	}

	nodes := []*Node{root}
	if root.Kind == KindRoot {
		nodes = root.Children
	}
	for _, n := range nodes {
		if err := html.Render(&sb, toHTML(n)); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return sb.String(), nil
}

// RenderHTML parses serialized content and returns its HTML.
func RenderHTML(content string) (string, error) {
	return HTML(RenderContent(content))
}

func toHTML(n *Node) *html.Node {
	el := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
	}
	if n.Style != nil {
		if css := n.Style.css(); css != "" {
			el.Attr = append(el.Attr, html.Attribute{Key: "style", Val: css})
		}
	}
	if n.SizeClass != "" {
		el.Attr = append(el.Attr, html.Attribute{Key: "class", Val: "text-" + n.SizeClass})
	}
	if n.Text != "" {
		el.AppendChild(&html.Node{Type: html.TextNode, Data: n.Text})
	}
	for _, c := range n.Children {
		el.AppendChild(toHTML(c))
	}
	return el
}

func (s Style) css() string {
	decls := []struct{ prop, val string }{
		{"color", s.Color},
		{"background-color", s.BackgroundColor},
		{"text-align", s.TextAlign},
		{"margin-bottom", s.MarginBottom},
		{"font-weight", s.FontWeight},
		{"font-style", s.FontStyle},
		{"text-decoration", s.TextDecoration},
	}

	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		if d.val != "" {
			parts = append(parts, d.prop+": "+d.val)
		}
	}
	return strings.Join(parts, "; ")
}
