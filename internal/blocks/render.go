package blocks

import "strconv"

// Kind identifies a node of the display tree.
type Kind string

const (
	KindRoot      Kind = "root"
	KindParagraph Kind = "paragraph"
	KindHeading   Kind = "heading"
	KindList      Kind = "list"
	KindListItem  Kind = "list_item"
	KindContainer Kind = "container"
	KindSpan      Kind = "span"
)

const defaultColor = "default"

// headingSize maps a heading rank to its font size class.
var headingSize = map[Level]string{
	1: "3xl",
	2: "2xl",
	3: "xl",
	4: "lg",
	5: "md",
	6: "base",
}

// Style is the presentation computed for a node. Empty fields are unset.
type Style struct {
	Color           string `json:"color,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	TextAlign       string `json:"textAlign,omitempty"`
	MarginBottom    string `json:"marginBottom,omitempty"`
	FontWeight      string `json:"fontWeight,omitempty"`
	FontStyle       string `json:"fontStyle,omitempty"`
	TextDecoration  string `json:"textDecoration,omitempty"`
}

func (s Style) isZero() bool {
	return s == Style{}
}

// Node is one element of the rendered display tree.
type Node struct {
	Kind      Kind    `json:"kind"`
	Tag       string  `json:"tag,omitempty"`
	Key       string  `json:"key,omitempty"`
	Style     *Style  `json:"style,omitempty"`
	SizeClass string  `json:"size_class,omitempty"`
	Text      string  `json:"text,omitempty"`
	Children  []*Node `json:"children,omitempty"`
}

// Render walks the document and returns the root of its display tree. It
// has no side effects and accepts any document, including an empty one.
func Render(doc Document) *Node {
	return &Node{Kind: KindRoot, Children: renderBlocks(doc)}
}

// RenderContent parses serialized post content and renders it.
func RenderContent(content string) *Node {
	return Render(ParseString(content))
}

func renderBlocks(doc Document) []*Node {
	if len(doc) == 0 {
		return nil
	}
	nodes := make([]*Node, 0, len(doc))
	for i := range doc {
		nodes = append(nodes, renderBlock(&doc[i]))
	}
	return nodes
}

func renderBlock(b *Block) *Node {
	style := blockStyle(b.Props)

	switch b.Type {
	case TypeParagraph:
		return &Node{
			Kind:     KindParagraph,
			Tag:      "p",
			Key:      b.ID,
			Style:    style,
			Children: withChildren(renderInline(b.Content), b.Children),
		}

	case TypeHeading:
		n := &Node{
			Kind:     KindHeading,
			Tag:      "h2",
			Key:      b.ID,
			Style:    style,
			Children: withChildren(renderInline(b.Content), b.Children),
		}
		if b.Props != nil {
			if size, ok := headingSize[b.Props.Level]; ok {
				n.Tag = "h" + strconv.Itoa(int(b.Props.Level))
				n.SizeClass = size
			}
		}
		return n

	case TypeList:
		tag := "ul"
		if b.Props != nil && b.Props.ListType == ListTypeNumbered {
			tag = "ol"
		}
		items := make([]*Node, 0, len(b.Items))
		for i, item := range b.Items {
			items = append(items, &Node{
				Kind:     KindListItem,
				Tag:      "li",
				Key:      strconv.Itoa(i),
				Children: withChildren(renderInline(item), b.Children),
			})
		}
		return &Node{Kind: KindList, Tag: tag, Key: b.ID, Style: style, Children: items}

	default:
		return &Node{
			Kind:     KindContainer,
			Tag:      "div",
			Key:      b.ID,
			Style:    style,
			Children: withChildren(renderInline(b.Content), b.Children),
		}
	}
}

// withChildren appends the rendered nested blocks after a node's own content.
func withChildren(own []*Node, children Document) []*Node {
	return append(own, renderBlocks(children)...)
}

func renderInline(in Inline) []*Node {
	if len(in) == 0 {
		return nil
	}
	spans := make([]*Node, 0, len(in))
	for i, frag := range in {
		span := &Node{Kind: KindSpan, Tag: "span", Key: strconv.Itoa(i), Text: frag.Text}
		if frag.Styles != nil {
			var s Style
			if frag.Styles.Bold {
				s.FontWeight = "bold"
			}
			if frag.Styles.Italic {
				s.FontStyle = "italic"
			}
			if frag.Styles.Underline {
				s.TextDecoration = "underline"
			}
			s.Color = frag.Styles.Color
			if !s.isZero() {
				span.Style = &s
			}
		}
		spans = append(spans, span)
	}
	return spans
}

func blockStyle(p *Props) *Style {
	s := &Style{TextAlign: "left", MarginBottom: "1em"}
	if p == nil {
		return s
	}
	if p.TextColor != "" && p.TextColor != defaultColor {
		s.Color = p.TextColor
	}
	if p.BackgroundColor != "" && p.BackgroundColor != defaultColor {
		s.BackgroundColor = p.BackgroundColor
	}
	if p.TextAlignment != "" {
		s.TextAlign = p.TextAlignment
	}
	return s
}
