// Package blocks models the rich-text block documents stored as post
// content and renders them into display trees.
package blocks

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Type is the kind of a block. Values outside the known set render as a
// generic container.
type Type string

const (
	TypeParagraph Type = "paragraph"
	TypeHeading   Type = "heading"
	TypeList      Type = "list"
)

// ListTypeNumbered selects an ordered list.
const ListTypeNumbered = "numbered"

// Styles are the independent inline style flags of a fragment.
type Styles struct {
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	Color     string `json:"color,omitempty"`
}

// UnmarshalJSON treats each flag as set when its value is truthy, so
// "true" and 1 count as set. It fails only when data is not an object.
func (st *Styles) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*st = Styles{
		Bold:      truthy(fields["bold"]),
		Italic:    truthy(fields["italic"]),
		Underline: truthy(fields["underline"]),
		Color:     scalarText(fields["color"]),
	}
	return nil
}

// Fragment is a leaf span of text.
type Fragment struct {
	Text   string  `json:"text"`
	Styles *Styles `json:"styles,omitempty"`
}

// UnmarshalJSON keeps the text of a fragment whatever its styles hold. A
// number or boolean text is kept as its literal. Styles that are not an
// object are dropped.
func (f *Fragment) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text   json.RawMessage `json:"text"`
		Styles json.RawMessage `json:"styles"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*f = Fragment{Text: scalarText(raw.Text)}
	if isObject(raw.Styles) {
		var st Styles
		if err := json.Unmarshal(raw.Styles, &st); err == nil {
			f.Styles = &st
		}
	}
	return nil
}

// Inline is an ordered run of fragments. Anything that is not a JSON array
// decodes to an empty run; elements that are not objects are skipped.
type Inline []Fragment

func (in *Inline) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*in = nil
		return nil
	}

	frags := make(Inline, 0, len(raw))
	for _, r := range raw {
		if !isObject(r) {
			continue
		}
		var f Fragment
		if err := json.Unmarshal(r, &f); err != nil {
			continue
		}
		frags = append(frags, f)
	}
	*in = frags
	return nil
}

// Level is a heading rank. It accepts numbers and numeric strings; anything
// else decodes to zero.
type Level int

func (l *Level) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*l = Level(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			*l = Level(n)
			return nil
		}
	}
	*l = 0
	return nil
}

// Props holds the optional presentation attributes of a block.
type Props struct {
	TextColor       string `json:"textColor,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	TextAlignment   string `json:"textAlignment,omitempty"`
	Level           Level  `json:"level,omitempty"`
	ListType        string `json:"listType,omitempty"`
}

// UnmarshalJSON decodes each attribute on its own, so one mistyped value
// only loses that attribute.
func (p *Props) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*p = Props{
		TextColor:       scalarText(fields["textColor"]),
		BackgroundColor: scalarText(fields["backgroundColor"]),
		TextAlignment:   scalarText(fields["textAlignment"]),
		ListType:        scalarText(fields["listType"]),
	}
	if level, ok := fields["level"]; ok {
		_ = p.Level.UnmarshalJSON(level)
	}
	return nil
}

// Block is one node of a document. Children are owned by value, so a
// document is always a finite tree.
type Block struct {
	ID       string   `json:"id"`
	Type     Type     `json:"type"`
	Props    *Props   `json:"props,omitempty"`
	Content  Inline   `json:"content,omitempty"`
	Items    []Inline `json:"items,omitempty"`
	Children Document `json:"children,omitempty"`
}

// UnmarshalJSON accepts any object. Fields of an unexpected type decode to
// their zero value instead of failing the block.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       json.RawMessage `json:"id"`
		Type     json.RawMessage `json:"type"`
		Props    json.RawMessage `json:"props"`
		Content  json.RawMessage `json:"content"`
		Items    json.RawMessage `json:"items"`
		Children json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*b = Block{
		ID:   scalarText(raw.ID),
		Type: Type(scalarText(raw.Type)),
	}
	if isObject(raw.Props) {
		var p Props
		if err := json.Unmarshal(raw.Props, &p); err == nil {
			b.Props = &p
		}
	}
	if len(raw.Content) > 0 {
		_ = b.Content.UnmarshalJSON(raw.Content)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw.Items, &items); err == nil {
		for _, item := range items {
			var in Inline
			_ = in.UnmarshalJSON(item)
			b.Items = append(b.Items, in)
		}
	}
	if len(raw.Children) > 0 {
		_ = b.Children.UnmarshalJSON(raw.Children)
	}
	return nil
}

// Document is an ordered sequence of blocks. Decoding never fails: a value
// that is not an array yields an empty document and elements that are not
// blocks are skipped.
type Document []Block

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*d = nil
		return nil
	}

	doc := make(Document, 0, len(raw))
	for _, r := range raw {
		if !isObject(r) {
			continue
		}
		var b Block
		if err := json.Unmarshal(r, &b); err != nil {
			continue
		}
		doc = append(doc, b)
	}
	*d = doc
	return nil
}

// Parse decodes serialized post content. It accepts a JSON array of blocks,
// an object whose "blocks" field is a string holding such an array, or a
// JSON string holding such an array. Every other input yields an empty
// document.
func Parse(data []byte) Document {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '[':
		return parseArray(data)
	case '{':
		var wrapper struct {
			Blocks json.RawMessage `json:"blocks"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil
		}
		var encoded string
		if err := json.Unmarshal(wrapper.Blocks, &encoded); err != nil {
			return nil
		}
		return parseArray([]byte(encoded))
	case '"':
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return nil
		}
		return parseArray([]byte(encoded))
	}
	return nil
}

// ParseString is Parse for content already held as a string.
func ParseString(content string) Document {
	return Parse([]byte(content))
}

func parseArray(data []byte) Document {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	return doc
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// scalarText is the display text of a JSON scalar. Strings are unquoted,
// numbers and booleans keep their literal form and anything else is empty.
func scalarText(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// truthy reports whether a flag value counts as set. null, false, 0 and ""
// do not; any other value does.
func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}
