package ast

import (
	"encoding/json"
	"fmt"
	"io"
)

// wireNode is the serialized form a tree arrives in from the parser.
// Empty fields are omitted to keep dump files small.
type wireNode struct {
	Kind     string      `json:"kind"`
	Literal  string      `json:"literal,omitempty"`
	Name     string      `json:"name,omitempty"`
	Children []*wireNode `json:"children,omitempty"`
}

func toWire(n *Node) *wireNode {
	if n == nil {
		return nil
	}
	w := &wireNode{
		Kind:    n.Kind.String(),
		Literal: n.Literal,
		Name:    n.Name,
	}
	for _, c := range n.Children {
		w.Children = append(w.Children, toWire(c))
	}
	return w
}

func fromWire(w *wireNode) (*Node, error) {
	if w == nil {
		return nil, fmt.Errorf("missing node")
	}
	k := ParseKind(w.Kind)
	if k == KindInvalid {
		return nil, fmt.Errorf("unknown node kind %q", w.Kind)
	}
	n := &Node{Kind: k, Literal: w.Literal, Name: w.Name}
	for i, cw := range w.Children {
		c, err := fromWire(cw)
		if err != nil {
			return nil, fmt.Errorf("%s child %d: %w", w.Kind, i, err)
		}
		n.Children = append(n.Children, c)
	}
	return n, nil
}

// MarshalJSON serializes the node in the parser wire format.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(n))
}

// UnmarshalJSON deserializes a node from the parser wire format.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := fromWire(&w)
	if err != nil {
		return err
	}
	*n = *decoded
	return nil
}

// Decode reads one serialized tree from r and validates it.
func Decode(r io.Reader) (*Node, error) {
	var w wireNode
	dec := json.NewDecoder(r)
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	n, err := fromWire(&w)
	if err != nil {
		return nil, err
	}
	if err := Validate(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Encode writes the tree to w in the parser wire format, indented.
func Encode(w io.Writer, n *Node) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toWire(n))
}
