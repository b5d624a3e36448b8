// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cattree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// A Kind identifies what a Node holds.
type Kind uint8

const (
	// MissingNode marks a combination of categories for which no
	// data was collected. It may appear at any depth and stands for
	// the whole subtree below it.
	MissingNode Kind = iota
	// LeafNode holds a single measurement.
	LeafNode
	// BranchNode holds one child per category of its dimension.
	BranchNode
)

func (k Kind) String() string {
	switch k {
	case MissingNode:
		return "missing"
	case LeafNode:
		return "leaf"
	case BranchNode:
		return "branch"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// A Node is a node of a categorical tree.
//
// In JSON, a branch is an array of its children, a leaf is a number,
// and a missing node is null.
type Node struct {
	Kind     Kind
	Value    float64
	Children []Node
}

// Leaf returns a leaf holding v. A NaN value yields a missing node.
func Leaf(v float64) Node {
	if math.IsNaN(v) {
		return Missing()
	}
	return Node{Kind: LeafNode, Value: v}
}

// Branch returns a branch node with the given children.
func Branch(children ...Node) Node {
	return Node{Kind: BranchNode, Children: children}
}

// Missing returns a missing node.
func Missing() Node {
	return Node{Kind: MissingNode, Value: math.NaN()}
}

// Leaves returns a branch of leaves holding vs.
func Leaves(vs ...float64) Node {
	n := Node{Kind: BranchNode, Children: make([]Node, len(vs))}
	for i, v := range vs {
		n.Children[i] = Leaf(v)
	}
	return n
}

// child returns the i'th child of a branch, or a missing node if the
// branch has no such child.
func (n *Node) child(i int) *Node {
	if n.Kind != BranchNode || i < 0 || i >= len(n.Children) {
		return &missing
	}
	return &n.Children[i]
}

// valueAt returns the value of the i'th child of n if it is a leaf,
// and NaN otherwise.
func (n *Node) valueAt(i int) float64 {
	c := n.child(i)
	if c.Kind != LeafNode {
		return math.NaN()
	}
	return c.Value
}

var missing = Missing()

func (n Node) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case LeafNode:
		if math.IsInf(n.Value, 0) {
			return nil, fmt.Errorf("cannot encode infinite leaf %v", n.Value)
		}
		return json.Marshal(n.Value)
	case BranchNode:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, c := range n.Children {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := c.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return []byte("null"), nil
}

func (n *Node) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		return fmt.Errorf("empty tree node")
	case bytes.Equal(data, []byte("null")):
		*n = Missing()
	case data[0] == '[':
		var children []Node
		if err := json.Unmarshal(data, &children); err != nil {
			return err
		}
		*n = Branch(children...)
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("tree node %s is neither an array, a number nor null", data)
		}
		*n = Leaf(v)
	}
	return nil
}
