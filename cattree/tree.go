// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cattree stores benchmark measurements in a categorical tree
// and answers queries over it.
//
// A tree is organized by an ordered list of dimensions (for example
// system, version, benchmark, measure and statistic). Each dimension
// has a fixed, ordered list of categories, and a branch at depth d has
// one child per category of dimension d. Leaves sit at a depth equal
// to the number of dimensions. A subtree for which no data was
// collected is represented by a missing node and reads as NaN.
//
// Queries are scoped by a Context, which selects a list of category
// indexes in every dimension. The results of Slice always have one
// entry per combination of selected categories, whether or not the
// data for that combination exists.
//
// A Tree is immutable after construction and may be shared by
// concurrent readers.
package cattree

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownCategory is returned when a category label or
	// index does not exist in a dimension.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUnknownDimension is returned when a dimension name does
	// not exist in a tree.
	ErrUnknownDimension = errors.New("unknown dimension")
	// ErrDepth is returned when a tree has leaves at the wrong
	// depth or is otherwise malformed.
	ErrDepth = errors.New("malformed tree")
	// ErrIncompatibleVariable is returned when two trees share a
	// dimension name but not its categories.
	ErrIncompatibleVariable = errors.New("incompatible dataset variable")
)

const (
	// StatDimension is the name of the dimension holding summary
	// statistics of a measurement. If a tree has it, it must be the
	// last dimension and must have a "mean" category.
	StatDimension = "stat"
	// VersionSuffix is the name suffix of the version-like dimension
	// that can carry one metadata string per category.
	VersionSuffix = "-version"
)

// A Dimension is a named categorical axis of a tree.
type Dimension struct {
	Name       string
	Categories []string
}

// Index returns the index of the category label in d, or -1.
func (d Dimension) Index(label string) int {
	for i, c := range d.Categories {
		if c == label {
			return i
		}
	}
	return -1
}

func (d Dimension) equal(o Dimension) bool {
	if len(d.Categories) != len(o.Categories) {
		return false
	}
	for i := range d.Categories {
		if d.Categories[i] != o.Categories[i] {
			return false
		}
	}
	return true
}

// Options holds optional attributes of a tree.
type Options struct {
	// Measures lists the measure names recorded in the tree.
	Measures []string

	// Metas holds one metadata string per category of the
	// version-like dimension. Its first line names the category.
	Metas []string

	// MetaDimension names the version-like dimension. If empty,
	// the first dimension whose name ends in VersionSuffix is
	// used.
	MetaDimension string
}

// A Tree is a named dataset of measurements organized by dimensions.
type Tree struct {
	// Name is the dataset name, typically the system that was
	// benchmarked.
	Name string

	Measures []string

	dims []Dimension
	root Node

	metas   []string
	metaDim int

	// statDim is the index of the stat dimension, or -1. meanIdx
	// and sdIdx are category indexes within it; sdIdx may be -1.
	statDim, meanIdx, sdIdx int
}

// New returns a tree over dims with data root.
//
// root is a branch over the categories of dims[0]. New checks that
// dimension names are unique, that every leaf sits at the depth of the
// last dimension, and that metadata, if any, matches the version-like
// dimension.
func New(name string, dims []Dimension, root Node, opts *Options) (*Tree, error) {
	if opts == nil {
		opts = &Options{}
	}
	t := &Tree{
		Name:     name,
		Measures: opts.Measures,
		dims:     dims,
		root:     root,
		metaDim:  -1,
		statDim:  -1,
		meanIdx:  -1,
		sdIdx:    -1,
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("dataset %s: %w: no dimensions", name, ErrDepth)
	}
	seen := make(map[string]bool)
	for i, d := range dims {
		if seen[d.Name] {
			return nil, fmt.Errorf("dataset %s: duplicate dimension %q", name, d.Name)
		}
		seen[d.Name] = true
		if t.metaDim < 0 && (d.Name == opts.MetaDimension || opts.MetaDimension == "" && strings.HasSuffix(d.Name, VersionSuffix)) {
			t.metaDim = i
		}
		if d.Name == StatDimension {
			if i != len(dims)-1 {
				return nil, fmt.Errorf("dataset %s: %w: %s must be the last dimension", name, ErrDepth, StatDimension)
			}
			t.statDim, t.meanIdx, t.sdIdx = i, d.Index("mean"), d.Index("sd")
			if t.meanIdx < 0 {
				return nil, fmt.Errorf("dataset %s: %s dimension has no mean category", name, StatDimension)
			}
		}
	}
	if opts.MetaDimension != "" && t.metaDim < 0 {
		return nil, fmt.Errorf("dataset %s: %w %q", name, ErrUnknownDimension, opts.MetaDimension)
	}
	if opts.Metas != nil {
		if t.metaDim < 0 {
			return nil, fmt.Errorf("dataset %s: metadata given but no %s dimension", name, VersionSuffix)
		}
		if n := len(dims[t.metaDim].Categories); len(opts.Metas) != n {
			return nil, fmt.Errorf("dataset %s: %d metadata strings for %d categories of %s", name, len(opts.Metas), n, dims[t.metaDim].Name)
		}
		t.metas = opts.Metas
	}
	if !t.ValidateDepth() {
		return nil, fmt.Errorf("dataset %s: %w: leaves are not all at depth %d", name, ErrDepth, len(dims))
	}
	return t, nil
}

// Dimensions returns the dimensions of t. The caller must not modify
// the result.
func (t *Tree) Dimensions() []Dimension {
	return t.dims
}

// Root returns the root node of t. The caller must not modify the
// result.
func (t *Tree) Root() Node {
	return t.root
}

// DimensionNames returns the names of the dimensions of t in order.
func (t *Tree) DimensionNames() []string {
	names := make([]string, len(t.dims))
	for i, d := range t.dims {
		names[i] = d.Name
	}
	return names
}

// DimIndex returns the index of the named dimension, or -1.
func (t *Tree) DimIndex(name string) int {
	for i, d := range t.dims {
		if d.Name == name {
			return i
		}
	}
	return -1
}

// HasDimension reports whether t has a dimension with the given name.
func (t *Tree) HasDimension(name string) bool {
	return t.DimIndex(name) >= 0
}

// Dimension returns the named dimension.
func (t *Tree) Dimension(name string) (Dimension, error) {
	i := t.DimIndex(name)
	if i < 0 {
		return Dimension{}, fmt.Errorf("dataset %s: %w %q", t.Name, ErrUnknownDimension, name)
	}
	return t.dims[i], nil
}

// MetaDimension returns the name of the version-like dimension, or ""
// if t has none.
func (t *Tree) MetaDimension() string {
	if t.metaDim < 0 {
		return ""
	}
	return t.dims[t.metaDim].Name
}

// Metas returns the metadata strings of the version-like dimension,
// or nil. The caller must not modify the result.
func (t *Tree) Metas() []string {
	return t.metas
}

// LastCategory returns the last category of the named dimension.
func (t *Tree) LastCategory(name string) (string, error) {
	d, err := t.Dimension(name)
	if err != nil {
		return "", err
	}
	if len(d.Categories) == 0 {
		return "", fmt.Errorf("dataset %s: dimension %s is empty", t.Name, name)
	}
	return d.Categories[len(d.Categories)-1], nil
}

// IndexOf returns the index of label in the named dimension. For the
// version-like dimension, label may also match the last word of the
// first line of a category's metadata (typically a commit hash or a
// release name).
func (t *Tree) IndexOf(name, label string) (int, error) {
	di := t.DimIndex(name)
	if di < 0 {
		return 0, fmt.Errorf("dataset %s: %w %q", t.Name, ErrUnknownDimension, name)
	}
	if di == t.metaDim {
		for i, m := range t.metas {
			first, _, _ := strings.Cut(m, "\n")
			if f := strings.Fields(first); len(f) > 0 && f[len(f)-1] == label {
				return i, nil
			}
		}
	}
	if i := t.dims[di].Index(label); i >= 0 {
		return i, nil
	}
	return 0, fmt.Errorf("dataset %s: %w %q in %s", t.Name, ErrUnknownCategory, label, name)
}

// ValidateDepth reports whether every leaf of t sits at the depth of
// the last dimension.
func (t *Tree) ValidateDepth() bool {
	if t.root.Kind == LeafNode {
		return false
	}
	return validDepth(&t.root, 1, len(t.dims))
}

// validDepth checks the children of n, which sit at the given depth.
func validDepth(n *Node, depth, want int) bool {
	for i := range n.Children {
		c := &n.Children[i]
		switch c.Kind {
		case LeafNode:
			if depth != want {
				return false
			}
		case BranchNode:
			if depth >= want || !validDepth(c, depth+1, want) {
				return false
			}
		}
	}
	return true
}

// CheckCompatible checks that dimensions sharing a name across trees
// have identical category lists.
func CheckCompatible(trees ...*Tree) error {
	dims := make(map[string]Dimension)
	owner := make(map[string]string)
	for _, t := range trees {
		for _, d := range t.dims {
			prev, ok := dims[d.Name]
			if !ok {
				dims[d.Name], owner[d.Name] = d, t.Name
				continue
			}
			if !prev.equal(d) {
				return fmt.Errorf("%w: datasets %s and %s share variable %q but not its categories", ErrIncompatibleVariable, owner[d.Name], t.Name, d.Name)
			}
		}
	}
	return nil
}
