// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cattree

import "fmt"

// A Context selects category indexes in every dimension of a tree.
// Context[d] lists, in traversal order, the categories of dimension d
// to include in a query.
type Context [][]int

// Clone returns a copy of c that shares no storage with it.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for i, l := range c {
		out[i] = append([]int(nil), l...)
	}
	return out
}

// Empty reports whether some dimension of c selects no category. An
// empty context yields only missing values.
func (c Context) Empty() bool {
	for _, l := range c {
		if len(l) == 0 {
			return true
		}
	}
	return false
}

// Size returns the number of category combinations selected by c.
func (c Context) Size() int {
	n := 1
	for _, l := range c {
		n *= len(l)
	}
	return n
}

// with returns a copy of c with dimension d replaced by idx. The other
// dimensions share storage with c.
func (c Context) with(d int, idx ...int) Context {
	out := append(Context(nil), c...)
	out[d] = idx
	return out
}

// A Selection selects categories of one dimension, either every
// category or an explicit list of labels.
type Selection struct {
	All    bool
	Labels []string
}

// All returns a Selection of every category.
func All() Selection {
	return Selection{All: true}
}

// Labels returns a Selection of the given category labels, in order.
func Labels(labels ...string) Selection {
	return Selection{Labels: labels}
}

func (s Selection) String() string {
	if s.All {
		return "all"
	}
	return fmt.Sprint(s.Labels)
}

// FormatContext converts one Selection per dimension into a Context.
// A label that is not a category of its dimension is an error wrapping
// ErrUnknownCategory.
func (t *Tree) FormatContext(sels []Selection) (Context, error) {
	if len(sels) != len(t.dims) {
		return nil, fmt.Errorf("dataset %s: %d selections for %d dimensions", t.Name, len(sels), len(t.dims))
	}
	ctx := make(Context, len(sels))
	for d, sel := range sels {
		dim := t.dims[d]
		if sel.All {
			ctx[d] = allIndexes(len(dim.Categories))
			continue
		}
		ctx[d] = make([]int, len(sel.Labels))
		for i, label := range sel.Labels {
			idx := dim.Index(label)
			if idx < 0 {
				return nil, fmt.Errorf("dataset %s: %w %q in %s", t.Name, ErrUnknownCategory, label, dim.Name)
			}
			ctx[d][i] = idx
		}
	}
	return ctx, nil
}

// NamedContext is like FormatContext, but takes selections by
// dimension name. Dimensions not named in sels select every category.
func (t *Tree) NamedContext(sels map[string]Selection) (Context, error) {
	list := make([]Selection, len(t.dims))
	for i, d := range t.dims {
		if s, ok := sels[d.Name]; ok {
			list[i] = s
		} else {
			list[i] = All()
		}
	}
	for name := range sels {
		if t.DimIndex(name) < 0 {
			return nil, fmt.Errorf("dataset %s: %w %q", t.Name, ErrUnknownDimension, name)
		}
	}
	return t.FormatContext(list)
}

// FullContext returns a Context selecting every category of every
// dimension.
func (t *Tree) FullContext() Context {
	ctx := make(Context, len(t.dims))
	for d, dim := range t.dims {
		ctx[d] = allIndexes(len(dim.Categories))
	}
	return ctx
}

// checkContext verifies that ctx fits the dimensions of t.
func (t *Tree) checkContext(ctx Context) error {
	if len(ctx) != len(t.dims) {
		return fmt.Errorf("dataset %s: context has %d dimensions, want %d", t.Name, len(ctx), len(t.dims))
	}
	for d, l := range ctx {
		n := len(t.dims[d].Categories)
		for _, idx := range l {
			if idx < 0 || idx >= n {
				return fmt.Errorf("dataset %s: %w index %d in %s", t.Name, ErrUnknownCategory, idx, t.dims[d].Name)
			}
		}
	}
	return nil
}

func allIndexes(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
