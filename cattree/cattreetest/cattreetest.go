// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cattreetest provides small categorical trees for tests.
package cattreetest

import (
	"fmt"
	"testing"

	"golang.org/x/perf/forensics/cattree"
)

// Measures are the measures recorded by the example trees.
var Measures = []string{"real time", "cpu time"}

// GambitDims returns the dimensions of the Gambit example tree.
func GambitDims() []cattree.Dimension {
	return []cattree.Dimension{
		{Name: "Compiler", Categories: []string{"Gambit"}},
		{Name: "gambit-version", Categories: []string{"V1", "V2", "V3"}},
		{Name: "bench", Categories: []string{"pi", "fib"}},
		{Name: "measure", Categories: append([]string(nil), Measures...)},
		{Name: "stat", Categories: []string{"mean", "sd", "median"}},
	}
}

// GambitMetas returns the version metadata of the Gambit example tree.
func GambitMetas() []string {
	return []string{
		"V1\nI'm a version\nno_link",
		"V2\nI'm a version\nno_link",
		"V3\nI'm a version\nno_link",
	}
}

// GambitData returns the data of the Gambit example tree. Leaves under
// each benchmark are indexed by measure, then by statistic.
func GambitData() cattree.Node {
	version := func(pi, fib [2][3]float64) cattree.Node {
		return cattree.Branch(
			cattree.Branch(cattree.Leaves(pi[0][:]...), cattree.Leaves(pi[1][:]...)),
			cattree.Branch(cattree.Leaves(fib[0][:]...), cattree.Leaves(fib[1][:]...)),
		)
	}
	return cattree.Branch(
		cattree.Branch(
			version([2][3]float64{{10, 10.5, 1}, {0.1, 0.11, 0.05}}, [2][3]float64{{1, 0.9, 0.1}, {0.5, 0.4, 0.25}}),
			version([2][3]float64{{20, 20.5, 1}, {0.2, 0.21, 0.05}}, [2][3]float64{{2, 1.9, 0.1}, {0.5, 0.4, 0.25}}),
			version([2][3]float64{{30, 30.5, 1}, {0.3, 0.31, 0.05}}, [2][3]float64{{3, 2.9, 0.1}, {0.5, 0.4, 0.25}}),
		),
	)
}

// Gambit returns the Gambit example tree, a dataset named "gambit" over
// one compiler, three versions, two benchmarks, two measures and three
// statistics.
func Gambit(t testing.TB) *cattree.Tree {
	t.Helper()
	return MustNew(t, "gambit", GambitDims(), GambitData(), &cattree.Options{Measures: Measures, Metas: GambitMetas()})
}

// GambitMissingV2 is like Gambit, but the subtree of version V2 is
// missing.
func GambitMissingV2(t testing.TB) *cattree.Tree {
	t.Helper()
	data := GambitData()
	data.Children[0].Children[1] = cattree.Missing()
	return MustNew(t, "gambit", GambitDims(), data, &cattree.Options{Measures: Measures, Metas: GambitMetas()})
}

// Chez returns a second dataset, named "chez", that shares the bench,
// measure and stat dimensions of Gambit. Its values are those of
// Gambit's V1 and V3 scaled by two.
func Chez(t testing.TB) *cattree.Tree {
	t.Helper()
	g := GambitData().Children[0]
	dims := []cattree.Dimension{
		{Name: "chez-version", Categories: []string{"C1", "C2"}},
		{Name: "bench", Categories: []string{"pi", "fib"}},
		{Name: "measure", Categories: append([]string(nil), Measures...)},
		{Name: "stat", Categories: []string{"mean", "sd", "median"}},
	}
	root := cattree.Branch(Scale(g.Children[0], 2), Scale(g.Children[2], 2))
	metas := []string{"name : C1\ntime : 1\n", "name : C2\ntime : 2\n"}
	return MustNew(t, "chez", dims, root, &cattree.Options{Measures: Measures, Metas: metas})
}

// Scale returns a copy of n with every leaf multiplied by k.
func Scale(n cattree.Node, k float64) cattree.Node {
	switch n.Kind {
	case cattree.LeafNode:
		return cattree.Leaf(n.Value * k)
	case cattree.BranchNode:
		children := make([]cattree.Node, len(n.Children))
		for i, c := range n.Children {
			children[i] = Scale(c, k)
		}
		return cattree.Branch(children...)
	}
	return n
}

// MustNew is cattree.New, failing the test on error.
func MustNew(t testing.TB, name string, dims []cattree.Dimension, root cattree.Node, opts *cattree.Options) *cattree.Tree {
	t.Helper()
	tree, err := cattree.New(name, dims, root, opts)
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

// Build returns a complete tree over dims whose leaf at category
// indexes idx holds value(idx). If value returns NaN, that leaf is
// missing.
func Build(name string, dims []cattree.Dimension, value func(idx []int) float64, opts *cattree.Options) (*cattree.Tree, error) {
	idx := make([]int, len(dims))
	var build func(depth int) cattree.Node
	build = func(depth int) cattree.Node {
		n := len(dims[depth].Categories)
		children := make([]cattree.Node, n)
		for i := 0; i < n; i++ {
			idx[depth] = i
			if depth == len(dims)-1 {
				children[i] = cattree.Leaf(value(idx))
			} else {
				children[i] = build(depth + 1)
			}
		}
		return cattree.Branch(children...)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("no dimensions")
	}
	return cattree.New(name, dims, build(0), opts)
}
