// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cattree

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/perf/forensics/benchmath"
)

// A Result holds one mean and one standard deviation per selected
// point of a query.
type Result struct {
	Mean, SD []float64

	// Absent lists the category paths of the missing subtrees the
	// query ran into, for example "gambit V2". These are not
	// errors, but may be worth reporting to the user.
	Absent []string
}

// A Series is a matrix of query results. Rows correspond to the
// selected categories of the series dimension and columns to the
// selected categories of the x dimension.
type Series struct {
	Mean, SD benchmath.Matrix
	Absent   []string
}

type walkMode int

const (
	// walkStats makes each visited leaf contribute the mean and
	// standard deviation recorded by its stat node.
	walkStats walkMode = iota
	// walkValues makes each visited leaf contribute its own value.
	walkValues
)

// walk visits the children of n selected by ctx[depth], depth first
// and in context order, and returns acc extended with what they
// contribute. A missing child contributes one NaN for every
// combination of categories ctx selects below it.
func (t *Tree) walk(ctx Context, mode walkMode, depth int, n *Node, trace string, acc Result) Result {
	dim := t.dims[depth]
	for _, idx := range ctx[depth] {
		c := n.child(idx)
		switch c.Kind {
		case BranchNode:
			acc = t.walk(ctx, mode, depth+1, c, trace+" "+dim.Categories[idx], acc)
		case LeafNode:
			if mode == walkStats && t.statDim >= 0 {
				acc.Mean = append(acc.Mean, n.valueAt(t.meanIdx))
				acc.SD = append(acc.SD, n.valueAt(t.sdIdx))
			} else {
				acc.Mean = append(acc.Mean, c.Value)
				acc.SD = append(acc.SD, math.NaN())
			}
		case MissingNode:
			pad := Context(ctx[depth+1:]).Size()
			for i := 0; i < pad; i++ {
				acc.Mean = append(acc.Mean, math.NaN())
				acc.SD = append(acc.SD, math.NaN())
			}
			acc.Absent = append(acc.Absent, strings.TrimPrefix(trace+" "+dim.Categories[idx], " "))
		}
	}
	return acc
}

// Slice returns every point selected by ctx, in depth-first order.
//
// The result always has ctx.Size() entries: a missing subtree
// contributes NaN for each combination of categories below it. If the
// tree has a stat dimension, each leaf contributes the mean and
// standard deviation of its stat node once per selected statistic;
// otherwise each leaf contributes its value with a NaN standard
// deviation.
func (t *Tree) Slice(ctx Context) (Result, error) {
	if err := t.checkContext(ctx); err != nil {
		return Result{}, err
	}
	return t.slice(ctx), nil
}

func (t *Tree) slice(ctx Context) Result {
	r := Result{
		Mean: make([]float64, 0, ctx.Size()),
		SD:   make([]float64, 0, ctx.Size()),
	}
	return t.walk(ctx, walkStats, 0, &t.root, "", r)
}

// GroupBy reduces the points selected by ctx to one point per selected
// category of dimension dim. Each point is the mean of the slice
// pinned to that category, with the combined standard deviation.
func (t *Tree) GroupBy(ctx Context, dim string) (Result, error) {
	di := t.DimIndex(dim)
	if di < 0 {
		return Result{}, fmt.Errorf("dataset %s: %w %q", t.Name, ErrUnknownDimension, dim)
	}
	if err := t.checkContext(ctx); err != nil {
		return Result{}, err
	}
	return t.groupBy(ctx, di), nil
}

func (t *Tree) groupBy(ctx Context, di int) Result {
	var r Result
	for _, idx := range ctx[di] {
		s := t.slice(ctx.with(di, idx))
		r.Mean = append(r.Mean, benchmath.Mean(s.Mean))
		r.SD = append(r.SD, benchmath.CombinedStdDev(s.SD))
		r.Absent = append(r.Absent, s.Absent...)
	}
	return r
}

// SeriesBy returns the matrix of points selected by ctx with one row
// per selected category of dimension z and one column per selected
// category of dimension x. Each row is GroupBy(x) of the context
// pinned to its z category.
//
// If x and z are the same dimension, the result is diagonal: row i
// holds the point for its category at column i and NaN elsewhere. If
// ctx selects no category in some dimension, every value is NaN.
func (t *Tree) SeriesBy(ctx Context, x, z string) (Series, error) {
	xi, zi := t.DimIndex(x), t.DimIndex(z)
	if xi < 0 {
		return Series{}, fmt.Errorf("dataset %s: %w %q", t.Name, ErrUnknownDimension, x)
	}
	if zi < 0 {
		return Series{}, fmt.Errorf("dataset %s: %w %q", t.Name, ErrUnknownDimension, z)
	}
	if err := t.checkContext(ctx); err != nil {
		return Series{}, err
	}

	rows, cols := len(ctx[zi]), len(ctx[xi])
	if ctx.Empty() {
		return Series{Mean: benchmath.NaNMatrix(rows, cols), SD: benchmath.NaNMatrix(rows, cols)}, nil
	}

	s := Series{Mean: make(benchmath.Matrix, rows), SD: make(benchmath.Matrix, rows)}
	for i, idx := range ctx[zi] {
		g := t.groupBy(ctx.with(zi, idx), xi)
		if xi == zi {
			mean, sd := g.Mean[0], g.SD[0]
			d := benchmath.NaNMatrix(2, rows)
			d[0][i], d[1][i] = mean, sd
			g.Mean, g.SD = d[0], d[1]
		}
		s.Mean[i], s.SD[i] = g.Mean, g.SD
		s.Absent = append(s.Absent, g.Absent...)
	}
	return s, nil
}

// CompareCategories returns, for each category of dimension x selected
// by ctx, the relative difference (a-b)/b between the points for
// categories a and b of dimension dim. Labels of the version-like
// dimension may be given as in IndexOf.
func (t *Tree) CompareCategories(ctx Context, dim, a, b, x string) ([]float64, error) {
	ai, err := t.IndexOf(dim, a)
	if err != nil {
		return nil, err
	}
	bi, err := t.IndexOf(dim, b)
	if err != nil {
		return nil, err
	}
	di := t.DimIndex(dim)
	sa, err := t.SeriesBy(ctx.with(di, ai), x, dim)
	if err != nil {
		return nil, err
	}
	sb, err := t.SeriesBy(ctx.with(di, bi), x, dim)
	if err != nil {
		return nil, err
	}
	ma, err := benchmath.MeanAxis(sa.Mean, 0)
	if err != nil {
		return nil, err
	}
	mb, err := benchmath.MeanAxis(sb.Mean, 0)
	if err != nil {
		return nil, err
	}
	diff, err := benchmath.Difference(ma, mb)
	if err != nil {
		return nil, err
	}
	for i := range diff {
		diff[i] /= mb[i]
	}
	return diff, nil
}
