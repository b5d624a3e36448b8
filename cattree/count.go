// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cattree

import (
	"fmt"
	"math"
)

// values returns the raw leaf values selected by ctx, with NaN for
// every point under a missing subtree.
func (t *Tree) values(ctx Context) []float64 {
	return t.walk(ctx, walkValues, 0, &t.root, "", Result{}).Mean
}

// FindMinimum returns the smallest non-zero leaf value among the
// leaves under the given category of dimension dim. It returns NaN if
// there is no such leaf.
func (t *Tree) FindMinimum(dim, category string) (float64, error) {
	di := t.DimIndex(dim)
	if di < 0 {
		return 0, fmt.Errorf("dataset %s: %w %q", t.Name, ErrUnknownDimension, dim)
	}
	ci := t.dims[di].Index(category)
	if ci < 0 {
		return 0, fmt.Errorf("dataset %s: %w %q in %s", t.Name, ErrUnknownCategory, category, dim)
	}
	min := math.Inf(1)
	for _, v := range t.values(t.FullContext().with(di, ci)) {
		if v != 0 && v < min {
			min = v
		}
	}
	if math.IsInf(min, 1) {
		return math.NaN(), nil
	}
	return min, nil
}

// FindStatMin returns the smallest non-zero value of the given
// statistic in t.
func (t *Tree) FindStatMin(stat string) (float64, error) {
	return t.FindMinimum(StatDimension, stat)
}

// A Report counts the leaves of a tree by kind.
type Report struct {
	// NonZero and Zero count present leaves.
	NonZero, Zero int
	// Missing counts the points under missing subtrees.
	Missing int
}

// A CountKind selects what Count counts.
type CountKind int

const (
	// CountNumber counts present leaves.
	CountNumber CountKind = iota
	CountZero
	CountNonZero
	// CountMissing counts points under missing subtrees.
	CountMissing
	// CountAll counts every point, present or missing.
	CountAll
)

// Report counts every point of t by kind.
func (t *Tree) Report() Report {
	var r Report
	for _, v := range t.values(t.FullContext()) {
		switch {
		case math.IsNaN(v):
			r.Missing++
		case v == 0:
			r.Zero++
		default:
			r.NonZero++
		}
	}
	return r
}

// Count returns the number of points of t of the given kind.
func (t *Tree) Count(kind CountKind) int {
	r := t.Report()
	switch kind {
	case CountZero:
		return r.Zero
	case CountNonZero:
		return r.NonZero
	case CountMissing:
		return r.Missing
	case CountAll:
		return r.Missing + r.Zero + r.NonZero
	}
	return r.Zero + r.NonZero
}
