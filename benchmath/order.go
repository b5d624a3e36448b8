// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchmath

import (
	"math"
	"sort"
)

// Median returns the median of the values of xs that are not missing,
// or NaN if there are none. For an even count it returns the mean of
// the two central order statistics. xs is not modified.
func Median(xs []float64) float64 {
	p := Present(xs)
	n := len(p)
	if n == 0 {
		return math.NaN()
	}
	m := quickSelect(p, 0, n-1, n/2)
	if n%2 == 0 {
		m = (m + quickSelect(p, 0, n-1, n/2-1)) / 2
	}
	return m
}

// quickSelect returns the k'th smallest value of xs[left:right+1],
// reordering that range.
func quickSelect(xs []float64, left, right, k int) float64 {
	for left < right {
		p := partition(xs, left, right, right)
		switch {
		case k == p:
			return xs[k]
		case k < p:
			right = p - 1
		default:
			left = p + 1
		}
	}
	return xs[left]
}

// partition is a Lomuto partition of xs[left:right+1] around
// xs[pivot]. It returns the final index of the pivot value; values
// before it are strictly smaller.
func partition(xs []float64, left, right, pivot int) int {
	pv := xs[pivot]
	xs[pivot], xs[right] = xs[right], xs[pivot]
	store := left
	for i := left; i < right; i++ {
		if xs[i] < pv {
			xs[i], xs[store] = xs[store], xs[i]
			store++
		}
	}
	xs[store], xs[right] = xs[right], xs[store]
	return store
}

// SortPerm returns the permutation that stably sorts key in ascending
// order. Missing keys are placed after every present key, keeping
// their relative order.
func SortPerm(key []float64) []int {
	perm := make([]int, len(key))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		a, b := key[perm[i]], key[perm[j]]
		if IsMissing(a) || IsMissing(b) {
			return !IsMissing(a) && IsMissing(b)
		}
		return a < b
	})
	return perm
}

// Permute returns xs reordered so that element i of the result is
// xs[perm[i]].
func Permute[T any](xs []T, perm []int) []T {
	out := make([]T, len(perm))
	for i, p := range perm {
		out[i] = xs[p]
	}
	return out
}

// ParallelSort sorts key and applies the same reordering to every
// slice in data. It returns the sorted key and the reordered data;
// the inputs are not modified. Missing keys sort last.
func ParallelSort(key []float64, data ...[]float64) ([]float64, [][]float64, error) {
	for i, d := range data {
		if len(d) != len(key) {
			return nil, nil, shapeErrorf("data %d has length %d, key has length %d", i, len(d), len(key))
		}
	}
	perm := SortPerm(key)
	out := make([][]float64, len(data))
	for i, d := range data {
		out[i] = Permute(d, perm)
	}
	return Permute(key, perm), out, nil
}
