// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchmath provides reductions over benchmark measurements
// in which some values may be missing.
//
// A missing measurement is represented by NaN. Every function in this
// package ignores missing values where a reduction makes sense and
// propagates them where it does not (for example, element-wise
// differences). Reductions over inputs that are entirely missing
// return NaN rather than an error, since partially collected data is
// the normal state of a benchmark archive.
package benchmath

import (
	"errors"
	"math"

	"github.com/aclements/go-moremath/stats"
)

// ErrShapeMismatch is returned when vectors or matrices passed to a
// reduction do not have compatible shapes.
var ErrShapeMismatch = errors.New("shape mismatch")

// A Reducer reduces a vector of values to a single value.
type Reducer func(xs []float64) float64

// Missing returns the value used to mark a missing measurement.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether x marks a missing measurement.
func IsMissing(x float64) bool {
	return math.IsNaN(x)
}

// Present returns the values of xs that are not missing, in order.
// It always returns a new slice.
func Present(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !IsMissing(x) {
			out = append(out, x)
		}
	}
	return out
}

// Mean returns the arithmetic mean of the values of xs that are not
// missing. If every value is missing, it returns NaN.
func Mean(xs []float64) float64 {
	p := Present(xs)
	if len(p) == 0 {
		return math.NaN()
	}
	return stats.Mean(p)
}

// CombinedStdDev combines the standard deviations of independent,
// already averaged quantities into the standard deviation of their
// mean. It computes sqrt(Σ sdᵢ²) / n over the values that are not
// missing, and returns NaN if every value is missing.
func CombinedStdDev(sds []float64) float64 {
	p := Present(sds)
	if len(p) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, sd := range p {
		sum += sd * sd
	}
	return math.Sqrt(sum) / float64(len(p))
}

// Min returns the smallest value of xs that is not missing, or NaN.
func Min(xs []float64) float64 {
	p := Present(xs)
	if len(p) == 0 {
		return math.NaN()
	}
	lo, _ := stats.Bounds(p)
	return lo
}

// Max returns the largest value of xs that is not missing, or NaN.
func Max(xs []float64) float64 {
	p := Present(xs)
	if len(p) == 0 {
		return math.NaN()
	}
	_, hi := stats.Bounds(p)
	return hi
}

// Difference returns a-b element by element. A missing operand
// yields a missing result at that position.
func Difference(a, b []float64) ([]float64, error) {
	if err := sameLength(a, b); err != nil {
		return nil, err
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out, nil
}

// StdDevOfDifference returns the standard deviation of the difference
// of two independent quantities, sqrt(sdA² + sdB²), element by
// element. A missing operand yields a missing result.
func StdDevOfDifference(sdA, sdB []float64) ([]float64, error) {
	if err := sameLength(sdA, sdB); err != nil {
		return nil, err
	}
	out := make([]float64, len(sdA))
	for i := range sdA {
		out[i] = math.Sqrt(sdA[i]*sdA[i] + sdB[i]*sdB[i])
	}
	return out, nil
}

// Percent expresses xs relative to base as a percentage. Positions
// where base is exactly zero are reported as 0% rather than an
// infinity.
func Percent(xs, base []float64) ([]float64, error) {
	if len(xs) != len(base) {
		return nil, shapeErrorf("%d values against %d baseline values", len(xs), len(base))
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		if base[i] == 0 {
			continue
		}
		out[i] = 100 * x / base[i]
	}
	return out, nil
}

func sameLength(a, b []float64) error {
	if len(a) == 0 || len(b) == 0 {
		return shapeErrorf("empty operand")
	}
	if len(a) != len(b) {
		return shapeErrorf("lengths %d and %d differ", len(a), len(b))
	}
	return nil
}
