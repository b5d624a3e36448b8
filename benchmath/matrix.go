// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchmath

import (
	"fmt"
	"math"
)

// A Matrix is a row-major matrix of measurements. Rows are series and
// columns are categories of the x axis.
type Matrix [][]float64

func shapeErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrShapeMismatch, fmt.Sprintf(format, args...))
}

// NaNMatrix returns a rows×cols matrix in which every value is
// missing. Rows do not share storage.
func NaNMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		row := make([]float64, cols)
		for j := range row {
			row[j] = math.NaN()
		}
		m[i] = row
	}
	return m
}

// Dims returns the number of rows and columns of m. It returns an
// error wrapping ErrShapeMismatch if the rows of m have unequal
// lengths.
func (m Matrix) Dims() (rows, cols int, err error) {
	if len(m) == 0 {
		return 0, 0, nil
	}
	cols = len(m[0])
	for i, row := range m {
		if len(row) != cols {
			return 0, 0, shapeErrorf("row %d has %d columns, want %d", i, len(row), cols)
		}
	}
	return len(m), cols, nil
}

// Clone returns a deep copy of m.
func (m Matrix) Clone() Matrix {
	if m == nil {
		return nil
	}
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Transpose returns the transpose of m.
func Transpose(m Matrix) (Matrix, error) {
	rows, cols, err := m.Dims()
	if err != nil {
		return nil, err
	}
	out := make(Matrix, cols)
	for j := range out {
		out[j] = make([]float64, rows)
		for i := 0; i < rows; i++ {
			out[j][i] = m[i][j]
		}
	}
	return out, nil
}

// ReduceAxis reduces m along axis using reduce.
//
// Axis 0 reduces across rows, producing one value per column. Axis 1
// reduces each row, producing one value per row.
func ReduceAxis(m Matrix, axis int, reduce Reducer) ([]float64, error) {
	var vecs Matrix
	switch axis {
	case 0:
		t, err := Transpose(m)
		if err != nil {
			return nil, err
		}
		vecs = t
	case 1:
		if _, _, err := m.Dims(); err != nil {
			return nil, err
		}
		vecs = m
	default:
		return nil, fmt.Errorf("bad axis %d", axis)
	}
	out := make([]float64, len(vecs))
	for i, v := range vecs {
		out[i] = reduce(v)
	}
	return out, nil
}

// MeanAxis is shorthand for ReduceAxis(m, axis, Mean).
func MeanAxis(m Matrix, axis int) ([]float64, error) {
	return ReduceAxis(m, axis, Mean)
}

// StdDevAxis is shorthand for ReduceAxis(m, axis, CombinedStdDev).
func StdDevAxis(m Matrix, axis int) ([]float64, error) {
	return ReduceAxis(m, axis, CombinedStdDev)
}

// Elementwise combines matrices of identical shape position by
// position. The value at (i, j) of the result is reduce applied to the
// values at (i, j) of every operand, in operand order.
func Elementwise(reduce Reducer, ms ...Matrix) (Matrix, error) {
	if len(ms) == 0 {
		return Matrix{}, nil
	}
	rows, cols, err := ms[0].Dims()
	if err != nil {
		return nil, err
	}
	for k, m := range ms[1:] {
		r, c, err := m.Dims()
		if err != nil {
			return nil, err
		}
		if r != rows || c != cols {
			return nil, shapeErrorf("operand %d is %d×%d, want %d×%d", k+1, r, c, rows, cols)
		}
	}
	out := make(Matrix, rows)
	vec := make([]float64, len(ms))
	for i := range out {
		out[i] = make([]float64, cols)
		for j := range out[i] {
			for k, m := range ms {
				vec[k] = m[i][j]
			}
			out[i][j] = reduce(vec)
		}
	}
	return out, nil
}

// A Norm selects the per-row statistic that NormalizeRows divides by.
type Norm int

const (
	NormNone Norm = iota
	NormMinimum
	NormMedian
	NormMaximum
)

// ParseNorm parses the setting names "none", "minimum", "median" and
// "maximum".
func ParseNorm(s string) (Norm, error) {
	switch s {
	case "none":
		return NormNone, nil
	case "minimum":
		return NormMinimum, nil
	case "median":
		return NormMedian, nil
	case "maximum":
		return NormMaximum, nil
	}
	return NormNone, fmt.Errorf("unknown normalization %q", s)
}

// NormalizeRows divides every row of m in place by the row statistic
// selected by norm, computed over the values that are not missing.
func NormalizeRows(m Matrix, norm Norm) {
	var stat Reducer
	switch norm {
	case NormMinimum:
		stat = Min
	case NormMedian:
		stat = Median
	case NormMaximum:
		stat = Max
	default:
		return
	}
	for _, row := range m {
		d := stat(row)
		for j := range row {
			row[j] /= d
		}
	}
}
