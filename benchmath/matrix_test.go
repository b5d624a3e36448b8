// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchmath

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestNaNMatrix(t *testing.T) {
	m := NaNMatrix(2, 3)
	if r, c, err := m.Dims(); r != 2 || c != 3 || err != nil {
		t.Fatalf("Dims = %d, %d, %v, want 2, 3, nil", r, c, err)
	}
	m[0][1] = 1
	if !IsMissing(m[1][1]) {
		t.Errorf("rows of NaNMatrix share storage")
	}
}

func TestTranspose(t *testing.T) {
	got, err := Transpose(Matrix{{1, 2, 3}, {4, 5, 6}})
	if err != nil {
		t.Fatal(err)
	}
	want := Matrix{{1, 4}, {2, 5}, {3, 6}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Transpose mismatch (-want +got):\n%s", diff)
	}

	if got, err := Transpose(Matrix{}); err != nil || len(got) != 0 {
		t.Errorf("Transpose of empty matrix = %v, %v", got, err)
	}

	if _, err := Transpose(Matrix{{1, 2}, {3}}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Transpose of ragged matrix: got %v, want ErrShapeMismatch", err)
	}
}

func TestReduceAxis(t *testing.T) {
	check := func(m Matrix, axis int, want []float64) {
		t.Helper()
		got, err := MeanAxis(m, axis)
		if err != nil {
			t.Errorf("MeanAxis(%v, %d): %v", m, axis, err)
			return
		}
		if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
			t.Errorf("MeanAxis(%v, %d) mismatch (-want +got):\n%s", m, axis, diff)
		}
	}
	check(Matrix{{1}, {2}, {3}}, 0, []float64{2})
	check(Matrix{{1}, {2}, {3}}, 1, []float64{1, 2, 3})
	check(Matrix{{1, nan}, {3, nan}}, 0, []float64{2, nan})

	sd, err := StdDevAxis(Matrix{{3, 1}, {4, nan}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{2.5, 1}, sd); diff != "" {
		t.Errorf("StdDevAxis mismatch (-want +got):\n%s", diff)
	}

	for _, axis := range []int{0, 1} {
		if _, err := MeanAxis(Matrix{{1, 2}, {3}}, axis); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("MeanAxis(ragged, %d): got %v, want ErrShapeMismatch", axis, err)
		}
	}
}

func TestElementwise(t *testing.T) {
	got, err := Elementwise(Mean,
		Matrix{{1, 1}, {nan, 1}},
		Matrix{{3, 3}, {3, 3}},
		Matrix{{5, 5}, {5, 5}})
	if err != nil {
		t.Fatal(err)
	}
	want := Matrix{{3, 3}, {4, 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Elementwise(Mean) mismatch (-want +got):\n%s", diff)
	}

	if _, err := Elementwise(Mean, Matrix{{1, 2}}, Matrix{{1}}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Elementwise of different shapes: got %v, want ErrShapeMismatch", err)
	}
}

func TestNormalizeRows(t *testing.T) {
	check := func(norm Norm, want []float64) {
		t.Helper()
		m := Matrix{{nan, 2, 4, 8}}
		NormalizeRows(m, norm)
		if diff := cmp.Diff(want, m[0], cmpopts.EquateNaNs()); diff != "" {
			t.Errorf("NormalizeRows(%v) mismatch (-want +got):\n%s", norm, diff)
		}
	}
	check(NormNone, []float64{nan, 2, 4, 8})
	check(NormMinimum, []float64{nan, 1, 2, 4})
	check(NormMaximum, []float64{nan, .25, .5, 1})
	check(NormMedian, []float64{nan, .5, 1, 2})
}

func TestParseNorm(t *testing.T) {
	for s, want := range map[string]Norm{"none": NormNone, "minimum": NormMinimum, "median": NormMedian, "maximum": NormMaximum} {
		got, err := ParseNorm(s)
		if err != nil || got != want {
			t.Errorf("ParseNorm(%q) = %v, %v, want %v", s, got, err, want)
		}
	}
	if _, err := ParseNorm("mode"); err == nil {
		t.Errorf("ParseNorm(mode) succeeded")
	}
}
