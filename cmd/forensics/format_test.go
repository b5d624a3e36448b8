// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/perf/forensics/benchmath"
	"golang.org/x/perf/forensics/cattree"
	"golang.org/x/perf/forensics/cattree/cattreetest"
	"golang.org/x/perf/forensics/params"
	"golang.org/x/perf/forensics/query"
)

func TestFormatFigure(t *testing.T) {
	f := &query.Figure{
		Title:        "Benchmarks Performance by Gambit Revisions",
		Caption:      "Y axis: real time",
		X:            "gambit-version",
		Series:       "bench",
		XLabels:      []string{"V1", "V2"},
		SeriesLabels: []string{"pi", "fib"},
		Mean:         benchmath.Matrix{{10, 20.5}, {1, math.NaN()}},
		SD:           benchmath.Matrix{{0, 0.5}, {0.25, math.NaN()}},
		Absent:       []string{"gambit/V2/fib"},
	}
	var buf strings.Builder
	if err := formatFigure(&buf, f); err != nil {
		t.Fatal(err)
	}
	want := `Benchmarks Performance by Gambit Revisions
Y axis: real time

Benchmarks \ Gambit Revisions        V1          V2
pi                                   10  20.5 ± 0.5
fib                            1 ± 0.25           -
missing: gambit/V2/fib
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("formatFigure mismatch (-want +got):\n%s", diff)
	}
}

func TestNewSession(t *testing.T) {
	defer func(sets setFlags, preset string) {
		flagSets, *flagPreset = sets, preset
	}(flagSets, *flagPreset)

	*flagPreset = "VersionComparator:V2"
	flagSets = nil
	for _, v := range []string{"sortX=yes", "bench=fib"} {
		if err := flagSets.Set(v); err != nil {
			t.Fatal(err)
		}
	}
	if err := flagSets.Set("bench"); err == nil {
		t.Errorf("Set(%q) succeeded", "bench")
	}

	s, err := newSession([]*cattree.Tree{cattreetest.Gambit(t)})
	if err != nil {
		t.Fatal(err)
	}
	reg := s.Registry()
	if got, _ := reg.Value(params.Type); got != params.Comparator {
		t.Errorf("plot type %q, want %q", got, params.Comparator)
	}
	if got, _ := reg.Selected("gambit-version"); !cmp.Equal(got, []string{"V2"}) {
		t.Errorf("gambit-version selects %q, want V2", got)
	}
	if got, _ := reg.Selected("bench"); !cmp.Equal(got, []string{"fib"}) {
		t.Errorf("bench selects %q, want fib", got)
	}
	var buf strings.Builder
	if err := formatParams(&buf, reg); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Plot Type") {
		t.Errorf("formatParams output lacks display names:\n%s", buf.String())
	}
}
