// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package params_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/perf/forensics/cattree"
	"golang.org/x/perf/forensics/cattree/cattreetest"
	"golang.org/x/perf/forensics/params"
)

func TestPresets(t *testing.T) {
	type state struct {
		typ, x, series string
		sel            map[string][]string
	}
	tests := []struct {
		preset, arg string
		want        state
	}{
		{"Default", "", state{params.LinePlot, "gambit-version", "bench", map[string][]string{
			params.Dataset: {"gambit"},
			"bench":        {"pi", "fib"},
		}}},
		{"AvgBenchAllVersion", "", state{params.AllSystems, "gambit-version", params.Dataset, map[string][]string{
			params.Dataset:  {"gambit", "chez"},
			params.Baseline: {"gambit", "chez"},
			params.ToZero:   {"yes"},
			"bench":         {"pi", "fib"},
			"chez-version":  {"C1", "C2"},
		}}},
		{"benchAllVersion", "", state{params.AllSystems, "gambit-version", params.Dataset, map[string][]string{
			params.Dataset: {"gambit", "chez"},
			"bench":        {"pi"},
		}}},
		{"SystemComparator", "", state{params.OrderedBars, params.Dataset, "bench", map[string][]string{
			params.Dataset:  {"gambit", "chez"},
			params.SortX:    {"yes"},
			"bench":         {"pi"},
			params.Baseline: {"fib"},
		}}},
		{"VersionComparator", "", state{params.Comparator, "bench", "gambit-version", map[string][]string{
			"gambit-version": {"V3"},
			params.Baseline:  {"V2"},
			params.Mean:      {"yes"},
		}}},
		{"VersionComparator", "V1", state{params.Comparator, "bench", "gambit-version", map[string][]string{
			"gambit-version": {"V1"},
			params.Baseline:  {"V3"},
		}}},
		{"head", "", state{params.Head, "bench", "gambit-version", map[string][]string{
			"gambit-version": {"V3"},
			params.SortX:     {"yes"},
		}}},
		{"tail", "V2", state{params.Tail, "bench", "gambit-version", map[string][]string{
			"gambit-version": {"V2"},
			params.Baseline:  {"V1"},
		}}},
	}
	for _, test := range tests {
		t.Run(test.preset+"/"+test.arg, func(t *testing.T) {
			r := newRegistry(t, cattreetest.Gambit(t), cattreetest.Chez(t))
			if err := r.SetActive("bench", params.Label("fib")); err != nil {
				t.Fatal(err)
			}
			if err := r.LoadPreset(test.preset, test.arg); err != nil {
				t.Fatal(err)
			}
			checkSel, checkVal := checker(t, r)
			checkVal(params.Type, test.want.typ)
			checkVal(params.X, test.want.x)
			checkVal(params.Series, test.want.series)
			checkVal("measure", "real time")
			for name, want := range test.want.sel {
				checkSel(name, want...)
			}
		})
	}
}

func TestPresetLocks(t *testing.T) {
	r := newRegistry(t, cattreetest.Gambit(t))
	if err := r.LoadPreset("head", ""); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{params.Mean, params.SortX, params.Norm, params.Baseline} {
		if !isLocked(t, r, name) {
			t.Errorf("%s is not locked after the head preset", name)
		}
	}
	if err := r.LoadPreset("Default", ""); err != nil {
		t.Fatal(err)
	}
	if isLocked(t, r, params.Mean) {
		t.Errorf("mean still locked after the Default preset")
	}
}

func TestPresetErrors(t *testing.T) {
	r := newRegistry(t, cattreetest.Gambit(t))
	if err := r.SetActive("bench", params.Label("fib")); err != nil {
		t.Fatal(err)
	}
	before := r.Snapshot()

	if err := r.LoadPreset("nope", ""); !errors.Is(err, params.ErrUnknownPreset) {
		t.Errorf("unknown preset: got %v, want %v", err, params.ErrUnknownPreset)
	}
	if err := r.LoadPreset("VersionComparator", "V9"); !errors.Is(err, cattree.ErrUnknownCategory) {
		t.Errorf("unknown commit: got %v, want %v", err, cattree.ErrUnknownCategory)
	}
	if diff := cmp.Diff(before, r.Snapshot()); diff != "" {
		t.Errorf("failed presets changed the registry (-before +after):\n%s", diff)
	}

	chez := newRegistry(t, cattreetest.Chez(t))
	if err := chez.LoadPreset("AvgBenchAllVersion", ""); !errors.Is(err, params.ErrUnknownOption) {
		t.Errorf("all systems without gambit: got %v, want %v", err, params.ErrUnknownOption)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := newRegistry(t, cattreetest.Gambit(t), cattreetest.Chez(t))
	if err := r.LoadPreset("SystemComparator", ""); err != nil {
		t.Fatal(err)
	}
	if err := r.SetActive(params.Title, params.Label("systems")); err != nil {
		t.Fatal(err)
	}
	if err := r.SetActive(params.BaselineMode, params.Label("manual")); err != nil {
		t.Fatal(err)
	}
	if err := r.SetActive(params.Baseline, params.All()); err != nil {
		t.Fatal(err)
	}
	want := r.Snapshot()

	b, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	var snap params.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		t.Fatal(err)
	}

	r2 := newRegistry(t, cattreetest.Gambit(t), cattreetest.Chez(t))
	if err := r2.Restore(snap, true); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, r2.Snapshot()); diff != "" {
		t.Errorf("restored state mismatch (-want +got):\n%s", diff)
	}

	// The restored registry keeps working from the restored state.
	checkSel, checkVal := checker(t, r2)
	checkVal(params.Title, "systems")
	if err := r2.SetActive("bench", params.All()); err != nil {
		t.Fatal(err)
	}
	checkSel(params.Baseline, "pi", "fib")
}

func TestRestoreReconciles(t *testing.T) {
	r := newRegistry(t, cattreetest.Gambit(t))
	snap := r.Snapshot()
	typ := snap.Get(params.Type)
	for i, o := range typ.Options {
		if o == params.Comparator {
			typ.Index = i
		}
	}
	snap.Get(params.Baseline).Locked = false

	if err := r.Restore(snap, false); err != nil {
		t.Fatal(err)
	}
	_, checkVal := checker(t, r)
	checkVal(params.Type, params.Comparator)
	checkVal(params.Mean, "yes")
	for _, name := range []string{params.Mean, params.Baseline} {
		if !isLocked(t, r, name) {
			t.Errorf("%s is not locked after restoring a comparator", name)
		}
	}
}

func TestRestoreInvalid(t *testing.T) {
	r := newRegistry(t, cattreetest.Gambit(t))
	before := r.Snapshot()

	short := r.Snapshot()
	short = short[:len(short)-1]

	renamed := r.Snapshot()
	renamed.Get("bench").Options[0] = "nbody"

	outOfRange := r.Snapshot()
	outOfRange.Get(params.Type).Index = 100

	unknown := r.Snapshot()
	unknown.Get(params.Norm).Name = "normalize"

	for name, snap := range map[string]params.Snapshot{
		"short":      short,
		"renamed":    renamed,
		"outOfRange": outOfRange,
		"unknown":    unknown,
	} {
		if err := r.Restore(snap, false); err == nil {
			t.Errorf("%s: Restore succeeded", name)
		}
	}
	if diff := cmp.Diff(before, r.Snapshot()); diff != "" {
		t.Errorf("failed restores changed the registry (-before +after):\n%s", diff)
	}
}

func TestSelection(t *testing.T) {
	r := newRegistry(t, cattreetest.Gambit(t))
	tests := []struct {
		in   string
		json string
		want []string
	}{
		{"all", `"all"`, []string{"V1", "V2", "V3"}},
		{"-1", `-1`, []string{"V3"}},
		{"1", `1`, []string{"V2"}},
		{"V1,V3", `["V1","V3"]`, []string{"V1", "V3"}},
		{"V2", `"V2"`, []string{"V2"}},
	}
	for _, test := range tests {
		var fromJSON params.Selection
		if err := json.Unmarshal([]byte(test.json), &fromJSON); err != nil {
			t.Errorf("unmarshal %s: %v", test.json, err)
			continue
		}
		if b, err := json.Marshal(params.ParseSelection(test.in)); err != nil || string(b) != test.json {
			t.Errorf("marshal of %q = %s, %v, want %s", test.in, b, err, test.json)
		}
		for _, sel := range []params.Selection{params.ParseSelection(test.in), fromJSON} {
			if err := r.SetActive("gambit-version", sel); err != nil {
				t.Errorf("SetActive(%v): %v", sel, err)
				continue
			}
			got, _ := r.Selected("gambit-version")
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("selection %v mismatch (-want +got):\n%s", sel, diff)
			}
		}
	}

	var sel params.Selection
	if err := json.Unmarshal([]byte(`{"a":1}`), &sel); err == nil {
		t.Errorf("unmarshal of an object succeeded")
	}
	if _, err := json.Marshal(params.Last(3)); err == nil {
		t.Errorf("marshal of Last(3) succeeded")
	}
}
