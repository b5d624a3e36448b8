// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package storage

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/context"
	"golang.org/x/perf/forensics/benchmath"
	"golang.org/x/perf/forensics/dataset"
	"golang.org/x/perf/forensics/params"
	"golang.org/x/perf/forensics/storage/app"
	"golang.org/x/perf/forensics/storage/db/dbtest"
)

func newServer(t *testing.T) (*Client, func()) {
	db, cleanup := dbtest.NewDB(t)
	a := &app.App{DB: db}
	if err := a.Load(context.Background()); err != nil {
		cleanup()
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	a.RegisterOnMux(mux)
	ts := httptest.NewServer(mux)
	return &Client{BaseURL: ts.URL}, func() {
		ts.Close()
		cleanup()
	}
}

func TestUpload(t *testing.T) {
	c, done := newServer(t)
	defer done()
	ctx := context.Background()

	recs := []dataset.Record{
		{System: "gambit", Commit: "v1", Timestamp: time.Unix(1, 0), Benchmark: "fib", Values: []float64{10}},
		{System: "gambit", Commit: "v2", Timestamp: time.Unix(2, 0), Benchmark: "fib", Values: []float64{12, 14}},
		{System: "chez", Commit: "c1", Timestamp: time.Unix(1, 0), Benchmark: "fib", Values: []float64{5}},
	}
	u := c.NewUpload(ctx)
	w, err := u.CreateFile("runs.csv")
	if err != nil {
		u.Abort()
		t.Fatal(err)
	}
	if err := dataset.WriteCSV(w, recs); err != nil {
		u.Abort()
		t.Fatal(err)
	}
	status, err := u.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if status.Runs != 3 || len(status.FileIDs) != 1 {
		t.Errorf("Commit() = %+v, want 3 runs in 1 file", status)
	}

	trees, err := c.Datasets(ctx)
	if err != nil {
		t.Fatalf("Datasets: %v", err)
	}
	var names []string
	for _, tr := range trees {
		names = append(names, tr.Name)
	}
	if diff := cmp.Diff([]string{"chez", "gambit"}, names); diff != "" {
		t.Errorf("Datasets() mismatch (-want +got):\n%s", diff)
	}
}

func TestUploadAbort(t *testing.T) {
	c, done := newServer(t)
	defer done()
	ctx := context.Background()

	u := c.NewUpload(ctx)
	w, err := u.CreateFile("runs.csv")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "system,commit,benchmark,values\ngambit,v1,fib,1\n")
	if err := u.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	trees, err := c.Datasets(ctx)
	if err != nil {
		t.Fatalf("Datasets: %v", err)
	}
	if len(trees) != 0 {
		t.Errorf("Datasets() after Abort returned %d datasets", len(trees))
	}
}

func TestSession(t *testing.T) {
	c, done := newServer(t)
	defer done()
	ctx := context.Background()

	u := c.NewUpload(ctx)
	w, _ := u.CreateFile("")
	io.WriteString(w, "system,commit,timestamp,benchmark,values\ngambit,v1,1000,fib,10\ngambit,v2,2000,fib,15\n")
	if _, err := u.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	s, err := c.NewSession(ctx)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	initial := s.Params
	if err := s.LoadPreset(ctx, "VersionComparator", "v1"); err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if got := s.Params.Get(params.Type).Value(); got != params.Comparator {
		t.Errorf("plot type after preset = %q, want %q", got, params.Comparator)
	}
	f, err := s.Figure(ctx)
	if err != nil {
		t.Fatalf("Figure: %v", err)
	}
	if f.Type != params.Comparator || len(f.Changes) != 1 {
		t.Errorf("comparator figure %+v, want one change", f)
	}

	if err := s.Set(ctx, "gambit-version", params.Label("nope")); err == nil {
		t.Errorf("Set of unknown version succeeded")
	}
	if err := s.Restore(ctx, initial, true); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	f, err = s.Figure(ctx)
	if err != nil {
		t.Fatalf("Figure: %v", err)
	}
	if want := (benchmath.Matrix{{10, 15}}); !cmp.Equal(f.Mean, want) {
		t.Errorf("figure mean after restore %v, want %v", f.Mean, want)
	}

	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := s.Figure(ctx); err == nil {
		t.Errorf("Figure after Close succeeded")
	}
}
