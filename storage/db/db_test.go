// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package db_test

import (
	"context"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/perf/forensics/cattree"
	"golang.org/x/perf/forensics/dataset"
	. "golang.org/x/perf/forensics/storage/db"
	"golang.org/x/perf/forensics/storage/db/dbtest"
)

// Most of the db package is also tested via the end-to-end tests in
// forensics/storage/app.

func TestSplitQueryWords(t *testing.T) {
	for _, test := range []struct {
		q    string
		want []string
	}{
		{"hello world", []string{"hello", "world"}},
		{"hello\\ world", []string{"hello world"}},
		{`"key:value two" and\ more`, []string{"key:value two", "and more"}},
		{`one" two"\ three four`, []string{"one two three", "four"}},
		{`"4'7\""`, []string{`4'7"`}},
	} {
		have := SplitQueryWords(test.q)
		if !reflect.DeepEqual(have, test.want) {
			t.Errorf("splitQueryWords(%q) = %+v, want %+v", test.q, have, test.want)
		}
	}
}

// TestUploadIDs verifies that NewUpload generates the correct sequence of upload IDs.
func TestUploadIDs(t *testing.T) {
	ctx := context.Background()

	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	defer SetNow(time.Unix(0, 0))()

	tests := []struct {
		sec int64
		id  string
	}{
		{0, "19700101.1"},
		{0, "19700101.2"},
		{86400, "19700102.1"},
		{86400, "19700102.2"},
		{86400, "19700102.3"},
		{86400, "19700102.4"},
		{86400, "19700102.5"},
		{86400, "19700102.6"},
		{86400, "19700102.7"},
		{86400, "19700102.8"},
		{86400, "19700102.9"},
		{86400, "19700102.10"},
		{86400, "19700102.11"},
	}
	for _, test := range tests {
		SetNow(time.Unix(test.sec, 0))
		u, err := db.NewUpload(ctx)
		if err != nil {
			t.Fatalf("NewUpload: %v", err)
		}
		if err := u.Commit(); err != nil {
			t.Fatalf("Commit: %v", err)
		}
		if u.ID != test.id {
			t.Fatalf("u.ID = %q, want %q", u.ID, test.id)
		}
	}
	if n, err := db.CountUploads(); err != nil || n != len(tests) {
		t.Errorf("CountUploads() = %d, %v, want %d", n, err, len(tests))
	}
}

var runs = []dataset.Record{
	{System: "gambit", Commit: "a1", Message: "first", Timestamp: time.UnixMilli(1000).UTC(), Config: "-O1", Benchmark: "fib", Values: []float64{1, 2}},
	{System: "gambit", Commit: "a1", Config: "-O1", Benchmark: "tak", Values: []float64{3}},
	{System: "gambit", Commit: "b2", Timestamp: time.UnixMilli(2000).UTC(), Config: "-O1", Benchmark: "fib"},
	{System: "chez", Commit: "c1", Benchmark: "fib", Measure: "cpu time", Values: []float64{0.5}},
}

// TestRecords verifies that inserted runs come back with their
// commit metadata and defaults filled in.
func TestRecords(t *testing.T) {
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()
	ctx := context.Background()

	dbtest.Insert(t, db, runs...)
	if n, err := db.CountRuns(); err != nil || n != len(runs) {
		t.Errorf("CountRuns() = %d, %v, want %d", n, err, len(runs))
	}

	got, err := db.Records(ctx, "system:gambit")
	if err != nil {
		t.Fatal(err)
	}
	want := []dataset.Record{
		{System: "gambit", Commit: "a1", Message: "first", Timestamp: time.UnixMilli(1000).UTC(), Config: "-O1", Benchmark: "fib", Measure: "real time", Values: []float64{1, 2}},
		{System: "gambit", Commit: "a1", Message: "first", Timestamp: time.UnixMilli(1000).UTC(), Config: "-O1", Benchmark: "tak", Measure: "real time", Values: []float64{3}},
		{System: "gambit", Commit: "b2", Timestamp: time.UnixMilli(2000).UTC(), Config: "-O1", Benchmark: "fib", Measure: "real time"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Records mismatch (-want +got):\n%s", diff)
	}

	for _, test := range []struct {
		q    string
		want int // -1 means we want an error
	}{
		{"", 4},
		{"system:chez", 1},
		{"system:gambit benchmark:fib", 2},
		{"system:gambit benchmark:fib commit:b2", 1},
		{`measure:"cpu time"`, 1},
		{"config:default", 1},
		{"system:racket", 0},
		{"bogus query", -1},
		{"colour:red", -1},
	} {
		t.Run("query="+test.q, func(t *testing.T) {
			recs, err := db.Records(ctx, test.q)
			if test.want < 0 {
				if err == nil {
					t.Fatal("Records succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(recs) != test.want {
				t.Errorf("got %d runs, want %d", len(recs), test.want)
			}
		})
	}
}

// TestInsertRunInvalid verifies that runs missing a key are rejected
// and that an aborted upload leaves no runs.
func TestInsertRunInvalid(t *testing.T) {
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	u, err := db.NewUpload(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := u.InsertRun(runs[0]); err != nil {
		t.Fatal(err)
	}
	if err := u.InsertRun(dataset.Record{System: "gambit", Commit: "a1"}); err == nil {
		t.Error("InsertRun without a benchmark succeeded")
	}
	if err := u.Abort(); err != nil {
		t.Fatal(err)
	}
	if n, err := db.CountRuns(); err != nil || n != 0 {
		t.Errorf("CountRuns() = %d, %v after Abort, want 0", n, err)
	}
}

// TestReplaceUpload verifies that the expected number of rows exist after replacing an upload.
func TestReplaceUpload(t *testing.T) {
	defer SetNow(time.Unix(0, 0))()
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	u := dbtest.Insert(t, db, runs...)
	if u.Runs() != len(runs) {
		t.Errorf("u.Runs() = %d, want %d", u.Runs(), len(runs))
	}

	for _, uploadid := range []string{u.ID, "new"} {
		u, err := db.ReplaceUpload(uploadid)
		if err != nil {
			t.Fatalf("ReplaceUpload: %v", err)
		}
		if err := u.InsertRun(runs[3]); err != nil {
			t.Fatalf("InsertRun: %v", err)
		}
		if err := u.Commit(); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}

	recs, err := db.Records(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	// Uploads with undated IDs sort first.
	var got []string
	for _, r := range recs {
		got = append(got, r.System+"/"+r.Commit)
	}
	if want := []string{"chez/c1", "chez/c1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("runs after replace = %q, want %q", got, want)
	}
	for _, id := range []string{"19700101.1", "new"} {
		recs, err := db.Records(context.Background(), "upload:"+id)
		if err != nil || len(recs) != 1 {
			t.Errorf("upload %s has %d runs (%v), want 1", id, len(recs), err)
		}
	}
}

// TestDatasets verifies that the database is a dataset source.
func TestDatasets(t *testing.T) {
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()
	dbtest.Insert(t, db, runs...)

	var src dataset.Source = db
	trees, err := src.Datasets(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(trees) != 2 || trees[0].Name != "chez" || trees[1].Name != "gambit" {
		t.Fatalf("Datasets = %v, want chez and gambit", trees)
	}
	gambit := trees[1]
	d, err := gambit.Dimension("measure")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"real time", "cpu time"}; !reflect.DeepEqual(d.Categories, want) {
		t.Errorf("measures = %q, want %q", d.Categories, want)
	}
	if !strings.HasPrefix(gambit.Metas()[0], "a1\n") || !strings.HasSuffix(gambit.Metas()[0], "\nfirst") {
		t.Errorf("a1 metadata = %q", gambit.Metas()[0])
	}
	ctx, err := gambit.NamedContext(map[string]cattree.Selection{
		"measure": cattree.Labels("real time"),
		"stat":    cattree.Labels("mean"),
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := gambit.Slice(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// a1 fib, a1 tak, b2 fib (failed), b2 tak (not run).
	want := []float64{1.5, 3, math.NaN(), math.NaN()}
	if diff := cmp.Diff(want, res.Mean, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("gambit means mismatch (-want +got):\n%s", diff)
	}
}
