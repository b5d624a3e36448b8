// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dbtest provides run databases for tests.
package dbtest

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"flag"
	"fmt"
	"sync"
	"testing"

	_ "github.com/GoogleCloudPlatform/cloudsql-proxy/proxy/dialers/mysql"
	"golang.org/x/perf/forensics/dataset"
	"golang.org/x/perf/forensics/storage/db"
	_ "golang.org/x/perf/forensics/storage/db/sqlite3"
)

var (
	cloud    = flag.Bool("cloud", false, "run against a Cloud SQL database instead of in-memory SQLite")
	cloudsql = flag.String("cloudsql", "", "`instance` of Cloud SQL to create test databases on")
)

// NewDB opens an empty run database: an in-memory SQLite database, or
// with -cloud a new database on the -cloudsql instance. Call cleanup
// instead of Close when done; on Cloud SQL it also drops the database.
func NewDB(t testing.TB) (d *db.DB, cleanup func()) {
	t.Helper()
	driver, dsn, drop := "sqlite3", ":memory:", func() {}
	if *cloud {
		driver = "mysql"
		dsn, drop = cloudDB(t)
	}
	d, err := db.OpenSQL(driver, dsn)
	if err != nil {
		drop()
		t.Fatalf("opening %s run database: %v", driver, err)
	}
	var once sync.Once
	cleanup = func() {
		once.Do(func() {
			d.Close()
			drop()
		})
	}
	if err := checkEmpty(d); err != nil {
		cleanup()
		t.Fatal(err)
	}
	return d, cleanup
}

// checkEmpty fails if d already holds uploads, runs or datasets.
func checkEmpty(d *db.DB) error {
	uploads, err := d.CountUploads()
	if err != nil {
		return err
	}
	runs, err := d.CountRuns()
	if err != nil {
		return err
	}
	trees, err := d.Datasets(context.Background())
	if err != nil {
		return err
	}
	if uploads != 0 || runs != 0 || len(trees) != 0 {
		return fmt.Errorf("new run database holds %d upload(s), %d run(s) and %d dataset(s)", uploads, runs, len(trees))
	}
	return nil
}

// cloudDB creates a database with a random name on the -cloudsql
// instance. It returns the DSN of the database and a function that
// drops it.
func cloudDB(t testing.TB) (dsn string, drop func()) {
	t.Helper()
	if *cloudsql == "" {
		t.Fatal("-cloud requires -cloudsql")
	}
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		t.Fatal(err)
	}
	name := "forensics_test_" + hex.EncodeToString(buf[:])
	server := fmt.Sprintf("root:@cloudsql(%s)/", *cloudsql)

	admin, err := sql.Open("mysql", server)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := admin.Exec("CREATE DATABASE " + name); err != nil {
		admin.Close()
		t.Fatalf("creating Cloud SQL database: %v", err)
	}
	t.Logf("using Cloud SQL database %s", name)
	return server + name, func() {
		if _, err := admin.Exec("DROP DATABASE " + name); err != nil {
			t.Errorf("dropping Cloud SQL database %s: %v", name, err)
		}
		admin.Close()
	}
}

// Insert stores recs in d as one committed upload.
func Insert(t testing.TB, d *db.DB, recs ...dataset.Record) *db.Upload {
	t.Helper()
	u, err := d.NewUpload(context.Background())
	if err != nil {
		t.Fatalf("NewUpload: %v", err)
	}
	for _, r := range recs {
		if err := u.InsertRun(r); err != nil {
			u.Abort()
			t.Fatalf("InsertRun(%s/%s/%s): %v", r.System, r.Commit, r.Benchmark, err)
		}
	}
	if err := u.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return u
}
