// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Forensicsd runs an HTTP server for performance forensics.
//
// Usage:
//
//	forensicsd [-addr address] [-dsn file.db] [-bucket name] [path...]
//
// Each path is a dataset JSON file, a run CSV file, or a directory
// holding such files. The server serves them together with the runs
// uploaded to its sqlite database. With -bucket, it also serves the
// datasets stored in a Google Cloud Storage bucket and archives
// uploaded files there.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"golang.org/x/net/context"
	"golang.org/x/perf/forensics/dataset"
	"golang.org/x/perf/forensics/dataset/gcs"
	"golang.org/x/perf/forensics/storage/app"
	"golang.org/x/perf/forensics/storage/db"
	_ "golang.org/x/perf/forensics/storage/db/sqlite3"
)

var (
	addr   = flag.String("addr", ":8080", "serve HTTP on `address`")
	dsn    = flag.String("dsn", ":memory:", "sqlite `dsn`")
	bucket = flag.String("bucket", "", "read datasets from and archive uploads to GCS `bucket`")
	prefix = flag.String("prefix", "datasets/", "read datasets under `prefix` of the bucket")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage of forensicsd:
	forensicsd [flags] [path...]
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	log.SetPrefix("forensicsd: ")
	flag.Usage = usage
	flag.Parse()
	ctx := context.Background()

	db, err := db.OpenSQL("sqlite3", *dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	a := &app.App{
		DB:   db,
		Auth: func(http.ResponseWriter, *http.Request) (string, error) { return "", nil },
	}
	if flag.NArg() > 0 {
		a.Sources = append(a.Sources, &dataset.Files{Paths: flag.Args(), Warn: log.Printf})
	}
	if *bucket != "" {
		datasets, err := gcs.NewBucket(ctx, *bucket, *prefix)
		if err != nil {
			log.Fatal(err)
		}
		archive, err := gcs.NewBucket(ctx, *bucket, "")
		if err != nil {
			log.Fatal(err)
		}
		a.Sources = append(a.Sources, datasets)
		a.Archive = archive
	}
	if err := a.Load(ctx); err != nil {
		log.Fatalf("loading datasets: %v", err)
	}
	a.RegisterOnMux(http.DefaultServeMux)

	log.Printf("Listening on %s", *addr)

	log.Fatal(http.ListenAndServe(*addr, nil))
}
